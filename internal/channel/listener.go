package channel

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/page"
)

// Applier consumes configuration updates on the page side.
type Applier interface {
	Apply(cfg domain.ResolvedSoundConfig)
}

// Listener is the page-side end of the channel. It applies only messages
// from the page's own origin carrying the private source tag.
type Listener struct {
	window  *page.Window
	applier Applier
	logger  *slog.Logger

	mu           sync.Mutex
	lastRevision uint64
	applied      int
	remove       func()
}

// Listen attaches a listener to w that forwards config updates to applier.
// revision is the revision the page already runs with; older updates are
// dropped.
func Listen(w *page.Window, applier Applier, revision uint64, log *slog.Logger) *Listener {
	l := &Listener{
		window:       w,
		applier:      applier,
		logger:       logger.OrDiscard(log),
		lastRevision: revision,
	}
	l.remove = w.AddMessageListener(l.handle)
	return l
}

// Close detaches the listener.
func (l *Listener) Close() {
	l.remove()
}

// Applied returns how many updates were applied.
func (l *Listener) Applied() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied
}

func (l *Listener) handle(ev page.MessageEvent) {
	if ev.Origin != l.window.Origin() {
		return
	}

	var env Envelope
	if err := json.Unmarshal(ev.Data, &env); err != nil {
		// Page traffic that is not ours.
		return
	}
	if !env.IsConfigUpdate() {
		return
	}

	cfg, err := env.Config()
	if err != nil {
		l.logger.Warn("discarding malformed config update", "revision", env.Revision, "error", err)
		return
	}

	l.mu.Lock()
	if env.Revision < l.lastRevision {
		l.mu.Unlock()
		l.logger.Debug("discarding stale config update", "revision", env.Revision, "last", l.lastRevision)
		return
	}
	l.lastRevision = env.Revision
	l.applied++
	l.mu.Unlock()

	l.applier.Apply(cfg)
}
