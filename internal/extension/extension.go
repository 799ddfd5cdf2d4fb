// Package extension runs the three roles of the sound substitution
// extension in one process: the background owning settings and the hub,
// a relay per open page, and the page realm with its interceptor.
//
// Roles only exchange JSON: the page reads its start-up configuration from
// the bootstrap node injected into its document and receives later changes
// as window messages posted by its relay.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/classifier"
	"github.com/remowork/soundswap/internal/interceptor"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/page"
	"github.com/remowork/soundswap/internal/retry"
	"github.com/remowork/soundswap/internal/service"
)

// Options configures how pages are opened.
type Options struct {
	// RetryDelay is the pause before the single retry of a relay post or
	// classifier call.
	RetryDelay time.Duration
	// Points selects interception points; zero means all.
	Points interceptor.Point
	// AnswerTexts and AnswerClasses override the answer-click match list.
	AnswerTexts   []string
	AnswerClasses []string
	// Detector backs the classifier port of each page; nil disables it.
	Detector classifier.Detector
}

// Extension hands out page loads wired to one background.
type Extension struct {
	sound  *service.SoundService
	hub    *channel.Hub
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	tabs map[*Tab]struct{}
}

// New creates an extension around the background's sound service and hub.
func New(sound *service.SoundService, hub *channel.Hub, opts Options, log *slog.Logger) *Extension {
	return &Extension{
		sound:  sound,
		hub:    hub,
		opts:   opts,
		logger: logger.OrDiscard(log),
		tabs:   make(map[*Tab]struct{}),
	}
}

// Tab is one load of the host page.
type Tab struct {
	Window      *page.Window
	Interceptor *interceptor.Interceptor
	// Caps are the page's capabilities with interception installed in front.
	Caps interceptor.Capabilities
	// Classifier is nil unless the extension has a detector.
	Classifier *classifier.Client

	ext      *Extension
	listener *channel.Listener
	receiver *classifier.Receiver
	subID    string
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// OpenPage loads pageURL serving source. The bootstrap node is injected
// ahead of the page scripts, the interceptor is installed in front of caps
// from the configuration it carries, and a relay starts forwarding updates.
func (e *Extension) OpenPage(ctx context.Context, pageURL, source string, caps interceptor.Capabilities) (*Tab, error) {
	revision, cfg, err := e.sound.ResolvedConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}

	doc, err := channel.InjectBootstrap(source, cfg)
	if err != nil {
		return nil, fmt.Errorf("inject bootstrap: %w", err)
	}

	pageLog := e.logger.With(slog.String(logger.ComponentKey, "page"))
	window, err := page.NewWindow(pageURL, doc, pageLog)
	if err != nil {
		return nil, err
	}

	// The page only sees what its document carries.
	startup, err := channel.ReadBootstrap(window.Document().Source())
	if err != nil {
		return nil, fmt.Errorf("read bootstrap: %w", err)
	}

	ic := interceptor.New(window, startup, interceptor.Options{
		Points: e.opts.Points,
		Answer: interceptor.NewAnswerMatcher(e.opts.AnswerTexts, e.opts.AnswerClasses),
		Logger: pageLog,
	})

	tab := &Tab{
		Window:      window,
		Interceptor: ic,
		Caps:        ic.Install(caps),
		ext:         e,
		listener:    channel.Listen(window, ic, revision, pageLog),
		done:        make(chan struct{}),
	}

	policy := retry.Once(e.opts.RetryDelay)
	if e.opts.Detector != nil {
		tab.receiver = classifier.NewReceiver(e.opts.Detector)
		tab.Classifier = classifier.NewClient(tab.receiver, policy, pageLog)
	}

	sub, err := e.hub.Connect()
	if err != nil {
		tab.listener.Close()
		window.Unload()
		return nil, fmt.Errorf("connect relay: %w", err)
	}
	tab.subID = sub.ID

	relayCtx, cancel := context.WithCancel(context.Background())
	tab.cancel = cancel
	relay := channel.NewRelay(window, window.Origin(), policy,
		e.logger.With(slog.String(logger.ComponentKey, "relay"), slog.String("subscriber_id", sub.ID)))
	go func() {
		defer close(tab.done)
		relay.Run(relayCtx, sub.Updates)
	}()

	if tab.receiver != nil {
		tab.receiver.MarkReady()
	}

	e.mu.Lock()
	e.tabs[tab] = struct{}{}
	e.mu.Unlock()

	e.logger.Info("page opened", "url", pageURL, "enabled", startup.Enabled, "installed", ic.Status().Installed)
	return tab, nil
}

// StopAllSounds calls the page's registered stop-all global, as page
// scripts or the console would. It returns how many sounds were stopped.
func (t *Tab) StopAllSounds() (int, error) {
	v, ok := t.Window.Global(interceptor.GlobalStopAll)
	if !ok {
		return 0, errors.New("stop-all is not registered on this page")
	}
	stop, ok := v.(func() int)
	if !ok {
		return 0, fmt.Errorf("stop-all global has type %T", v)
	}
	return stop(), nil
}

// Applied returns how many live updates the page has applied.
func (t *Tab) Applied() int {
	return t.listener.Applied()
}

// Close unloads the page and stops its relay.
func (t *Tab) Close() {
	t.once.Do(func() {
		t.cancel()
		t.ext.hub.Disconnect(t.subID)
		<-t.done
		t.listener.Close()
		t.Window.Unload()

		t.ext.mu.Lock()
		delete(t.ext.tabs, t)
		t.ext.mu.Unlock()
	})
}

// Tabs returns how many pages are open.
func (e *Extension) Tabs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tabs)
}

// Close unloads every open page.
func (e *Extension) Close() {
	e.mu.Lock()
	tabs := make([]*Tab, 0, len(e.tabs))
	for t := range e.tabs {
		tabs = append(tabs, t)
	}
	e.mu.Unlock()

	for _, t := range tabs {
		t.Close()
	}
}
