package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/remowork/soundswap/internal/logger"
)

// DefaultReloadDelay coalesces bursts of preset changes into one reload.
const DefaultReloadDelay = 250 * time.Millisecond

// Republisher recomputes and broadcasts the resolved configuration.
type Republisher interface {
	Republish(ctx context.Context)
}

// PresetReloader republishes the sound configuration whenever the preset
// directory changes, so a deleted preset file degrades to the original
// sound on every open page.
type PresetReloader struct {
	watcher *Watcher
	target  Republisher
	delay   time.Duration
	logger  *slog.Logger
}

// NewPresetReloader watches dir and republishes through target.
func NewPresetReloader(dir string, target Republisher, delay time.Duration, log *slog.Logger) (*PresetReloader, error) {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	w, err := New(log, Options{})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(dir); err != nil {
		_ = w.Stop()
		return nil, err
	}

	return &PresetReloader{
		watcher: w,
		target:  target,
		delay:   delay,
		logger:  logger.OrDiscard(log),
	}, nil
}

// Run blocks until ctx is done.
func (r *PresetReloader) Run(ctx context.Context) {
	go func() {
		if err := r.watcher.Start(ctx); err != nil {
			r.logger.Error("preset watcher stopped", "error", err)
		}
	}()

	timer := time.NewTimer(r.delay)
	timer.Stop()
	dirty := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev := <-r.watcher.Events():
			r.logger.Debug("preset file changed", "file", ev.FileName(), "type", string(ev.Type))
			dirty = true
			timer.Reset(r.delay)
		case err := <-r.watcher.Errors():
			r.logger.Warn("preset watcher error", "error", err)
		case <-timer.C:
			if !dirty {
				continue
			}
			dirty = false
			r.logger.Info("preset directory changed, republishing sound configuration")
			r.target.Republish(ctx)
		}
	}
}

// Shutdown stops the underlying watcher.
func (r *PresetReloader) Shutdown() error {
	return r.watcher.Stop()
}
