package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/service"
	"github.com/remowork/soundswap/internal/watcher"
)

// PresetReloaderHandle wraps the preset watcher with shutdown capability.
type PresetReloaderHandle struct {
	*watcher.PresetReloader
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *PresetReloaderHandle) Shutdown() error {
	h.cancel()
	return h.PresetReloader.Shutdown()
}

// ProvidePresetReloader watches the preset directory and republishes the
// configuration when files change.
func ProvidePresetReloader(i do.Injector) (*PresetReloaderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	svc := do.MustInvoke[*service.SoundService](i)

	reloader, err := watcher.NewPresetReloader(cfg.Sounds.PresetPath, svc, watcher.DefaultReloadDelay, log.Component("presets"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go reloader.Run(ctx)

	log.Info("Preset watcher started", "path", cfg.Sounds.PresetPath)

	return &PresetReloaderHandle{PresetReloader: reloader, cancel: cancel}, nil
}
