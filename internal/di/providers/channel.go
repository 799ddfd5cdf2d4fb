package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/logger"
)

// HubHandle wraps the config hub with its context for lifecycle management.
type HubHandle struct {
	*channel.Hub
	cancel  context.CancelFunc
	timeout time.Duration
}

// Shutdown implements do.Shutdownable.
func (h *HubHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.Hub.Shutdown(ctx)
}

// ProvideHub provides the config update hub.
func ProvideHub(i do.Injector) (*HubHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	hub := channel.NewHub(log.Component("hub"))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)

	log.Info("Config hub started")

	return &HubHandle{Hub: hub, cancel: cancel, timeout: shutdownTimeout(cfg)}, nil
}

// ProvideStreamHandler provides the SSE endpoint out-of-process relays subscribe to.
func ProvideStreamHandler(i do.Injector) (*channel.Handler, error) {
	log := do.MustInvoke[*logger.Logger](i)
	hub := do.MustInvoke[*HubHandle](i)

	return channel.NewHandler(hub.Hub, log.Component("stream")), nil
}
