package providers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/samber/do/v2"

	"github.com/remowork/soundswap/internal/api"
	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api     *api.Server
	timeout time.Duration
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	return errors.Join(err, h.api.Shutdown())
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobs := do.MustInvoke[*BlobStoreHandle](i)
	hub := do.MustInvoke[*HubHandle](i)
	stream := do.MustInvoke[*channel.Handler](i)
	soundService := do.MustInvoke[*service.SoundService](i)

	services := &api.Services{
		Sound:    soundService,
		Hub:      hub.Hub,
		Stream:   stream,
		Settings: storeHandle.Store,
		Blobs:    blobs.Store,
	}

	handler := api.NewServer(services, api.Options{
		CORSOrigins:      cfg.Server.CORSOrigins,
		MaxUploadBytes:   cfg.Upload.MaxBytes,
		UploadsPerMinute: cfg.Upload.RatePerMinute,
		Presets:          os.DirFS(cfg.Sounds.PresetPath),
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, api: handler, timeout: shutdownTimeout(cfg)}, nil
}
