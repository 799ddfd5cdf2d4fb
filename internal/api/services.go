package api

import (
	"context"

	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/service"
)

// Pinger is a storage backend that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the business logic used by the API server.
type Services struct {
	Sound  *service.SoundService
	Hub    *channel.Hub
	Stream *channel.Handler

	// Settings and Blobs back the health check.
	Settings Pinger
	Blobs    Pinger
}
