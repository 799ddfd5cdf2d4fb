// Package main follows a running soundswap process over its update stream
// and prints every configuration a page would apply.
//
// Usage:
//
//	SOUNDSWAP_URL=http://localhost:8787 PAGE_URL=https://remowork.biz/office go run ./cmd/soundtail
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/page"
	"github.com/remowork/soundswap/internal/retry"
)

const streamPath = "/api/v1/sounds/stream"

func main() {
	baseURL := strings.TrimSuffix(envOr("SOUNDSWAP_URL", "http://localhost:8787"), "/")
	pageURL := envOr("PAGE_URL", "https://remowork.biz/office")

	log := logger.New(logger.Config{
		Writer: os.Stderr,
		Format: os.Getenv("LOG_FORMAT"),
		Level:  logger.ParseLevel(os.Getenv("LOG_LEVEL")),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applied, err := run(ctx, baseURL+streamPath, pageURL, log.Logger)
	if err != nil {
		log.Error("soundtail stopped", "error", err)
		os.Exit(1)
	}
	fmt.Printf("applied %d updates\n", applied)
}

// run relays the stream into a headless page until ctx is done and returns
// how many updates the page applied.
func run(ctx context.Context, streamURL, pageURL string, log *slog.Logger) (int, error) {
	window, err := page.NewWindow(pageURL, "<html></html>", log.With(slog.String(logger.ComponentKey, "page")))
	if err != nil {
		return 0, err
	}
	defer window.Unload()

	listener := channel.Listen(window, printer{}, 0, log)
	defer listener.Close()

	policy := retry.Once(time.Second)
	client := channel.NewStreamClient(streamURL, nil, policy, log.With(slog.String(logger.ComponentKey, "stream")))
	updates, err := client.Subscribe(ctx)
	if err != nil {
		return 0, err
	}

	relay := channel.NewRelay(window, window.Origin(), policy, log.With(slog.String(logger.ComponentKey, "relay")))
	relay.Run(ctx, updates)

	if ctx.Err() == nil {
		return listener.Applied(), fmt.Errorf("stream %s closed", streamURL)
	}
	return listener.Applied(), nil
}

// printer applies a configuration by printing it.
type printer struct{}

func (printer) Apply(cfg domain.ResolvedSoundConfig) {
	fmt.Printf("=== %s (enabled: %v) ===\n", time.Now().Format(time.TimeOnly), cfg.Enabled)
	for _, id := range cfg.IDs() {
		s := cfg.Sounds[id]
		ref, ok := s.Payload()
		switch {
		case !ok:
			fmt.Printf("  %-12s %s\n", id, s.Mode)
		case strings.HasPrefix(ref, "data:"):
			fmt.Printf("  %-12s %s inline (%d bytes)\n", id, s.Mode, len(ref))
		default:
			fmt.Printf("  %-12s %s %s\n", id, s.Mode, ref)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
