package channel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/remowork/soundswap/internal/logger"
)

// SSE event names.
const (
	EventConnected = "connected"
	EventUpdate    = "config"
	EventHeartbeat = "heartbeat"
)

// Handler streams hub updates to out-of-process relays as Server-Sent Events.
type Handler struct {
	hub               *Hub
	logger            *slog.Logger
	heartbeatInterval time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(hub *Hub, log *slog.Logger) *Handler {
	return &Handler{
		hub:               hub,
		logger:            logger.OrDiscard(log),
		heartbeatInterval: 30 * time.Second,
	}
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Early client disconnect.
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)

	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, err := h.hub.Connect()
	if err != nil {
		h.logger.Error("failed to register relay", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.hub.Disconnect(sub.ID)

	subLogger := h.logger.With(slog.String("subscriber_id", sub.ID))

	if err := h.sendEvent(w, rc, EventConnected, map[string]string{"subscriber_id": sub.ID}); err != nil {
		subLogger.Warn("failed to send initial connection message", slog.String("error", err.Error()))
		return
	}

	ctx := r.Context()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case env, ok := <-sub.Updates:
			if !ok {
				return
			}
			if err := h.sendEvent(w, rc, EventUpdate, env); err != nil {
				subLogger.Info("relay disconnected during send")
				return
			}

		case <-heartbeat.C:
			if err := h.sendEvent(w, rc, EventHeartbeat, map[string]time.Time{"at": time.Now().UTC()}); err != nil {
				subLogger.Info("relay disconnected during heartbeat")
				return
			}

		case <-sub.Done:
			subLogger.Info("relay closed by hub")
			return

		case <-ctx.Done():
			subLogger.Info("relay context canceled")
			return
		}
	}
}

// sendEvent writes one SSE event and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}

	if err := rc.Flush(); err != nil {
		return err
	}

	// Reset after each successful write; not every writer supports it.
	if err := rc.SetWriteDeadline(time.Now().Add(2 * h.heartbeatInterval)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
