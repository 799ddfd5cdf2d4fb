package channel

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/id"
	"github.com/remowork/soundswap/internal/logger"
)

const (
	defaultHubBuffer        = 64
	defaultSubscriberBuffer = 8
)

// Subscriber is one connected relay.
type Subscriber struct {
	ID          string
	ConnectedAt time.Time
	Updates     chan Envelope
	Done        chan struct{}
}

// Hub fans configuration updates out to every connected relay. It has a
// single producer; each subscriber receives updates in publish order.
// Every update is a full snapshot, so when a subscriber's buffer is full
// the oldest pending one is discarded.
type Hub struct {
	subscribers map[string]*Subscriber
	events      chan Envelope
	logger      *slog.Logger
	mu          sync.RWMutex

	latestMu sync.RWMutex
	latest   *Envelope

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
	running    bool
	// stopped is closed when Start returns.
	stopped chan struct{}
}

// NewHub creates a new Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		events:      make(chan Envelope, defaultHubBuffer),
		logger:      logger.OrDiscard(log),
		stopped:     make(chan struct{}),
	}
}

// Start runs the broadcast loop until ctx is done or Shutdown has drained
// the queue. Call it once, in its own goroutine.
func (h *Hub) Start(ctx context.Context) {
	h.shutdownMu.Lock()
	if h.running {
		h.shutdownMu.Unlock()
		return
	}
	h.running = true
	h.shutdownMu.Unlock()
	defer close(h.stopped)

	h.logger.Info("config hub starting")

	for {
		select {
		case env, ok := <-h.events:
			if !ok {
				// Shutdown closed the queue and everything buffered before
				// it has been broadcast.
				return
			}
			h.broadcast(env)

		case <-ctx.Done():
			h.logger.Info("config hub stopping")
			h.closeAll()
			return
		}
	}
}

// Shutdown stops accepting updates, lets the broadcast loop drain the queue
// and closes every subscriber. Without a running loop the queue is drained
// here instead.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownMu.Lock()
	if h.shutdown {
		h.shutdownMu.Unlock()
		return nil
	}
	h.shutdown = true
	close(h.events)
	running := h.running
	h.running = true
	h.shutdownMu.Unlock()

	if running {
		select {
		case <-h.stopped:
		case <-ctx.Done():
			h.logger.Warn("config hub drain timeout, some updates may be lost")
		}
	} else {
		for env := range h.events {
			h.broadcast(env)
		}
	}

	h.closeAll()

	h.logger.Info("config hub shutdown complete")
	return nil
}

// Publish queues a configuration snapshot for every subscriber.
func (h *Hub) Publish(revision uint64, cfg domain.ResolvedSoundConfig) {
	env, err := NewConfigUpdate(revision, cfg)
	if err != nil {
		h.logger.Error("failed to build config update", "revision", revision, "error", err)
		return
	}
	h.Emit(env)
}

// Emit queues an envelope for broadcast. Updates after shutdown are dropped.
func (h *Hub) Emit(env Envelope) {
	h.latestMu.Lock()
	if h.latest == nil || env.Revision >= h.latest.Revision {
		latest := env
		h.latest = &latest
	}
	h.latestMu.Unlock()

	h.shutdownMu.RLock()
	defer h.shutdownMu.RUnlock()

	if h.shutdown {
		return
	}

	for {
		select {
		case h.events <- env:
			return
		default:
		}
		// Queue full: discard the oldest snapshot and try again.
		select {
		case old := <-h.events:
			h.logger.Warn("config hub queue full, dropping oldest update", "revision", old.Revision)
		default:
		}
	}
}

// Latest returns the most recent envelope published, if any.
func (h *Hub) Latest() (Envelope, bool) {
	h.latestMu.RLock()
	defer h.latestMu.RUnlock()
	if h.latest == nil {
		return Envelope{}, false
	}
	return *h.latest, true
}

// Connect registers a subscriber. If an update was already published the
// subscriber starts with it.
func (h *Hub) Connect() (*Subscriber, error) {
	subID, err := id.Generate(id.PrefixRelay)
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:          subID,
		ConnectedAt: time.Now(),
		Updates:     make(chan Envelope, defaultSubscriberBuffer),
		Done:        make(chan struct{}),
	}

	h.mu.Lock()
	if latest, ok := h.Latest(); ok {
		sub.Updates <- latest
	}
	h.subscribers[sub.ID] = sub
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("relay connected",
		slog.String("subscriber_id", subID),
		slog.Int("total_subscribers", total))
	return sub, nil
}

// Disconnect removes a subscriber and closes its channels.
func (h *Hub) Disconnect(subID string) {
	h.mu.Lock()
	sub, ok := h.subscribers[subID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, subID)
	total := len(h.subscribers)
	h.mu.Unlock()

	close(sub.Done)
	close(sub.Updates)

	h.logger.Info("relay disconnected",
		slog.String("subscriber_id", subID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)),
		slog.Int("total_subscribers", total))
}

// Subscribers returns an iterator over connected subscribers.
func (h *Hub) Subscribers() iter.Seq[*Subscriber] {
	return func(yield func(*Subscriber) bool) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		for _, sub := range h.subscribers {
			if !yield(sub) {
				return
			}
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) broadcast(env Envelope) {
	var delivered, replaced int

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if deliver(sub.Updates, env) {
			replaced++
			h.logger.Debug("replaced stale update for slow relay",
				slog.String("subscriber_id", sub.ID))
		}
		delivered++
	}

	h.logger.Debug("config update broadcast",
		slog.Uint64("revision", env.Revision),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("replaced", replaced)))
}

// deliver sends env on ch, discarding the oldest pending value when ch is
// full. It reports whether a value was discarded. Only the hub sends on ch.
func deliver(ch chan Envelope, env Envelope) (discarded bool) {
	for {
		select {
		case ch <- env:
			return discarded
		default:
		}
		select {
		case <-ch:
			discarded = true
		default:
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		close(sub.Done)
		close(sub.Updates)
	}
	clear(h.subscribers)
}
