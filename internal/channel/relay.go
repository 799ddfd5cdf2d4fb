package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/retry"
)

// MessageTarget is the page window as seen by the relay.
type MessageTarget interface {
	PostMessage(data []byte, targetOrigin, senderOrigin string) error
}

// Relay re-broadcasts hub updates into one page window, addressed to the
// page origin only.
type Relay struct {
	target MessageTarget
	origin string
	policy retry.Policy
	logger *slog.Logger
}

// NewRelay creates a relay posting to target at origin.
func NewRelay(target MessageTarget, origin string, policy retry.Policy, log *slog.Logger) *Relay {
	return &Relay{
		target: target,
		origin: origin,
		policy: policy,
		logger: logger.OrDiscard(log),
	}
}

// Forward posts env into the page. A failed post is retried once; the
// second failure is returned.
func (r *Relay) Forward(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	_, err = retry.Do(ctx, r.policy, func() (struct{}, error) {
		return struct{}{}, r.target.PostMessage(data, r.origin, r.origin)
	}, func(err error, wait time.Duration) {
		r.logger.Debug("page not ready, retrying post", "revision", env.Revision, "wait", wait, "error", err)
	})
	if err != nil {
		return fmt.Errorf("post config update: %w", err)
	}
	return nil
}

// Run forwards every update until updates closes or ctx is done. Failed
// deliveries are logged and skipped; the next snapshot supersedes them.
func (r *Relay) Run(ctx context.Context, updates <-chan Envelope) {
	for {
		select {
		case env, ok := <-updates:
			if !ok {
				return
			}
			if err := r.Forward(ctx, env); err != nil {
				r.logger.Warn("config update not delivered", "revision", env.Revision, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
