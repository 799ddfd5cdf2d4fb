package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"

	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/retry"
)

// maxStreamEventSize bounds one config event; inline custom sounds can be
// large.
const maxStreamEventSize = 512 << 20

// StreamClient subscribes to the hub over HTTP for relays running outside
// the background process.
type StreamClient struct {
	url    string
	client *http.Client
	policy retry.Policy
	logger *slog.Logger
}

// NewStreamClient creates a client for the SSE endpoint at url.
func NewStreamClient(url string, client *http.Client, policy retry.Policy, log *slog.Logger) *StreamClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &StreamClient{
		url:    url,
		client: client,
		policy: policy,
		logger: logger.OrDiscard(log),
	}
}

// Subscribe connects to the stream, retrying a failed connect once, and
// returns a channel of config updates. The channel closes when ctx is done
// or the stream ends.
func (c *StreamClient) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	resp, err := retry.Do(ctx, c.policy, func() (*http.Response, error) {
		return c.connect(ctx)
	}, func(err error, wait time.Duration) {
		c.logger.Warn("stream connect failed, retrying", "url", c.url, "wait", wait, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("connect stream: %w", err)
	}

	out := make(chan Envelope, defaultSubscriberBuffer)
	go c.read(ctx, resp, out)
	return out, nil
}

func (c *StreamClient) connect(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// read parses the SSE stream and forwards config events.
func (c *StreamClient) read(ctx context.Context, resp *http.Response, out chan<- Envelope) {
	defer close(out)
	defer resp.Body.Close()

	for ev, err := range sse.Read(resp.Body, &sse.ReadConfig{MaxEventSize: maxStreamEventSize}) {
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("config stream ended", "error", err)
			}
			return
		}
		if ev.Type != EventUpdate || ev.Data == "" {
			continue
		}

		var env Envelope
		if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
			c.logger.Warn("invalid config event", "error", err)
			continue
		}
		select {
		case out <- env:
		case <-ctx.Done():
			return
		}
	}
}
