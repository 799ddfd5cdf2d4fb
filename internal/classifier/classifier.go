// Package classifier is the request/response boundary to the isolated
// gesture-recognition document. The recognizer itself is a black box; this
// package only frames requests, carries them over a message port and
// tolerates the receiver not being initialized yet.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/remowork/soundswap/internal/id"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/retry"
)

// TypeDetectHandSign tags hand-sign detection requests.
const TypeDetectHandSign = "DETECT_HAND_SIGN"

// ErrNotReady is returned by a port whose receiving document has not
// finished initializing.
var ErrNotReady = errors.New("classifier: receiver not ready")

// Image is raw RGBA pixel data.
type Image struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// Gesture is a recognized hand sign.
type Gesture struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Request is the framed message sent to the receiving document.
type Request struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Image Image  `json:"image"`
}

// Response answers one Request. Gesture is nil when nothing was recognized.
type Response struct {
	ID      string   `json:"id"`
	Gesture *Gesture `json:"gesture"`
	Error   string   `json:"error,omitempty"`
}

// Port carries one serialized request to the receiving document and returns
// its serialized response.
type Port interface {
	Call(ctx context.Context, msg []byte) ([]byte, error)
}

// Client issues classifier requests over a Port.
type Client struct {
	port   Port
	policy retry.Policy
	logger *slog.Logger
}

// NewClient creates a client. A receiver that is not ready is retried
// according to policy.
func NewClient(port Port, policy retry.Policy, log *slog.Logger) *Client {
	return &Client{
		port:   port,
		policy: policy,
		logger: logger.OrDiscard(log),
	}
}

// DetectHandSign asks the receiving document to classify img. It returns
// nil, nil when no hand sign is recognized.
func (c *Client) DetectHandSign(ctx context.Context, img Image) (*Gesture, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Data) == 0 {
		return nil, fmt.Errorf("classifier: empty image")
	}

	req := Request{
		ID:    id.MustGenerate(id.PrefixMessage),
		Type:  TypeDetectHandSign,
		Image: img,
	}
	msg, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	resp, err := retry.Do(ctx, c.policy, func() (Response, error) {
		raw, err := c.port.Call(ctx, msg)
		if err != nil {
			if errors.Is(err, ErrNotReady) {
				return Response{}, err
			}
			return Response{}, retry.Permanent(err)
		}
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return Response{}, retry.Permanent(fmt.Errorf("decode classifier response: %w", err))
		}
		return resp, nil
	}, func(err error, wait time.Duration) {
		c.logger.Debug("classifier not ready, retrying", "id", req.ID, "wait", wait, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("detect hand sign: %w", err)
	}

	if resp.ID != req.ID {
		return nil, fmt.Errorf("detect hand sign: response %q does not answer %q", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detect hand sign: %s", resp.Error)
	}
	return resp.Gesture, nil
}
