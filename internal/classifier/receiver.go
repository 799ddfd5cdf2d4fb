package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Detector is the recognition pipeline hosted by the receiving document.
type Detector interface {
	DetectHandSign(ctx context.Context, img Image) (*Gesture, error)
}

// Receiver is the in-process receiving document. It answers with
// ErrNotReady until MarkReady is called.
type Receiver struct {
	detector Detector
	ready    atomic.Bool
}

// NewReceiver wraps detector.
func NewReceiver(detector Detector) *Receiver {
	return &Receiver{detector: detector}
}

// MarkReady signals that the document finished loading its model.
func (r *Receiver) MarkReady() {
	r.ready.Store(true)
}

// Call implements Port.
func (r *Receiver) Call(ctx context.Context, msg []byte) ([]byte, error) {
	if !r.ready.Load() {
		return nil, ErrNotReady
	}

	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, fmt.Errorf("decode classifier request: %w", err)
	}

	resp := Response{ID: req.ID}
	switch req.Type {
	case TypeDetectHandSign:
		g, err := r.detector.DetectHandSign(ctx, req.Image)
		if err != nil {
			resp.Error = err.Error()
		}
		resp.Gesture = g
	default:
		resp.Error = fmt.Sprintf("unknown request type %q", req.Type)
	}
	return json.Marshal(resp)
}
