package classifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remowork/soundswap/internal/retry"
)

type detectorFunc func(ctx context.Context, img Image) (*Gesture, error)

func (f detectorFunc) DetectHandSign(ctx context.Context, img Image) (*Gesture, error) {
	return f(ctx, img)
}

var testImage = Image{Width: 2, Height: 1, Data: []byte{0, 0, 0, 255, 255, 255, 255, 255}}

// flakyPort becomes ready after the first call.
type flakyPort struct {
	*Receiver
	calls atomic.Int32
}

func (p *flakyPort) Call(ctx context.Context, msg []byte) ([]byte, error) {
	if p.calls.Add(1) == 1 {
		defer p.MarkReady()
	}
	return p.Receiver.Call(ctx, msg)
}

func peace(context.Context, Image) (*Gesture, error) {
	return &Gesture{Label: "peace", Confidence: 0.93}, nil
}

func TestDetectHandSign(t *testing.T) {
	r := NewReceiver(detectorFunc(peace))
	r.MarkReady()

	c := NewClient(r, retry.Once(time.Millisecond), nil)
	g, err := c.DetectHandSign(context.Background(), testImage)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "peace", g.Label)
	assert.InDelta(t, 0.93, g.Confidence, 1e-9)
}

func TestDetectHandSign_NoGesture(t *testing.T) {
	r := NewReceiver(detectorFunc(func(context.Context, Image) (*Gesture, error) { return nil, nil }))
	r.MarkReady()

	g, err := NewClient(r, retry.Once(time.Millisecond), nil).DetectHandSign(context.Background(), testImage)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestDetectHandSign_RetriesOnceWhenNotReady(t *testing.T) {
	port := &flakyPort{Receiver: NewReceiver(detectorFunc(peace))}

	g, err := NewClient(port, retry.Once(time.Millisecond), nil).DetectHandSign(context.Background(), testImage)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, int32(2), port.calls.Load())
}

func TestDetectHandSign_GivesUpAfterRetry(t *testing.T) {
	r := NewReceiver(detectorFunc(peace))

	_, err := NewClient(r, retry.Once(time.Millisecond), nil).DetectHandSign(context.Background(), testImage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestDetectHandSign_DetectorError(t *testing.T) {
	var calls atomic.Int32
	r := NewReceiver(detectorFunc(func(context.Context, Image) (*Gesture, error) {
		calls.Add(1)
		return nil, errors.New("model not loaded")
	}))
	r.MarkReady()

	_, err := NewClient(r, retry.Once(time.Millisecond), nil).DetectHandSign(context.Background(), testImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
	assert.Equal(t, int32(1), calls.Load(), "remote errors are not retried")
}

func TestDetectHandSign_EmptyImage(t *testing.T) {
	r := NewReceiver(detectorFunc(peace))
	r.MarkReady()

	_, err := NewClient(r, retry.Once(time.Millisecond), nil).DetectHandSign(context.Background(), Image{})
	assert.Error(t, err)
}
