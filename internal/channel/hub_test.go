package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)
	t.Cleanup(func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		_ = hub.Shutdown(shutdownCtx)
	})
	return hub
}

func receive(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		require.True(t, ok, "channel closed")
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Envelope{}
	}
}

func TestHub_DeliversInOrder(t *testing.T) {
	hub := startHub(t)

	sub, err := hub.Connect()
	require.NoError(t, err)
	defer hub.Disconnect(sub.ID)

	for rev := uint64(1); rev <= 5; rev++ {
		hub.Publish(rev, testConfig(true, nil))
	}

	for want := uint64(1); want <= 5; want++ {
		assert.Equal(t, want, receive(t, sub.Updates).Revision)
	}
}

func TestHub_FanOut(t *testing.T) {
	hub := startHub(t)

	a, err := hub.Connect()
	require.NoError(t, err)
	b, err := hub.Connect()
	require.NoError(t, err)
	assert.Equal(t, 2, hub.SubscriberCount())

	hub.Publish(1, testConfig(true, nil))

	assert.Equal(t, uint64(1), receive(t, a.Updates).Revision)
	assert.Equal(t, uint64(1), receive(t, b.Updates).Revision)

	var ids []string
	for sub := range hub.Subscribers() {
		ids = append(ids, sub.ID)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

func TestHub_ConnectReceivesLatest(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(3, testConfig(false, nil))

	latest, ok := hub.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(3), latest.Revision)

	sub, err := hub.Connect()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), receive(t, sub.Updates).Revision)
}

func TestDeliver_DropsOldestWhenFull(t *testing.T) {
	ch := make(chan Envelope, 2)

	assert.False(t, deliver(ch, Envelope{Revision: 1}))
	assert.False(t, deliver(ch, Envelope{Revision: 2}))
	assert.True(t, deliver(ch, Envelope{Revision: 3}))

	assert.Equal(t, uint64(2), (<-ch).Revision)
	assert.Equal(t, uint64(3), (<-ch).Revision)
}

func TestHub_SlowSubscriberKeepsNewest(t *testing.T) {
	hub := startHub(t)

	sub, err := hub.Connect()
	require.NoError(t, err)

	const total = defaultSubscriberBuffer * 3
	for rev := uint64(1); rev <= total; rev++ {
		hub.Publish(rev, testConfig(true, nil))
	}

	var last uint64
	var received int
	for last < total {
		env := receive(t, sub.Updates)
		assert.Greater(t, env.Revision, last, "updates stay in order")
		last = env.Revision
		received++
	}
	assert.LessOrEqual(t, received, total)
}

func TestHub_DisconnectClosesChannels(t *testing.T) {
	hub := startHub(t)

	sub, err := hub.Connect()
	require.NoError(t, err)
	hub.Disconnect(sub.ID)
	hub.Disconnect(sub.ID)

	_, open := <-sub.Done
	assert.False(t, open)
	assert.Zero(t, hub.SubscriberCount())
}

func TestHub_ShutdownDropsLaterUpdates(t *testing.T) {
	hub := NewHub(nil)
	sub, err := hub.Connect()
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	hub.Publish(1, testConfig(true, nil))

	_, open := <-sub.Done
	assert.False(t, open)
}

func TestHub_ShutdownDeliversQueuedInOrder(t *testing.T) {
	tests := []struct {
		name  string
		start bool
	}{
		{"running loop", true},
		{"no loop", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(nil)
			if tt.start {
				go hub.Start(context.Background())
			}
			sub, err := hub.Connect()
			require.NoError(t, err)

			for rev := uint64(1); rev <= 5; rev++ {
				hub.Publish(rev, testConfig(rev%2 == 0, nil))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			require.NoError(t, hub.Shutdown(ctx))

			var got []uint64
			for env := range sub.Updates {
				got = append(got, env.Revision)
			}
			assert.Equal(t, []uint64{1, 2, 3, 4, 5}, got)
		})
	}
}
