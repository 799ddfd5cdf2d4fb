package interceptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	next, err := Transition(StateIdle, EventPlay)
	require.NoError(t, err)
	require.Equal(t, StatePlaying, next)
	require.True(t, next.Tracked())

	next, err = Transition(next, EventEnd)
	require.NoError(t, err)
	require.Equal(t, StateEnded, next)
	require.False(t, next.Tracked())

	next, err = Transition(next, EventPlay)
	require.NoError(t, err)
	require.Equal(t, StatePlaying, next)
}

func TestTransitionMatrix(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "playing pause", state: StatePlaying, event: EventPause, want: StatePaused},
		{name: "playing stop", state: StatePlaying, event: EventStop, want: StateStopped},
		{name: "playing play is idempotent", state: StatePlaying, event: EventPlay, want: StatePlaying},
		{name: "paused resume", state: StatePaused, event: EventPlay, want: StatePlaying},
		{name: "stopped replay", state: StateStopped, event: EventPlay, want: StatePlaying},
		{name: "idle pause invalid", state: StateIdle, event: EventPause, want: StateIdle, wantErr: true},
		{name: "idle end invalid", state: StateIdle, event: EventEnd, want: StateIdle, wantErr: true},
		{name: "stopped stop invalid", state: StateStopped, event: EventStop, want: StateStopped, wantErr: true},
		{name: "ended pause invalid", state: StateEnded, event: EventPause, want: StateEnded, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.state, tt.event)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, next)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	_, err := Transition(State("buffering"), EventPlay)
	require.Error(t, err)
}
