package interceptor

import "fmt"

// State is the playback state of one tracked instance.
type State string

// Event drives a State transition.
type Event string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
	StateEnded   State = "ended"
)

const (
	EventPlay  Event = "play"
	EventPause Event = "pause"
	EventStop  Event = "stop"
	EventEnd   Event = "end"
)

// Transition returns the state after event. Only playing is tracked; a
// play after a terminal state starts a new tracked instance.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle, StatePaused, StateStopped, StateEnded:
		switch event {
		case EventPlay:
			return StatePlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePlaying:
		switch event {
		case EventPause:
			return StatePaused, nil
		case EventStop:
			return StateStopped, nil
		case EventEnd:
			return StateEnded, nil
		case EventPlay:
			return StatePlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Tracked reports whether s belongs in a tracking set.
func (s State) Tracked() bool {
	return s == StatePlaying
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
