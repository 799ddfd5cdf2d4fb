package interceptor

import (
	"sync"

	"github.com/google/uuid"
)

type soundLibrary struct {
	inner SoundLibrary
	ic    *Interceptor
}

// NewSound rewrites the source list to the substituted payload before
// delegating. Unmatched options reach the library untouched.
func (l *soundLibrary) NewSound(opts SoundOptions) Sound {
	l.ic.countOverride()

	if ref, ok := l.ic.substitute("sound", opts.Src...); ok {
		rewritten := opts
		rewritten.Src = []string{ref}
		s, built := attempt(l.ic, "sound", func() *trackedSound {
			return l.ic.newTrackedSound(l.inner.NewSound(rewritten))
		})
		if built {
			return s
		}
	}
	return l.inner.NewSound(opts)
}

// trackedSound wraps a substituted library instance to track liveness.
type trackedSound struct {
	inner Sound
	ic    *Interceptor

	mu     sync.Mutex
	state  State
	handle uuid.UUID
}

func (ic *Interceptor) newTrackedSound(inner Sound) *trackedSound {
	s := &trackedSound{inner: inner, ic: ic, state: StateIdle}
	inner.OnEnd(func() { s.transition(EventEnd) })
	return s
}

func (s *trackedSound) Play() {
	s.inner.Play()
	s.transition(EventPlay)
}

func (s *trackedSound) Stop() {
	s.inner.Stop()
	s.transition(EventStop)
}

func (s *trackedSound) Pause() {
	s.inner.Pause()
	s.transition(EventPause)
}

func (s *trackedSound) OnEnd(fn func()) {
	s.inner.OnEnd(fn)
}

func (s *trackedSound) transition(event Event) {
	s.ic.guard("sound "+string(event), func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		next, err := Transition(s.state, event)
		if err != nil {
			s.ic.logger.Debug("ignoring sound event", "error", err)
			return
		}
		prev := s.state
		s.state = next

		if prev.Tracked() == next.Tracked() {
			return
		}
		if next.Tracked() {
			s.handle = uuid.New()
		}

		s.ic.mu.Lock()
		trackLocked(s.ic.sounds, s.handle, s, next.Tracked())
		s.ic.mu.Unlock()
	})
}

func (s *trackedSound) forceStop() {
	s.inner.Stop()
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}
