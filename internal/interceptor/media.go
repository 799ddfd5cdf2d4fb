package interceptor

import (
	"sync"

	"github.com/google/uuid"
)

type mediaFactory struct {
	inner MediaFactory
	ic    *Interceptor
}

// NewMedia constructs the media element from the substituted payload when
// src matches, otherwise from src unchanged.
func (f *mediaFactory) NewMedia(src string) Media {
	ic := f.ic
	if !ic.points.Has(PointMedia) {
		return ic.newTrackedMedia(f.inner.NewMedia(src), false)
	}

	ic.countOverride()
	if ref, ok := ic.substitute("media", src); ok {
		m, built := attempt(ic, "media", func() *trackedMedia {
			return ic.newTrackedMedia(f.inner.NewMedia(ref), true)
		})
		if built {
			return m
		}
	}
	return ic.wrapUnsubstituted(f.inner.NewMedia(src))
}

// wrapUnsubstituted keeps source interception on an element that did not
// match at construction.
func (ic *Interceptor) wrapUnsubstituted(m Media) Media {
	if !ic.points.Has(PointSrc) {
		return m
	}
	return ic.newTrackedMedia(m, false)
}

// trackedMedia fronts a media element: it intercepts source assignment
// and tracks playback while the element plays a substituted payload.
type trackedMedia struct {
	inner Media
	ic    *Interceptor

	mu          sync.Mutex
	state       State
	handle      uuid.UUID
	substituted bool
}

func (ic *Interceptor) newTrackedMedia(inner Media, substituted bool) *trackedMedia {
	m := &trackedMedia{
		inner:       inner,
		ic:          ic,
		state:       StateIdle,
		substituted: substituted,
	}
	inner.OnEnded(func() { m.transition(EventEnd) })
	return m
}

func (m *trackedMedia) Src() string {
	return m.inner.Src()
}

// SetSrc assigns src, or its substituted payload. A new source resets
// playback, so the element leaves the tracking set.
func (m *trackedMedia) SetSrc(src string) {
	ref, ok := "", false
	if m.ic.points.Has(PointSrc) {
		m.ic.countOverride()
		ref, ok = m.ic.substitute("src", src)
	}

	m.untrack()
	if ok {
		_, ok = attempt(m.ic, "src", func() struct{} {
			m.inner.SetSrc(ref)
			return struct{}{}
		})
	}
	if !ok {
		m.inner.SetSrc(src)
	}

	m.mu.Lock()
	m.substituted = ok
	m.state = StateIdle
	m.mu.Unlock()
}

func (m *trackedMedia) Play() error {
	if err := m.inner.Play(); err != nil {
		return err
	}
	m.transition(EventPlay)
	return nil
}

func (m *trackedMedia) Pause() {
	m.inner.Pause()
	m.transition(EventPause)
}

func (m *trackedMedia) OnEnded(fn func()) {
	m.inner.OnEnded(fn)
}

// Substituted reports whether the element is playing a substituted payload.
func (m *trackedMedia) Substituted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.substituted
}

func (m *trackedMedia) transition(event Event) {
	m.ic.guard("media "+string(event), func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		next, err := Transition(m.state, event)
		if err != nil {
			m.ic.logger.Debug("ignoring media event", "error", err)
			return
		}
		prev := m.state
		m.state = next

		if !m.substituted || prev.Tracked() == next.Tracked() {
			return
		}
		if next.Tracked() {
			m.handle = uuid.New()
		}

		m.ic.mu.Lock()
		trackLocked(m.ic.media, m.handle, m, next.Tracked())
		m.ic.mu.Unlock()
	})
}

func (m *trackedMedia) untrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Tracked() {
		return
	}
	m.ic.mu.Lock()
	delete(m.ic.media, m.handle)
	m.ic.mu.Unlock()
}

// forceStop pauses the element after StopAll has cleared the tracking set.
func (m *trackedMedia) forceStop() {
	m.inner.Pause()
	m.mu.Lock()
	m.state = StateStopped
	m.mu.Unlock()
}
