package extension

import (
	"context"
	"net/http"
	"sync"

	"github.com/remowork/soundswap/internal/classifier"
	"github.com/remowork/soundswap/internal/interceptor"
)

type fakeMedia struct {
	mu      sync.Mutex
	src     string
	playing bool
}

func (m *fakeMedia) Src() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

func (m *fakeMedia) SetSrc(src string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = src
}

func (m *fakeMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	return nil
}

func (m *fakeMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *fakeMedia) OnEnded(func()) {}

type fakeMediaFactory struct{}

func (fakeMediaFactory) NewMedia(src string) interceptor.Media {
	return &fakeMedia{src: src}
}

type fakeSound struct {
	mu      sync.Mutex
	opts    interceptor.SoundOptions
	playing bool
	stops   int
}

func (s *fakeSound) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

func (s *fakeSound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.stops++
}

func (s *fakeSound) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *fakeSound) OnEnd(func()) {}

func (s *fakeSound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

type fakeSoundLibrary struct {
	mu      sync.Mutex
	created []*fakeSound
}

func (l *fakeSoundLibrary) NewSound(opts interceptor.SoundOptions) interceptor.Sound {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := &fakeSound{opts: opts}
	l.created = append(l.created, s)
	return s
}

type teapotTransport struct{}

func (teapotTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody, Request: req}, nil
}

type thumbsUpDetector struct{}

func (thumbsUpDetector) DetectHandSign(_ context.Context, _ classifier.Image) (*classifier.Gesture, error) {
	return &classifier.Gesture{Label: "thumbs_up", Confidence: 0.92}, nil
}
