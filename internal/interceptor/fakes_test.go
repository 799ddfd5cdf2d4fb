package interceptor

import (
	"errors"
	"net/http"
	"strings"
	"sync"
)

type fakeMedia struct {
	mu      sync.Mutex
	src     string
	playing bool
	pauses  int
	ended   []func()
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
	m.playing = false
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
	m.pauses++
}

func (m *fakeMedia) OnEnded(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, fn)
}

func (m *fakeMedia) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// finish simulates playback reaching the end.
func (m *fakeMedia) finish() {
	m.mu.Lock()
	m.playing = false
	fns := append([]func(){}, m.ended...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeMediaFactory struct {
	created []*fakeMedia
}

func (f *fakeMediaFactory) NewMedia(src string) Media {
	m := &fakeMedia{src: src}
	f.created = append(f.created, m)
	return m
}

type fakeSound struct {
	opts    SoundOptions
	playing bool
	stops   int
	ended   []func()
}

func (s *fakeSound) Play()  { s.playing = true }
func (s *fakeSound) Pause() { s.playing = false }
func (s *fakeSound) Stop() {
	s.playing = false
	s.stops++
}
func (s *fakeSound) OnEnd(fn func()) { s.ended = append(s.ended, fn) }

type fakeSoundLibrary struct {
	created []*fakeSound
}

func (l *fakeSoundLibrary) NewSound(opts SoundOptions) Sound {
	s := &fakeSound{opts: opts}
	l.created = append(l.created, s)
	return s
}

type recordingTransport struct {
	mu   sync.Mutex
	urls []string
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.urls = append(t.urls, req.URL.String())
	t.mu.Unlock()
	return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody, Request: req}, nil
}

type recordingRequester struct {
	urls []string
}

func (r *recordingRequester) Do(req *http.Request, callback func(*http.Response, error)) {
	r.urls = append(r.urls, req.URL.String())
	callback(&http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody, Request: req}, nil)
}

// pickyMediaFactory refuses extension URLs the way a page CSP does, and its
// elements cannot take inline data sources.
type pickyMediaFactory struct {
	fakeMediaFactory
}

func (f *pickyMediaFactory) NewMedia(src string) Media {
	if strings.HasPrefix(src, "https://ext.example/") {
		panic("blocked by CSP")
	}
	return &pickyMedia{fakeMedia: f.fakeMediaFactory.NewMedia(src).(*fakeMedia)}
}

type pickyMedia struct {
	*fakeMedia
}

func (m *pickyMedia) SetSrc(src string) {
	if strings.HasPrefix(src, "data:") {
		panic("cannot decode data uri without format")
	}
	m.fakeMedia.SetSrc(src)
}

// pickyLibrary cannot build sounds from inline data sources.
type pickyLibrary struct {
	fakeSoundLibrary
}

func (l *pickyLibrary) NewSound(opts SoundOptions) Sound {
	for _, src := range opts.Src {
		if strings.HasPrefix(src, "data:") {
			panic("cannot decode data uri without format")
		}
	}
	return l.fakeSoundLibrary.NewSound(opts)
}

// blockingTransport fails every request to the extension host.
type blockingTransport struct {
	recordingTransport
}

func (t *blockingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, _ := t.recordingTransport.RoundTrip(req)
	if req.URL.Host == "ext.example" {
		return nil, errors.New("net::ERR_BLOCKED_BY_CLIENT")
	}
	return resp, nil
}

// blockingRequester reports an error for every request to the extension host.
type blockingRequester struct {
	recordingRequester
}

func (r *blockingRequester) Do(req *http.Request, callback func(*http.Response, error)) {
	if req.URL.Host == "ext.example" {
		r.urls = append(r.urls, req.URL.String())
		callback(nil, errors.New("net::ERR_BLOCKED_BY_CLIENT"))
		return
	}
	r.recordingRequester.Do(req, callback)
}
