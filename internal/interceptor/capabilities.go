package interceptor

import "net/http"

// Media is a playable media element.
type Media interface {
	Src() string
	SetSrc(src string)
	Play() error
	Pause()
	// OnEnded registers fn to run when playback reaches the end.
	OnEnded(fn func())
}

// MediaFactory constructs media elements from a URL.
type MediaFactory interface {
	NewMedia(src string) Media
}

// SoundOptions configures a sound-library instance. Src is an ordered list
// of fallback URLs.
type SoundOptions struct {
	Src    []string
	Volume float64
	Loop   bool
	HTML5  bool
}

// Sound is an instance created by the third-party sound library.
type Sound interface {
	Play()
	Stop()
	Pause()
	// OnEnd registers fn to run when playback reaches the end.
	OnEnd(fn func())
}

// SoundLibrary constructs sound-library instances.
type SoundLibrary interface {
	NewSound(opts SoundOptions) Sound
}

// Requester is the callback-style network primitive.
type Requester interface {
	Do(req *http.Request, callback func(*http.Response, error))
}

// Capabilities are the page's playback-initiation primitives. A nil field
// is a capability the page does not have.
type Capabilities struct {
	Media     MediaFactory
	Sounds    SoundLibrary
	Transport http.RoundTripper
	Requester Requester
}

// Point selects an interception point.
type Point uint8

// Interception points.
const (
	PointMedia Point = 1 << iota
	PointSrc
	PointSoundLibrary
	PointFetch
	PointRequester

	AllPoints = PointMedia | PointSrc | PointSoundLibrary | PointFetch | PointRequester
)

// Has reports whether p includes q.
func (p Point) Has(q Point) bool {
	return p&q != 0
}
