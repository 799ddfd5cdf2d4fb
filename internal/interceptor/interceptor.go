// Package interceptor installs a substitution layer in front of the page's
// playback capabilities. Each playback-initiation call resolves its URL
// against the current sound configuration and, on a match, is redirected to
// the configured payload. Substituted instances are tracked while playing so
// they can all be stopped when the user answers a call.
package interceptor

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/page"
)

// Page globals registered by Install.
const (
	GlobalStopAll = "remoworkStopAllSounds"
	GlobalStatus  = "remoworkSoundStatus"
)

// Options configures an Interceptor.
type Options struct {
	// Points selects the interception points; zero means AllPoints.
	Points Point
	// Answer recognizes call-answer clicks; nil uses the defaults.
	Answer *AnswerMatcher
	Logger *slog.Logger
}

// Status is a debugging snapshot.
type Status struct {
	Installed     bool   `json:"installed"`
	Enabled       bool   `json:"enabled"`
	CachedIDs     int    `json:"cachedIds"`
	TrackedMedia  int    `json:"trackedMedia"`
	TrackedSounds int    `json:"trackedSounds"`
	Overrides     uint64 `json:"overrides"`
}

type indexEntry struct {
	path string
	id   domain.SoundID
}

// Interceptor is the per-page-load substitution layer. Construct one per
// page with New; it owns the path index, the resolved-URL cache and the
// tracking sets.
type Interceptor struct {
	window  *page.Window
	base    *url.URL
	points  Point
	answer  *AnswerMatcher
	logger  *slog.Logger
	startup bool

	mu     sync.Mutex
	cfg    domain.ResolvedSoundConfig
	index  []indexEntry
	cache  map[domain.SoundID]string
	media  map[uuid.UUID]*trackedMedia
	sounds map[uuid.UUID]*trackedSound

	installOnce sync.Once
	installed   atomic.Bool
	wrapped     Capabilities
	overrides   atomic.Uint64
}

// New creates the interceptor for window, starting from the configuration
// read at page load.
func New(window *page.Window, cfg domain.ResolvedSoundConfig, opts Options) *Interceptor {
	if opts.Points == 0 {
		opts.Points = AllPoints
	}
	if opts.Answer == nil {
		opts.Answer = NewAnswerMatcher(nil, nil)
	}

	ic := &Interceptor{
		window:  window,
		base:    window.Document().URL(),
		points:  opts.Points,
		answer:  opts.Answer,
		logger:  logger.OrDiscard(opts.Logger),
		startup: cfg.Enabled,
		media:   make(map[uuid.UUID]*trackedMedia),
		sounds:  make(map[uuid.UUID]*trackedSound),
	}
	ic.applyLocked(cfg)
	return ic
}

// Install puts the interception layer in front of caps and returns the
// wrapped capabilities. It runs once; later calls return the first result.
// When the start-up configuration is disabled, caps are returned untouched
// and nothing is registered on the page.
func (ic *Interceptor) Install(caps Capabilities) Capabilities {
	ic.installOnce.Do(func() {
		if !ic.startup {
			ic.logger.Info("sound substitution disabled, interceptor not installed")
			ic.wrapped = caps
			return
		}

		ic.wrapped = Capabilities{
			Media:     caps.Media,
			Sounds:    caps.Sounds,
			Transport: caps.Transport,
			Requester: caps.Requester,
		}
		if caps.Media != nil && ic.points.Has(PointMedia|PointSrc) {
			ic.wrapped.Media = &mediaFactory{inner: caps.Media, ic: ic}
		}
		if caps.Sounds != nil && ic.points.Has(PointSoundLibrary) {
			ic.wrapped.Sounds = &soundLibrary{inner: caps.Sounds, ic: ic}
		}
		if caps.Transport != nil && ic.points.Has(PointFetch) {
			ic.wrapped.Transport = &transport{base: caps.Transport, ic: ic}
		}
		if caps.Requester != nil && ic.points.Has(PointRequester) {
			ic.wrapped.Requester = &requester{inner: caps.Requester, ic: ic}
		}

		ic.window.Document().AddClickListener(ic.onClick, true)
		ic.window.SetGlobal(GlobalStopAll, ic.StopAll)
		ic.window.SetGlobal(GlobalStatus, ic.Status)

		ic.installed.Store(true)
		ic.logger.Info("sound interceptor installed", "sounds", len(ic.cfg.Sounds))
	})
	return ic.wrapped
}

// Apply replaces the configuration. Only the resolved-URL cache is reset;
// tracked instances and already-constructed media are left alone.
func (ic *Interceptor) Apply(cfg domain.ResolvedSoundConfig) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.applyLocked(cfg)
	ic.logger.Debug("sound configuration applied", "enabled", cfg.Enabled, "sounds", len(cfg.Sounds))
}

func (ic *Interceptor) applyLocked(cfg domain.ResolvedSoundConfig) {
	ic.cfg = cfg.Clone()
	ic.cache = make(map[domain.SoundID]string)

	ic.index = ic.index[:0]
	for _, id := range ic.cfg.IDs() {
		for _, p := range ic.cfg.Sounds[id].MatchPaths {
			ic.index = append(ic.index, indexEntry{path: p, id: id})
		}
	}
}

// ResolveSubstitution returns the payload to use instead of the requested
// URL. Only the first URL of a fallback list is considered.
func (ic *Interceptor) ResolveSubstitution(urls ...string) (string, bool) {
	return ic.substitute("resolve", urls...)
}

// substitute resolves under panic protection; any failure means no
// substitution.
func (ic *Interceptor) substitute(point string, urls ...string) (ref string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ic.logger.Error("substitution failed, using original", "point", point, "panic", fmt.Sprint(r))
			ref, ok = "", false
		}
	}()

	if len(urls) == 0 {
		return "", false
	}
	u, err := ic.base.Parse(strings.TrimSpace(urls[0]))
	if err != nil {
		return "", false
	}

	ic.mu.Lock()
	defer ic.mu.Unlock()

	if !ic.cfg.Enabled {
		return "", false
	}

	id, matched := ic.matchLocked(u.Path)
	if !matched {
		return "", false
	}

	if cached, hit := ic.cache[id]; hit {
		return cached, true
	}
	payload, has := ic.cfg.Sounds[id].Payload()
	if !has {
		return "", false
	}
	ic.cache[id] = payload
	ic.logger.Debug("sound substituted", "point", point, "id", id)
	return payload, true
}

// matchLocked finds the sound for path: exact match first, then suffix.
func (ic *Interceptor) matchLocked(path string) (domain.SoundID, bool) {
	if path == "" {
		return "", false
	}
	for _, e := range ic.index {
		if path == e.path {
			return e.id, true
		}
	}
	for _, e := range ic.index {
		if strings.HasSuffix(path, e.path) {
			return e.id, true
		}
	}
	return "", false
}

// StopAll stops every tracked substituted instance, clears both tracking
// sets and returns how many were stopped.
func (ic *Interceptor) StopAll() int {
	ic.mu.Lock()
	media := make([]*trackedMedia, 0, len(ic.media))
	for _, m := range ic.media {
		media = append(media, m)
	}
	sounds := make([]*trackedSound, 0, len(ic.sounds))
	for _, s := range ic.sounds {
		sounds = append(sounds, s)
	}
	clear(ic.media)
	clear(ic.sounds)
	ic.mu.Unlock()

	for _, m := range media {
		ic.guard("stop media", m.forceStop)
	}
	for _, s := range sounds {
		ic.guard("stop sound", s.forceStop)
	}

	if n := len(media) + len(sounds); n > 0 {
		ic.logger.Info("stopped substituted sounds", "media", len(media), "sounds", len(sounds))
		return n
	}
	return 0
}

// Status reports cache and tracking sizes.
func (ic *Interceptor) Status() Status {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return Status{
		Installed:     ic.installed.Load(),
		Enabled:       ic.cfg.Enabled,
		CachedIDs:     len(ic.cache),
		TrackedMedia:  len(ic.media),
		TrackedSounds: len(ic.sounds),
		Overrides:     ic.overrides.Load(),
	}
}

// WrapMedia puts source-assignment interception in front of a media element
// created outside the factory. It is a no-op before Install, when disabled,
// or when source interception is off.
func (ic *Interceptor) WrapMedia(m Media) Media {
	if m == nil || !ic.installed.Load() || !ic.points.Has(PointSrc) {
		return m
	}
	if tm, ok := m.(*trackedMedia); ok {
		return tm
	}
	return ic.newTrackedMedia(m, false)
}

func (ic *Interceptor) onClick(ev *page.ClickEvent) {
	ic.guard("answer click", func() {
		if ic.answer.Match(ev.Target) {
			ic.logger.Debug("answer click detected")
			ic.StopAll()
		}
	})
}

// guard runs fn, recovering and logging a panic.
func (ic *Interceptor) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			ic.logger.Error("interceptor recovered", "op", what, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// attempt runs a host call that carries a substituted payload. A panic is
// recovered and reported as ok == false, and the caller repeats the call
// with the original arguments.
func attempt[T any](ic *Interceptor, point string, fn func() T) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ic.logger.Error("substituted call failed, using original", "point", point, "panic", fmt.Sprint(r))
			var zero T
			v, ok = zero, false
		}
	}()
	return fn(), true
}

func (ic *Interceptor) countOverride() {
	ic.overrides.Add(1)
}

// track adds or removes a handle from a tracking set.
func trackLocked[T any](set map[uuid.UUID]T, handle uuid.UUID, v T, playing bool) {
	if playing {
		set[handle] = v
		return
	}
	delete(set, handle)
}
