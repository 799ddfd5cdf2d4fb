// Package domain holds the sound substitution data model shared by the
// background, relay and page contexts.
package domain

import (
	"fmt"
	"maps"
	"mime"
	"slices"
	"strings"
	"time"

	"github.com/vincent-petithory/dataurl"
)

// SoundID is the stable logical key of one substitutable host-application sound.
// It joins the catalog, the settings document and the blob table.
type SoundID string

// Known sound identifiers.
const (
	SoundCalling    SoundID = "calling"
	SoundIncoming   SoundID = "incoming"
	SoundOutgoing   SoundID = "outgoing"
	SoundDisconnect SoundID = "disconnect"
	SoundDoorchime  SoundID = "doorchime"

	// SoundCountdown is the auxiliary snapshot countdown cue.
	SoundCountdown SoundID = "countdown"
)

// Mode is how a sound is resolved.
type Mode string

// Resolution modes.
const (
	ModeOriginal Mode = "original"
	ModePreset   Mode = "preset"
	ModeCustom   Mode = "custom"
)

// SoundCatalogEntry is a static description of a substitutable sound.
type SoundCatalogEntry struct {
	ID SoundID `json:"id"`
	// MatchPaths are URL path suffixes identifying the host asset, in match order.
	MatchPaths []string `json:"matchPaths"`
	Label      string   `json:"label"`
	// Auxiliary categories may offer a silence preset.
	Auxiliary bool `json:"auxiliary,omitempty"`
}

// PresetEntry is a bundled alternative for one category.
type PresetEntry struct {
	Category SoundID `json:"category"`
	PresetID string  `json:"presetId"`
	// FileName is nil for an explicit silence choice.
	FileName *string `json:"fileName"`
	Label    string  `json:"label"`
}

// IsSilence reports whether the preset is the explicit silence choice.
func (p PresetEntry) IsSilence() bool {
	return p.FileName == nil
}

// SoundSetting is the persisted choice for one sound.
type SoundSetting struct {
	Mode     Mode   `json:"mode" validate:"required,oneof=original preset custom"`
	PresetID string `json:"presetId,omitempty" validate:"required_if=Mode preset"`
}

// Settings is the persisted settings document.
type Settings struct {
	Enabled   bool                     `json:"enabled"`
	Sounds    map[SoundID]SoundSetting `json:"sounds"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// NewSettings returns the defaults used when nothing has been saved yet:
// substitution enabled, every sound original.
func NewSettings() *Settings {
	return &Settings{
		Enabled: true,
		Sounds:  make(map[SoundID]SoundSetting),
	}
}

// Sound returns the setting for id, defaulting to original.
func (s *Settings) Sound(id SoundID) SoundSetting {
	if s == nil || s.Sounds == nil {
		return SoundSetting{Mode: ModeOriginal}
	}
	setting, ok := s.Sounds[id]
	if !ok || setting.Mode == "" {
		return SoundSetting{Mode: ModeOriginal}
	}
	return setting
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	out := *s
	out.Sounds = maps.Clone(s.Sounds)
	if out.Sounds == nil {
		out.Sounds = make(map[SoundID]SoundSetting)
	}
	return &out
}

// StoredBlob is an uploaded custom sound.
type StoredBlob struct {
	ID        SoundID   `json:"id"`
	Data      []byte    `json:"-"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DataURI encodes the blob as an inline data URI.
func (b *StoredBlob) DataURI() string {
	return EncodeDataURI(b.MimeType, b.Data)
}

// EncodeDataURI builds a base64 data URI. An unparsable media type is
// written as application/octet-stream.
func EncodeDataURI(mimeType string, data []byte) string {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil || !strings.Contains(mediaType, "/") {
		mediaType, params = "application/octet-stream", nil
	}

	pairs := make([]string, 0, 2*len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		pairs = append(pairs, k, params[k])
	}
	return dataurl.New(data, mediaType, pairs...).String()
}

// DecodeDataURI splits a data URI into its media type and bytes.
// Both base64 and percent-encoded payloads are accepted.
func DecodeDataURI(uri string) (mimeType string, data []byte, err error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return "", nil, fmt.Errorf("decode data uri: %w", err)
	}
	return du.MediaType.String(), du.Data, nil
}

// ResolvedSound is the per-sound substitution decision.
type ResolvedSound struct {
	MatchPaths []string `json:"matchPaths"`
	Mode       Mode     `json:"mode"`
	// ResolvedPayloadRef is nil for no substitution, otherwise an inline
	// data URI (custom, silence) or an extension-local URL (preset).
	ResolvedPayloadRef *string `json:"resolvedPayloadRef"`
}

// Payload returns the payload reference and whether one is set.
func (r ResolvedSound) Payload() (string, bool) {
	if r.ResolvedPayloadRef == nil {
		return "", false
	}
	return *r.ResolvedPayloadRef, true
}

// ResolvedSoundConfig is the flattened configuration handed to the page.
// It is recomputed on demand and never persisted.
type ResolvedSoundConfig struct {
	Enabled bool                      `json:"enabled"`
	Sounds  map[SoundID]ResolvedSound `json:"sounds"`
}

// IDs returns the configured sound ids in stable order.
func (c ResolvedSoundConfig) IDs() []SoundID {
	ids := slices.Collect(maps.Keys(c.Sounds))
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy.
func (c ResolvedSoundConfig) Clone() ResolvedSoundConfig {
	out := ResolvedSoundConfig{
		Enabled: c.Enabled,
		Sounds:  make(map[SoundID]ResolvedSound, len(c.Sounds)),
	}
	for id, s := range c.Sounds {
		copied := ResolvedSound{
			MatchPaths: slices.Clone(s.MatchPaths),
			Mode:       s.Mode,
		}
		if s.ResolvedPayloadRef != nil {
			ref := *s.ResolvedPayloadRef
			copied.ResolvedPayloadRef = &ref
		}
		out.Sounds[id] = copied
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
