// Package channel carries the resolved sound configuration from the
// background to the page: once at load through a bootstrap node embedded in
// the document, then on every change through a hub, a relay and the page
// window's message bus.
package channel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/id"
)

// Wire constants shared by the relay and the page listener.
const (
	SourceTag        = "remowork-sound-bridge"
	TypeConfigUpdate = "SOUND_CONFIG_UPDATE"
)

// Envelope is one message on the channel. Only plain data crosses.
type Envelope struct {
	Source   string          `json:"source"`
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	Revision uint64          `json:"revision"`
	SentAt   time.Time       `json:"sentAt"`
	Payload  json.RawMessage `json:"payload"`
}

// NewConfigUpdate wraps cfg in a config-update envelope.
func NewConfigUpdate(revision uint64, cfg domain.ResolvedSoundConfig) (Envelope, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal config: %w", err)
	}
	msgID, err := id.Generate(id.PrefixMessage)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Source:   SourceTag,
		Type:     TypeConfigUpdate,
		ID:       msgID,
		Revision: revision,
		SentAt:   time.Now().UTC(),
		Payload:  payload,
	}, nil
}

// IsConfigUpdate reports whether e carries the private source tag and the
// config-update type.
func (e Envelope) IsConfigUpdate() bool {
	return e.Source == SourceTag && e.Type == TypeConfigUpdate
}

// Config decodes the payload into a fresh configuration value.
func (e Envelope) Config() (domain.ResolvedSoundConfig, error) {
	var cfg domain.ResolvedSoundConfig
	if err := json.Unmarshal(e.Payload, &cfg); err != nil {
		return domain.ResolvedSoundConfig{}, fmt.Errorf("decode config payload: %w", err)
	}
	if cfg.Sounds == nil {
		cfg.Sounds = make(map[domain.SoundID]domain.ResolvedSound)
	}
	return cfg, nil
}
