package channel

import (
	"github.com/remowork/soundswap/internal/domain"
)

func testConfig(enabled bool, incomingRef *string) domain.ResolvedSoundConfig {
	mode := domain.ModeOriginal
	if incomingRef != nil {
		mode = domain.ModePreset
	}
	return domain.ResolvedSoundConfig{
		Enabled: enabled,
		Sounds: map[domain.SoundID]domain.ResolvedSound{
			domain.SoundIncoming: {
				MatchPaths:         []string{"/client/incoming.mp3", "/sounds/incoming.mp3"},
				Mode:               mode,
				ResolvedPayloadRef: incomingRef,
			},
		},
	}
}

type recordingApplier struct {
	configs []domain.ResolvedSoundConfig
}

func (a *recordingApplier) Apply(cfg domain.ResolvedSoundConfig) {
	a.configs = append(a.configs, cfg)
}
