// Package resolver flattens the settings document, the catalog and the blob
// store into the ResolvedSoundConfig handed to the page.
package resolver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/remowork/soundswap/internal/catalog"
	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/store"
)

// BlobSource reads uploaded custom sounds.
type BlobSource interface {
	GetSound(ctx context.Context, id domain.SoundID) (*domain.StoredBlob, error)
}

// PresetAssets locates bundled preset files.
type PresetAssets interface {
	PresetURL(fileName string) (string, bool)
}

// Resolver computes ResolvedSoundConfig values on demand.
type Resolver struct {
	catalog *catalog.Catalog
	blobs   BlobSource
	assets  PresetAssets
	logger  *slog.Logger
}

// New creates a Resolver.
func New(cat *catalog.Catalog, blobs BlobSource, assets PresetAssets, log *slog.Logger) *Resolver {
	return &Resolver{
		catalog: cat,
		blobs:   blobs,
		assets:  assets,
		logger:  logger.OrDiscard(log),
	}
}

// Resolve projects settings onto every catalog entry. It never fails:
// a reference that cannot be honored degrades that sound to original.
func (r *Resolver) Resolve(ctx context.Context, settings *domain.Settings) domain.ResolvedSoundConfig {
	enabled := true
	if settings != nil {
		enabled = settings.Enabled
	}

	entries := r.catalog.Entries()
	out := domain.ResolvedSoundConfig{
		Enabled: enabled,
		Sounds:  make(map[domain.SoundID]domain.ResolvedSound, len(entries)),
	}

	for _, entry := range entries {
		setting := settings.Sound(entry.ID)
		mode, ref := r.resolveOne(ctx, entry.ID, setting)
		out.Sounds[entry.ID] = domain.ResolvedSound{
			MatchPaths:         entry.MatchPaths,
			Mode:               mode,
			ResolvedPayloadRef: ref,
		}
	}

	return out
}

func (r *Resolver) resolveOne(ctx context.Context, id domain.SoundID, setting domain.SoundSetting) (domain.Mode, *string) {
	switch setting.Mode {
	case domain.ModeCustom:
		blob, err := r.blobs.GetSound(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				r.logger.Debug("custom sound without blob, using original", "id", id)
			} else {
				r.logger.Warn("blob read failed, using original", "id", id, "error", err)
			}
			return domain.ModeOriginal, nil
		}
		return domain.ModeCustom, domain.StringPtr(blob.DataURI())

	case domain.ModePreset:
		preset, ok := r.catalog.Preset(id, setting.PresetID)
		if !ok {
			r.logger.Debug("unknown preset, using original", "id", id, "preset_id", setting.PresetID)
			return domain.ModeOriginal, nil
		}
		if preset.IsSilence() {
			return domain.ModePreset, domain.StringPtr(catalog.SilencePayload())
		}
		u, ok := r.assets.PresetURL(*preset.FileName)
		if !ok {
			r.logger.Warn("preset file missing, using original", "id", id, "file", *preset.FileName)
			return domain.ModeOriginal, nil
		}
		return domain.ModePreset, domain.StringPtr(u)

	default:
		return domain.ModeOriginal, nil
	}
}
