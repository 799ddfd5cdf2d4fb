package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/remowork/soundswap/internal/catalog"
	"github.com/remowork/soundswap/internal/domain"
	domainerrors "github.com/remowork/soundswap/internal/errors"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/resolver"
	"github.com/remowork/soundswap/internal/store"
	"github.com/remowork/soundswap/internal/validation"
)

// SettingsStore persists the settings document.
type SettingsStore interface {
	GetSoundSettings(ctx context.Context) (*domain.Settings, error)
	SaveSoundSettings(ctx context.Context, settings *domain.Settings) (uint64, error)
	ResetSoundSettings(ctx context.Context) error
	SoundSettingsSnapshot(ctx context.Context) (*domain.Settings, uint64, error)
}

// BlobStore persists uploaded custom sounds.
type BlobStore interface {
	GetSound(ctx context.Context, id domain.SoundID) (*domain.StoredBlob, error)
	SaveSound(ctx context.Context, blob *domain.StoredBlob) error
	DeleteSound(ctx context.Context, id domain.SoundID) error
	ListSounds(ctx context.Context) ([]*domain.StoredBlob, error)
}

// ConfigPublisher receives every recomputed configuration, in revision order.
type ConfigPublisher interface {
	Publish(revision uint64, cfg domain.ResolvedSoundConfig)
}

// SoundService owns the sound settings, custom uploads and the resolved
// configuration derived from them.
type SoundService struct {
	settings  SettingsStore
	blobs     BlobStore
	catalog   *catalog.Catalog
	resolver  *resolver.Resolver
	validator *validation.Validator
	limits    UploadLimits
	logger    *slog.Logger

	// mu serializes mutations so publishes follow revision order.
	mu        sync.Mutex
	publisher ConfigPublisher
}

// NewSoundService creates a new sound service.
func NewSoundService(
	settings SettingsStore,
	blobs BlobStore,
	cat *catalog.Catalog,
	res *resolver.Resolver,
	limits UploadLimits,
	log *slog.Logger,
) *SoundService {
	return &SoundService{
		settings:  settings,
		blobs:     blobs,
		catalog:   cat,
		resolver:  res,
		validator: validation.New(),
		limits:    limits,
		logger:    logger.OrDiscard(log),
	}
}

// SetPublisher sets where configuration changes are pushed.
func (s *SoundService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// GetSoundTypes returns the catalog of substitutable sounds.
func (s *SoundService) GetSoundTypes() []domain.SoundCatalogEntry {
	return s.catalog.Entries()
}

// GetPresetSounds returns every bundled preset.
func (s *SoundService) GetPresetSounds() []domain.PresetEntry {
	return s.catalog.Presets()
}

// GetSound returns the custom sound stored for id.
func (s *SoundService) GetSound(ctx context.Context, id domain.SoundID) (*domain.StoredBlob, error) {
	if !s.catalog.Has(id) {
		return nil, domainerrors.NotFoundf("unknown sound %q", id)
	}

	blob, err := s.blobs.GetSound(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("no custom sound for %q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get sound: %w", err)
	}
	return blob, nil
}

// GetAllSounds returns every stored custom sound.
func (s *SoundService) GetAllSounds(ctx context.Context) ([]*domain.StoredBlob, error) {
	blobs, err := s.blobs.ListSounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sounds: %w", err)
	}
	return blobs, nil
}

// SaveSound validates and stores a custom sound for id, then switches that
// sound to custom mode. A rejected upload persists nothing.
func (s *SoundService) SaveSound(ctx context.Context, id domain.SoundID, req UploadRequest) (*domain.StoredBlob, error) {
	if !s.catalog.Has(id) {
		return nil, domainerrors.NotFoundf("unknown sound %q", id)
	}

	data, err := readUpload(req, s.limits)
	if err != nil {
		return nil, err
	}

	mime, err := sniffAudio(data)
	if err != nil {
		return nil, err
	}

	duration, known, err := readDuration(ctx, data, mime)
	if err != nil {
		return nil, fmt.Errorf("read duration: %w", err)
	}
	if !known {
		s.logger.Debug("upload duration unknown, skipping duration check", "id", id, "mime_type", mime.String())
	} else if s.limits.MaxDuration > 0 && duration > s.limits.MaxDuration {
		return nil, domainerrors.Validationf("sound is %s long, limit is %s",
			duration.Round(time.Second), s.limits.MaxDuration)
	}

	fileName := filepath.Base(req.FileName)
	if fileName == "." || fileName == "/" {
		fileName = string(id) + mime.Extension()
	}

	blob := &domain.StoredBlob{
		ID:       id,
		Data:     data,
		FileName: fileName,
		MimeType: mime.String(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.blobs.GetSound(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get sound: %w", err)
	}

	if err := s.blobs.SaveSound(ctx, blob); err != nil {
		return nil, fmt.Errorf("save sound: %w", err)
	}

	settings, err := s.settings.GetSoundSettings(ctx)
	if err == nil {
		settings.Sounds[id] = domain.SoundSetting{Mode: domain.ModeCustom}
		err = s.commitLocked(ctx, settings)
	}
	if err != nil {
		s.restoreSoundLocked(ctx, id, previous)
		return nil, fmt.Errorf("switch %s to custom: %w", id, err)
	}

	s.logger.Info("custom sound saved",
		"id", id,
		"file", blob.FileName,
		"mime_type", blob.MimeType,
		"size", blob.Size,
	)
	return blob, nil
}

// DeleteSound removes the custom sound for id. A sound left in custom mode
// reverts to original.
func (s *SoundService) DeleteSound(ctx context.Context, id domain.SoundID) error {
	if !s.catalog.Has(id) {
		return domainerrors.NotFoundf("unknown sound %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.DeleteSound(ctx, id); err != nil {
		return fmt.Errorf("delete sound: %w", err)
	}

	settings, err := s.settings.GetSoundSettings(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	if settings.Sound(id).Mode == domain.ModeCustom {
		settings.Sounds[id] = domain.SoundSetting{Mode: domain.ModeOriginal}
	}
	if err := s.commitLocked(ctx, settings); err != nil {
		return err
	}

	s.logger.Info("custom sound deleted", "id", id)
	return nil
}

// GetSettings returns the settings document, defaults when never saved.
func (s *SoundService) GetSettings(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.settings.GetSoundSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// SaveSettings validates and replaces the settings document. Sounds set to
// original or preset drop their custom blob. Last write wins.
func (s *SoundService) SaveSettings(ctx context.Context, settings *domain.Settings) (*domain.Settings, error) {
	if settings == nil {
		return nil, domainerrors.Validation("settings are required")
	}
	if err := s.validateSettings(settings); err != nil {
		return nil, err
	}

	next := settings.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commitLocked(ctx, next); err != nil {
		return nil, err
	}

	// Sounds missing from the document are original too.
	for _, entry := range s.catalog.Entries() {
		if next.Sound(entry.ID).Mode == domain.ModeCustom {
			continue
		}
		if err := s.blobs.DeleteSound(ctx, entry.ID); err != nil {
			s.logger.Warn("failed to drop custom sound", "id", entry.ID, "error", err)
		}
	}

	s.logger.Info("sound settings saved", "enabled", next.Enabled, "configured", len(next.Sounds))
	return next, nil
}

// ResetSettings restores the default settings and removes every custom sound.
func (s *SoundService) ResetSettings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blobs, err := s.blobs.ListSounds(ctx)
	if err != nil {
		return fmt.Errorf("list sounds: %w", err)
	}
	for _, b := range blobs {
		if err := s.blobs.DeleteSound(ctx, b.ID); err != nil {
			return fmt.Errorf("delete sound %s: %w", b.ID, err)
		}
	}

	if err := s.settings.ResetSoundSettings(ctx); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}

	s.logger.Info("sound settings reset")
	s.publishLocked(ctx)
	return nil
}

// restoreSoundLocked puts back the blob that was stored for id before a
// failed upload, or removes the upload when there was none.
// Caller must hold s.mu.
func (s *SoundService) restoreSoundLocked(ctx context.Context, id domain.SoundID, previous *domain.StoredBlob) {
	var err error
	if previous != nil {
		err = s.blobs.SaveSound(ctx, previous)
	} else {
		err = s.blobs.DeleteSound(ctx, id)
	}
	if err != nil {
		s.logger.Error("failed to roll back custom sound", "id", id, "error", err)
	}
}

// ResolvedConfig computes the configuration for the page along with the
// settings revision it reflects.
func (s *SoundService) ResolvedConfig(ctx context.Context) (uint64, domain.ResolvedSoundConfig, error) {
	settings, revision, err := s.settings.SoundSettingsSnapshot(ctx)
	if err != nil {
		return 0, domain.ResolvedSoundConfig{}, fmt.Errorf("get settings: %w", err)
	}
	return revision, s.resolver.Resolve(ctx, settings), nil
}

// Republish recomputes the configuration and pushes it without a settings
// change, e.g. after preset files appear or disappear.
func (s *SoundService) Republish(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(ctx)
}

func (s *SoundService) validateSettings(settings *domain.Settings) error {
	details := make(map[string]string)
	for id, setting := range settings.Sounds {
		if !s.catalog.Has(id) {
			details[string(id)] = "is not a known sound"
			continue
		}
		if err := s.validator.ValidateNamed(string(id), setting); err != nil {
			var derr *domainerrors.Error
			if errors.As(err, &derr) {
				if fields, ok := derr.Details.(map[string]string); ok {
					for k, v := range fields {
						details[k] = v
					}
					continue
				}
			}
			return err
		}
		if setting.Mode == domain.ModePreset {
			if _, ok := s.catalog.Preset(id, setting.PresetID); !ok {
				details[string(id)+".presetId"] = fmt.Sprintf("preset %q not found for %s", setting.PresetID, id)
			}
		}
	}

	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("invalid sound settings", details)
	}
	return nil
}

// commitLocked saves settings and publishes the new configuration.
// Caller must hold s.mu.
func (s *SoundService) commitLocked(ctx context.Context, settings *domain.Settings) error {
	revision, err := s.settings.SaveSoundSettings(ctx, settings)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if s.publisher != nil {
		s.publisher.Publish(revision, s.resolver.Resolve(ctx, settings))
	}
	return nil
}

// publishLocked resolves the stored settings and publishes them.
// Caller must hold s.mu.
func (s *SoundService) publishLocked(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	revision, cfg, err := s.ResolvedConfig(ctx)
	if err != nil {
		s.logger.Warn("failed to resolve configuration for publish", "error", err)
		return
	}
	s.publisher.Publish(revision, cfg)
}
