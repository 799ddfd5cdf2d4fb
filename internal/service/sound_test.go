package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remowork/soundswap/internal/catalog"
	"github.com/remowork/soundswap/internal/domain"
	domainerrors "github.com/remowork/soundswap/internal/errors"
	"github.com/remowork/soundswap/internal/resolver"
	"github.com/remowork/soundswap/internal/store"
	"github.com/remowork/soundswap/internal/store/sqlite"
)

type recordingPublisher struct {
	mu        sync.Mutex
	revisions []uint64
	configs   []domain.ResolvedSoundConfig
}

func (p *recordingPublisher) Publish(revision uint64, cfg domain.ResolvedSoundConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revisions = append(p.revisions, revision)
	p.configs = append(p.configs, cfg)
}

func (p *recordingPublisher) last() domain.ResolvedSoundConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configs[len(p.configs)-1]
}

// failingSettings refuses every save.
type failingSettings struct {
	SettingsStore
}

func (failingSettings) SaveSoundSettings(context.Context, *domain.Settings) (uint64, error) {
	return 0, errors.New("disk full")
}

const testMaxBytes = 1 << 20

func setupSoundService(t *testing.T) (*SoundService, *recordingPublisher) {
	t.Helper()

	kv, err := store.New(filepath.Join(t.TempDir(), "settings"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	blobs, err := sqlite.Open(filepath.Join(t.TempDir(), "sounds.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	cat := catalog.Default()
	assets := resolver.NewAssetLocator("chrome-extension://ext/sounds", fstest.MapFS{
		"phone_incoming.mp3": {Data: []byte("ID3")},
	})
	res := resolver.New(cat, blobs, assets, nil)

	svc := NewSoundService(kv, blobs, cat, res, UploadLimits{
		MaxBytes:    testMaxBytes,
		MaxDuration: 10 * time.Minute,
	}, nil)
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)
	return svc, pub
}

func silentWAV(t *testing.T) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(
		strings.TrimPrefix(catalog.SilencePayload(), "data:audio/wav;base64,"))
	require.NoError(t, err)
	return raw
}

func wavUpload(t *testing.T) UploadRequest {
	data := silentWAV(t)
	return UploadRequest{
		FileName: "ring.wav",
		MimeType: "audio/wav",
		Size:     int64(len(data)),
		Body:     bytes.NewReader(data),
	}
}

func TestSoundService_CatalogPassthrough(t *testing.T) {
	svc, _ := setupSoundService(t)

	assert.Len(t, svc.GetSoundTypes(), len(catalog.Default().Entries()))
	assert.Len(t, svc.GetPresetSounds(), len(catalog.Default().Presets()))
}

func TestSoundService_SaveSound(t *testing.T) {
	svc, pub := setupSoundService(t)
	ctx := context.Background()

	blob, err := svc.SaveSound(ctx, domain.SoundCalling, wavUpload(t))
	require.NoError(t, err)
	assert.Equal(t, "ring.wav", blob.FileName)
	assert.Equal(t, "audio/wav", blob.MimeType)

	got, err := svc.GetSound(ctx, domain.SoundCalling)
	require.NoError(t, err)
	assert.Equal(t, silentWAV(t), got.Data)

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCustom, settings.Sound(domain.SoundCalling).Mode)

	cfg := pub.last()
	ref, ok := cfg.Sounds[domain.SoundCalling].Payload()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(ref, "data:audio/wav;base64,"))
}

// A 301 MB upload for calling is rejected and leaves no trace.
func TestSoundService_SaveSound_OversizedDeclared(t *testing.T) {
	svc, pub := setupSoundService(t)
	svc.limits.MaxBytes = 300 << 20
	ctx := context.Background()

	_, err := svc.SaveSound(ctx, domain.SoundCalling, UploadRequest{
		FileName: "huge.mp3",
		MimeType: "audio/mpeg",
		Size:     301 << 20,
		Body:     strings.NewReader("ID3"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrPayloadTooLarge)

	_, err = svc.GetSound(ctx, domain.SoundCalling)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOriginal, settings.Sound(domain.SoundCalling).Mode)
	assert.Empty(t, pub.revisions)
}

func TestSoundService_SaveSound_OversizedStream(t *testing.T) {
	svc, _ := setupSoundService(t)
	ctx := context.Background()

	data := append([]byte("ID3"), make([]byte, testMaxBytes)...)
	_, err := svc.SaveSound(ctx, domain.SoundCalling, UploadRequest{
		FileName: "big.mp3",
		Size:     -1,
		Body:     bytes.NewReader(data),
	})
	assert.ErrorIs(t, err, domainerrors.ErrPayloadTooLarge)

	blobs, err := svc.GetAllSounds(ctx)
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestSoundService_SaveSound_RejectsNonAudio(t *testing.T) {
	svc, _ := setupSoundService(t)

	_, err := svc.SaveSound(context.Background(), domain.SoundCalling, UploadRequest{
		FileName: "notes.txt",
		MimeType: "audio/mpeg",
		Size:     11,
		Body:     strings.NewReader("hello world"),
	})
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedMedia)
}

func TestSoundService_SaveSound_Rejects(t *testing.T) {
	svc, _ := setupSoundService(t)
	ctx := context.Background()

	_, err := svc.SaveSound(ctx, "ringtone", wavUpload(t))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.SaveSound(ctx, domain.SoundCalling, UploadRequest{Size: 0, Body: strings.NewReader("")})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSoundService_DeleteSound_RevertsCustom(t *testing.T) {
	svc, pub := setupSoundService(t)
	ctx := context.Background()

	_, err := svc.SaveSound(ctx, domain.SoundCalling, wavUpload(t))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSound(ctx, domain.SoundCalling))

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOriginal, settings.Sound(domain.SoundCalling).Mode)
	assert.Nil(t, pub.last().Sounds[domain.SoundCalling].ResolvedPayloadRef)
}

func TestSoundService_SaveSettings_PresetDropsBlob(t *testing.T) {
	svc, pub := setupSoundService(t)
	ctx := context.Background()

	_, err := svc.SaveSound(ctx, domain.SoundIncoming, wavUpload(t))
	require.NoError(t, err)

	settings := domain.NewSettings()
	settings.Sounds[domain.SoundIncoming] = domain.SoundSetting{Mode: domain.ModePreset, PresetID: "incoming_phone"}
	_, err = svc.SaveSettings(ctx, settings)
	require.NoError(t, err)

	_, err = svc.GetSound(ctx, domain.SoundIncoming)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	ref, ok := pub.last().Sounds[domain.SoundIncoming].Payload()
	require.True(t, ok)
	assert.Equal(t, "chrome-extension://ext/sounds/phone_incoming.mp3", ref)

	assert.Equal(t, []uint64{1, 2}, pub.revisions)
}

func TestSoundService_SaveSettings_OmittedSoundDropsBlob(t *testing.T) {
	svc, _ := setupSoundService(t)
	ctx := context.Background()

	_, err := svc.SaveSound(ctx, domain.SoundCalling, wavUpload(t))
	require.NoError(t, err)

	// calling is left out of the document entirely.
	settings := domain.NewSettings()
	settings.Sounds[domain.SoundIncoming] = domain.SoundSetting{Mode: domain.ModePreset, PresetID: "incoming_phone"}
	_, err = svc.SaveSettings(ctx, settings)
	require.NoError(t, err)

	_, err = svc.GetSound(ctx, domain.SoundCalling)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	blobs, err := svc.GetAllSounds(ctx)
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestSoundService_SaveSound_CommitFailureLeavesNoBlob(t *testing.T) {
	svc, pub := setupSoundService(t)
	ctx := context.Background()
	svc.settings = failingSettings{SettingsStore: svc.settings}

	_, err := svc.SaveSound(ctx, domain.SoundCalling, wavUpload(t))
	require.Error(t, err)

	_, err = svc.GetSound(ctx, domain.SoundCalling)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Empty(t, pub.revisions)
}

func TestSoundService_SaveSound_CommitFailureRestoresPrevious(t *testing.T) {
	svc, _ := setupSoundService(t)
	ctx := context.Background()

	req := wavUpload(t)
	req.FileName = "first.wav"
	_, err := svc.SaveSound(ctx, domain.SoundCalling, req)
	require.NoError(t, err)

	svc.settings = failingSettings{SettingsStore: svc.settings}
	req = wavUpload(t)
	req.FileName = "second.wav"
	_, err = svc.SaveSound(ctx, domain.SoundCalling, req)
	require.Error(t, err)

	got, err := svc.GetSound(ctx, domain.SoundCalling)
	require.NoError(t, err)
	assert.Equal(t, "first.wav", got.FileName)
}

func TestSoundService_SaveSettings_Validation(t *testing.T) {
	svc, pub := setupSoundService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		sounds    map[domain.SoundID]domain.SoundSetting
		wantField string
	}{
		{
			name:      "unknown sound",
			sounds:    map[domain.SoundID]domain.SoundSetting{"ringtone": {Mode: domain.ModeOriginal}},
			wantField: "ringtone",
		},
		{
			name:      "bad mode",
			sounds:    map[domain.SoundID]domain.SoundSetting{domain.SoundCalling: {Mode: "loud"}},
			wantField: "calling.mode",
		},
		{
			name:      "preset without id",
			sounds:    map[domain.SoundID]domain.SoundSetting{domain.SoundCalling: {Mode: domain.ModePreset}},
			wantField: "calling.presetId",
		},
		{
			name: "preset of another category",
			sounds: map[domain.SoundID]domain.SoundSetting{
				domain.SoundCalling: {Mode: domain.ModePreset, PresetID: "incoming_phone"},
			},
			wantField: "calling.presetId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := domain.NewSettings()
			settings.Sounds = tt.sounds

			_, err := svc.SaveSettings(ctx, settings)
			require.Error(t, err)

			var derr *domainerrors.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, domainerrors.CodeValidation, derr.Code)
			assert.Contains(t, derr.Details, tt.wantField)
		})
	}

	assert.Empty(t, pub.revisions)
}

func TestSoundService_ResetSettings(t *testing.T) {
	svc, pub := setupSoundService(t)
	ctx := context.Background()

	_, err := svc.SaveSound(ctx, domain.SoundCalling, wavUpload(t))
	require.NoError(t, err)

	require.NoError(t, svc.ResetSettings(ctx))

	blobs, err := svc.GetAllSounds(ctx)
	require.NoError(t, err)
	assert.Empty(t, blobs)
	assert.Equal(t, domain.ModeOriginal, pub.last().Sounds[domain.SoundCalling].Mode)
}

func TestSoundService_ResolvedConfig(t *testing.T) {
	svc, _ := setupSoundService(t)
	ctx := context.Background()

	rev, cfg, err := svc.ResolvedConfig(ctx)
	require.NoError(t, err)
	assert.Zero(t, rev)
	assert.True(t, cfg.Enabled)

	settings := domain.NewSettings()
	settings.Enabled = false
	_, err = svc.SaveSettings(ctx, settings)
	require.NoError(t, err)

	rev, cfg, err = svc.ResolvedConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)
	assert.False(t, cfg.Enabled)
}

func TestSoundService_Republish(t *testing.T) {
	svc, pub := setupSoundService(t)

	svc.Republish(context.Background())

	require.Len(t, pub.revisions, 1)
	assert.Zero(t, pub.revisions[0])
}
