package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/service"
)

func (s *Server) registerSoundRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSoundTypes",
		Method:      http.MethodGet,
		Path:        "/api/v1/sounds/types",
		Summary:     "List sound types",
		Description: "Returns every substitutable host-application sound",
		Tags:        []string{"Sounds"},
	}, s.handleListSoundTypes)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPresetSounds",
		Method:      http.MethodGet,
		Path:        "/api/v1/sounds/presets",
		Summary:     "List preset sounds",
		Description: "Returns the bundled presets, optionally for one category",
		Tags:        []string{"Sounds"},
	}, s.handleListPresetSounds)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSoundSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/sounds/settings",
		Summary:     "Get sound settings",
		Description: "Returns the settings document, defaults when never saved",
		Tags:        []string{"Sounds"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveSoundSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/sounds/settings",
		Summary:     "Save sound settings",
		Description: "Replaces the settings document; open pages receive the new configuration",
		Tags:        []string{"Sounds"},
	}, s.handleSaveSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetSoundSettings",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sounds/settings",
		Summary:     "Reset sound settings",
		Description: "Restores defaults and removes every custom sound",
		Tags:        []string{"Sounds"},
	}, s.handleResetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCustomSounds",
		Method:      http.MethodGet,
		Path:        "/api/v1/sounds/custom",
		Summary:     "List custom sounds",
		Description: "Returns metadata of every uploaded custom sound",
		Tags:        []string{"Sounds"},
	}, s.handleListCustomSounds)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCustomSound",
		Method:      http.MethodGet,
		Path:        "/api/v1/sounds/custom/{id}",
		Summary:     "Get custom sound",
		Description: "Returns the uploaded audio for a sound",
		Tags:        []string{"Sounds"},
	}, s.handleGetCustomSound)

	huma.Register(s.api, huma.Operation{
		OperationID:  "uploadCustomSound",
		Method:       http.MethodPut,
		Path:         "/api/v1/sounds/custom/{id}",
		Summary:      "Upload custom sound",
		Description:  "Stores an audio file for a sound and switches it to custom mode",
		Tags:         []string{"Sounds"},
		MaxBodyBytes: s.opts.MaxUploadBytes,
		Middlewares:  huma.Middlewares{s.rateLimitUploads},
	}, s.handleUploadCustomSound)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCustomSound",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sounds/custom/{id}",
		Summary:     "Delete custom sound",
		Description: "Removes the uploaded audio; a custom sound reverts to original",
		Tags:        []string{"Sounds"},
	}, s.handleDeleteCustomSound)
}

// === DTOs ===

// SoundTypesOutput lists the sound catalog.
type SoundTypesOutput struct {
	Body struct {
		Types []domain.SoundCatalogEntry `json:"types" doc:"Substitutable sounds in catalog order"`
	}
}

// ListPresetsInput filters presets by category.
type ListPresetsInput struct {
	Category string `query:"category" doc:"Only presets for this sound"`
}

// PresetsOutput lists presets.
type PresetsOutput struct {
	Body struct {
		Presets []domain.PresetEntry `json:"presets" doc:"Bundled presets"`
	}
}

// SoundSettingBody is the choice for one sound.
type SoundSettingBody struct {
	Mode     string `json:"mode" enum:"original,preset,custom" doc:"Resolution mode"`
	PresetID string `json:"presetId,omitempty" doc:"Preset to use when mode is preset"`
}

// SettingsBody is the settings document as sent by clients.
type SettingsBody struct {
	Enabled bool                        `json:"enabled" doc:"Master switch for substitution"`
	Sounds  map[string]SoundSettingBody `json:"sounds,omitempty" doc:"Per-sound choices keyed by sound id"`
}

// SettingsResponse is the stored settings document.
type SettingsResponse struct {
	SettingsBody
	UpdatedAt *time.Time `json:"updatedAt,omitempty" doc:"Last save time, absent for defaults"`
}

// SettingsOutput wraps the settings document.
type SettingsOutput struct {
	Body SettingsResponse
}

// SaveSettingsInput replaces the settings document.
type SaveSettingsInput struct {
	Body SettingsBody
}

// CustomSoundResponse describes an uploaded sound without its data.
type CustomSoundResponse struct {
	ID        string    `json:"id" doc:"Sound id"`
	FileName  string    `json:"fileName" doc:"Original file name"`
	MimeType  string    `json:"mimeType" doc:"Detected audio type"`
	Size      int64     `json:"size" doc:"Size in bytes"`
	UpdatedAt time.Time `json:"updatedAt" doc:"Upload time"`
}

// CustomSoundsOutput lists uploaded sounds.
type CustomSoundsOutput struct {
	Body struct {
		Sounds []CustomSoundResponse `json:"sounds" doc:"Uploaded custom sounds"`
	}
}

// SoundIDInput addresses one sound.
type SoundIDInput struct {
	ID string `path:"id" doc:"Sound id"`
}

// CustomSoundDataOutput is the raw audio of a custom sound.
type CustomSoundDataOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	CacheControl       string `header:"Cache-Control"`
	Body               []byte
}

// UploadSoundInput carries a custom sound upload.
type UploadSoundInput struct {
	ID          string `path:"id" doc:"Sound id"`
	FileName    string `query:"fileName" doc:"Original file name"`
	ContentType string `header:"Content-Type" doc:"Declared audio type"`
	RawBody     []byte
}

// CustomSoundOutput wraps one uploaded sound's metadata.
type CustomSoundOutput struct {
	Body CustomSoundResponse
}

// === Handlers ===

func (s *Server) handleListSoundTypes(_ context.Context, _ *struct{}) (*SoundTypesOutput, error) {
	out := &SoundTypesOutput{}
	out.Body.Types = s.services.Sound.GetSoundTypes()
	return out, nil
}

func (s *Server) handleListPresetSounds(_ context.Context, input *ListPresetsInput) (*PresetsOutput, error) {
	presets := s.services.Sound.GetPresetSounds()
	if input.Category != "" {
		filtered := presets[:0]
		for _, p := range presets {
			if string(p.Category) == input.Category {
				filtered = append(filtered, p)
			}
		}
		presets = filtered
	}

	out := &PresetsOutput{}
	out.Body.Presets = presets
	if out.Body.Presets == nil {
		out.Body.Presets = []domain.PresetEntry{}
	}
	return out, nil
}

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	settings, err := s.services.Sound.GetSettings(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	return &SettingsOutput{Body: toSettingsResponse(settings)}, nil
}

func (s *Server) handleSaveSettings(ctx context.Context, input *SaveSettingsInput) (*SettingsOutput, error) {
	settings := domain.NewSettings()
	settings.Enabled = input.Body.Enabled
	for id, setting := range input.Body.Sounds {
		settings.Sounds[domain.SoundID(id)] = domain.SoundSetting{
			Mode:     domain.Mode(setting.Mode),
			PresetID: setting.PresetID,
		}
	}

	saved, err := s.services.Sound.SaveSettings(ctx, settings)
	if err != nil {
		return nil, s.fail(err)
	}
	return &SettingsOutput{Body: toSettingsResponse(saved)}, nil
}

func (s *Server) handleResetSettings(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	if err := s.services.Sound.ResetSettings(ctx); err != nil {
		return nil, s.fail(err)
	}
	return message("Sound settings reset"), nil
}

func (s *Server) handleListCustomSounds(ctx context.Context, _ *struct{}) (*CustomSoundsOutput, error) {
	blobs, err := s.services.Sound.GetAllSounds(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	out := &CustomSoundsOutput{}
	out.Body.Sounds = make([]CustomSoundResponse, 0, len(blobs))
	for _, b := range blobs {
		out.Body.Sounds = append(out.Body.Sounds, toCustomSoundResponse(b))
	}
	return out, nil
}

func (s *Server) handleGetCustomSound(ctx context.Context, input *SoundIDInput) (*CustomSoundDataOutput, error) {
	blob, err := s.services.Sound.GetSound(ctx, domain.SoundID(input.ID))
	if err != nil {
		return nil, s.fail(err)
	}

	return &CustomSoundDataOutput{
		ContentType:        blob.MimeType,
		ContentDisposition: "inline; filename=" + strconv.Quote(blob.FileName),
		CacheControl:       CacheNoStore,
		Body:               blob.Data,
	}, nil
}

func (s *Server) handleUploadCustomSound(ctx context.Context, input *UploadSoundInput) (*CustomSoundOutput, error) {
	s.logger.Info("custom sound upload request",
		"id", input.ID,
		"content_type", input.ContentType,
		"body_size", len(input.RawBody),
	)

	blob, err := s.services.Sound.SaveSound(ctx, domain.SoundID(input.ID), service.UploadRequest{
		FileName: input.FileName,
		MimeType: input.ContentType,
		Size:     int64(len(input.RawBody)),
		Body:     bytes.NewReader(input.RawBody),
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return &CustomSoundOutput{Body: toCustomSoundResponse(blob)}, nil
}

func (s *Server) handleDeleteCustomSound(ctx context.Context, input *SoundIDInput) (*MessageOutput, error) {
	if err := s.services.Sound.DeleteSound(ctx, domain.SoundID(input.ID)); err != nil {
		return nil, s.fail(err)
	}
	return message("Custom sound deleted"), nil
}

func toSettingsResponse(settings *domain.Settings) SettingsResponse {
	resp := SettingsResponse{
		SettingsBody: SettingsBody{
			Enabled: settings.Enabled,
			Sounds:  make(map[string]SoundSettingBody, len(settings.Sounds)),
		},
	}
	for id, setting := range settings.Sounds {
		resp.Sounds[string(id)] = SoundSettingBody{
			Mode:     string(setting.Mode),
			PresetID: setting.PresetID,
		}
	}
	if !settings.UpdatedAt.IsZero() {
		t := settings.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

func toCustomSoundResponse(b *domain.StoredBlob) CustomSoundResponse {
	return CustomSoundResponse{
		ID:        string(b.ID),
		FileName:  b.FileName,
		MimeType:  b.MimeType,
		Size:      b.Size,
		UpdatedAt: b.UpdatedAt,
	}
}
