package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/simonhull/audiometa"

	domainerrors "github.com/remowork/soundswap/internal/errors"
)

// UploadLimits bounds accepted custom sounds.
type UploadLimits struct {
	MaxBytes    int64
	MaxDuration time.Duration
}

// UploadRequest is one custom sound upload.
type UploadRequest struct {
	FileName string
	// MimeType is the client-declared type; the stored type is sniffed.
	MimeType string
	// Size is the declared length, or -1 when unknown.
	Size int64
	Body io.Reader
}

// Container types that carry audio without an audio/* top-level type.
var audioContainers = map[string]bool{
	"application/ogg": true,
	"video/webm":      true,
	"video/mp4":       true,
}

// readUpload reads the body, refusing anything over the byte limit.
func readUpload(req UploadRequest, limits UploadLimits) ([]byte, error) {
	if req.Size > limits.MaxBytes {
		return nil, domainerrors.PayloadTooLargef(
			"sound is %d bytes, limit is %d bytes", req.Size, limits.MaxBytes)
	}
	if req.Body == nil {
		return nil, domainerrors.Validation("sound data is required")
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, limits.MaxBytes+1))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "read sound data")
	}
	if int64(len(data)) > limits.MaxBytes {
		return nil, domainerrors.PayloadTooLargef(
			"sound exceeds the %d byte limit", limits.MaxBytes)
	}
	if len(data) == 0 {
		return nil, domainerrors.Validation("sound data is empty")
	}
	return data, nil
}

// sniffAudio detects the content type and rejects non-audio payloads.
func sniffAudio(data []byte) (*mimetype.MIME, error) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || audioContainers[m.String()] {
			return detected, nil
		}
	}
	return nil, domainerrors.UnsupportedMediaf("file is %s, not audio", detected.String())
}

// readDuration reads the audio duration. ok is false when the container is
// not one audiometa understands; callers treat that as unknown.
func readDuration(ctx context.Context, data []byte, mime *mimetype.MIME) (d time.Duration, ok bool, err error) {
	tmp, err := os.CreateTemp("", "soundswap-upload-*"+mime.Extension())
	if err != nil {
		return 0, false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return 0, false, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, false, fmt.Errorf("close temp file: %w", err)
	}

	file, err := audiometa.OpenContext(ctx, tmp.Name())
	if err != nil {
		return 0, false, nil
	}
	defer file.Close()

	if file.Audio.Duration <= 0 {
		return 0, false, nil
	}
	return file.Audio.Duration, true, nil
}
