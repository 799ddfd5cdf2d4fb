package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/store"
)

// soundColumns must match the scan order in scanSound.
const soundColumns = `id, data, file_name, mime_type, size_bytes, updated_at`

func scanSound(scanner interface{ Scan(dest ...any) error }) (*domain.StoredBlob, error) {
	var (
		b         domain.StoredBlob
		id        string
		updatedAt string
	)
	if err := scanner.Scan(&id, &b.Data, &b.FileName, &b.MimeType, &b.Size, &updatedAt); err != nil {
		return nil, err
	}

	b.ID = domain.SoundID(id)
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", id, err)
	}
	b.UpdatedAt = t
	return &b, nil
}

// GetSound returns the stored blob for id, or store.ErrNotFound.
func (s *Store) GetSound(ctx context.Context, id domain.SoundID) (*domain.StoredBlob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+soundColumns+` FROM sound_blobs WHERE id = ?`, string(id))

	b, err := scanSound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("get sound %s: %w", id, err)
	}
	return b, nil
}

// SaveSound creates or overwrites the blob for b.ID. Size and UpdatedAt are
// set from the data and the current time.
func (s *Store) SaveSound(ctx context.Context, b *domain.StoredBlob) error {
	if b.ID == "" {
		return store.Invalid("", "sound id is required")
	}

	b.Size = int64(len(b.Data))
	b.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sound_blobs (`+soundColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			file_name = excluded.file_name,
			mime_type = excluded.mime_type,
			size_bytes = excluded.size_bytes,
			updated_at = excluded.updated_at`,
		string(b.ID), b.Data, b.FileName, b.MimeType, b.Size, formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save sound %s: %w", b.ID, err)
	}

	if s.logger != nil {
		s.logger.Debug("custom sound saved", "id", b.ID, "size", b.Size, "mime_type", b.MimeType)
	}
	return nil
}

// DeleteSound removes the blob for id. Deleting a missing blob is not an error.
func (s *Store) DeleteSound(ctx context.Context, id domain.SoundID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sound_blobs WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete sound %s: %w", id, err)
	}

	if n, _ := res.RowsAffected(); n > 0 && s.logger != nil {
		s.logger.Debug("custom sound deleted", "id", id)
	}
	return nil
}

// ListSounds returns every stored blob ordered by id.
func (s *Store) ListSounds(ctx context.Context) ([]*domain.StoredBlob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+soundColumns+` FROM sound_blobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sounds: %w", err)
	}
	defer rows.Close()

	var blobs []*domain.StoredBlob
	for rows.Next() {
		b, err := scanSound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sound: %w", err)
		}
		blobs = append(blobs, b)
	}
	return blobs, rows.Err()
}
