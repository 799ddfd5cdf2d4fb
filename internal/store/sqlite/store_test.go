package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remowork/soundswap/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='sound_blobs'").Scan(&name)
	require.NoError(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	_, err := OpenReadOnly(dbPath)
	assert.Error(t, err, "missing database")

	rw, err := Open(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, rw.SaveSound(ctx, &domain.StoredBlob{
		ID: domain.SoundCalling, Data: []byte{1, 2}, FileName: "a.mp3", MimeType: "audio/mpeg",
	}))
	require.NoError(t, rw.Close())

	ro, err := OpenReadOnly(dbPath)
	require.NoError(t, err)
	defer ro.Close()

	blobs, err := ro.ListSounds(ctx)
	require.NoError(t, err)
	assert.Len(t, blobs, 1)

	err = ro.SaveSound(ctx, &domain.StoredBlob{ID: domain.SoundIncoming, Data: []byte{1}})
	assert.Error(t, err)
}

func TestUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Usage(ctx)
	require.NoError(t, err)
	assert.Zero(t, u.Count)
	assert.True(t, u.LastUpdate.IsZero())

	for _, id := range []domain.SoundID{domain.SoundCalling, domain.SoundIncoming} {
		require.NoError(t, s.SaveSound(ctx, &domain.StoredBlob{
			ID: id, Data: make([]byte, 10), FileName: "x.wav", MimeType: "audio/wav",
		}))
	}

	u, err = s.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Count)
	assert.Equal(t, int64(20), u.TotalBytes)
	assert.False(t, u.LastUpdate.IsZero())
}
