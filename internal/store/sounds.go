package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/remowork/soundswap/internal/domain"
)

const (
	soundsPrefix = "sounds:"

	keySoundSettings    = soundsPrefix + "settings"
	keySettingsRevision = soundsPrefix + "revision"
)

// GetSoundSettings retrieves the settings document.
// Returns default settings if none exist.
func (s *Store) GetSoundSettings(ctx context.Context) (*domain.Settings, error) {
	settings, _, err := s.SoundSettingsSnapshot(ctx)
	return settings, err
}

// SoundSettingsSnapshot returns the settings document together with the
// revision it was saved under, both read in one transaction.
func (s *Store) SoundSettingsSnapshot(ctx context.Context) (*domain.Settings, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var (
		settings *domain.Settings
		revision uint64
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if settings, err = readSettings(txn); err != nil {
			return err
		}
		revision, err = readRevision(txn)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return settings, revision, nil
}

func readSettings(txn *badger.Txn) (*domain.Settings, error) {
	item, err := txn.Get([]byte(keySoundSettings))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.NewSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sound settings: %w", err)
	}

	var settings domain.Settings
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &settings)
	})
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return nil, Corrupt(keySoundSettings, err)
	}
	if err != nil {
		return nil, fmt.Errorf("read sound settings: %w", err)
	}

	if settings.Sounds == nil {
		settings.Sounds = make(map[domain.SoundID]domain.SoundSetting)
	}
	return &settings, nil
}

// SaveSoundSettings replaces the settings document and bumps the revision in
// one transaction. Concurrent callers are serialized; the last commit wins.
// Returns the new revision.
func (s *Store) SaveSoundSettings(ctx context.Context, settings *domain.Settings) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	doc := settings.Clone()
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal sound settings: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var revision uint64
	err = s.db.Update(func(txn *badger.Txn) error {
		current, err := readRevision(txn)
		if err != nil {
			return err
		}
		revision = current + 1

		if err := txn.Set([]byte(keySoundSettings), data); err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], revision)
		return txn.Set([]byte(keySettingsRevision), buf[:])
	})
	if err != nil {
		return 0, fmt.Errorf("save sound settings: %w", err)
	}

	settings.UpdatedAt = doc.UpdatedAt
	return revision, nil
}

// ResetSoundSettings removes the settings document so defaults apply again.
// The revision counter is kept so later saves stay monotonic.
func (s *Store) ResetSoundSettings(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(keySoundSettings))
}

// SettingsRevision returns the revision of the last saved settings document.
func (s *Store) SettingsRevision(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var revision uint64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		revision, err = readRevision(txn)
		return err
	})
	return revision, err
}

func readRevision(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(keySettingsRevision))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var revision uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return Corrupt(keySettingsRevision, fmt.Errorf("%d bytes", len(val)))
		}
		revision = binary.BigEndian.Uint64(val)
		return nil
	})
	return revision, err
}
