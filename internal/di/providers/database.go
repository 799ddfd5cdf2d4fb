package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/store"
	"github.com/remowork/soundswap/internal/store/sqlite"
)

// StoreHandle wraps the settings store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the badger settings store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Storage.SettingsDBPath()
	db, err := store.New(dbPath, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Settings store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// BlobStoreHandle wraps the sqlite blob store with shutdown capability.
type BlobStoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *BlobStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideBlobStore provides the sqlite store holding custom sounds.
func ProvideBlobStore(i do.Injector) (*BlobStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}

	blobs, err := sqlite.Open(cfg.Storage.BlobDBPath(), log.Component("blobs"))
	if err != nil {
		return nil, err
	}

	return &BlobStoreHandle{Store: blobs}, nil
}
