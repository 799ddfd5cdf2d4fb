package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/remowork/soundswap/internal/catalog"
	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/resolver"
	"github.com/remowork/soundswap/internal/service"
)

// ProvideCatalog provides the static sound catalog.
func ProvideCatalog(i do.Injector) (*catalog.Catalog, error) {
	cat := catalog.Default()
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("sound catalog: %w", err)
	}
	return cat, nil
}

// ProvideAssetLocator provides the preset file locator.
func ProvideAssetLocator(i do.Injector) (*resolver.AssetLocator, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if err := os.MkdirAll(cfg.Sounds.PresetPath, 0o750); err != nil {
		return nil, fmt.Errorf("create preset path: %w", err)
	}

	return resolver.NewAssetLocator(cfg.Sounds.AssetBaseURL, os.DirFS(cfg.Sounds.PresetPath)), nil
}

// ProvideResolver provides the settings to configuration resolver.
func ProvideResolver(i do.Injector) (*resolver.Resolver, error) {
	cat := do.MustInvoke[*catalog.Catalog](i)
	blobs := do.MustInvoke[*BlobStoreHandle](i)
	assets := do.MustInvoke[*resolver.AssetLocator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return resolver.New(cat, blobs.Store, assets, log.Component("resolver")), nil
}

// ProvideSoundService provides the sound service and connects it to the hub.
func ProvideSoundService(i do.Injector) (*service.SoundService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobs := do.MustInvoke[*BlobStoreHandle](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	res := do.MustInvoke[*resolver.Resolver](i)
	hub := do.MustInvoke[*HubHandle](i)

	svc := service.NewSoundService(storeHandle.Store, blobs.Store, cat, res, service.UploadLimits{
		MaxBytes:    cfg.Upload.MaxBytes,
		MaxDuration: cfg.Upload.MaxDuration,
	}, log.Component("background"))

	svc.SetPublisher(hub.Hub)

	// Seed the hub so relays connecting before the first change get a snapshot.
	svc.Republish(context.Background())

	return svc, nil
}
