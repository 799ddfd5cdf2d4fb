// Package di provides dependency injection configuration for the soundswap background.
package di

import (
	"github.com/samber/do/v2"

	"github.com/remowork/soundswap/internal/catalog"
	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/di/providers"
	"github.com/remowork/soundswap/internal/logger"
	"github.com/remowork/soundswap/internal/resolver"
	"github.com/remowork/soundswap/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStore)

	// Resolution
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideAssetLocator)
	do.Provide(injector, providers.ProvideResolver)

	// Channel
	do.Provide(injector, providers.ProvideHub)
	do.Provide(injector, providers.ProvideStreamHandler)

	// Business services
	do.Provide(injector, providers.ProvideSoundService)

	// Workers
	do.Provide(injector, providers.ProvidePresetReloader)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.BlobStoreHandle](injector)
	_ = do.MustInvoke[*catalog.Catalog](injector)
	_ = do.MustInvoke[*resolver.AssetLocator](injector)
	_ = do.MustInvoke[*resolver.Resolver](injector)
	_ = do.MustInvoke[*providers.HubHandle](injector)
	_ = do.MustInvoke[*channel.Handler](injector)
	_ = do.MustInvoke[*service.SoundService](injector)

	// Workers
	_ = do.MustInvoke[*providers.PresetReloaderHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
