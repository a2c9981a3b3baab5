package cmd

import (
	"context"

	"github.com/gt-labs/envoy/internal/bundle"
	"github.com/gt-labs/envoy/internal/config"
	"github.com/gt-labs/envoy/internal/registry"
)

type contextKey string

const (
	configKey   contextKey = "config"
	loaderKey   contextKey = "loader"
	registryKey contextKey = "registry"
	bundlesKey  contextKey = "bundles"
)

// WithConfig adds the config to the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// ConfigFromContext retrieves the config from context.
func ConfigFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		return nil
	}
	return cfg
}

// WithLoader adds the config loader to the context.
func WithLoader(ctx context.Context, loader *config.Loader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// LoaderFromContext retrieves the config loader from context.
func LoaderFromContext(ctx context.Context) *config.Loader {
	loader, ok := ctx.Value(loaderKey).(*config.Loader)
	if !ok {
		return nil
	}
	return loader
}

// WithRegistry adds the command registry to the context.
func WithRegistry(ctx context.Context, reg *registry.Registry) context.Context {
	return context.WithValue(ctx, registryKey, reg)
}

// RegistryFromContext retrieves the command registry from context.
func RegistryFromContext(ctx context.Context) *registry.Registry {
	reg, ok := ctx.Value(registryKey).(*registry.Registry)
	if !ok {
		return nil
	}
	return reg
}

// WithBundles adds the discovered bundles to the context.
func WithBundles(ctx context.Context, bundles []*bundle.Bundle) context.Context {
	return context.WithValue(ctx, bundlesKey, bundles)
}

// BundlesFromContext retrieves the discovered bundles from context.
func BundlesFromContext(ctx context.Context) []*bundle.Bundle {
	bundles, ok := ctx.Value(bundlesKey).([]*bundle.Bundle)
	if !ok {
		return nil
	}
	return bundles
}
