package app

import (
	"context"

	"lighterdash/internal/config"
)

// buildApp 按 provider 链组装：config → AppBuilder → App。
func buildApp(ctx context.Context, cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	return provideApp(ctx, provideAppBuilder(cfg, opts...))
}

type appBuilder interface {
	Build(context.Context) (*App, error)
}

func provideApp(ctx context.Context, b appBuilder) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	return NewAppBuilder(cfg, opts...)
}
