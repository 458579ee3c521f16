package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lighterdash/internal/account"
	"lighterdash/internal/config"
	"lighterdash/internal/gateway/engine"
	"lighterdash/internal/logger"
	"lighterdash/internal/market"
	"lighterdash/internal/preset"
	"lighterdash/internal/store/gormstore"
	"lighterdash/internal/store/markettape"
	dashboardhttp "lighterdash/internal/transport/http/dashboard"
)

type AppBuilder struct {
	cfg *config.Config

	engineClientFn func(config.EngineConfig) (*engine.Client, error)
	presetsFn      func(string) (*preset.Registry, error)
	accountStoreFn func(string) (*gormstore.AccountStore, error)
	marketTapeFn   func(string) (*markettape.Tape, error)
}

type AppBuilderOption func(*AppBuilder)

// WithEngineClient 替换引擎客户端构建函数（测试用）。
func WithEngineClient(fn func(config.EngineConfig) (*engine.Client, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.engineClientFn = fn
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		engineClientFn: buildEngineClient,
		presetsFn:      preset.NewRegistry,
		accountStoreFn: gormstore.NewAccountStore,
		marketTapeFn:   markettape.Open,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildEngineClient(cfg config.EngineConfig) (*engine.Client, error) {
	return engine.NewClient(engine.ConfigFrom(cfg))
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("app builder requires config")
	}
	cfg := b.cfg

	client, err := b.engineClientFn(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("build engine client: %w", err)
	}
	aggregator, err := account.NewAggregator(client)
	if err != nil {
		return nil, err
	}
	tracker, err := account.NewTracker(aggregator)
	if err != nil {
		return nil, err
	}
	board := market.NewBoard(client)

	app := &App{
		cfg:     cfg,
		client:  client,
		tracker: tracker,
		board:   board,
	}

	if path := strings.TrimSpace(cfg.Markets.PresetsPath); path != "" {
		reg, err := b.presetsFn(path)
		if err != nil {
			return nil, fmt.Errorf("load presets: %w", err)
		}
		reg.OnChange(func(s preset.Snapshot) {
			logger.Infof("presets reloaded: %d entries", len(s.Presets))
		})
		app.presets = reg
	}

	if cfg.Store.Enabled {
		if err := b.buildStores(ctx, app); err != nil {
			app.Close()
			return nil, err
		}
	}

	if cfg.Engine.StreamEnabled {
		stream, err := client.NewStream(board.Ingest)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("build market stream: %w", err)
		}
		app.stream = stream
	}

	server, err := b.buildServer(app)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.http = server
	app.Summary = b.summary(app)
	return app, nil
}

func (b *AppBuilder) buildStores(_ context.Context, app *App) error {
	cfg := b.cfg.Store
	accounts, err := b.accountStoreFn(cfg.AccountDBPath)
	if err != nil {
		return fmt.Errorf("open account history: %w", err)
	}
	app.accounts = accounts
	tape, err := b.marketTapeFn(cfg.MarketDBPath)
	if err != nil {
		return fmt.Errorf("open market tape: %w", err)
	}
	app.tape = tape

	app.tracker.OnApply(func(ctx context.Context, st account.TrackerState) {
		if st.Summary == nil {
			return
		}
		if err := accounts.Record(ctx, st); err != nil {
			logger.Warnf("record account snapshot failed: %v", err)
		}
	})
	app.board.OnApply(func(ctx context.Context, st market.BoardState) {
		if st.Origin != market.OriginREST || len(st.Rows) == 0 {
			return
		}
		takenAt := st.RefreshedAt
		if takenAt.IsZero() {
			takenAt = time.Now()
		}
		if _, err := tape.Append(ctx, takenAt, st.Rows); err != nil {
			logger.Warnf("append market tape failed: %v", err)
		}
	})
	return nil
}

func (b *AppBuilder) buildServer(app *App) (*dashboardhttp.Server, error) {
	routes := &dashboardhttp.Router{
		Account:      app.tracker,
		Markets:      app.board,
		DefaultQuery: app.defaultQuery(),
		ChartTopN:    b.cfg.Markets.ChartTopN,
	}
	if app.presets != nil {
		routes.Presets = app.presets
	}
	if app.accounts != nil {
		routes.AccountHistory = app.accounts
	}
	if app.tape != nil {
		routes.MarketHistory = app.tape
	}
	return dashboardhttp.NewServer(dashboardhttp.ServerConfig{
		Addr:   b.cfg.App.HTTPAddr,
		Routes: routes,
	})
}

func (b *AppBuilder) summary(app *App) *StartupSummary {
	cfg := b.cfg
	s := &StartupSummary{
		Env:             cfg.App.Env,
		HTTPAddr:        cfg.App.HTTPAddr,
		EngineBase:      app.client.BaseURL(),
		AccountInterval: cfg.Refresh.AccountInterval(),
		MarketsInterval: cfg.Refresh.MarketsInterval(),
		DefaultQuery:    app.defaultQuery(),
	}
	if app.stream != nil {
		s.StreamURL = app.stream.URL()
	}
	if app.presets != nil {
		for _, p := range app.presets.List() {
			s.Presets = append(s.Presets, p.Name)
		}
	}
	if app.accounts != nil {
		s.AccountDB = cfg.Store.AccountDBPath
		s.MarketDB = cfg.Store.MarketDBPath
		s.Retention = cfg.Store.Retention()
	}
	return s
}
