package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"lighterdash/internal/account"
	"lighterdash/internal/config"
	"lighterdash/internal/gateway/engine"
	"lighterdash/internal/logger"
	"lighterdash/internal/market"
	"lighterdash/internal/preset"
	"lighterdash/internal/render"
	"lighterdash/internal/scheduler"
	"lighterdash/internal/store/gormstore"
	"lighterdash/internal/store/markettape"
	dashboardhttp "lighterdash/internal/transport/http/dashboard"
)

const pruneInterval = time.Hour

// App 负责应用级编排：构建依赖后运行轮询、行情流与 HTTP 服务。
type App struct {
	cfg      *config.Config
	client   *engine.Client
	tracker  *account.Tracker
	board    *market.Board
	stream   *engine.Stream
	presets  *preset.Registry
	accounts *gormstore.AccountStore
	tape     *markettape.Tape
	http     *dashboardhttp.Server
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	return buildApp(context.Background(), cfg)
}

func (a *App) Tracker() *account.Tracker { return a.tracker }
func (a *App) Board() *market.Board      { return a.board }

// Run 启动轮询、行情流与 HTTP 服务，直到 ctx 结束或任一组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("dashboard http server error: %w", err)
			}
			return nil
		})
	}

	refresh := a.cfg.Refresh
	accountPoller := scheduler.NewPoller("account", refresh.AccountInterval(), refresh.RunImmediately)
	group.Go(func() error {
		return accountPoller.Start(ctx, a.tracker.Refresh)
	})
	marketsPoller := scheduler.NewPoller("markets", refresh.MarketsInterval(), refresh.RunImmediately)
	group.Go(func() error {
		return marketsPoller.Start(ctx, a.board.Refresh)
	})

	if a.stream != nil {
		group.Go(func() error {
			return a.stream.Run(ctx)
		})
	}

	if a.accounts != nil || a.tape != nil {
		pruner := scheduler.NewPoller("retention", pruneInterval, true)
		group.Go(func() error {
			return pruner.Start(ctx, a.prune)
		})
	}

	return group.Wait()
}

// Snapshot 执行一次账户与行情刷新并输出文本表格。
func (a *App) Snapshot(ctx context.Context, w io.Writer) error {
	if a == nil || a.tracker == nil || a.board == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	var g errgroup.Group
	g.Go(func() error { return a.tracker.Refresh(ctx) })
	g.Go(func() error { return a.board.Refresh(ctx) })
	err := g.Wait()

	render.Account(w, a.tracker.State())
	fmt.Fprintln(w)
	render.Markets(w, a.board.State().Rows, a.defaultQuery())
	return err
}

func (a *App) prune(ctx context.Context) error {
	retention := a.cfg.Store.Retention()
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-retention)
	if a.accounts != nil {
		n, err := a.accounts.Prune(ctx, cutoff)
		if err != nil {
			logger.Warnf("prune account snapshots failed: %v", err)
		} else if n > 0 {
			logger.Infof("pruned %d account snapshots older than %s", n, retention)
		}
	}
	if a.tape != nil {
		n, err := a.tape.Prune(ctx, cutoff)
		if err != nil {
			logger.Warnf("prune market tape failed: %v", err)
		} else if n > 0 {
			logger.Infof("pruned %d market ticks older than %s", n, retention)
		}
	}
	return nil
}

func (a *App) defaultQuery() market.Query {
	q, err := market.ParseQuery("", a.cfg.Markets.DefaultFilter, a.cfg.Markets.DefaultSortKey, a.cfg.Markets.DefaultSortDir,
		market.Query{Filter: market.FilterAll, SortDir: market.Asc})
	if err != nil {
		logger.Warnf("invalid default market query, falling back: %v", err)
		return market.Query{Filter: market.FilterAll, SortKey: market.SortVolume24hUSD, SortDir: market.Desc}
	}
	return q
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.accounts != nil {
		if err := a.accounts.Close(); err != nil {
			logger.Warnf("close account store: %v", err)
		}
		a.accounts = nil
	}
	if a.tape != nil {
		if err := a.tape.Close(); err != nil {
			logger.Warnf("close market tape: %v", err)
		}
		a.tape = nil
	}
}
