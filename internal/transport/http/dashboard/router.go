package dashboardhttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lighterdash/internal/account"
	"lighterdash/internal/market"
	"lighterdash/internal/preset"
	"lighterdash/internal/store/gormstore"
	"lighterdash/internal/store/markettape"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

type AccountService interface {
	State() account.TrackerState
	Refresh(ctx context.Context) error
}

type MarketService interface {
	State() market.BoardState
	Refresh(ctx context.Context) error
}

type PresetSource interface {
	Lookup(name string) (preset.Preset, bool)
	List() []preset.Preset
}

type AccountHistory interface {
	Recent(ctx context.Context, limit int) ([]gormstore.AccountSnapshotModel, error)
}

type MarketHistory interface {
	Series(ctx context.Context, symbol string, limit int) ([]markettape.Tick, error)
}

// Router 暴露 /api/dashboard 下的视图接口。
type Router struct {
	Account        AccountService
	Markets        MarketService
	Presets        PresetSource
	AccountHistory AccountHistory
	MarketHistory  MarketHistory
	DefaultQuery   market.Query
	ChartTopN      int
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/account", r.handleAccount)
	group.POST("/account/refresh", r.handleAccountRefresh)
	group.GET("/markets", r.handleMarkets)
	group.POST("/markets/refresh", r.handleMarketsRefresh)
	group.GET("/markets/chart", r.handleMarketsChart)
	group.GET("/presets", r.handlePresets)
	group.GET("/history/account", r.handleAccountHistory)
	group.GET("/history/markets/:symbol", r.handleMarketHistory)
}

func (r *Router) handleAccount(c *gin.Context) {
	c.JSON(http.StatusOK, newAccountView(r.Account.State()))
}

func (r *Router) handleAccountRefresh(c *gin.Context) {
	err := r.Account.Refresh(c.Request.Context())
	view := newAccountView(r.Account.State())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (r *Router) handleMarkets(c *gin.Context) {
	def := r.DefaultQuery
	presetName := strings.TrimSpace(c.Query("preset"))
	if presetName != "" {
		if r.Presets == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "presets not configured"})
			return
		}
		p, ok := r.Presets.Lookup(presetName)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown preset: " + presetName})
			return
		}
		def = p.Query()
		presetName = p.Name
	}
	search := c.Query("search")
	if _, ok := c.GetQuery("search"); !ok {
		search = def.Search
	}
	q, err := market.ParseQuery(search, c.Query("filter"), c.Query("sort"), c.Query("dir"), def)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newMarketsView(r.Markets.State(), q, presetName))
}

func (r *Router) handleMarketsRefresh(c *gin.Context) {
	err := r.Markets.Refresh(c.Request.Context())
	view := newMarketsView(r.Markets.State(), r.DefaultQuery, "")
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (r *Router) handleMarketsChart(c *gin.Context) {
	topN := r.ChartTopN
	if raw := strings.TrimSpace(c.Query("top")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top must be a positive integer"})
			return
		}
		topN = n
	}
	html, err := market.RenderVolumeChart(r.Markets.State().Rows, topN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (r *Router) handlePresets(c *gin.Context) {
	if r.Presets == nil {
		c.JSON(http.StatusOK, gin.H{"presets": []preset.Preset{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"presets": r.Presets.List()})
}

func (r *Router) handleAccountHistory(c *gin.Context) {
	if r.AccountHistory == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store disabled"})
		return
	}
	rows, err := r.AccountHistory.Recent(c.Request.Context(), historyLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": rows})
}

func (r *Router) handleMarketHistory(c *gin.Context) {
	if r.MarketHistory == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store disabled"})
		return
	}
	ticks, err := r.MarketHistory.Series(c.Request.Context(), c.Param("symbol"), historyLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ticks == nil {
		ticks = []markettape.Tick{}
	}
	c.JSON(http.StatusOK, gin.H{"symbol": strings.ToUpper(c.Param("symbol")), "ticks": ticks})
}

func historyLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit
}
