package config

import (
	"fmt"
	"net/url"
	"strings"

	"lighterdash/internal/market"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	checks := []func() error{
		c.App.validate,
		c.Engine.validate,
		c.Refresh.validate,
		c.Markets.validate,
		c.Store.validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(a.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level unsupported: %s", a.LogLevel)
	}
	switch strings.ToLower(a.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json")
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (e *EngineConfig) validate() error {
	u, err := url.Parse(e.APIBase)
	if err != nil || u.Host == "" {
		return fmt.Errorf("engine.api_base invalid: %q", e.APIBase)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("engine.api_base must use http or https")
	}
	if e.TimeoutSeconds <= 0 {
		return fmt.Errorf("engine.timeout_seconds must be > 0")
	}
	if e.RateLimitPerSec < 0 {
		return fmt.Errorf("engine.rate_limit_per_sec must be >= 0")
	}
	if e.RateBurst < 0 {
		return fmt.Errorf("engine.rate_burst must be >= 0")
	}
	if e.BreakerThreshold < 0 {
		return fmt.Errorf("engine.breaker_threshold must be >= 0")
	}
	if e.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("engine.breaker_cooldown_seconds must be >= 0")
	}
	return nil
}

func (r *RefreshConfig) validate() error {
	if r.AccountIntervalSeconds <= 0 {
		return fmt.Errorf("refresh.account_interval_seconds must be > 0")
	}
	if r.MarketsIntervalSeconds <= 0 {
		return fmt.Errorf("refresh.markets_interval_seconds must be > 0")
	}
	return nil
}

func (m *MarketsConfig) validate() error {
	if !knownSortKey(m.DefaultSortKey) {
		return fmt.Errorf("markets.default_sort_key unsupported: %s", m.DefaultSortKey)
	}
	if m.DefaultSortDir != "asc" && m.DefaultSortDir != "desc" {
		return fmt.Errorf("markets.default_sort_dir must be asc or desc")
	}
	switch m.DefaultFilter {
	case "all", "gainers", "losers":
	default:
		return fmt.Errorf("markets.default_filter must be all, gainers or losers")
	}
	if m.ChartTopN < 0 {
		return fmt.Errorf("markets.chart_top_n must be >= 0")
	}
	return nil
}

func knownSortKey(key string) bool {
	if key == "" {
		return true
	}
	for _, k := range market.SortKeys() {
		if string(k) == key {
			return true
		}
	}
	return false
}

func (s *StoreConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.AccountDBPath) == "" || strings.TrimSpace(s.MarketDBPath) == "" {
		return fmt.Errorf("store paths cannot be empty when store.enabled")
	}
	if s.RetentionHours < 0 {
		return fmt.Errorf("store.retention_hours must be >= 0")
	}
	return nil
}
