package config

import (
	"strings"
	"time"
)

// Config 是 lighterdash 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Engine  EngineConfig  `toml:"engine"`
	Refresh RefreshConfig `toml:"refresh"`
	Markets MarketsConfig `toml:"markets"`
	Store   StoreConfig   `toml:"store"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	HTTPAddr  string `toml:"http_addr"`
	LogPath   string `toml:"log_path"`
}

// EngineConfig describes how the remote trading engine REST API is reached.
type EngineConfig struct {
	APIBase                string  `toml:"api_base"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
	InsecureSkipVerify     bool    `toml:"insecure_skip_verify"`
	RateLimitPerSec        float64 `toml:"rate_limit_per_sec"`
	RateBurst              int     `toml:"rate_burst"`
	BreakerThreshold       int     `toml:"breaker_threshold"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds"`
	StreamEnabled          bool    `toml:"stream_enabled"`
	StreamPath             string  `toml:"stream_path"`
}

func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func (e EngineConfig) BreakerCooldown() time.Duration {
	return time.Duration(e.BreakerCooldownSeconds) * time.Second
}

type RefreshConfig struct {
	AccountIntervalSeconds int  `toml:"account_interval_seconds"`
	MarketsIntervalSeconds int  `toml:"markets_interval_seconds"`
	RunImmediately         bool `toml:"run_immediately"`
}

func (r RefreshConfig) AccountInterval() time.Duration {
	return time.Duration(r.AccountIntervalSeconds) * time.Second
}

func (r RefreshConfig) MarketsInterval() time.Duration {
	return time.Duration(r.MarketsIntervalSeconds) * time.Second
}

// MarketsConfig holds the default view query and chart options of the markets table.
type MarketsConfig struct {
	DefaultSortKey string `toml:"default_sort_key"`
	DefaultSortDir string `toml:"default_sort_dir"`
	DefaultFilter  string `toml:"default_filter"`
	PresetsPath    string `toml:"presets_path"`
	ChartTopN      int    `toml:"chart_top_n"`
}

type StoreConfig struct {
	Enabled        bool   `toml:"enabled"`
	AccountDBPath  string `toml:"account_db_path"`
	MarketDBPath   string `toml:"market_db_path"`
	RetentionHours int    `toml:"retention_hours"`
}

func (s StoreConfig) Retention() time.Duration {
	return time.Duration(s.RetentionHours) * time.Hour
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
