package config

import "strings"

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppHTTPAddr       = ":9992"
	defaultEngineAPIBase     = "http://localhost:8080"
	defaultEngineTimeout     = 5
	defaultEngineRate        = 8
	defaultEngineBurst       = 4
	defaultBreakerThreshold  = 5
	defaultBreakerCooldown   = 30
	defaultStreamPath        = "/ws/markets"
	defaultAccountInterval   = 10
	defaultMarketsInterval   = 5
	defaultMarketsSortKey    = "volume_24h_usd"
	defaultMarketsSortDir    = "desc"
	defaultMarketsFilter     = "all"
	defaultChartTopN         = 20
	defaultAccountDBPath     = "data/account_history.db"
	defaultMarketDBPath      = "data/market_tape.db"
	defaultStoreRetentionHrs = 72
)

// Default returns a configuration populated only with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(nil)
	return cfg
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Refresh.applyDefaults(keys)
	c.Markets.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("engine.api_base", &e.APIBase, defaultEngineAPIBase),
		stringFieldDefault("engine.stream_path", &e.StreamPath, defaultStreamPath),
		intFieldDefault("engine.timeout_seconds", &e.TimeoutSeconds, defaultEngineTimeout),
		intFieldDefault("engine.rate_burst", &e.RateBurst, defaultEngineBurst),
		intFieldDefault("engine.breaker_threshold", &e.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("engine.breaker_cooldown_seconds", &e.BreakerCooldownSeconds, defaultBreakerCooldown),
		fieldDefault{
			key:   "engine.rate_limit_per_sec",
			need:  func() bool { return e.RateLimitPerSec <= 0 },
			apply: func() { e.RateLimitPerSec = defaultEngineRate },
		},
	)
	e.APIBase = strings.TrimRight(strings.TrimSpace(e.APIBase), "/")
	if !strings.HasPrefix(e.StreamPath, "/") {
		e.StreamPath = "/" + e.StreamPath
	}
}

func (r *RefreshConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("refresh.account_interval_seconds", &r.AccountIntervalSeconds, defaultAccountInterval),
		intFieldDefault("refresh.markets_interval_seconds", &r.MarketsIntervalSeconds, defaultMarketsInterval),
		boolFieldDefault("refresh.run_immediately", &r.RunImmediately, true),
	)
}

func (m *MarketsConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("markets.default_sort_key", &m.DefaultSortKey, defaultMarketsSortKey),
		stringFieldDefault("markets.default_sort_dir", &m.DefaultSortDir, defaultMarketsSortDir),
		stringFieldDefault("markets.default_filter", &m.DefaultFilter, defaultMarketsFilter),
		intFieldDefault("markets.chart_top_n", &m.ChartTopN, defaultChartTopN),
	)
	m.DefaultSortKey = strings.ToLower(strings.TrimSpace(m.DefaultSortKey))
	m.DefaultSortDir = strings.ToLower(strings.TrimSpace(m.DefaultSortDir))
	m.DefaultFilter = strings.ToLower(strings.TrimSpace(m.DefaultFilter))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.account_db_path", &s.AccountDBPath, defaultAccountDBPath),
		stringFieldDefault("store.market_db_path", &s.MarketDBPath, defaultMarketDBPath),
		intFieldDefault("store.retention_hours", &s.RetentionHours, defaultStoreRetentionHrs),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

// intFieldDefault fills non-positive values; an explicit key in the file still wins
// and is left to validation.
func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault only applies when the key is absent, since false is a valid choice.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}
