package courses

import (
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/fetch"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/scrapers/vhs"
)

// ConfigName is the config file read by the cli, vhs.local.json5 next to it
// overrides it.
const ConfigName = "vhs.json5"

type Config struct {
	BaseUrl                   string           `json:"base_url"`
	UserAgent                 string           `json:"user_agent"`
	TimeoutMs                 int              `json:"timeout_ms"`
	CacheTtlSeconds           int              `json:"cache_ttl_seconds"`
	CacheSize                 int              `json:"cache_size"`
	RequestsPerSecond         float64          `json:"requests_per_second"`
	BypassCloudflare          bool             `json:"bypass_cloudflare"`
	SessionPoolSize           int              `json:"session_pool_size"`
	SessionIdleTimeoutSeconds int              `json:"session_idle_timeout_seconds"`
	PageConcurrency           int              `json:"page_concurrency"`
	BatchSize                 int              `json:"batch_size"`
	ConcurrencyCeiling        int              `json:"concurrency_ceiling"`
	Telemetry                 telemetry.Config `json:"telemetry"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:                   vhs.DefaultBaseUrl,
		UserAgent:                 fetch.DefaultUserAgent,
		TimeoutMs:                 15000,
		CacheTtlSeconds:           300,
		CacheSize:                 512,
		RequestsPerSecond:         8,
		SessionPoolSize:           4,
		SessionIdleTimeoutSeconds: 900,
		PageConcurrency:           vhs.DefaultPageConcurrency,
		BatchSize:                 6,
		ConcurrencyCeiling:        16,
	}
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutSeconds) * time.Second
}

func (c Config) FetchOptions() fetch.Options {
	return fetch.Options{
		UserAgent:         c.UserAgent,
		Timeout:           c.Timeout(),
		RequestsPerSecond: c.RequestsPerSecond,
		CacheSize:         c.CacheSize,
		CacheTTL:          time.Duration(c.CacheTtlSeconds) * time.Second,
		BypassCloudflare:  c.BypassCloudflare,
	}
}
