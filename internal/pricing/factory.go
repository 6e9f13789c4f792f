package pricing

import (
	"time"

	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/core/netutil"
)

// NewSource builds the configured provider, wrapped in a cache when pricing.cache_ttl is set.
func NewSource(cfg coreconfig.PricingConfig, cat Catalog) Source {
	var src Source
	switch cfg.Provider {
	case coreconfig.ProviderSimulated:
		src = NewSimulatedSource(cfg, cat)
	default:
		client := netutil.BuildHTTPClient(netutil.ClientOptions{
			Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
			Retries:     2,
			Backoff:     500 * time.Millisecond,
			RetryStatus: true,
		})
		src = NewHTTPSource(cfg, cat, client)
	}
	return NewCachedSource(src, cfg.CacheTTL)
}
