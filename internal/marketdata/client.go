package marketdata

import (
	"golang.org/x/time/rate"

	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/httputil"
	"github.com/rohanmb/swingline/pkg/logger"
	"github.com/rohanmb/swingline/pkg/redis"
)

// Client is the concrete market-data adapter. It multiplexes the NSE
// archives (reference data), the OHLCV provider, and the optional
// fundamentals/holdings providers behind the Provider interface.
// SSOT: all outbound market-data calls originate here.
type Client struct {
	cfg   config.ProviderConfig
	http  *httputil.Client
	cache *redis.Cache
	log   *logger.Logger

	// Token bucket pacing a single provider connection. Batch workers
	// share this limiter so aggregate call rate stays bounded no matter
	// the concurrency.
	limiter *rate.Limiter
}

// NewClient creates the market-data adapter
func NewClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	interval := cfg.Provider.CallDelay
	return &Client{
		cfg:     cfg.Provider,
		http:    httpClient,
		cache:   cache,
		log:     log.WithField("component", "marketdata"),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

var _ Provider = (*Client)(nil)
