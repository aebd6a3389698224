package commands

import (
	"fmt"

	"github.com/rohanmb/swingline/internal/brain"
	"github.com/rohanmb/swingline/internal/fundamental"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/internal/metrics"
	"github.com/rohanmb/swingline/internal/regime"
	"github.com/rohanmb/swingline/internal/s1_universe"
	"github.com/rohanmb/swingline/internal/s2_momentum"
	"github.com/rohanmb/swingline/internal/s3_consistency"
	"github.com/rohanmb/swingline/internal/s4_liquidity"
	"github.com/rohanmb/swingline/internal/s4_setup"
	"github.com/rohanmb/swingline/internal/s5_risk"
	"github.com/rohanmb/swingline/internal/s6_portfolio"
	"github.com/rohanmb/swingline/internal/s7_execution"
	"github.com/rohanmb/swingline/internal/s8_recommend"
	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/database"
	"github.com/rohanmb/swingline/pkg/httputil"
	"github.com/rohanmb/swingline/pkg/logger"
	"github.com/rohanmb/swingline/pkg/redis"
)

// app holds the fully wired dependency graph shared by all commands
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	client *marketdata.Client

	regimes         *regime.Repository
	portfolio       *s6_portfolio.Repository
	execution       *s7_execution.Repository
	recommendations *s8_recommend.Repository

	classifier   *regime.Classifier
	engine       *s7_execution.Engine
	orchestrator *brain.Orchestrator
	mtr          *metrics.Metrics
}

// newApp wires the application from configuration down to the
// orchestrator. Commands pick the parts they need.
func newApp() (*app, error) {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Logger
	log := logger.New(cfg)

	// 3. Storage
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "swingline")

	// 4. Market data
	// Per-call pacing lives inside the client; the Redis sliding window
	// guards the shared provider quota across processes.
	httpClient := httputil.New(cfg, log).
		WithRateLimiter(redis.NewRateLimiter(redisClient, "swingline"), redis.OHLCVRateLimit)
	client := marketdata.NewClient(cfg, httpClient, cache, log)

	// 5. Repositories
	stocks := s1_universe.NewRepository(db.Pool)
	bars := marketdata.NewBarRepository(db.Pool)
	momentumRepo := s2_momentum.NewRepository(db.Pool)
	regimeRepo := regime.NewRepository(db.Pool)
	consistencyRepo := s3_consistency.NewRepository(db.Pool)
	liquidityRepo := s4_liquidity.NewRepository(db.Pool)
	setupRepo := s4_setup.NewRepository(db.Pool)
	sizingRepo := s5_risk.NewRepository(db.Pool)
	portfolioRepo := s6_portfolio.NewRepository(db.Pool)
	executionRepo := s7_execution.NewRepository(db.Pool)
	recRepo := s8_recommend.NewRepository(db.Pool)
	fundamentalRepo := fundamental.NewRepository(db.Pool)

	// 6. Pipeline stages
	builder := s1_universe.NewBuilder(client, stocks, log)
	momentumScorer := s2_momentum.NewScorer(client, stocks, bars, momentumRepo, cfg.Provider, log)
	classifier := regime.NewClassifier(client, stocks, bars, regimeRepo, cfg.Provider, log)
	consistencyScorer := s3_consistency.NewScorer(momentumRepo, bars, consistencyRepo, log)
	liquidityScorer := s4_liquidity.NewScorer(consistencyRepo, bars, liquidityRepo, log)
	detector := s4_setup.NewDetector(liquidityRepo, momentumRepo, consistencyRepo, bars, setupRepo, log)
	sizer := s5_risk.NewSizer(setupRepo, bars, client, sizingRepo, cfg.Portfolio, log)
	constructor := s6_portfolio.NewConstructor(sizingRepo, setupRepo, stocks, bars, portfolioRepo, cfg.Portfolio, log)
	assembler := s8_recommend.NewAssembler(portfolioRepo, momentumRepo, consistencyRepo, liquidityRepo,
		setupRepo, sizingRepo, fundamentalRepo, bars, recRepo, log)
	fundScorer := fundamental.NewScorer(client, stocks, fundamentalRepo, log)

	// 7. Observability
	var mtr *metrics.Metrics
	if cfg.MetricsEnabled {
		mtr = metrics.New()
	}

	// 8. Orchestration and execution
	orchestrator := brain.NewOrchestrator(builder, momentumScorer, classifier,
		consistencyScorer, liquidityScorer, detector, sizer, constructor,
		assembler, fundScorer, cfg.Pipeline, mtr, log)
	engine := s7_execution.NewEngine(portfolioRepo, executionRepo, sizingRepo, client, mtr, log)

	return &app{
		cfg:             cfg,
		log:             log,
		db:              db,
		redis:           redisClient,
		client:          client,
		regimes:         regimeRepo,
		portfolio:       portfolioRepo,
		execution:       executionRepo,
		recommendations: recRepo,
		classifier:      classifier,
		engine:          engine,
		orchestrator:    orchestrator,
		mtr:             mtr,
	}, nil
}

// Close releases connections in reverse dependency order
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
