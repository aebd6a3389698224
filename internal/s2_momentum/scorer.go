package s2_momentum

import (
	"context"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/logger"
)

// relative-strength outperformance floors per horizon (fractions)
const (
	rsFloor1M = 0.05
	rsFloor3M = 0.10
	rsFloor6M = 0.15
)

// trading-day return horizons
const (
	days1M = 21
	days3M = 63
	days6M = 126
)

// Scorer runs the five-filter momentum gate. It is also the data
// ingestion point: fetched daily bars and their weekly aggregates are
// persisted here so downstream stages read from the database instead
// of the provider.
type Scorer struct {
	provider marketdata.BarProvider
	stocks   contracts.StockRepository
	bars     contracts.BarRepository
	repo     contracts.MomentumRepository
	cfg      config.ProviderConfig
	log      *logger.Logger
}

// NewScorer creates the momentum scorer
func NewScorer(
	provider marketdata.BarProvider,
	stocks contracts.StockRepository,
	bars contracts.BarRepository,
	repo contracts.MomentumRepository,
	cfg config.ProviderConfig,
	log *logger.Logger,
) *Scorer {
	return &Scorer{
		provider: provider,
		stocks:   stocks,
		bars:     bars,
		repo:     repo,
		cfg:      cfg,
		log:      log.WithField("stage", contracts.StageMomentum.ShortName()),
	}
}

var _ contracts.MomentumScorer = (*Scorer)(nil)

// Score fetches bars for the high-quality universe, applies the five
// filters, and upserts a MomentumScore per scored symbol
func (s *Scorer) Score(ctx context.Context, week time.Time) ([]contracts.MomentumScore, error) {
	stocks, err := s.stocks.GetHighQuality(ctx)
	if err != nil {
		return nil, fmt.Errorf("get high-quality universe: %w", err)
	}
	if len(stocks) == 0 {
		return nil, fmt.Errorf("universe is empty, run S1 first")
	}

	// benchmark failure is fatal, every filter needs it
	benchBars, err := s.provider.FetchBenchmark(ctx, s.cfg.HorizonDays)
	if err != nil {
		return nil, err
	}
	bench, err := marketdata.ComputeBenchmark(benchBars, 0)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(stocks))
	for i, st := range stocks {
		symbols[i] = st.Symbol
	}

	batch, err := s.provider.FetchBatch(ctx, symbols, s.cfg.HorizonDays)
	if err != nil {
		return nil, fmt.Errorf("batch fetch: %w", err)
	}

	scores := make([]contracts.MomentumScore, 0, len(batch))
	skipReasons := make(map[string]int)

	for _, symbol := range symbols {
		bars, ok := batch[symbol]
		if !ok {
			skipReasons["fetch_failed"]++
			continue
		}

		if err := marketdata.ValidateSeries(symbol, bars); err != nil {
			skipReasons["unadjusted_series"]++
			s.log.WithError(err).Warn("Series rejected")
			continue
		}

		if err := s.bars.UpsertDailyBatch(ctx, bars); err != nil {
			return nil, fmt.Errorf("persist daily bars for %s: %w", symbol, err)
		}
		if err := s.bars.UpsertWeeklyBatch(ctx, marketdata.ResampleWeekly(bars)); err != nil {
			return nil, fmt.Errorf("persist weekly bars for %s: %w", symbol, err)
		}

		ind, err := marketdata.ComputeIndicators(symbol, bars)
		if err != nil {
			skipReasons["insufficient_history"]++
			continue
		}

		score := scoreSymbol(symbol, week, bars, ind, bench)
		if err := s.repo.Upsert(ctx, score); err != nil {
			return nil, fmt.Errorf("upsert momentum score for %s: %w", symbol, err)
		}
		scores = append(scores, *score)
	}

	qualified := 0
	for _, sc := range scores {
		if sc.Qualifies {
			qualified++
		}
	}

	s.log.WithFields(map[string]interface{}{
		"scored":    len(scores),
		"qualified": qualified,
		"skipped":   skipReasons,
	}).Info("Momentum gate completed")

	return scores, nil
}

// scoreSymbol applies all five filters to one symbol
func scoreSymbol(symbol string, week time.Time, bars []contracts.DailyBar, ind *contracts.IndicatorSet, bench *contracts.Benchmark) *contracts.MomentumScore {
	last := len(bars) - 1
	close := bars[last].Close

	score := &contracts.MomentumScore{
		Symbol:       symbol,
		Week:         week,
		CalculatedAt: time.Now(),
	}

	// 2A: 52-week range proximity, with a volume-surge relaxation
	score.Proximity = rangeProximity(close, ind.High52, ind.Low52)
	score.VolSurge = volumeSurge(bars)
	score.PassProximity = score.Proximity >= 0.90 ||
		(score.Proximity >= 0.80 && score.VolSurge >= 1.5)

	// 2B: MA alignment, 4 of 5 checks
	score.MAAlignScore = maAlignScore(close, ind)
	score.PassMAAlign = score.MAAlignScore >= 4

	// 2C: relative strength on 2 of 3 horizons
	score.RS1M = trailingReturn(bars, days1M) - bench.Return1M
	score.RS3M = trailingReturn(bars, days3M) - bench.Return3M
	score.RS6M = trailingReturn(bars, days6M) - bench.Return6M
	horizons := 0
	if score.RS1M >= rsFloor1M {
		horizons++
	}
	if score.RS3M >= rsFloor3M {
		horizons++
	}
	if score.RS6M >= rsFloor6M {
		horizons++
	}
	score.PassRelStrength = horizons >= 2

	// 2D: weighted composite of proximity, RS, alignment, acceleration
	rsAvg := (score.RS1M + score.RS3M + score.RS6M) / 3
	score.Composite = composite(score.Proximity, rsAvg, score.MAAlignScore, acceleration(bars))
	score.PassComposite = score.Composite >= 75

	// 2E: volatility no worse than 1.5x the index
	if bench.Vol30 > 0 {
		score.VolRatio = ind.Vol30 / bench.Vol30
	} else {
		score.VolRatio = 1.0
	}
	score.PassVolRatio = score.VolRatio <= 1.5

	for _, pass := range []bool{
		score.PassProximity, score.PassMAAlign, score.PassRelStrength,
		score.PassComposite, score.PassVolRatio,
	} {
		if pass {
			score.FiltersPassed++
		}
	}
	score.Score = score.Composite
	score.Qualifies = score.FiltersPassed >= 4

	return score
}

// rangeProximity is the close's 0-1 position in the 52-week range
func rangeProximity(close, high52, low52 float64) float64 {
	if high52 <= low52 {
		return 0
	}
	p := (close - low52) / (high52 - low52)
	return clamp(p, 0, 1)
}

// volumeSurge is the latest volume over its 20-day average
func volumeSurge(bars []contracts.DailyBar) float64 {
	last := len(bars) - 1
	n := 20
	if len(bars) < n {
		n = len(bars)
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += float64(b.Volume)
	}
	avg := sum / float64(n)
	if avg == 0 {
		return 0
	}
	return float64(bars[last].Volume) / avg
}

// maAlignScore counts the five alignment checks
func maAlignScore(close float64, ind *contracts.IndicatorSet) int {
	score := 0
	if close > ind.SMA20 {
		score++
	}
	if close > ind.SMA50 {
		score++
	}
	if close > ind.SMA200 {
		score++
	}
	if ind.SMA20 > ind.SMA50 && ind.SMA50 > ind.SMA200 {
		score++
	}
	if ind.Slope20 >= 0.001 && ind.Slope50 >= 0.0005 && ind.Slope200 >= 0.0002 {
		score++
	}
	return score
}

// trailingReturn is the fractional return over the last n trading days
func trailingReturn(bars []contracts.DailyBar, n int) float64 {
	if len(bars) <= n {
		return 0
	}
	then := bars[len(bars)-1-n].Close
	if then == 0 {
		return 0
	}
	return bars[len(bars)-1].Close/then - 1
}

// acceleration is the 10-day SMA's fractional change over ten sessions
func acceleration(bars []contracts.DailyBar) float64 {
	if len(bars) < 21 {
		return 0
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	sma10 := talib.Sma(closes, 10)
	last := len(sma10) - 1
	then := sma10[last-10]
	if then == 0 {
		return 0
	}
	return sma10[last]/then - 1
}

// composite maps the four momentum components to a 0-100 score:
// proximity as a percentage, RS average scaled so +-50% outperformance
// spans the scale, alignment out of 5, and acceleration spanning
// -5%..+5% per ten sessions.
func composite(proximity, rsAvg float64, maScore int, accel float64) float64 {
	proximityC := clamp(proximity*100, 0, 100)
	rsC := clamp(rsAvg/0.50*100+50, 0, 100)
	maC := float64(maScore) / 5 * 100
	accelC := clamp((accel+0.05)/0.10*100, 0, 100)

	return 0.25*proximityC + 0.25*rsC + 0.25*maC + 0.25*accelC
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
