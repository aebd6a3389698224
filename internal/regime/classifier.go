package regime

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/logger"
)

// composite boundaries
const (
	riskOnFloor  = 70.0
	choppyFloor  = 40.0
	weakTrend    = 50.0
	upperChoppy  = 50.0
)

// breadthSample caps how many universe symbols feed the breadth
// sub-score. Beyond this the fraction is stable to within a point.
const breadthSample = 150

// Classifier produces the weekly market regime from Nifty trend,
// universe breadth, volatility, and sector leadership. The regime
// gates every stage after S2.
type Classifier struct {
	provider marketdata.BarProvider
	stocks   contracts.StockRepository
	bars     contracts.BarRepository
	repo     contracts.RegimeRepository
	cfg      config.ProviderConfig
	log      *logger.Logger
}

// NewClassifier creates the regime classifier
func NewClassifier(
	provider marketdata.BarProvider,
	stocks contracts.StockRepository,
	bars contracts.BarRepository,
	repo contracts.RegimeRepository,
	cfg config.ProviderConfig,
	log *logger.Logger,
) *Classifier {
	return &Classifier{
		provider: provider,
		stocks:   stocks,
		bars:     bars,
		repo:     repo,
		cfg:      cfg,
		log:      log.WithField("stage", contracts.StageRegime.ShortName()),
	}
}

var _ contracts.RegimeClassifier = (*Classifier)(nil)

// Classify computes the four sub-scores, maps the composite to a state
// and multiplier, and upserts the weekly regime record
func (c *Classifier) Classify(ctx context.Context, week time.Time) (*contracts.Regime, error) {
	niftyBars, err := c.provider.FetchBenchmark(ctx, c.cfg.HorizonDays)
	if err != nil {
		return nil, err
	}

	vixBars, err := c.provider.FetchVIX(ctx)
	if err != nil {
		return nil, err
	}

	breadth, err := c.breadthScore(ctx)
	if err != nil {
		return nil, fmt.Errorf("breadth: %w", err)
	}

	leadership, err := c.leadershipScore(ctx)
	if err != nil {
		return nil, fmt.Errorf("leadership: %w", err)
	}

	sub := contracts.RegimeSubscores{
		Trend:      trendScore(niftyBars),
		Breadth:    breadth,
		Volatility: volatilityScore(c.vixSeries(niftyBars, vixBars)),
		Leadership: leadership,
	}

	regime := classify(week, sub)
	regime.CalculatedAt = time.Now()

	if err := c.repo.Upsert(ctx, regime); err != nil {
		return nil, fmt.Errorf("upsert regime: %w", err)
	}

	c.log.WithFields(map[string]interface{}{
		"state":      regime.State,
		"composite":  regime.Composite,
		"multiplier": regime.Multiplier,
		"trend":      sub.Trend,
		"breadth":    sub.Breadth,
		"volatility": sub.Volatility,
		"leadership": sub.Leadership,
	}).Info("Regime classified")

	return regime, nil
}

// classify maps sub-scores to a full regime record
func classify(week time.Time, sub contracts.RegimeSubscores) *contracts.Regime {
	composite := (sub.Trend + sub.Breadth + sub.Volatility + sub.Leadership) / 4

	var state contracts.RegimeState
	var multiplier float64
	switch {
	case composite >= riskOnFloor:
		state = contracts.RegimeRiskOn
		multiplier = 1.0
	case composite >= choppyFloor:
		state = contracts.RegimeChoppy
		// upper CHOPPY with a healthy trend earns a larger sleeve
		if composite >= upperChoppy && sub.Trend >= weakTrend {
			multiplier = 0.7
		} else {
			multiplier = 0.5
		}
	default:
		state = contracts.RegimeRiskOff
		multiplier = 0.0
	}

	return &contracts.Regime{
		Week:       week,
		State:      state,
		Composite:  composite,
		Confidence: confidence(composite, state),
		Subscores:  sub,
		Multiplier: multiplier,
		Thresholds: contracts.ThresholdsFor(state),
	}
}

// confidence is the composite's distance from the nearest state
// boundary, normalized to 0-1
func confidence(composite float64, state contracts.RegimeState) float64 {
	var c float64
	switch state {
	case contracts.RegimeRiskOn:
		c = (composite - riskOnFloor) / (100 - riskOnFloor)
	case contracts.RegimeChoppy:
		mid := (riskOnFloor + choppyFloor) / 2
		half := (riskOnFloor - choppyFloor) / 2
		c = 1 - math.Abs(composite-mid)/half
	default:
		c = (choppyFloor - composite) / choppyFloor
	}
	return clamp(c, 0, 1)
}

// trendScore scores the Nifty's position against its moving averages
// and their slopes
func trendScore(bars []contracts.DailyBar) float64 {
	if len(bars) < 220 {
		return 0
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	last := len(closes) - 1
	close := closes[last]

	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)
	sma200 := talib.Sma(closes, 200)

	score := 0.0
	if close > sma20[last] {
		score += 20
	}
	if close > sma50[last] {
		score += 20
	}
	if close > sma200[last] {
		score += 20
	}
	if sma20[last] > sma50[last] && sma50[last] > sma200[last] {
		score += 15
	}
	if sma50[last] > sma50[last-10] {
		score += 15
	}
	if sma200[last] > sma200[last-10] {
		score += 10
	}
	return score
}

// breadthScore is the fraction of the universe above its 200 DMA and
// 50 DMA, equally weighted
func (c *Classifier) breadthScore(ctx context.Context) (float64, error) {
	stocks, err := c.stocks.GetHighQuality(ctx)
	if err != nil {
		return 0, err
	}
	if len(stocks) == 0 {
		return 0, fmt.Errorf("universe is empty")
	}
	if len(stocks) > breadthSample {
		stocks = stocks[:breadthSample]
	}

	sampled, above200, above50 := 0, 0, 0
	for _, st := range stocks {
		bars, err := c.bars.GetDaily(ctx, st.Symbol, 250)
		if err != nil || len(bars) < 200 {
			continue
		}

		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}
		last := len(closes) - 1
		sampled++
		if closes[last] > talib.Sma(closes, 200)[last] {
			above200++
		}
		if closes[last] > talib.Sma(closes, 50)[last] {
			above50++
		}
	}
	if sampled == 0 {
		return 0, fmt.Errorf("no symbols with enough history for breadth")
	}

	frac200 := float64(above200) / float64(sampled)
	frac50 := float64(above50) / float64(sampled)
	return 100 * (0.5*frac200 + 0.5*frac50), nil
}

// volatilityScore scores the VIX level, its direction, and spikes.
// Band (0-40) per the absolute level, direction (0-35, falling best),
// and a calm bonus (25) withheld when the latest print exceeds 1.3x
// its 10-day average.
func volatilityScore(vix []float64) float64 {
	if len(vix) == 0 {
		return 0
	}
	current := vix[len(vix)-1]

	var band float64
	switch {
	case current < 13:
		band = 40
	case current < 16:
		band = 35
	case current < 20:
		band = 25
	case current < 25:
		band = 10
	default:
		band = 0
	}

	avg10 := stat.Mean(tail(vix, 10), nil)
	if avg10 == 0 {
		return band
	}

	var direction float64
	switch {
	case current <= 0.95*avg10:
		direction = 35
	case current <= 1.05*avg10:
		direction = 20
	default:
		direction = 0
	}

	calm := 25.0
	if current > 1.3*avg10 {
		calm = 0
	}

	return band + direction + calm
}

// vixSeries returns the volatility series feeding the score: real VIX
// closes when the fetch produced any, else annualized realized 20-day
// Nifty vol. The two are never mixed; VIX carries a premium over
// realized vol, so a blended series would skew the 10-day average the
// direction and spike terms compare against.
func (c *Classifier) vixSeries(niftyBars, vixBars []contracts.DailyBar) []float64 {
	if len(vixBars) > 0 {
		closes := make([]float64, len(vixBars))
		for i, b := range vixBars {
			closes[i] = b.Close
		}
		return closes
	}
	c.log.Debug("VIX unavailable, using realized volatility proxy")
	return realizedVolSeries(niftyBars, 12)
}

// realizedVolSeries builds the last n annualized 20-day realized vol
// points, in VIX-like percent units
func realizedVolSeries(bars []contracts.DailyBar, n int) []float64 {
	returns := contracts.DailyReturns(bars)
	if len(returns) < 21 {
		return nil
	}

	out := make([]float64, 0, n)
	for i := n - 1; i >= 0; i-- {
		end := len(returns) - i
		start := end - 20
		if start < 0 {
			continue
		}
		out = append(out, stat.StdDev(returns[start:end], nil)*math.Sqrt(252)*100)
	}
	return out
}

// leadershipScore is the mean 20-day return of the cyclical sector
// indexes minus the defensives, bucketed
func (c *Classifier) leadershipScore(ctx context.Context) (float64, error) {
	cyclical, err := c.meanIndexReturn(ctx, marketdata.CyclicalIndexes)
	if err != nil {
		return 0, err
	}
	defensive, err := c.meanIndexReturn(ctx, marketdata.DefensiveIndexes)
	if err != nil {
		return 0, err
	}

	spread := cyclical - defensive
	switch {
	case spread >= 0.03:
		return 100, nil
	case spread >= 0.01:
		return 75, nil
	case spread >= -0.01:
		return 50, nil
	case spread >= -0.03:
		return 25, nil
	default:
		return 0, nil
	}
}

func (c *Classifier) meanIndexReturn(ctx context.Context, indexes []string) (float64, error) {
	var sum float64
	counted := 0
	for _, index := range indexes {
		bars, err := c.provider.FetchSectorIndex(ctx, index, 40)
		if err != nil || len(bars) < 21 {
			c.log.WithField("index", index).Warn("Sector index unavailable for leadership")
			continue
		}
		last := len(bars) - 1
		then := bars[last-20].Close
		if then == 0 {
			continue
		}
		sum += bars[last].Close/then - 1
		counted++
	}
	if counted == 0 {
		return 0, fmt.Errorf("no sector indexes available")
	}
	return sum / float64(counted), nil
}

// small numeric helpers

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
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
