package s8_recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/logger"
)

// recommendationTTL is how long a weekly recommendation stays
// actionable before it is surfaced as stale
const recommendationTTL = 7 * 24 * time.Hour

// indicatorHorizon gives ComputeIndicators a full trading year
const indicatorHorizon = 300

// conviction weights; fundamental weight is redistributed
// proportionally when the monthly snapshot is missing
const (
	wMomentum    = 0.25
	wConsistency = 0.20
	wLiquidity   = 0.15
	wFundamental = 0.20
	wSetup       = 0.20
)

// Assembler runs S8: joins the stage outputs for the selected
// portfolio into actionable trade cards
type Assembler struct {
	portfolio    contracts.PortfolioRepository
	momentum     contracts.MomentumRepository
	consistency  contracts.ConsistencyRepository
	liquidity    contracts.LiquidityRepository
	setups       contracts.SetupRepository
	sizing       contracts.SizingRepository
	fundamentals contracts.FundamentalRepository
	bars         contracts.BarRepository
	repo         contracts.RecommendationRepository
	log          *logger.Logger
}

// NewAssembler creates the recommendation assembler
func NewAssembler(
	portfolio contracts.PortfolioRepository,
	momentum contracts.MomentumRepository,
	consistency contracts.ConsistencyRepository,
	liquidity contracts.LiquidityRepository,
	setups contracts.SetupRepository,
	sizing contracts.SizingRepository,
	fundamentals contracts.FundamentalRepository,
	bars contracts.BarRepository,
	repo contracts.RecommendationRepository,
	log *logger.Logger,
) *Assembler {
	return &Assembler{
		portfolio:    portfolio,
		momentum:     momentum,
		consistency:  consistency,
		liquidity:    liquidity,
		setups:       setups,
		sizing:       sizing,
		fundamentals: fundamentals,
		bars:         bars,
		repo:         repo,
		log:          log.WithField("stage", contracts.StageRecommend.ShortName()),
	}
}

var _ contracts.RecommendationAssembler = (*Assembler)(nil)

// cardInputs is everything one trade card is derived from
type cardInputs struct {
	position    contracts.AllocatedPosition
	setup       contracts.TradeSetup
	size        contracts.PositionSize
	momentum    float64
	consistency float64
	liquidity   float64
	fundamental *contracts.FundamentalScore
	current     float64
	indicators  *contracts.IndicatorSet
}

// Assemble builds and persists the weekly recommendation
func (a *Assembler) Assemble(ctx context.Context, week time.Time, regime *contracts.Regime, counts contracts.StageCounts) (*contracts.Recommendation, error) {
	now := time.Now()
	rec := &contracts.Recommendation{
		Week:             week,
		MarketRegime:     regime.State,
		RegimeConfidence: regime.Confidence,
		RegimeSubscores:  regime.Subscores,
		StageCounts:      counts,
		Status:           contracts.StatusDraft,
		Cards:            []contracts.TradeCard{},
		CreatedAt:        now,
		ExpiresAt:        now.Add(recommendationTTL),
	}

	if regime.Gated() {
		rec.StageReasons = append(rec.StageReasons, "regime blocks new positions this week")
		if err := a.repo.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("upsert recommendation: %w", err)
		}
		a.log.WithField("state", string(regime.State)).Info("Recommendation emitted with no setups")
		return rec, nil
	}

	alloc, err := a.portfolio.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get portfolio allocation: %w", err)
	}

	inputs, err := a.collectInputs(ctx, week, alloc)
	if err != nil {
		return nil, err
	}

	withFund := 0
	for _, in := range inputs {
		card := buildCard(week, in)
		rec.Cards = append(rec.Cards, card)
		if card.HasFundamental {
			withFund++
		}
	}
	rec.TotalSetups = len(rec.Cards)
	if alloc.Reason != "" {
		rec.StageReasons = append(rec.StageReasons, alloc.Reason)
	}

	if err := a.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("upsert recommendation: %w", err)
	}

	a.log.WithFields(map[string]interface{}{
		"cards":            len(rec.Cards),
		"with_fundamental": withFund,
		"regime":           string(regime.State),
	}).Info("Recommendation assembled")

	return rec, nil
}

func (a *Assembler) collectInputs(ctx context.Context, week time.Time, alloc *contracts.PortfolioAllocation) ([]cardInputs, error) {
	momScores, err := a.momentum.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get momentum scores: %w", err)
	}
	momBySymbol := make(map[string]float64, len(momScores))
	for _, s := range momScores {
		momBySymbol[s.Symbol] = s.Score
	}

	consScores, err := a.consistency.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get consistency scores: %w", err)
	}
	consBySymbol := make(map[string]float64, len(consScores))
	for _, s := range consScores {
		consBySymbol[s.Symbol] = s.ConsistencyScore
	}

	liqScores, err := a.liquidity.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get liquidity scores: %w", err)
	}
	liqBySymbol := make(map[string]float64, len(liqScores))
	for _, s := range liqScores {
		liqBySymbol[s.Symbol] = s.Score
	}

	sizes, err := a.sizing.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get position sizes: %w", err)
	}
	sizeBySymbol := make(map[string]contracts.PositionSize, len(sizes))
	for _, s := range sizes {
		sizeBySymbol[s.Symbol] = s
	}

	funds, err := a.fundamentals.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get fundamentals: %w", err)
	}

	inputs := make([]cardInputs, 0, len(alloc.Positions))
	for _, pos := range alloc.Positions {
		setup, err := a.setups.GetBySymbolAndWeek(ctx, pos.Symbol, week)
		if err != nil {
			return nil, fmt.Errorf("get setup for %s: %w", pos.Symbol, err)
		}

		in := cardInputs{
			position:    pos,
			setup:       *setup,
			size:        sizeBySymbol[pos.Symbol],
			momentum:    momBySymbol[pos.Symbol],
			consistency: consBySymbol[pos.Symbol],
			liquidity:   liqBySymbol[pos.Symbol],
		}
		if f, ok := funds[pos.Symbol]; ok {
			in.fundamental = &f
		}

		bars, err := a.bars.GetDaily(ctx, pos.Symbol, indicatorHorizon)
		if err != nil {
			return nil, fmt.Errorf("get daily bars for %s: %w", pos.Symbol, err)
		}
		if len(bars) > 0 {
			in.current = bars[len(bars)-1].Close
		}
		if ind, err := marketdata.ComputeIndicators(pos.Symbol, bars); err == nil {
			in.indicators = ind
		} else {
			a.log.WithField("symbol", pos.Symbol).Warn("Indicators unavailable for trade card")
		}

		inputs = append(inputs, in)
	}
	return inputs, nil
}

// buildCard joins one position's stage outputs into a trade card
func buildCard(week time.Time, in cardInputs) contracts.TradeCard {
	card := contracts.TradeCard{
		Symbol: in.position.Symbol,
		Name:   in.position.Name,
		Sector: in.position.Sector,
		Week:   week,

		MomentumScore:    in.momentum,
		ConsistencyScore: in.consistency,
		LiquidityScore:   in.liquidity,
		SetupConfidence:  in.setup.Confidence,

		Current: in.current,

		SetupType:  in.setup.SetupType,
		EntryLow:   in.setup.EntryLow,
		EntryHigh:  in.setup.EntryHigh,
		Stop:       in.setup.Stop,
		StopMethod: in.setup.StopMethod,
		Target1:    in.setup.Target1,
		Target2:    in.setup.Target2,
		RR:         in.setup.RR,

		Shares:      in.position.Shares,
		Investment:  in.position.Value,
		RiskAmount:  in.position.RiskAmount,
		PositionPct: in.size.PositionPct,
	}

	if in.fundamental != nil {
		card.HasFundamental = true
		card.FundamentalScore = in.fundamental.Score
	}
	card.Conviction10 = conviction10(in.momentum, in.consistency, in.liquidity, in.fundamental, in.setup.Confidence)
	card.ConvictionText = contracts.ConvictionLabel(card.Conviction10)

	if in.indicators != nil {
		card.High52 = in.indicators.High52
		card.SMA20 = in.indicators.SMA20
		card.SMA50 = in.indicators.SMA50
		card.SMA200 = in.indicators.SMA200
		card.ATR14 = in.indicators.ATR14
	}

	card.ActionSteps = actionSteps(&card)
	card.GapContingency = gapContingency(&card)
	card.Invalidation = invalidationConditions(&card)
	return card
}

// conviction10 is the 0-10 blended conviction. Without a fundamental
// snapshot the remaining weights are renormalized so the scale is
// preserved.
func conviction10(momentum, consistency, liquidity float64, fund *contracts.FundamentalScore, setupConf float64) float64 {
	weighted := wMomentum*momentum + wConsistency*consistency + wLiquidity*liquidity + wSetup*setupConf
	total := wMomentum + wConsistency + wLiquidity + wSetup
	if fund != nil {
		weighted += wFundamental * fund.Score
		total += wFundamental
	}
	return weighted / total / 10
}

func actionSteps(card *contracts.TradeCard) []string {
	return []string{
		fmt.Sprintf("Place a limit buy for %d shares in the %.2f-%.2f zone", card.Shares, card.EntryLow, card.EntryHigh),
		fmt.Sprintf("Set the initial stop at %.2f (%s)", card.Stop, card.StopMethod),
		"At +1R move the stop to breakeven; at +2R trail below the 10-day low",
		fmt.Sprintf("Book half at target 1 (%.2f), let the rest run toward target 2 (%.2f)", card.Target1, card.Target2),
	}
}

func gapContingency(card *contracts.TradeCard) string {
	return fmt.Sprintf(
		"Monday open at or below %.2f cancels the trade; above %.2f do not chase; inside %.2f-%.2f enter at open; between stop and %.2f take the better entry; otherwise wait for a pullback into the zone",
		card.Stop, card.EntryHigh*1.02, card.EntryLow, card.EntryHigh, card.EntryLow)
}

func invalidationConditions(card *contracts.TradeCard) []string {
	conditions := []string{
		fmt.Sprintf("Daily close below the stop at %.2f", card.Stop),
		"Entry not triggered within 5 sessions",
	}
	switch card.SetupType {
	case contracts.SetupPullback:
		conditions = append(conditions, "Close below the 50-day average on expanding volume")
	case contracts.SetupVCPBreakout:
		conditions = append(conditions, "Range expansion to the downside before the breakout")
	case contracts.SetupRetest:
		conditions = append(conditions, "Close below the retested breakout level for two sessions")
	case contracts.SetupGapFill:
		conditions = append(conditions, "Full gap fill on above-average volume")
	}
	return conditions
}
