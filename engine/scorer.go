package engine

import (
	"fmt"
	"time"

	"github.com/quayle/verdict/indicator"
	"github.com/quayle/verdict/shared"
)

const (
	// m15ConfirmationWeight is awarded when the higher timeframe bias aligns
	// with the side being scored.
	m15ConfirmationWeight = 15
	// trendPullbackWeight is awarded for a pullback setup in trending modes.
	trendPullbackWeight = 25
	// rangeExtremeWeight is awarded for a band extreme setup in ranging modes.
	rangeExtremeWeight = 30
	// macdAgreementWeight is awarded when MACD momentum agrees with the side.
	macdAgreementWeight = 5
	// stochasticTriggerWeight is awarded for a stochastic cross trigger.
	stochasticTriggerWeight = 15
	// reversalPatternWeight is awarded for a reversal candle pattern trigger.
	reversalPatternWeight = 15
	// confluenceBonusWeight is awarded when all three timeframes confirm.
	confluenceBonusWeight = 10
	// accelerationWeight is the trend acceleration adjustment magnitude.
	accelerationWeight = 5
	// stochasticMidline is the %K midline a trigger cross must start from.
	stochasticMidline = 50
	// maxConfidence bounds a side's confidence score.
	maxConfidence = 100
)

// ScorerConfig represents the signal scorer configuration.
type ScorerConfig struct {
	// RSIExtended is the RSI level past which a trend-mode entry is
	// considered a chase and vetoed.
	RSIExtended float64
	// PullbackRSIFloor is the lower bound of the not-yet-extended RSI band
	// required for a trend pullback setup.
	PullbackRSIFloor float64
	// PullbackBandPercent is the %B level at or beyond which price counts as
	// near the band extreme opposite the trade direction.
	PullbackBandPercent float64
	// PeakSessions are the designated high liquidity windows.
	PeakSessions []shared.SessionWindow
	// AvoidSession is the window around the venue's daily rollover.
	AvoidSession shared.SessionWindow
	// PeakSessionBonus is added inside a peak session.
	PeakSessionBonus float64
	// OffPeakPenalty is subtracted outside every peak session.
	OffPeakPenalty float64
	// AvoidWindowPenalty is subtracted inside the rollover window. It must be
	// large enough that no combination of other factors can overcome it.
	AvoidWindowPenalty float64
}

// DefaultScorerConfig returns a scorer configuration with standard session
// windows and thresholds.
func DefaultScorerConfig() (*ScorerConfig, error) {
	london, err := shared.NewSessionWindow("london", "07:00", "16:00")
	if err != nil {
		return nil, fmt.Errorf("creating london session: %w", err)
	}

	newYork, err := shared.NewSessionWindow("new york", "12:00", "21:00")
	if err != nil {
		return nil, fmt.Errorf("creating new york session: %w", err)
	}

	rollover, err := shared.NewSessionWindow("rollover", "23:55", "00:05")
	if err != nil {
		return nil, fmt.Errorf("creating rollover window: %w", err)
	}

	return &ScorerConfig{
		RSIExtended:         65,
		PullbackRSIFloor:    35,
		PullbackBandPercent: 0.35,
		PeakSessions:        []shared.SessionWindow{london, newYork},
		AvoidSession:        rollover,
		PeakSessionBonus:    5,
		OffPeakPenalty:      10,
		AvoidWindowPenalty:  1000,
	}, nil
}

// counterTrendTier describes one acceptable evidence tier for a trade opposing
// the higher timeframe bias. Tiers are checked in order; matching any one of
// them passes the gate.
type counterTrendTier struct {
	factor shared.Factor
	// maxRSI is the rise-side RSI ceiling; the fall side mirrors it.
	maxRSI float64
	// maxBandPercent is the rise-side %B ceiling; the fall side mirrors it.
	maxBandPercent float64
	// requireReversalHint demands a divergence flag or reversal pattern.
	requireReversalHint bool
	// requireConfirmation demands an explicit reversal candle pattern.
	requireConfirmation bool
}

// counterTrendTiers is the tier table for counter-trend filtering. Adding or
// removing a tier is a data change, not a logic change.
var counterTrendTiers = []counterTrendTier{
	{
		factor:              shared.CounterTrendTierOne,
		maxRSI:              30,
		maxBandPercent:      0.20,
		requireReversalHint: true,
	},
	{
		factor:              shared.CounterTrendTierTwo,
		maxRSI:              40,
		maxBandPercent:      0.35,
		requireConfirmation: true,
	},
}

// SideScore is the scored evidence for one side of an evaluation cycle.
type SideScore struct {
	Side         shared.Side
	Confidence   float64
	Factors      []shared.Factor
	M1Confirmed  bool
	M5Confirmed  bool
	M15Confirmed bool
	Vetoed       bool
}

// Agreement returns the number of timeframes confirming the side.
func (s *SideScore) Agreement() int {
	var count int
	if s.M1Confirmed {
		count++
	}
	if s.M5Confirmed {
		count++
	}
	if s.M15Confirmed {
		count++
	}

	return count
}

// scoreContext carries the inputs of one side evaluation through the rule
// pipeline.
type scoreContext struct {
	side  shared.Side
	mode  shared.MarketMode
	m1    *indicator.Snapshot
	m5    *indicator.Snapshot
	m15   *indicator.Snapshot
	now   time.Time
	score *SideScore
}

// scoreRule is a named step of the scoring pipeline. A rule either adjusts the
// running score or vetoes the side, which zeroes it and stops the pipeline.
type scoreRule struct {
	name  string
	apply func(ctx *scoreContext) bool
}

// Scorer computes rise and fall confidence scores from a snapshot triple.
type Scorer struct {
	cfg   *ScorerConfig
	rules []scoreRule
}

// NewScorer initializes a new signal scorer.
func NewScorer(cfg *ScorerConfig) *Scorer {
	s := &Scorer{
		cfg: cfg,
	}

	// Gates precede accumulation so an extended or counter-trend setup cannot
	// buy a pass through unrelated bonuses.
	s.rules = []scoreRule{
		{name: "extension gate", apply: s.extensionGate},
		{name: "higher timeframe confirmation", apply: s.confirmBias},
		{name: "setup", apply: s.evaluateSetup},
		{name: "trigger", apply: s.evaluateTrigger},
		{name: "counter-trend gate", apply: s.counterTrendGate},
		{name: "confluence bonus", apply: s.confluenceBonus},
		{name: "trend acceleration", apply: s.trendAcceleration},
		{name: "session adjustment", apply: s.sessionAdjustment},
	}

	return s
}

// Score evaluates both sides of the provided snapshot triple. It is a pure
// function of its inputs; identical inputs always yield identical scores.
func (s *Scorer) Score(mode shared.MarketMode, m1, m5, m15 *indicator.Snapshot, now time.Time) (SideScore, SideScore) {
	rise := s.scoreSide(shared.Rise, mode, m1, m5, m15, now)
	fall := s.scoreSide(shared.Fall, mode, m1, m5, m15, now)

	return rise, fall
}

// scoreSide runs the rule pipeline for one side.
func (s *Scorer) scoreSide(side shared.Side, mode shared.MarketMode, m1, m5, m15 *indicator.Snapshot, now time.Time) SideScore {
	score := SideScore{
		Side:    side,
		Factors: []shared.Factor{},
	}

	ctx := &scoreContext{
		side:  side,
		mode:  mode,
		m1:    m1,
		m5:    m5,
		m15:   m15,
		now:   now,
		score: &score,
	}

	for idx := range s.rules {
		if !s.rules[idx].apply(ctx) {
			score.Vetoed = true
			score.Confidence = 0
			score.M1Confirmed = false
			score.M5Confirmed = false
			score.M15Confirmed = false
			return score
		}
	}

	// Clamp before anything downstream sees the value.
	switch {
	case score.Confidence < 0:
		score.Confidence = 0
	case score.Confidence > maxConfidence:
		score.Confidence = maxConfidence
	}

	return score
}

// biasFor returns the side favoured by the higher timeframe snapshot, derived
// from price versus the fast EMA and the directional index ordering.
func biasFor(m15 *indicator.Snapshot) shared.Side {
	switch {
	case m15.Close > m15.FastEMA && m15.PlusDI > m15.MinusDI:
		return shared.Rise
	case m15.Close < m15.FastEMA && m15.MinusDI > m15.PlusDI:
		return shared.Fall
	default:
		return shared.None
	}
}

// extensionGate vetoes trend-mode entries chasing an already extended move.
func (s *Scorer) extensionGate(ctx *scoreContext) bool {
	if !ctx.mode.Trending() {
		return true
	}

	switch ctx.side {
	case shared.Rise:
		if ctx.m5.RSI > s.cfg.RSIExtended {
			ctx.score.Factors = append(ctx.score.Factors, shared.ExtendedMove)
			return false
		}
	case shared.Fall:
		if ctx.m5.RSI < maxConfidence-s.cfg.RSIExtended {
			ctx.score.Factors = append(ctx.score.Factors, shared.ExtendedMove)
			return false
		}
	}

	return true
}

// confirmBias awards the higher timeframe confirmation when the fifteen
// minute bias matches the side being scored.
func (s *Scorer) confirmBias(ctx *scoreContext) bool {
	if biasFor(ctx.m15) == ctx.side {
		ctx.score.Confidence += m15ConfirmationWeight
		ctx.score.Factors = append(ctx.score.Factors, shared.HigherTimeframeBias)
		ctx.score.M15Confirmed = true
	}

	return true
}

// evaluateSetup awards the five minute setup. Trending modes require a
// pullback to the band extreme opposite the trade direction with RSI inside
// the not-yet-extended band; ranging and uncertain modes require price at the
// extreme with RSI beyond its threshold and a divergence flag.
func (s *Scorer) evaluateSetup(ctx *scoreContext) bool {
	m5 := ctx.m5

	if ctx.mode.Trending() {
		switch ctx.side {
		case shared.Rise:
			if m5.BandPercent <= s.cfg.PullbackBandPercent &&
				m5.RSI >= s.cfg.PullbackRSIFloor && m5.RSI < s.cfg.RSIExtended {
				ctx.score.Confidence += trendPullbackWeight
				ctx.score.Factors = append(ctx.score.Factors, shared.TrendPullback)
				ctx.score.M5Confirmed = true
			}
		case shared.Fall:
			if m5.BandPercent >= 1-s.cfg.PullbackBandPercent &&
				m5.RSI <= maxConfidence-s.cfg.PullbackRSIFloor && m5.RSI > maxConfidence-s.cfg.RSIExtended {
				ctx.score.Confidence += trendPullbackWeight
				ctx.score.Factors = append(ctx.score.Factors, shared.TrendPullback)
				ctx.score.M5Confirmed = true
			}
		}
	} else {
		switch ctx.side {
		case shared.Rise:
			if m5.PriceAtLowerBand && m5.Oversold && m5.BullishDivergence {
				ctx.score.Confidence += rangeExtremeWeight
				ctx.score.Factors = append(ctx.score.Factors, shared.RangeExtreme)
				ctx.score.M5Confirmed = true
			}
		case shared.Fall:
			if m5.PriceAtUpperBand && m5.Overbought && m5.BearishDivergence {
				ctx.score.Confidence += rangeExtremeWeight
				ctx.score.Factors = append(ctx.score.Factors, shared.RangeExtreme)
				ctx.score.M5Confirmed = true
			}
		}
	}

	if (ctx.side == shared.Rise && m5.MACDBullish) ||
		(ctx.side == shared.Fall && m5.MACDBearish) {
		ctx.score.Confidence += macdAgreementWeight
		ctx.score.Factors = append(ctx.score.Factors, shared.MACDMomentum)
	}

	return true
}

// evaluateTrigger awards the one minute triggers: a stochastic cross in the
// trade direction starting from the correct side of the midline, and a
// recognized reversal candle pattern.
func (s *Scorer) evaluateTrigger(ctx *scoreContext) bool {
	m1 := ctx.m1

	switch ctx.side {
	case shared.Rise:
		if m1.StochK > m1.StochD && m1.StochK < stochasticMidline {
			ctx.score.Confidence += stochasticTriggerWeight
			ctx.score.Factors = append(ctx.score.Factors, shared.StochasticCross)
			ctx.score.M1Confirmed = true
		}
		if m1.BullishReversal {
			ctx.score.Confidence += reversalPatternWeight
			ctx.score.Factors = append(ctx.score.Factors, shared.ReversalPattern)
			ctx.score.M1Confirmed = true
		}
	case shared.Fall:
		if m1.StochK < m1.StochD && m1.StochK > stochasticMidline {
			ctx.score.Confidence += stochasticTriggerWeight
			ctx.score.Factors = append(ctx.score.Factors, shared.StochasticCross)
			ctx.score.M1Confirmed = true
		}
		if m1.BearishReversal {
			ctx.score.Confidence += reversalPatternWeight
			ctx.score.Factors = append(ctx.score.Factors, shared.ReversalPattern)
			ctx.score.M1Confirmed = true
		}
	}

	return true
}

// counterTrendGate vetoes ranging and uncertain mode trades opposing the
// higher timeframe bias unless they satisfy one of the evidence tiers.
func (s *Scorer) counterTrendGate(ctx *scoreContext) bool {
	if ctx.mode.Trending() {
		return true
	}

	bias := biasFor(ctx.m15)
	if bias == shared.None || bias == ctx.side {
		return true
	}

	var hint, confirmation bool
	switch ctx.side {
	case shared.Rise:
		hint = ctx.m5.BullishDivergence || ctx.m1.BullishReversal
		confirmation = ctx.m1.BullishReversal
	case shared.Fall:
		hint = ctx.m5.BearishDivergence || ctx.m1.BearishReversal
		confirmation = ctx.m1.BearishReversal
	}

	for idx := range counterTrendTiers {
		tier := counterTrendTiers[idx]

		var extremes bool
		switch ctx.side {
		case shared.Rise:
			extremes = ctx.m5.RSI < tier.maxRSI && ctx.m5.BandPercent <= tier.maxBandPercent
		case shared.Fall:
			extremes = ctx.m5.RSI > maxConfidence-tier.maxRSI &&
				ctx.m5.BandPercent >= 1-tier.maxBandPercent
		}
		if !extremes {
			continue
		}
		if tier.requireReversalHint && !hint {
			continue
		}
		if tier.requireConfirmation && !confirmation {
			continue
		}

		ctx.score.Factors = append(ctx.score.Factors, tier.factor)
		return true
	}

	ctx.score.Factors = append(ctx.score.Factors, shared.CounterTrendRejected)
	return false
}

// confluenceBonus rewards agreement across all three timeframes.
func (s *Scorer) confluenceBonus(ctx *scoreContext) bool {
	if ctx.score.M1Confirmed && ctx.score.M5Confirmed && ctx.score.M15Confirmed {
		ctx.score.Confidence += confluenceBonusWeight
		ctx.score.Factors = append(ctx.score.Factors, shared.FullConfluence)
	}

	return true
}

// trendAcceleration adjusts conviction in the active trend: a rising ADX adds
// points for the side trading with the trend, a falling ADX subtracts them.
func (s *Scorer) trendAcceleration(ctx *scoreContext) bool {
	withTrend := (ctx.mode == shared.TrendingUp && ctx.side == shared.Rise) ||
		(ctx.mode == shared.TrendingDown && ctx.side == shared.Fall)
	if !withTrend {
		return true
	}

	switch {
	case ctx.m5.ADXRising:
		ctx.score.Confidence += accelerationWeight
		ctx.score.Factors = append(ctx.score.Factors, shared.TrendAccelerating)
	case ctx.m5.ADXFalling:
		ctx.score.Confidence -= accelerationWeight
		ctx.score.Factors = append(ctx.score.Factors, shared.TrendFading)
	}

	return true
}

// sessionAdjustment applies the session-time bonus and penalties. The
// rollover window penalty is large enough to disqualify a cycle outright.
func (s *Scorer) sessionAdjustment(ctx *scoreContext) bool {
	if s.cfg.AvoidSession.Contains(ctx.now) {
		ctx.score.Confidence -= s.cfg.AvoidWindowPenalty
		ctx.score.Factors = append(ctx.score.Factors, shared.RolloverWindow)
		return true
	}

	for idx := range s.cfg.PeakSessions {
		if s.cfg.PeakSessions[idx].Contains(ctx.now) {
			ctx.score.Confidence += s.cfg.PeakSessionBonus
			ctx.score.Factors = append(ctx.score.Factors, shared.PeakSession)
			return true
		}
	}

	ctx.score.Confidence -= s.cfg.OffPeakPenalty
	ctx.score.Factors = append(ctx.score.Factors, shared.OffPeakSession)
	return true
}
