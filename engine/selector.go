package engine

import (
	"time"

	"github.com/quayle/verdict/shared"
)

// SelectorConfig represents the decision selector configuration.
type SelectorConfig struct {
	// MinConfidence is the minimum confidence a candidate side must reach.
	MinConfidence float64
	// MinAgreement is the minimum number of confirming timeframes.
	MinAgreement int
}

// Selector picks the stronger side of an evaluation cycle if it clears the
// confidence and agreement bounds. It is pure and stateless; all state lives
// upstream in the classifier or downstream in the loss streak guard.
type Selector struct {
	cfg *SelectorConfig
}

// NewSelector initializes a new decision selector.
func NewSelector(cfg *SelectorConfig) *Selector {
	return &Selector{
		cfg: cfg,
	}
}

// Select compares the two side scores and returns the trade signal for the
// cycle. Ties, or a candidate missing either bound, yield a no-trade signal.
func (s *Selector) Select(market string, rise SideScore, fall SideScore,
	mode shared.MarketMode, price float64, now time.Time) shared.TradeSignal {
	var candidate *SideScore
	switch {
	case rise.Confidence > fall.Confidence:
		candidate = &rise
	case fall.Confidence > rise.Confidence:
		candidate = &fall
	default:
		// A tie is not actionable.
		return shared.NewTradeSignal(market, shared.None, 0, mode, nil, price, now)
	}

	if candidate.Confidence < s.cfg.MinConfidence || candidate.Agreement() < s.cfg.MinAgreement {
		return shared.NewTradeSignal(market, shared.None, 0, mode, nil, price, now)
	}

	signal := shared.NewTradeSignal(market, candidate.Side, candidate.Confidence,
		mode, candidate.Factors, price, now)
	signal.M1Confirmed = candidate.M1Confirmed
	signal.M5Confirmed = candidate.M5Confirmed
	signal.M15Confirmed = candidate.M15Confirmed

	return signal
}
