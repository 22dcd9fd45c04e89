package engine

import (
	"github.com/quayle/verdict/shared"
)

// ClassifierConfig represents the market mode classifier configuration.
type ClassifierConfig struct {
	// TrendEntryADX is the ADX threshold for entering a trending mode.
	TrendEntryADX float64
	// RangeEntryADX is the ADX threshold for entering the ranging mode. It
	// doubles as the trend exit threshold and must be strictly lower than
	// TrendEntryADX to form a hysteresis band.
	RangeEntryADX float64
}

// Classifier maps five minute trend strength readings to a market mode with
// hysteresis. The previous mode must be carried by the caller; the classifier
// holds no state of its own.
type Classifier struct {
	cfg *ClassifierConfig
}

// NewClassifier initializes a new market mode classifier.
func NewClassifier(cfg *ClassifierConfig) *Classifier {
	return &Classifier{
		cfg: cfg,
	}
}

// Classify returns the market mode for the provided trend strength readings.
// An established trending or ranging mode persists while ADX sits between the
// two thresholds, which prevents mode chatter near a boundary.
func (c *Classifier) Classify(prev shared.MarketMode, adx float64, plusDI float64, minusDI float64) shared.MarketMode {
	switch {
	case adx >= c.cfg.TrendEntryADX && plusDI > minusDI:
		return shared.TrendingUp
	case adx >= c.cfg.TrendEntryADX && minusDI > plusDI:
		return shared.TrendingDown
	case adx < c.cfg.RangeEntryADX:
		return shared.Ranging
	default:
		// ADX is inside the hysteresis band, or at trend strength with no
		// directional winner. Keep an established mode.
		switch prev {
		case shared.TrendingUp, shared.TrendingDown, shared.Ranging:
			return prev
		default:
			return shared.Uncertain
		}
	}
}
