package shared

// Factor represents a contributing factor for a trade signal.
type Factor int

const (
	HigherTimeframeBias Factor = iota
	TrendPullback
	RangeExtreme
	MACDMomentum
	StochasticCross
	ReversalPattern
	FullConfluence
	TrendAccelerating
	TrendFading
	PeakSession
	OffPeakSession
	RolloverWindow
	ExtendedMove
	CounterTrendTierOne
	CounterTrendTierTwo
	CounterTrendRejected
	InsufficientHistory
	GuardCooldown
)

// String stringifies the provided factor.
func (f Factor) String() string {
	switch f {
	case HigherTimeframeBias:
		return "higher timeframe bias aligned"
	case TrendPullback:
		return "pullback to band extreme"
	case RangeExtreme:
		return "range extreme with divergence"
	case MACDMomentum:
		return "macd momentum agreement"
	case StochasticCross:
		return "stochastic trigger cross"
	case ReversalPattern:
		return "reversal candle pattern"
	case FullConfluence:
		return "full multi-timeframe confluence"
	case TrendAccelerating:
		return "trend accelerating"
	case TrendFading:
		return "trend fading"
	case PeakSession:
		return "peak liquidity session"
	case OffPeakSession:
		return "off-peak session"
	case RolloverWindow:
		return "venue rollover window"
	case ExtendedMove:
		return "extended move"
	case CounterTrendTierOne:
		return "counter-trend tier one"
	case CounterTrendTierTwo:
		return "counter-trend tier two"
	case CounterTrendRejected:
		return "counter-trend setup rejected"
	case InsufficientHistory:
		return "insufficient indicator history"
	case GuardCooldown:
		return "loss streak cooldown"
	default:
		return "unknown"
	}
}
