package shared

// MarketMode represents the prevailing market condition derived from the
// five minute timeframe.
type MarketMode int

const (
	Uncertain MarketMode = iota
	TrendingUp
	TrendingDown
	Ranging
)

// String stringifies the provided market mode.
func (m MarketMode) String() string {
	switch m {
	case Uncertain:
		return "uncertain"
	case TrendingUp:
		return "trending up"
	case TrendingDown:
		return "trending down"
	case Ranging:
		return "ranging"
	default:
		return "unknown"
	}
}

// Trending reports whether the mode is one of the trending states.
func (m MarketMode) Trending() bool {
	return m == TrendingUp || m == TrendingDown
}
