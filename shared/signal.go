package shared

import (
	"time"
)

// StatusCode represents a request or signal status code.
type StatusCode int

const (
	Processing StatusCode = iota
	Processed
)

// TradeSignal represents a rise/fall decision for one evaluation cycle. It is
// created once per cycle and never mutated afterwards.
type TradeSignal struct {
	Market     string
	Side       Side
	Confidence float64
	Mode       MarketMode
	Factors    []Factor
	Price      float64
	CreatedOn  time.Time

	// Per-timeframe confirmation flags.
	M1Confirmed  bool
	M5Confirmed  bool
	M15Confirmed bool
}

// NewTradeSignal initializes a new trade signal.
func NewTradeSignal(market string, side Side, confidence float64, mode MarketMode,
	factors []Factor, price float64, created time.Time) TradeSignal {
	return TradeSignal{
		Market:     market,
		Side:       side,
		Confidence: confidence,
		Mode:       mode,
		Factors:    factors,
		Price:      price,
		CreatedOn:  created,
	}
}

// TradeOutcome represents the settled result of a contract, reported
// asynchronously by the execution layer.
type TradeOutcome struct {
	Market    string
	Result    Result
	PNL       float64
	SettledOn time.Time
	Status    chan StatusCode
}

// NewTradeOutcome initializes a new trade outcome.
func NewTradeOutcome(market string, result Result, pnl float64, settled time.Time) TradeOutcome {
	return TradeOutcome{
		Market:    market,
		Result:    result,
		PNL:       pnl,
		SettledOn: settled,
		Status:    make(chan StatusCode, 1),
	}
}
