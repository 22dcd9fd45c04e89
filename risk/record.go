package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/quayle/verdict/shared"
)

// TradeRecord represents a settled rise/fall contract.
type TradeRecord struct {
	ID         string
	Market     string
	Side       shared.Side
	Stake      float64
	Payout     float64
	Profit     float64
	Result     shared.Result
	EntryPrice float64
	ExitPrice  float64
	Confidence float64
	Mode       shared.MarketMode
	CreatedOn  time.Time
	SettledOn  time.Time
}

// NewTradeRecord initializes a new trade record from the originating signal
// and its settlement.
func NewTradeRecord(signal *shared.TradeSignal, stake float64, payout float64,
	profit float64, result shared.Result, exitPrice float64, settled time.Time) *TradeRecord {
	return &TradeRecord{
		ID:         uuid.New().String(),
		Market:     signal.Market,
		Side:       signal.Side,
		Stake:      stake,
		Payout:     payout,
		Profit:     profit,
		Result:     result,
		EntryPrice: signal.Price,
		ExitPrice:  exitPrice,
		Confidence: signal.Confidence,
		Mode:       signal.Mode,
		CreatedOn:  signal.CreatedOn,
		SettledOn:  settled,
	}
}
