package replay

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/quayle/verdict/shared"
)

// CycleRecord captures the outcome of a single decision cycle, including
// cycles that produced no actionable signal. The records are the comparison
// unit for run-to-run determinism.
type CycleRecord struct {
	// Date is the close time of the candle that drove the cycle.
	Date string
	// Mode is the market mode after the cycle.
	Mode string
	// Side and Confidence describe the emitted signal, if any.
	Side       string
	Confidence float64
	// Factors lists the scoring factors behind the signal.
	Factors []string
	// Entered indicates a contract was opened on the signal.
	Entered bool
	// Stake, Result and Profit describe the settled contract for entry
	// cycles; they are zero valued otherwise.
	Stake  float64
	Result string
	Profit float64
	// Balance is the running account balance after the cycle.
	Balance float64
}

// Summary aggregates a completed replay run.
type Summary struct {
	Market               string
	Candles              int
	Cycles               int
	Signals              int
	Trades               int
	Wins                 int
	Losses               int
	Ties                 int
	WinRate              float64
	TotalProfit          float64
	ProfitFactor         float64
	MaxConsecutiveLosses uint32
	FinalBalance         float64
	ModeDistribution     map[shared.MarketMode]int
}

// String returns a human readable run summary.
func (s *Summary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "replay %s: %d candles, %d signals, %d trades", s.Market,
		s.Candles, s.Signals, s.Trades)
	fmt.Fprintf(&b, " (%d won, %d lost, %d tied, %.1f%% win rate)", s.Wins,
		s.Losses, s.Ties, s.WinRate*100)
	fmt.Fprintf(&b, ", pnl %.2f, final balance %.2f", s.TotalProfit, s.FinalBalance)

	return b.String()
}

// csvHeader is the column layout for persisted cycle records.
var csvHeader = []string{"date", "mode", "side", "confidence", "factors",
	"entered", "stake", "result", "profit", "balance"}

// WriteCycleRecords persists the provided cycle records as a csv file.
func WriteCycleRecords(path string, records []*CycleRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cycle record file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	err = writer.Write(csvHeader)
	if err != nil {
		return fmt.Errorf("writing cycle record header: %w", err)
	}

	for idx := range records {
		record := records[idx]
		row := []string{
			record.Date,
			record.Mode,
			record.Side,
			strconv.FormatFloat(record.Confidence, 'f', 2, 64),
			strings.Join(record.Factors, "|"),
			strconv.FormatBool(record.Entered),
			strconv.FormatFloat(record.Stake, 'f', 2, 64),
			record.Result,
			strconv.FormatFloat(record.Profit, 'f', 2, 64),
			strconv.FormatFloat(record.Balance, 'f', 2, 64),
		}

		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("writing cycle record: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}
