package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quayle/verdict/engine"
	"github.com/quayle/verdict/risk"
	"github.com/quayle/verdict/shared"
	"github.com/rs/zerolog"
)

// HarnessConfig represents the replay harness configuration.
type HarnessConfig struct {
	// Market is the market being replayed.
	Market string
	// DataFilePath locates the historic minute candle file.
	DataFilePath string
	// ContractDuration is the rise/fall contract duration.
	ContractDuration time.Duration
	// MinTradeInterval is the minimum gap between consecutive entries.
	MinTradeInterval time.Duration
	// MaxTrades caps the number of contracts taken; zero means no cap.
	MaxTrades int
	// PayoutRate is the payout fraction of stake for a winning contract.
	PayoutRate float64
	// Pipeline is the decision pipeline driving the run.
	Pipeline *engine.Pipeline
	// Risk is the risk manager tracking balance, stake and the loss streak.
	Risk *risk.Manager
	// StoreTrade is an optional callback persisting settled trades.
	StoreTrade func(ctx context.Context, record *risk.TradeRecord) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *HarnessConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be empty"))
	}
	if cfg.DataFilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("data file path cannot be empty"))
	}
	if cfg.ContractDuration <= 0 {
		errs = errors.Join(errs, fmt.Errorf("contract duration must be positive"))
	}
	if cfg.MinTradeInterval < 0 {
		errs = errors.Join(errs, fmt.Errorf("min trade interval cannot be negative"))
	}
	if cfg.PayoutRate <= 0 || cfg.PayoutRate > 1 {
		errs = errors.Join(errs, fmt.Errorf("payout rate must be in (0, 1], got %.2f", cfg.PayoutRate))
	}
	if cfg.Pipeline == nil {
		errs = errors.Join(errs, fmt.Errorf("pipeline cannot be nil"))
	}
	if cfg.Risk == nil {
		errs = errors.Join(errs, fmt.Errorf("risk manager cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// pendingContract tracks the single outstanding contract. At most one
// contract is open at a time.
type pendingContract struct {
	signal    shared.TradeSignal
	stake     float64
	settlesOn time.Time
}

// Harness replays a historic candle series through the decision pipeline and
// a simulated contract lifecycle. It feeds the pipeline the same minute
// candles a live run would receive, so a replay reproduces live decisions
// exactly.
type Harness struct {
	cfg     *HarnessConfig
	pending *pendingContract

	records   []*CycleRecord
	lastEntry time.Time
	trades    int
	signals   int
}

// NewHarness initializes a new replay harness.
func NewHarness(cfg *HarnessConfig) (*Harness, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating harness config: %w", err)
	}

	return &Harness{
		cfg: cfg,
	}, nil
}

// settle closes the pending contract against the provided exit candle.
func (h *Harness) settle(ctx context.Context, exit *shared.Candlestick, cycle *CycleRecord) error {
	contract := h.pending
	h.pending = nil

	var result shared.Result
	var profit float64
	entryPrice := contract.signal.Price
	switch {
	case exit.Close == entryPrice:
		result = shared.Tie
	case (contract.signal.Side == shared.Rise) == (exit.Close > entryPrice):
		result = shared.Win
		profit = contract.stake * h.cfg.PayoutRate
	default:
		result = shared.Loss
		profit = -contract.stake
	}

	record := risk.NewTradeRecord(&contract.signal, contract.stake, h.cfg.PayoutRate,
		profit, result, exit.Close, exit.Date)
	h.cfg.Risk.RecordTrade(record)

	if h.cfg.StoreTrade != nil {
		err := h.cfg.StoreTrade(ctx, record)
		if err != nil {
			return fmt.Errorf("storing settled trade: %w", err)
		}
	}

	cycle.Result = result.String()
	cycle.Profit = profit

	h.cfg.Logger.Debug().Str("market", h.cfg.Market).
		Str("side", contract.signal.Side.String()).
		Str("result", result.String()).Float64("profit", profit).
		Msg("contract settled")

	return nil
}

// enter opens a contract on the provided signal.
func (h *Harness) enter(signal shared.TradeSignal, cycle *CycleRecord) {
	stake := h.cfg.Risk.Stake()
	h.pending = &pendingContract{
		signal:    signal,
		stake:     stake,
		settlesOn: signal.CreatedOn.Add(h.cfg.ContractDuration),
	}
	h.lastEntry = signal.CreatedOn
	h.trades++

	cycle.Entered = true
	cycle.Stake = stake

	h.cfg.Logger.Debug().Str("market", h.cfg.Market).
		Str("side", signal.Side.String()).Float64("confidence", signal.Confidence).
		Float64("stake", stake).Msg("contract opened")
}

// Run replays the configured data file and returns the run summary along
// with the per-cycle records.
func (h *Harness) Run(ctx context.Context) (*Summary, []*CycleRecord, error) {
	data, err := LoadHistoricData(h.cfg.DataFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading historic data: %w", err)
	}
	if data.Market != h.cfg.Market {
		return nil, nil, fmt.Errorf("data file market %s does not match configured market %s",
			data.Market, h.cfg.Market)
	}

	modeDistribution := make(map[shared.MarketMode]int)

	for idx := range data.Candles {
		candle := data.Candles[idx]

		cycle := &CycleRecord{
			Date: candle.Date.Format(shared.DateLayout),
		}

		if h.pending != nil && !candle.Date.Before(h.pending.settlesOn) {
			err := h.settle(ctx, &candle, cycle)
			if err != nil {
				return nil, nil, err
			}
		}

		signal, err := h.cfg.Pipeline.OnCandleClose(&candle)
		if err != nil {
			return nil, nil, fmt.Errorf("processing candle close: %w", err)
		}

		mode := h.cfg.Pipeline.Mode()
		modeDistribution[mode]++

		cycle.Mode = mode.String()
		cycle.Side = signal.Side.String()
		cycle.Confidence = signal.Confidence
		for _, factor := range signal.Factors {
			cycle.Factors = append(cycle.Factors, factor.String())
		}

		if signal.Side != shared.None {
			h.signals++

			switch {
			case h.pending != nil:
				// One outstanding contract at a time.
			case h.cfg.MaxTrades > 0 && h.trades >= h.cfg.MaxTrades:
			case !h.lastEntry.IsZero() &&
				candle.Date.Sub(h.lastEntry) < h.cfg.MinTradeInterval:
			default:
				allowed, reason := h.cfg.Risk.CanTrade(candle.Date)
				if allowed {
					h.enter(signal, cycle)
				} else {
					cycle.Factors = append(cycle.Factors, shared.GuardCooldown.String())
					h.cfg.Logger.Debug().Str("market", h.cfg.Market).
						Str("reason", reason).Msg("signal suppressed")
				}
			}
		}

		cycle.Balance = h.cfg.Risk.Balance()
		h.records = append(h.records, cycle)

		if h.cfg.MaxTrades > 0 && h.trades >= h.cfg.MaxTrades && h.pending == nil {
			h.cfg.Logger.Info().Int("trades", h.trades).
				Msg("max trade count reached, halting replay")
			break
		}
	}

	stats := h.cfg.Risk.Statistics()
	summary := &Summary{
		Market:               h.cfg.Market,
		Candles:              len(data.Candles),
		Cycles:               len(h.records),
		Signals:              h.signals,
		Trades:               stats.Trades,
		Wins:                 stats.Wins,
		Losses:               stats.Losses,
		Ties:                 stats.Ties,
		WinRate:              stats.WinRate,
		TotalProfit:          stats.TotalProfit,
		ProfitFactor:         stats.ProfitFactor,
		MaxConsecutiveLosses: stats.MaxConsecutiveLosses,
		FinalBalance:         stats.CurrentBalance,
		ModeDistribution:     modeDistribution,
	}

	return summary, h.records, nil
}
