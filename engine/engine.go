package engine

import (
	"context"
	"time"

	"github.com/quayle/verdict/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// EngineConfig represents the decision engine configuration.
type EngineConfig struct {
	// Pipeline is the evaluation pipeline driven by the engine.
	Pipeline *Pipeline
	// Gate reports whether a new decision may be taken at the provided time.
	// It is consulted last, after scoring, so its veto is independent of
	// score magnitude.
	Gate func(now time.Time) (bool, string)
	// RecordOutcome relays a settled trade outcome for risk tracking.
	RecordOutcome func(outcome shared.TradeOutcome)
	// SendSignal relays the provided trade signal for execution.
	SendSignal func(signal shared.TradeSignal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine drives the evaluation pipeline from a live one minute candle stream
// and gates its decisions through the loss streak guard. Decision cycles and
// outcome notifications are serialized through one event loop, so the guard
// never observes interleaved updates.
type Engine struct {
	cfg            *EngineConfig
	candleSignals  chan shared.Candlestick
	outcomeSignals chan shared.TradeOutcome
	outstanding    uint32
}

// NewEngine initializes a new decision engine.
func NewEngine(cfg *EngineConfig) *Engine {
	return &Engine{
		cfg:            cfg,
		candleSignals:  make(chan shared.Candlestick, bufferSize),
		outcomeSignals: make(chan shared.TradeOutcome, bufferSize),
	}
}

// SendCandle relays the provided closed one minute candle for evaluation.
func (e *Engine) SendCandle(candle shared.Candlestick) {
	select {
	case e.candleSignals <- candle:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("candle channel at capacity: %d/%d",
			len(e.candleSignals), bufferSize)
	}
}

// SendTradeOutcome relays the provided settled outcome for processing.
func (e *Engine) SendTradeOutcome(outcome shared.TradeOutcome) {
	select {
	case e.outcomeSignals <- outcome:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("outcome channel at capacity: %d/%d",
			len(e.outcomeSignals), bufferSize)
	}
}

// handleCandle processes the provided candle through the pipeline and emits
// the resulting signal.
func (e *Engine) handleCandle(candle *shared.Candlestick) {
	signal, err := e.cfg.Pipeline.OnCandleClose(candle)
	if err != nil {
		e.cfg.Logger.Error().Msgf("evaluating candle close: %v", err)
		return
	}

	if signal.Side != shared.None {
		allowed, reason := e.cfg.Gate(signal.CreatedOn)
		if !allowed {
			e.cfg.Logger.Info().Msgf("decision vetoed for %s: %s",
				signal.Market, reason)
			signal = shared.NewTradeSignal(signal.Market, shared.None, 0, signal.Mode,
				[]shared.Factor{shared.GuardCooldown}, signal.Price, signal.CreatedOn)
		}
	}

	if signal.Side != shared.None {
		e.outstanding++
	}

	e.cfg.SendSignal(signal)
}

// handleTradeOutcome processes the provided trade outcome.
func (e *Engine) handleTradeOutcome(outcome *shared.TradeOutcome) {
	if e.outstanding == 0 {
		// An outcome with no outstanding decision indicates a collaborator
		// bug, not an engine fault.
		e.cfg.Logger.Warn().Msgf("dropping %s outcome for %s: no decision outstanding",
			outcome.Result.String(), outcome.Market)
		outcome.Status <- shared.Processed
		return
	}

	e.outstanding--
	e.cfg.RecordOutcome(*outcome)
	outcome.Status <- shared.Processed
}

// Run manages the lifecycle processes of the decision engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle := <-e.candleSignals:
			e.handleCandle(&candle)
		case outcome := <-e.outcomeSignals:
			e.handleTradeOutcome(&outcome)
		}
	}
}
