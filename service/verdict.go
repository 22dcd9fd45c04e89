package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/quayle/verdict/database"
	"github.com/quayle/verdict/engine"
	"github.com/quayle/verdict/replay"
	"github.com/quayle/verdict/risk"
	"github.com/quayle/verdict/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// VerdictConfig represents the configuration struct for the verdict service.
type VerdictConfig struct {
	// Market represents the tracked market.
	Market string
	// TrendEntryADX and RangeEntryADX are the market mode thresholds.
	TrendEntryADX float64
	RangeEntryADX float64
	// MinConfidence and MinAgreement are the decision selection bounds.
	MinConfidence float64
	MinAgreement  int
	// InitialBalance, BaseStake and RiskPercent configure stake sizing.
	InitialBalance float64
	BaseStake      float64
	RiskPercent    float64
	// MaxMartingaleSteps caps the stake ladder.
	MaxMartingaleSteps uint32
	// MaxDailyTrades and MaxDailyLossPercent are the daily limits.
	MaxDailyTrades      int
	MaxDailyLossPercent float64
	// MaxConsecutiveLosses and CooldownDuration configure the loss streak
	// guard.
	MaxConsecutiveLosses uint32
	CooldownDuration     time.Duration
	// PayoutRate is the payout fraction of stake for a winning contract.
	PayoutRate float64
	// ContractDuration is the rise/fall contract duration.
	ContractDuration time.Duration
	// MinTradeInterval is the minimum gap between consecutive entries.
	MinTradeInterval time.Duration
	// ExecuteSignal relays actionable signals to the execution layer. It may
	// be nil, in which case signals are only logged.
	ExecuteSignal func(signal shared.TradeSignal)
	// DatabaseEndpoint, DatabaseUser and DatabasePass configure trade
	// persistence. Persistence is skipped when the endpoint is empty.
	DatabaseEndpoint string
	DatabaseUser     string
	DatabasePass     string
	// Replay is the historic replay flag.
	Replay bool
	// ReplayDataFilepath is the filepath to the historic replay data.
	ReplayDataFilepath string
	// ReplayOutputFilepath is the filepath for the replay cycle records.
	ReplayOutputFilepath string
	// MaxReplayTrades caps the number of replay contracts; zero means no cap.
	MaxReplayTrades int
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *VerdictConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if cfg.Replay {
		if cfg.ReplayDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("replay data filepath cannot be an empty string"))
		}
		if cfg.ReplayOutputFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("replay output filepath cannot be an empty string"))
		}
	}

	return errs
}

// Verdict represents a rise/fall decision service.
type Verdict struct {
	cfg          *VerdictConfig
	pipeline     *engine.Pipeline
	decisionEng  *engine.Engine
	riskManager  *risk.Manager
	db           *database.Database
	harness      *replay.Harness
	jobScheduler *gocron.Scheduler
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewVerdict initializes a new verdict service.
func NewVerdict(ctx context.Context, cfg *VerdictConfig) (*Verdict, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating service config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "verdict").Logger()

	riskLogger := logger.With().Str("component", "riskmanager").Logger()
	riskManager, err := risk.NewManager(&risk.ManagerConfig{
		InitialBalance:       cfg.InitialBalance,
		BaseStake:            cfg.BaseStake,
		RiskPercent:          cfg.RiskPercent,
		MaxMartingaleSteps:   cfg.MaxMartingaleSteps,
		MaxDailyTrades:       cfg.MaxDailyTrades,
		MaxDailyLossPercent:  cfg.MaxDailyLossPercent,
		PayoutRate:           cfg.PayoutRate,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		CooldownDuration:     cfg.CooldownDuration,
		Logger:               &riskLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating risk manager: %v", err)
	}

	scorerCfg, err := engine.DefaultScorerConfig()
	if err != nil {
		return nil, fmt.Errorf("creating scorer config: %v", err)
	}

	pipeline, err := engine.NewPipeline(&engine.PipelineConfig{
		Market: cfg.Market,
		Classifier: &engine.ClassifierConfig{
			TrendEntryADX: cfg.TrendEntryADX,
			RangeEntryADX: cfg.RangeEntryADX,
		},
		Scorer: scorerCfg,
		Selector: &engine.SelectorConfig{
			MinConfidence: cfg.MinConfidence,
			MinAgreement:  cfg.MinAgreement,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %v", err)
	}

	var db *database.Database
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %v", err)
		}
	}

	service := &Verdict{
		cfg:         cfg,
		pipeline:    pipeline,
		riskManager: riskManager,
		db:          db,
		logger:      &logger,
	}

	switch {
	case cfg.Replay:
		var storeTrade func(ctx context.Context, record *risk.TradeRecord) error
		if db != nil {
			storeTrade = db.PersistTrade
		}

		harnessLogger := logger.With().Str("component", "replayharness").Logger()
		service.harness, err = replay.NewHarness(&replay.HarnessConfig{
			Market:           cfg.Market,
			DataFilePath:     cfg.ReplayDataFilepath,
			ContractDuration: cfg.ContractDuration,
			MinTradeInterval: cfg.MinTradeInterval,
			MaxTrades:        cfg.MaxReplayTrades,
			PayoutRate:       cfg.PayoutRate,
			Pipeline:         pipeline,
			Risk:             riskManager,
			StoreTrade:       storeTrade,
			Logger:           &harnessLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating replay harness: %v", err)
		}
	default:
		executeSignal := func(signal shared.TradeSignal) {
			logger.Info().Str("market", signal.Market).
				Str("side", signal.Side.String()).
				Float64("confidence", signal.Confidence).
				Str("mode", signal.Mode.String()).Msg("trade signal")
			if cfg.ExecuteSignal != nil {
				cfg.ExecuteSignal(signal)
			}
		}

		recordOutcome := func(outcome shared.TradeOutcome) {
			riskManager.Guard().RecordOutcome(outcome.Result, outcome.SettledOn)
		}

		engineLogger := logger.With().Str("component", "engine").Logger()
		service.decisionEng = engine.NewEngine(&engine.EngineConfig{
			Pipeline:      pipeline,
			Gate:          riskManager.CanTrade,
			RecordOutcome: recordOutcome,
			SendSignal:    executeSignal,
			Logger:        &engineLogger,
		})

		service.jobScheduler = gocron.NewScheduler(time.UTC)
		_, err = service.jobScheduler.Every(1).Day().At("00:00").Do(func() {
			riskManager.ResetDailyStats(time.Now().UTC())
		})
		if err != nil {
			return nil, fmt.Errorf("scheduling daily stats reset: %v", err)
		}
	}

	return service, nil
}

// SendCandle relays the provided closed one minute candle for evaluation.
func (v *Verdict) SendCandle(candle shared.Candlestick) {
	v.decisionEng.SendCandle(candle)
}

// SendTradeOutcome relays the provided settled outcome for processing.
func (v *Verdict) SendTradeOutcome(outcome shared.TradeOutcome) {
	v.decisionEng.SendTradeOutcome(outcome)
}

// runReplay replays the configured historic data and persists the cycle
// records.
func (v *Verdict) runReplay(ctx context.Context) {
	summary, records, err := v.harness.Run(ctx)
	if err != nil {
		v.logger.Error().Msgf("running replay: %v", err)
		v.cfg.Cancel()
		return
	}

	err = replay.WriteCycleRecords(v.cfg.ReplayOutputFilepath, records)
	if err != nil {
		v.logger.Error().Msgf("persisting cycle records: %v", err)
	}

	v.logger.Info().Msg(summary.String())
	v.logger.Info().Msgf("replay for %s done, review %s for cycle records",
		v.cfg.Market, v.cfg.ReplayOutputFilepath)
	v.cfg.Cancel()
}

// Run handles the lifecycle processes of the verdict service.
func (v *Verdict) Run(ctx context.Context) {
	if v.cfg.Replay {
		v.wg.Add(1)
		go func() {
			v.runReplay(ctx)
			v.wg.Done()
		}()

		v.wg.Wait()
		return
	}

	v.jobScheduler.StartAsync()

	v.wg.Add(1)
	go func() {
		v.decisionEng.Run(ctx)
		v.wg.Done()
	}()

	v.wg.Wait()
	v.jobScheduler.Stop()
}
