package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/quayle/verdict/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verdictCfg := service.VerdictConfig{
		Market:               cfg.Market,
		TrendEntryADX:        cfg.TrendEntryADX,
		RangeEntryADX:        cfg.RangeEntryADX,
		MinConfidence:        cfg.MinConfidence,
		MinAgreement:         cfg.MinAgreement,
		InitialBalance:       cfg.InitialBalance,
		BaseStake:            cfg.BaseStake,
		RiskPercent:          cfg.RiskPercent,
		MaxMartingaleSteps:   uint32(cfg.MaxMartingaleSteps),
		MaxDailyTrades:       cfg.MaxDailyTrades,
		MaxDailyLossPercent:  cfg.MaxDailyLossPercent,
		MaxConsecutiveLosses: uint32(cfg.MaxConsecutiveLosses),
		CooldownDuration:     time.Duration(cfg.CooldownSeconds) * time.Second,
		PayoutRate:           cfg.PayoutRate,
		ContractDuration:     time.Duration(cfg.ContractDurationSeconds) * time.Second,
		MinTradeInterval:     time.Duration(cfg.MinTradeIntervalSeconds) * time.Second,
		DatabaseEndpoint:     cfg.DatabaseEndpoint,
		DatabaseUser:         cfg.DatabaseUser,
		DatabasePass:         cfg.DatabasePass,
		Replay:               cfg.Replay,
		ReplayDataFilepath:   cfg.ReplayDataFilepath,
		ReplayOutputFilepath: cfg.ReplayOutputFilepath,
		MaxReplayTrades:      cfg.MaxReplayTrades,
		Cancel:               cancel,
	}
	verdict, err := service.NewVerdict(ctx, &verdictCfg)
	if err != nil {
		log.Printf("creating verdict service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	verdict.Run(ctx)
}
