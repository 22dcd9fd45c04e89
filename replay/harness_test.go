package replay

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/quayle/verdict/engine"
	"github.com/quayle/verdict/indicator"
	"github.com/quayle/verdict/risk"
	"github.com/quayle/verdict/shared"
	"github.com/rs/zerolog"
)

// shortGeneratorConfig returns a generator configuration with short lookback
// periods so replays warm up quickly in tests.
func shortGeneratorConfig(market string, timeframe shared.Timeframe) *indicator.GeneratorConfig {
	return &indicator.GeneratorConfig{
		Market:               market,
		Timeframe:            timeframe,
		BollingerPeriod:      5,
		BollingerStdDev:      2.0,
		RSIPeriod:            5,
		RSIOversold:          30,
		RSIOverbought:        70,
		StochasticPeriod:     5,
		StochasticSmooth:     3,
		StochasticSignal:     3,
		StochasticOversold:   20,
		StochasticOverbought: 80,
		FastEMAPeriod:        5,
		SlowEMAPeriod:        10,
		ADXPeriod:            5,
		ADXSlopeLookback:     2,
		ADXSlopeThreshold:    1.0,
		MACDFastPeriod:       5,
		MACDSlowPeriod:       10,
		MACDSignalPeriod:     3,
		DivergenceLookback:   5,
	}
}

func newReplayPipeline(t *testing.T, market string) *engine.Pipeline {
	t.Helper()

	scorerCfg, err := engine.DefaultScorerConfig()
	assert.NoError(t, err)

	pipeline, err := engine.NewPipeline(&engine.PipelineConfig{
		Market:     market,
		Classifier: &engine.ClassifierConfig{TrendEntryADX: 27, RangeEntryADX: 18},
		Scorer:     scorerCfg,
		Selector:   &engine.SelectorConfig{MinConfidence: 60, MinAgreement: 2},
		M1:         shortGeneratorConfig(market, shared.OneMinute),
		M5:         shortGeneratorConfig(market, shared.FiveMinute),
		M15:        shortGeneratorConfig(market, shared.FifteenMinute),
	})
	assert.NoError(t, err)

	return pipeline
}

func newReplayRiskManager(t *testing.T) *risk.Manager {
	t.Helper()

	logger := zerolog.Nop()
	manager, err := risk.NewManager(&risk.ManagerConfig{
		InitialBalance:       1000,
		BaseStake:            10,
		RiskPercent:          2,
		MaxMartingaleSteps:   3,
		MaxDailyTrades:       1000,
		MaxDailyLossPercent:  100,
		PayoutRate:           0.95,
		MaxConsecutiveLosses: 3,
		CooldownDuration:     time.Minute * 10,
		Logger:               &logger,
	})
	assert.NoError(t, err)

	return manager
}

// writeSyntheticSeries writes a minute candle file oscillating around 100 and
// returns its path. The series spans enough candles to warm every timeframe.
func writeSyntheticSeries(t *testing.T, market string, count int) string {
	t.Helper()

	var b strings.Builder
	fmt.Fprintf(&b, `{"market": %q, "m1": [`, market)

	epoch := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC).Unix()
	for idx := range count {
		close := 100 + 3*math.Sin(float64(idx)/10)
		if idx > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"epoch": %d, "open": %.4f, "high": %.4f, "low": %.4f, "close": %.4f}`,
			epoch+int64(idx)*60, close-0.1, close+0.4, close-0.4, close)
	}
	b.WriteString("]}")

	path := filepath.Join(t.TempDir(), "series.json")
	err := os.WriteFile(path, []byte(b.String()), 0o644)
	assert.NoError(t, err)

	return path
}

func newTestHarness(t *testing.T, market, dataPath string) *Harness {
	t.Helper()

	logger := zerolog.Nop()
	harness, err := NewHarness(&HarnessConfig{
		Market:           market,
		DataFilePath:     dataPath,
		ContractDuration: time.Minute * 3,
		MinTradeInterval: time.Minute,
		PayoutRate:       0.95,
		Pipeline:         newReplayPipeline(t, market),
		Risk:             newReplayRiskManager(t),
		Logger:           &logger,
	})
	assert.NoError(t, err)

	return harness
}

func TestHarnessConfigValidate(t *testing.T) {
	// Ensure missing collaborators are rejected.
	_, err := NewHarness(&HarnessConfig{})
	assert.Error(t, err)

	logger := zerolog.Nop()
	_, err = NewHarness(&HarnessConfig{
		Market:           "R_100",
		DataFilePath:     "series.json",
		ContractDuration: time.Minute * 3,
		PayoutRate:       2,
		Pipeline:         newReplayPipeline(t, "R_100"),
		Risk:             newReplayRiskManager(t),
		Logger:           &logger,
	})
	assert.Error(t, err)
}

func TestHarnessRun(t *testing.T) {
	market := "R_100"
	path := writeSyntheticSeries(t, market, 480)
	harness := newTestHarness(t, market, path)

	summary, records, err := harness.Run(context.Background())
	assert.NoError(t, err)

	// Ensure every candle produced exactly one cycle record.
	assert.Equal(t, summary.Candles, 480)
	assert.Equal(t, summary.Cycles, 480)
	assert.Equal(t, len(records), 480)

	// Ensure the early records report the warmup as no-trade cycles.
	assert.Equal(t, records[0].Side, shared.None.String())
	assert.False(t, records[0].Entered)
	assert.Equal(t, records[0].Balance, float64(1000))

	// Ensure settled accounting is consistent.
	assert.Equal(t, summary.Trades, summary.Wins+summary.Losses+summary.Ties)
	assert.Equal(t, summary.FinalBalance, float64(1000)+summary.TotalProfit)

	// Ensure the mode distribution covers every cycle.
	var modeCycles int
	for _, count := range summary.ModeDistribution {
		modeCycles += count
	}
	assert.Equal(t, modeCycles, 480)

	// Ensure a market mismatch between the file and the config is fatal.
	mismatched := newTestHarness(t, market, path)
	mismatched.cfg.Market = "R_50"
	_, _, err = mismatched.Run(context.Background())
	assert.Error(t, err)
}

func TestHarnessMaxTrades(t *testing.T) {
	market := "R_100"
	path := writeSyntheticSeries(t, market, 480)

	logger := zerolog.Nop()
	harness, err := NewHarness(&HarnessConfig{
		Market:           market,
		DataFilePath:     path,
		ContractDuration: time.Minute * 3,
		MinTradeInterval: time.Minute,
		MaxTrades:        1,
		PayoutRate:       0.95,
		Pipeline:         newReplayPipeline(t, market),
		Risk:             newReplayRiskManager(t),
		Logger:           &logger,
	})
	assert.NoError(t, err)

	summary, records, err := harness.Run(context.Background())
	assert.NoError(t, err)

	// Ensure the run halts once the trade cap is hit and the outstanding
	// contract has settled, instead of replaying to candle exhaustion.
	assert.Equal(t, summary.Trades, 1)
	assert.True(t, len(records) < 480)
	assert.Equal(t, summary.Cycles, len(records))

	// Ensure the final record carries the settlement of the capped trade.
	last := records[len(records)-1]
	assert.NotEqual(t, last.Result, "")
}

func TestHarnessDeterminism(t *testing.T) {
	market := "R_100"
	path := writeSyntheticSeries(t, market, 480)

	// Ensure two replays of the same file yield identical cycle records and
	// summaries.
	summaryA, recordsA, err := newTestHarness(t, market, path).Run(context.Background())
	assert.NoError(t, err)
	summaryB, recordsB, err := newTestHarness(t, market, path).Run(context.Background())
	assert.NoError(t, err)

	if diff := cmp.Diff(recordsA, recordsB); diff != "" {
		t.Fatalf("replayed cycle records diverged (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(summaryA, summaryB); diff != "" {
		t.Fatalf("replay summaries diverged (-first +second):\n%s", diff)
	}
}

func TestWriteCycleRecords(t *testing.T) {
	records := []*CycleRecord{
		{
			Date:       "2024-03-04 12:00:00",
			Mode:       shared.Ranging.String(),
			Side:       shared.Rise.String(),
			Confidence: 75,
			Factors:    []string{shared.RangeExtreme.String(), shared.StochasticCross.String()},
			Entered:    true,
			Stake:      10,
			Result:     shared.Win.String(),
			Profit:     9.5,
			Balance:    1009.5,
		},
		{
			Date:    "2024-03-04 12:01:00",
			Mode:    shared.Ranging.String(),
			Side:    shared.None.String(),
			Balance: 1009.5,
		},
	}

	// Ensure the records round trip to csv with a header row.
	path := filepath.Join(t.TempDir(), "cycles.csv")
	err := WriteCycleRecords(path, records)
	assert.NoError(t, err)

	body, err := os.ReadFile(path)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Equal(t, len(lines), 3)
	assert.Equal(t, lines[0], strings.Join(csvHeader, ","))
	assert.True(t, strings.Contains(lines[1], "rise"))
	assert.True(t, strings.Contains(lines[1],
		shared.RangeExtreme.String()+"|"+shared.StochasticCross.String()))
}
