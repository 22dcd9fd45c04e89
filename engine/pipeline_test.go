package engine

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/quayle/verdict/indicator"
	"github.com/quayle/verdict/shared"
)

// shortGeneratorConfig returns a generator configuration with short lookback
// periods so pipelines warm up quickly in tests.
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

func newTestPipeline(t *testing.T, market string) *Pipeline {
	t.Helper()

	scorerCfg, err := DefaultScorerConfig()
	assert.NoError(t, err)

	pipeline, err := NewPipeline(&PipelineConfig{
		Market:     market,
		Classifier: &ClassifierConfig{TrendEntryADX: 27, RangeEntryADX: 18},
		Scorer:     scorerCfg,
		Selector:   &SelectorConfig{MinConfidence: 60, MinAgreement: 2},
		M1:         shortGeneratorConfig(market, shared.OneMinute),
		M5:         shortGeneratorConfig(market, shared.FiveMinute),
		M15:        shortGeneratorConfig(market, shared.FifteenMinute),
	})
	assert.NoError(t, err)

	return pipeline
}

// minuteCandle builds the idx-th candle of a synthetic oscillating series.
func minuteCandle(market string, start time.Time, idx int) *shared.Candlestick {
	close := 100 + 3*math.Sin(float64(idx)/10)
	return &shared.Candlestick{
		Market:    market,
		Timeframe: shared.OneMinute,
		Date:      start.Add(time.Minute * time.Duration(idx)),
		Open:      close - 0.1,
		High:      close + 0.4,
		Low:       close - 0.4,
		Close:     close,
	}
}

func TestPipelineConfigValidate(t *testing.T) {
	scorerCfg, err := DefaultScorerConfig()
	assert.NoError(t, err)

	// Ensure a missing market, nil component configs and an inverted
	// hysteresis band are all rejected.
	_, err = NewPipeline(&PipelineConfig{})
	assert.Error(t, err)

	_, err = NewPipeline(&PipelineConfig{
		Market:     "R_100",
		Classifier: &ClassifierConfig{TrendEntryADX: 18, RangeEntryADX: 27},
		Scorer:     scorerCfg,
		Selector:   &SelectorConfig{MinConfidence: 60, MinAgreement: 2},
	})
	assert.Error(t, err)
}

func TestPipeline(t *testing.T) {
	market := "R_100"
	pipeline := newTestPipeline(t, market)
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	// Ensure candles of the wrong timeframe error.
	wrong := minuteCandle(market, start, 0)
	wrong.Timeframe = shared.FiveMinute
	_, err := pipeline.OnCandleClose(wrong)
	assert.Error(t, err)

	// Ensure the first cycle reports insufficient history as a no-trade
	// signal, not an error.
	signal, err := pipeline.OnCandleClose(minuteCandle(market, start, 0))
	assert.NoError(t, err)
	assert.Equal(t, signal.Side, shared.None)
	assert.Equal(t, signal.Factors, []shared.Factor{shared.InsufficientHistory})

	// Ensure the pipeline warms up within the synthetic series and that the
	// market mode only ever transitions on five minute closes.
	const total = 420
	mode := pipeline.Mode()
	assert.Equal(t, mode, shared.Uncertain)

	var warmed bool
	for idx := 1; idx < total; idx++ {
		candle := minuteCandle(market, start, idx)
		signal, err = pipeline.OnCandleClose(candle)
		assert.NoError(t, err)

		next := pipeline.Mode()
		if next != mode {
			assert.Equal(t, candle.Date.Minute()%5, 0)
			mode = next
		}

		if len(signal.Factors) == 0 ||
			signal.Factors[0] != shared.InsufficientHistory {
			warmed = true
		}
	}
	assert.True(t, warmed)
}

func TestPipelineDeterminism(t *testing.T) {
	market := "R_100"
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	type cycle struct {
		Side       shared.Side
		Confidence float64
		Mode       shared.MarketMode
		Factors    []shared.Factor
	}

	run := func() []cycle {
		pipeline := newTestPipeline(t, market)
		cycles := make([]cycle, 0, 420)
		for idx := range 420 {
			signal, err := pipeline.OnCandleClose(minuteCandle(market, start, idx))
			assert.NoError(t, err)

			cycles = append(cycles, cycle{
				Side:       signal.Side,
				Confidence: signal.Confidence,
				Mode:       pipeline.Mode(),
				Factors:    signal.Factors,
			})
		}

		return cycles
	}

	// Ensure two pipelines fed the same candle stream produce identical
	// decisions for every cycle.
	first := run()
	second := run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("replayed decisions diverged (-first +second):\n%s", diff)
	}
}
