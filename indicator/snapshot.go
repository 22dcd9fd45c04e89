package indicator

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/quayle/verdict/shared"
	"go.uber.org/atomic"
)

// Snapshot holds computed indicator values for one timeframe at one candle
// close. It is recomputed fresh each close and never mutated afterwards.
type Snapshot struct {
	Market    string
	Timeframe shared.Timeframe
	Date      time.Time

	Close float64
	High  float64
	Low   float64

	UpperBand   float64
	MiddleBand  float64
	LowerBand   float64
	BandPercent float64

	RSI    float64
	StochK float64
	StochD float64

	FastEMA float64
	SlowEMA float64

	ADX      float64
	PlusDI   float64
	MinusDI  float64
	ADXSlope float64

	MACD          float64
	MACDSignal    float64
	MACDHistogram float64

	// Derived facts.
	Oversold         bool
	Overbought       bool
	StochOversold    bool
	StochOverbought  bool
	PriceAtLowerBand bool
	PriceAtUpperBand bool
	ADXRising        bool
	ADXFalling       bool
	MACDBullish      bool
	MACDBearish      bool

	BullishDivergence bool
	BearishDivergence bool
	BullishReversal   bool
	BearishReversal   bool
}

// GeneratorConfig represents the indicator generator configuration.
type GeneratorConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframe is the timeframe snapshots are generated for.
	Timeframe shared.Timeframe
	// BollingerPeriod is the bollinger band lookback period.
	BollingerPeriod int
	// BollingerStdDev is the bollinger band standard deviation multiple.
	BollingerStdDev float64
	// RSIPeriod is the relative strength index lookback period.
	RSIPeriod int
	// RSIOversold is the oversold RSI threshold.
	RSIOversold float64
	// RSIOverbought is the overbought RSI threshold.
	RSIOverbought float64
	// StochasticPeriod is the fast %K lookback period.
	StochasticPeriod int
	// StochasticSmooth is the slow %K smoothing period.
	StochasticSmooth int
	// StochasticSignal is the %D signal period.
	StochasticSignal int
	// StochasticOversold is the oversold %K threshold.
	StochasticOversold float64
	// StochasticOverbought is the overbought %K threshold.
	StochasticOverbought float64
	// FastEMAPeriod is the fast exponential moving average period.
	FastEMAPeriod int
	// SlowEMAPeriod is the slow exponential moving average period.
	SlowEMAPeriod int
	// ADXPeriod is the average directional index lookback period.
	ADXPeriod int
	// ADXSlopeLookback is the lookback for the ADX rate of change.
	ADXSlopeLookback int
	// ADXSlopeThreshold is the minimum slope magnitude considered a rising or
	// falling trend strength.
	ADXSlopeThreshold float64
	// MACDFastPeriod, MACDSlowPeriod and MACDSignalPeriod are the MACD periods.
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	// DivergenceLookback is the lookback for divergence detection.
	DivergenceLookback int
}

// DefaultGeneratorConfig returns a generator configuration with standard
// indicator settings for the provided market and timeframe.
func DefaultGeneratorConfig(market string, timeframe shared.Timeframe) *GeneratorConfig {
	return &GeneratorConfig{
		Market:               market,
		Timeframe:            timeframe,
		BollingerPeriod:      20,
		BollingerStdDev:      2.0,
		RSIPeriod:            14,
		RSIOversold:          30,
		RSIOverbought:        70,
		StochasticPeriod:     14,
		StochasticSmooth:     3,
		StochasticSignal:     3,
		StochasticOversold:   20,
		StochasticOverbought: 80,
		FastEMAPeriod:        50,
		SlowEMAPeriod:        200,
		ADXPeriod:            14,
		ADXSlopeLookback:     3,
		ADXSlopeThreshold:    1.0,
		MACDFastPeriod:       12,
		MACDSlowPeriod:       26,
		MACDSignalPeriod:     9,
		DivergenceLookback:   14,
	}
}

// Generator computes indicator snapshots for one market and timeframe from a
// window of closed candles.
type Generator struct {
	cfg            *GeneratorConfig
	window         *Window
	current        atomic.Pointer[Snapshot]
	lastUpdateTime atomic.Pointer[time.Time]
}

// NewGenerator initializes an indicator generator for the provided
// configuration.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	return &Generator{
		cfg:    cfg,
		window: NewWindow(),
	}
}

// warmup returns the minimum number of candles required before snapshots can
// be computed.
func (g *Generator) warmup() int {
	required := g.cfg.SlowEMAPeriod
	if n := g.cfg.BollingerPeriod; n > required {
		required = n
	}
	if n := g.cfg.RSIPeriod + g.cfg.DivergenceLookback; n > required {
		required = n
	}
	if n := g.cfg.StochasticPeriod + g.cfg.StochasticSmooth + g.cfg.StochasticSignal; n > required {
		required = n
	}
	if n := g.cfg.ADXPeriod*2 + g.cfg.ADXSlopeLookback; n > required {
		required = n
	}
	if n := g.cfg.MACDSlowPeriod + g.cfg.MACDSignalPeriod; n > required {
		required = n
	}

	return required + 10
}

// Current returns the most recently computed snapshot, or nil when the window
// has not warmed up yet.
func (g *Generator) Current() *Snapshot {
	return g.current.Load()
}

// Update adds the provided closed candle to the window and recomputes the
// snapshot. It returns nil without error while the window has insufficient
// history, since that is an expected transient condition.
func (g *Generator) Update(candle *shared.Candlestick) (*Snapshot, error) {
	if candle.Timeframe != g.cfg.Timeframe {
		return nil, fmt.Errorf("expected candles with timeframe %s, got %s",
			g.cfg.Timeframe.String(), candle.Timeframe.String())
	}

	g.window.Update(candle)
	if g.window.Count() < g.warmup() {
		return nil, nil
	}

	snapshot := g.compute(g.window.LastN(g.window.Count()))
	g.current.Store(snapshot)
	g.lastUpdateTime.Store(&candle.Date)

	return snapshot, nil
}

// compute derives a snapshot from the provided candles, ordered oldest first.
func (g *Generator) compute(candles []*shared.Candlestick) *Snapshot {
	opens := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for idx := range candles {
		opens[idx] = candles[idx].Open
		highs[idx] = candles[idx].High
		lows[idx] = candles[idx].Low
		closes[idx] = candles[idx].Close
	}

	last := len(candles) - 1

	upper, middle, lower := talib.BBands(closes, g.cfg.BollingerPeriod,
		g.cfg.BollingerStdDev, g.cfg.BollingerStdDev, talib.SMA)

	rsiSeries := talib.Rsi(closes, g.cfg.RSIPeriod)
	rsi := rsiSeries[last]

	stochK, stochD := talib.Stoch(highs, lows, closes, g.cfg.StochasticPeriod,
		g.cfg.StochasticSmooth, talib.SMA, g.cfg.StochasticSignal, talib.SMA)

	fastEMA := talib.Ema(closes, g.cfg.FastEMAPeriod)
	slowEMA := talib.Ema(closes, g.cfg.SlowEMAPeriod)

	adxSeries := talib.Adx(highs, lows, closes, g.cfg.ADXPeriod)
	plusDI := talib.PlusDI(highs, lows, closes, g.cfg.ADXPeriod)
	minusDI := talib.MinusDI(highs, lows, closes, g.cfg.ADXPeriod)

	var adxSlope float64
	if last >= g.cfg.ADXSlopeLookback {
		adxSlope = adxSeries[last] - adxSeries[last-g.cfg.ADXSlopeLookback]
	}

	macd, macdSignal, macdHistogram := talib.Macd(closes, g.cfg.MACDFastPeriod,
		g.cfg.MACDSlowPeriod, g.cfg.MACDSignalPeriod)

	close := closes[last]

	var bandPercent float64
	if bandRange := upper[last] - lower[last]; bandRange > 0 {
		bandPercent = (close - lower[last]) / bandRange
	}

	bullishDivergence, bearishDivergence := g.detectDivergence(closes, rsiSeries)

	current := candles[last]
	var bullishReversal, bearishReversal bool
	if last >= 1 {
		prev := candles[last-1]
		bullishReversal = current.IsHammer() || shared.IsBullishEngulfing(prev, current)
		bearishReversal = current.IsShootingStar() || shared.IsBearishEngulfing(prev, current)
	}

	return &Snapshot{
		Market:    g.cfg.Market,
		Timeframe: g.cfg.Timeframe,
		Date:      current.Date,

		Close: close,
		High:  highs[last],
		Low:   lows[last],

		UpperBand:   upper[last],
		MiddleBand:  middle[last],
		LowerBand:   lower[last],
		BandPercent: bandPercent,

		RSI:    rsi,
		StochK: stochK[last],
		StochD: stochD[last],

		FastEMA: fastEMA[last],
		SlowEMA: slowEMA[last],

		ADX:      adxSeries[last],
		PlusDI:   plusDI[last],
		MinusDI:  minusDI[last],
		ADXSlope: adxSlope,

		MACD:          macd[last],
		MACDSignal:    macdSignal[last],
		MACDHistogram: macdHistogram[last],

		Oversold:         rsi <= g.cfg.RSIOversold,
		Overbought:       rsi >= g.cfg.RSIOverbought,
		StochOversold:    stochK[last] <= g.cfg.StochasticOversold,
		StochOverbought:  stochK[last] >= g.cfg.StochasticOverbought,
		PriceAtLowerBand: close <= lower[last],
		PriceAtUpperBand: close >= upper[last],
		ADXRising:        adxSlope > g.cfg.ADXSlopeThreshold,
		ADXFalling:       adxSlope < -g.cfg.ADXSlopeThreshold,
		MACDBullish:      macd[last] > macdSignal[last] && macdHistogram[last] > 0,
		MACDBearish:      macd[last] < macdSignal[last] && macdHistogram[last] < 0,

		BullishDivergence: bullishDivergence,
		BearishDivergence: bearishDivergence,
		BullishReversal:   bullishReversal,
		BearishReversal:   bearishReversal,
	}
}

// detectDivergence checks for RSI divergence against price over the
// configured lookback. A bullish divergence is price making a lower low while
// RSI makes a higher low with RSI still depressed; bearish is the mirror.
func (g *Generator) detectDivergence(closes []float64, rsiSeries []float64) (bool, bool) {
	lookback := g.cfg.DivergenceLookback
	last := len(closes) - 1
	if last < lookback {
		return false, false
	}

	minClose, maxClose := closes[last-lookback], closes[last-lookback]
	minRSI, maxRSI := rsiSeries[last-lookback], rsiSeries[last-lookback]
	for idx := last - lookback; idx < last; idx++ {
		if closes[idx] < minClose {
			minClose = closes[idx]
		}
		if closes[idx] > maxClose {
			maxClose = closes[idx]
		}
		if rsiSeries[idx] < minRSI {
			minRSI = rsiSeries[idx]
		}
		if rsiSeries[idx] > maxRSI {
			maxRSI = rsiSeries[idx]
		}
	}

	bullish := closes[last] < minClose && rsiSeries[last] > minRSI && rsiSeries[last] < 40
	bearish := closes[last] > maxClose && rsiSeries[last] < maxRSI && rsiSeries[last] > 60

	return bullish, bearish
}
