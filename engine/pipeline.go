package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quayle/verdict/indicator"
	"github.com/quayle/verdict/shared"
)

// PipelineConfig represents the evaluation pipeline configuration.
type PipelineConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Classifier is the market mode classifier configuration.
	Classifier *ClassifierConfig
	// Scorer is the signal scorer configuration.
	Scorer *ScorerConfig
	// Selector is the decision selector configuration.
	Selector *SelectorConfig
	// M1, M5 and M15 are the per-timeframe indicator generator
	// configurations. When nil, defaults are used.
	M1  *indicator.GeneratorConfig
	M5  *indicator.GeneratorConfig
	M15 *indicator.GeneratorConfig
}

// Validate asserts the config has sane inputs.
func (cfg *PipelineConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.Classifier == nil {
		errs = errors.Join(errs, fmt.Errorf("classifier config cannot be nil"))
	}
	if cfg.Classifier != nil && cfg.Classifier.RangeEntryADX >= cfg.Classifier.TrendEntryADX {
		errs = errors.Join(errs, fmt.Errorf("range entry threshold (%.2f) must be strictly below trend entry threshold (%.2f)",
			cfg.Classifier.RangeEntryADX, cfg.Classifier.TrendEntryADX))
	}
	if cfg.Scorer == nil {
		errs = errors.Join(errs, fmt.Errorf("scorer config cannot be nil"))
	}
	if cfg.Selector == nil {
		errs = errors.Join(errs, fmt.Errorf("selector config cannot be nil"))
	}

	return errs
}

// Pipeline derives higher timeframe candles from a one minute stream, keeps
// per-timeframe indicator snapshots current and produces one trade signal per
// one minute close. The same pipeline drives live evaluation and replay,
// which is what makes replayed decisions bit-identical to live ones.
type Pipeline struct {
	cfg        *PipelineConfig
	m5Agg      *shared.Aggregator
	m15Agg     *shared.Aggregator
	m1Gen      *indicator.Generator
	m5Gen      *indicator.Generator
	m15Gen     *indicator.Generator
	classifier *Classifier
	scorer     *Scorer
	selector   *Selector

	// mode is the only cross-cycle mutable pipeline state. It transitions
	// only on five minute closes.
	mode    shared.MarketMode
	modeMtx sync.Mutex
}

// NewPipeline initializes a new evaluation pipeline.
func NewPipeline(cfg *PipelineConfig) (*Pipeline, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating pipeline config: %w", err)
	}

	if cfg.M1 == nil {
		cfg.M1 = indicator.DefaultGeneratorConfig(cfg.Market, shared.OneMinute)
	}
	if cfg.M5 == nil {
		cfg.M5 = indicator.DefaultGeneratorConfig(cfg.Market, shared.FiveMinute)
	}
	if cfg.M15 == nil {
		cfg.M15 = indicator.DefaultGeneratorConfig(cfg.Market, shared.FifteenMinute)
	}

	return &Pipeline{
		cfg:        cfg,
		m5Agg:      shared.NewAggregator(shared.FiveMinute),
		m15Agg:     shared.NewAggregator(shared.FifteenMinute),
		m1Gen:      indicator.NewGenerator(cfg.M1),
		m5Gen:      indicator.NewGenerator(cfg.M5),
		m15Gen:     indicator.NewGenerator(cfg.M15),
		classifier: NewClassifier(cfg.Classifier),
		scorer:     NewScorer(cfg.Scorer),
		selector:   NewSelector(cfg.Selector),
		mode:       shared.Uncertain,
	}, nil
}

// Mode returns the current market mode.
func (p *Pipeline) Mode() shared.MarketMode {
	p.modeMtx.Lock()
	defer p.modeMtx.Unlock()

	return p.mode
}

// OnCandleClose evaluates one closed one minute candle and returns the trade
// signal for the cycle. Insufficient indicator history yields a no-trade
// signal rather than an error; it is an expected transient condition.
func (p *Pipeline) OnCandleClose(candle *shared.Candlestick) (shared.TradeSignal, error) {
	if candle.Timeframe != shared.OneMinute {
		return shared.TradeSignal{}, fmt.Errorf("expected candles with timeframe %s, got %s",
			shared.OneMinute.String(), candle.Timeframe.String())
	}

	_, err := p.m1Gen.Update(candle)
	if err != nil {
		return shared.TradeSignal{}, fmt.Errorf("updating m1 indicators: %w", err)
	}

	m5Candle, err := p.m5Agg.Update(candle)
	if err != nil {
		return shared.TradeSignal{}, fmt.Errorf("aggregating m5 candle: %w", err)
	}
	if m5Candle != nil {
		m5Snapshot, err := p.m5Gen.Update(m5Candle)
		if err != nil {
			return shared.TradeSignal{}, fmt.Errorf("updating m5 indicators: %w", err)
		}

		if m5Snapshot != nil {
			p.modeMtx.Lock()
			p.mode = p.classifier.Classify(p.mode, m5Snapshot.ADX,
				m5Snapshot.PlusDI, m5Snapshot.MinusDI)
			p.modeMtx.Unlock()
		}
	}

	m15Candle, err := p.m15Agg.Update(candle)
	if err != nil {
		return shared.TradeSignal{}, fmt.Errorf("aggregating m15 candle: %w", err)
	}
	if m15Candle != nil {
		_, err := p.m15Gen.Update(m15Candle)
		if err != nil {
			return shared.TradeSignal{}, fmt.Errorf("updating m15 indicators: %w", err)
		}
	}

	mode := p.Mode()

	m1 := p.m1Gen.Current()
	m5 := p.m5Gen.Current()
	m15 := p.m15Gen.Current()
	if m1 == nil || m5 == nil || m15 == nil {
		signal := shared.NewTradeSignal(p.cfg.Market, shared.None, 0, mode,
			[]shared.Factor{shared.InsufficientHistory}, candle.Close, candle.Date)
		return signal, nil
	}

	rise, fall := p.scorer.Score(mode, m1, m5, m15, candle.Date)

	return p.selector.Select(p.cfg.Market, rise, fall, mode, candle.Close, candle.Date), nil
}
