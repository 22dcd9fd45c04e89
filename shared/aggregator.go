package shared

import (
	"fmt"
)

// Aggregator incrementally derives higher timeframe candlesticks from a
// strictly ordered stream of one minute candles. A derived candle is emitted
// only when its timeframe bucket closes, using the first open, the running
// high/low extremes and the last close of the bucket.
type Aggregator struct {
	timeframe Timeframe
	current   *Candlestick
}

// NewAggregator initializes a new aggregator for the provided timeframe.
func NewAggregator(timeframe Timeframe) *Aggregator {
	return &Aggregator{
		timeframe: timeframe,
	}
}

// Update folds the provided one minute candle into the current bucket. It
// returns the completed candle when the candle starts a new bucket, nil
// otherwise.
func (a *Aggregator) Update(candle *Candlestick) (*Candlestick, error) {
	if candle.Timeframe != OneMinute {
		return nil, fmt.Errorf("expected candles with timeframe %s, got %s",
			OneMinute.String(), candle.Timeframe.String())
	}

	bucket, err := a.timeframe.BucketStart(candle.Date)
	if err != nil {
		return nil, fmt.Errorf("resolving bucket start: %w", err)
	}

	var completed *Candlestick
	if a.current != nil && !a.current.Date.Equal(bucket) {
		completed = a.current
		a.current = nil
	}

	if a.current == nil {
		a.current = &Candlestick{
			Open:      candle.Open,
			High:      candle.High,
			Low:       candle.Low,
			Close:     candle.Close,
			Date:      bucket,
			Market:    candle.Market,
			Timeframe: a.timeframe,
		}

		return completed, nil
	}

	if candle.High > a.current.High {
		a.current.High = candle.High
	}
	if candle.Low < a.current.Low {
		a.current.Low = candle.Low
	}
	a.current.Close = candle.Close

	return completed, nil
}
