package shared

import (
	"math"
	"time"
)

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit candlestick for a market. A candlestick is
// immutable once its timeframe boundary closes.
type Candlestick struct {
	Open  float64
	Low   float64
	High  float64
	Close float64
	Date  time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// IsHammer reports whether the candlestick is a hammer: a small body at the
// top of the range with a long lower wick, closing bullish.
func (c *Candlestick) IsHammer() bool {
	body := math.Abs(c.Close - c.Open)
	upperWick := c.High - math.Max(c.Open, c.Close)
	lowerWick := math.Min(c.Open, c.Close) - c.Low

	return lowerWick > body*2 && upperWick < body*0.5 && c.Close > c.Open
}

// IsShootingStar reports whether the candlestick is a shooting star: a small
// body at the bottom of the range with a long upper wick, closing bearish.
func (c *Candlestick) IsShootingStar() bool {
	body := math.Abs(c.Close - c.Open)
	upperWick := c.High - math.Max(c.Open, c.Close)
	lowerWick := math.Min(c.Open, c.Close) - c.Low

	return upperWick > body*2 && lowerWick < body*0.5 && c.Close < c.Open
}

// IsBullishEngulfing reports whether the current candlestick fully engulfs the
// body of a preceding bearish candlestick.
func IsBullishEngulfing(prev *Candlestick, current *Candlestick) bool {
	return prev.Close < prev.Open && current.Close > current.Open &&
		current.Open < prev.Close && current.Close > prev.Open
}

// IsBearishEngulfing reports whether the current candlestick fully engulfs the
// body of a preceding bullish candlestick.
func IsBearishEngulfing(prev *Candlestick, current *Candlestick) bool {
	return prev.Close > prev.Open && current.Close < current.Open &&
		current.Open > prev.Close && current.Close < prev.Open
}
