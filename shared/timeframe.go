package shared

import (
	"fmt"
	"time"
)

const (
	// SessionTimeLayout is the format layout for parsing session times in a day.
	SessionTimeLayout = "15:04"
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	FifteenMinute
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	default:
		return "unknown"
	}
}

// Duration returns the time period covered by one candle of the provided timeframe.
func (t Timeframe) Duration() (time.Duration, error) {
	switch t {
	case OneMinute:
		return time.Minute, nil
	case FiveMinute:
		return time.Minute * 5, nil
	case FifteenMinute:
		return time.Minute * 15, nil
	default:
		return 0, fmt.Errorf("no duration for unknown timeframe: %d", t)
	}
}

// BucketStart returns the start of the timeframe bucket the provided time falls in.
func (t Timeframe) BucketStart(now time.Time) (time.Time, error) {
	duration, err := t.Duration()
	if err != nil {
		return time.Time{}, err
	}

	return now.Truncate(duration), nil
}
