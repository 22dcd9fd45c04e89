package shared

import (
	"fmt"
	"time"
)

// SessionWindow represents a daily time window in UTC. Windows may wrap past
// midnight (open later in the day than close).
type SessionWindow struct {
	Name  string
	Open  string
	Close string

	openMinute  int
	closeMinute int
}

// NewSessionWindow initializes a new session window from "15:04" open and
// close times.
func NewSessionWindow(name string, open string, close string) (SessionWindow, error) {
	openTime, err := time.Parse(SessionTimeLayout, open)
	if err != nil {
		return SessionWindow{}, fmt.Errorf("parsing session open %q: %w", open, err)
	}

	closeTime, err := time.Parse(SessionTimeLayout, close)
	if err != nil {
		return SessionWindow{}, fmt.Errorf("parsing session close %q: %w", close, err)
	}

	return SessionWindow{
		Name:        name,
		Open:        open,
		Close:       close,
		openMinute:  openTime.Hour()*60 + openTime.Minute(),
		closeMinute: closeTime.Hour()*60 + closeTime.Minute(),
	}, nil
}

// Contains reports whether the provided time falls inside the window. Both
// boundaries are inclusive.
func (w *SessionWindow) Contains(now time.Time) bool {
	utc := now.UTC()
	minute := utc.Hour()*60 + utc.Minute()

	if w.openMinute <= w.closeMinute {
		return minute >= w.openMinute && minute <= w.closeMinute
	}

	// The window wraps past midnight.
	return minute >= w.openMinute || minute <= w.closeMinute
}
