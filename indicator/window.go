package indicator

import (
	"github.com/quayle/verdict/shared"
)

const (
	// windowSize is the maximum number of candles retained per timeframe.
	windowSize = 256
)

// Window is a fixed capacity ring buffer of closed candlesticks for a single
// timeframe, ordered oldest to newest.
type Window struct {
	data  []*shared.Candlestick
	start int
	count int
	size  int
}

// NewWindow initializes a new candle window.
func NewWindow() *Window {
	return &Window{
		data: make([]*shared.Candlestick, windowSize),
		size: windowSize,
	}
}

// Update adds the provided candlestick to the window.
func (w *Window) Update(candle *shared.Candlestick) {
	end := (w.start + w.count) % w.size
	w.data[end] = candle

	if w.count == w.size {
		// Overwrite the oldest entry when the window is at capacity.
		w.start = (w.start + 1) % w.size
	} else {
		w.count++
	}
}

// Count returns the number of candles currently held.
func (w *Window) Count() int {
	return w.count
}

// LastN fetches the last n elements from the window, oldest first.
func (w *Window) LastN(n int) []*shared.Candlestick {
	if n <= 0 {
		return nil
	}

	// Clamp the number of elements expected if it is greater than the window count.
	if n > w.count {
		n = w.count
	}

	set := make([]*shared.Candlestick, n)
	start := (w.start + w.count - n + w.size) % w.size

	for i := range n {
		idx := (start + i) % w.size
		set[i] = w.data[idx]
	}

	return set
}

// Last returns the most recent candle, or nil when the window is empty.
func (w *Window) Last() *shared.Candlestick {
	if w.count == 0 {
		return nil
	}

	idx := (w.start + w.count - 1) % w.size
	return w.data[idx]
}
