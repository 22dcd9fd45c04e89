package replay

import (
	"fmt"
	"os"
	"time"

	"github.com/quayle/verdict/shared"
	"github.com/tidwall/gjson"
)

// HistoricData represents a parsed historic candle file.
type HistoricData struct {
	// Market is the market the candles belong to.
	Market string
	// Candles is the minute candle series, strictly increasing in time.
	Candles []shared.Candlestick
}

// LoadHistoricData loads a historic minute candle file. The expected shape is
// a json document with a market name and an m1 array of candles keyed by
// epoch, open, high, low and close. A non-monotonic or duplicate timestamp is
// a fatal load error.
func LoadHistoricData(path string) (*HistoricData, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading historic data file: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("historic data file %s is not valid json", path)
	}

	doc := gjson.ParseBytes(body)
	market := doc.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("historic data file %s has no market", path)
	}

	series := doc.Get("m1")
	if !series.IsArray() {
		return nil, fmt.Errorf("historic data file %s has no m1 candle array", path)
	}

	data := &HistoricData{
		Market: market,
	}

	var lastEpoch int64
	var loadErr error
	series.ForEach(func(_, entry gjson.Result) bool {
		epoch := entry.Get("epoch").Int()
		if epoch <= lastEpoch {
			loadErr = fmt.Errorf("candle timestamps must be strictly increasing, "+
				"got epoch %d after %d", epoch, lastEpoch)
			return false
		}
		lastEpoch = epoch

		data.Candles = append(data.Candles, shared.Candlestick{
			Market:    market,
			Timeframe: shared.OneMinute,
			Date:      time.Unix(epoch, 0).UTC(),
			Open:      entry.Get("open").Float(),
			High:      entry.Get("high").Float(),
			Low:       entry.Get("low").Float(),
			Close:     entry.Get("close").Float(),
		})

		return true
	})
	if loadErr != nil {
		return nil, loadErr
	}

	if len(data.Candles) == 0 {
		return nil, fmt.Errorf("historic data file %s has no candles", path)
	}

	return data, nil
}
