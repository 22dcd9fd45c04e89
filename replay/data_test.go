package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/quayle/verdict/shared"
)

func writeDataFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.json")
	err := os.WriteFile(path, []byte(body), 0o644)
	assert.NoError(t, err)

	return path
}

func TestLoadHistoricData(t *testing.T) {
	// Ensure a well formed file loads with utc minute candles.
	path := writeDataFile(t, `{
		"market": "R_100",
		"m1": [
			{"epoch": 1709546400, "open": 100, "high": 101, "low": 99.5, "close": 100.5},
			{"epoch": 1709546460, "open": 100.5, "high": 102, "low": 100, "close": 101}
		]
	}`)

	data, err := LoadHistoricData(path)
	assert.NoError(t, err)
	assert.Equal(t, data.Market, "R_100")
	assert.Equal(t, len(data.Candles), 2)
	assert.Equal(t, data.Candles[0].Close, 100.5)
	assert.Equal(t, data.Candles[0].Timeframe, shared.OneMinute)
	assert.Equal(t, data.Candles[1].Date.Sub(data.Candles[0].Date), time.Minute)

	// Ensure a missing file errors.
	_, err = LoadHistoricData(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	// Ensure malformed json errors.
	_, err = LoadHistoricData(writeDataFile(t, `{"market": "R_100", "m1": [`))
	assert.Error(t, err)

	// Ensure a missing market errors.
	_, err = LoadHistoricData(writeDataFile(t, `{"m1": [{"epoch": 1, "close": 1}]}`))
	assert.Error(t, err)

	// Ensure an empty candle series errors.
	_, err = LoadHistoricData(writeDataFile(t, `{"market": "R_100", "m1": []}`))
	assert.Error(t, err)
}

func TestLoadHistoricDataOrdering(t *testing.T) {
	// Ensure a duplicate timestamp is fatal.
	_, err := LoadHistoricData(writeDataFile(t, `{
		"market": "R_100",
		"m1": [
			{"epoch": 1709546400, "open": 100, "high": 101, "low": 99, "close": 100},
			{"epoch": 1709546400, "open": 100, "high": 101, "low": 99, "close": 100}
		]
	}`))
	assert.Error(t, err)

	// Ensure a backwards timestamp is fatal.
	_, err = LoadHistoricData(writeDataFile(t, `{
		"market": "R_100",
		"m1": [
			{"epoch": 1709546460, "open": 100, "high": 101, "low": 99, "close": 100},
			{"epoch": 1709546400, "open": 100, "high": 101, "low": 99, "close": 100}
		]
	}`))
	assert.Error(t, err)
}
