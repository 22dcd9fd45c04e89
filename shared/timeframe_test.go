package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestTimeframeDuration(t *testing.T) {
	// Ensure known timeframes resolve to their durations.
	tests := []struct {
		timeframe Timeframe
		want      time.Duration
	}{
		{OneMinute, time.Minute},
		{FiveMinute, time.Minute * 5},
		{FifteenMinute, time.Minute * 15},
	}

	for _, test := range tests {
		duration, err := test.timeframe.Duration()
		assert.NoError(t, err)
		assert.Equal(t, duration, test.want)
	}

	// Ensure an unknown timeframe errors.
	unknown := Timeframe(99)
	_, err := unknown.Duration()
	assert.Error(t, err)
	assert.Equal(t, unknown.String(), "unknown")
}

func TestBucketStart(t *testing.T) {
	now := time.Date(2024, time.March, 4, 12, 7, 30, 0, time.UTC)

	// Ensure a one minute bucket truncates to the minute.
	bucket, err := OneMinute.BucketStart(now)
	assert.NoError(t, err)
	assert.Equal(t, bucket, time.Date(2024, time.March, 4, 12, 7, 0, 0, time.UTC))

	// Ensure a five minute bucket truncates to the five minute boundary.
	bucket, err = FiveMinute.BucketStart(now)
	assert.NoError(t, err)
	assert.Equal(t, bucket, time.Date(2024, time.March, 4, 12, 5, 0, 0, time.UTC))

	// Ensure a fifteen minute bucket truncates to the quarter hour.
	bucket, err = FifteenMinute.BucketStart(now)
	assert.NoError(t, err)
	assert.Equal(t, bucket, time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))

	// Ensure a time on the boundary is its own bucket start.
	boundary := time.Date(2024, time.March, 4, 12, 15, 0, 0, time.UTC)
	bucket, err = FifteenMinute.BucketStart(boundary)
	assert.NoError(t, err)
	assert.Equal(t, bucket, boundary)

	// Ensure an unknown timeframe errors.
	_, err = Timeframe(99).BucketStart(now)
	assert.Error(t, err)
}
