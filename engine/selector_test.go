package engine

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/quayle/verdict/shared"
)

func TestSelect(t *testing.T) {
	market := "R_100"
	now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	selector := NewSelector(&SelectorConfig{
		MinConfidence: 60,
		MinAgreement:  2,
	})

	strongRise := SideScore{
		Side:         shared.Rise,
		Confidence:   75,
		Factors:      []shared.Factor{shared.TrendPullback},
		M1Confirmed:  true,
		M5Confirmed:  true,
		M15Confirmed: true,
	}
	weakFall := SideScore{Side: shared.Fall, Confidence: 5}

	// Ensure the stronger side is selected with its evidence intact.
	signal := selector.Select(market, strongRise, weakFall, shared.TrendingUp, 100.5, now)
	assert.Equal(t, signal.Side, shared.Rise)
	assert.Equal(t, signal.Confidence, float64(75))
	assert.Equal(t, signal.Market, market)
	assert.Equal(t, signal.Mode, shared.TrendingUp)
	assert.Equal(t, signal.Price, 100.5)
	assert.Equal(t, signal.CreatedOn, now)
	assert.True(t, signal.M1Confirmed)
	assert.True(t, signal.M5Confirmed)
	assert.True(t, signal.M15Confirmed)
	assert.Equal(t, signal.Factors, []shared.Factor{shared.TrendPullback})

	// Ensure a tie is never actionable, regardless of magnitude.
	tied := SideScore{Side: shared.Fall, Confidence: 75, M1Confirmed: true, M5Confirmed: true}
	signal = selector.Select(market, strongRise, tied, shared.TrendingUp, 100.5, now)
	assert.Equal(t, signal.Side, shared.None)
	assert.Equal(t, signal.Confidence, float64(0))

	// Ensure a winner below the confidence bound is not actionable.
	lowRise := strongRise
	lowRise.Confidence = 59
	signal = selector.Select(market, lowRise, weakFall, shared.TrendingUp, 100.5, now)
	assert.Equal(t, signal.Side, shared.None)

	// Ensure a winner below the agreement bound is not actionable.
	lonely := strongRise
	lonely.M5Confirmed = false
	lonely.M15Confirmed = false
	signal = selector.Select(market, lonely, weakFall, shared.TrendingUp, 100.5, now)
	assert.Equal(t, signal.Side, shared.None)

	// Ensure the fall side wins symmetrically.
	weakRise := SideScore{Side: shared.Rise, Confidence: 5}
	strongFall := strongRise
	strongFall.Side = shared.Fall
	signal = selector.Select(market, weakRise, strongFall, shared.Ranging, 100.5, now)
	assert.Equal(t, signal.Side, shared.Fall)
}
