package risk

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/quayle/verdict/shared"
	"github.com/rs/zerolog"
)

func zerologNop() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestGuardConfigValidate(t *testing.T) {
	logger := zerologNop()

	// Ensure a zero loss limit is rejected.
	_, err := NewGuard(&GuardConfig{MaxConsecutiveLosses: 0, Logger: logger})
	assert.Error(t, err)

	// Ensure a negative cooldown is rejected.
	_, err = NewGuard(&GuardConfig{
		MaxConsecutiveLosses: 3,
		CooldownDuration:     -time.Second,
		Logger:               logger,
	})
	assert.Error(t, err)

	// Ensure a nil logger is rejected.
	_, err = NewGuard(&GuardConfig{MaxConsecutiveLosses: 3})
	assert.Error(t, err)
}

func TestGuardCooldown(t *testing.T) {
	cooldown := time.Minute * 10
	guard, err := NewGuard(&GuardConfig{
		MaxConsecutiveLosses: 3,
		CooldownDuration:     cooldown,
		Logger:               zerologNop(),
	})
	assert.NoError(t, err)

	start := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

	// Ensure a fresh guard passes decisions through.
	allowed, _ := guard.Allow(start)
	assert.True(t, allowed)
	assert.Equal(t, guard.State(), GuardActive)

	// Ensure losses below the limit leave the guard active.
	guard.RecordOutcome(shared.Loss, start)
	guard.RecordOutcome(shared.Loss, start.Add(time.Minute))
	assert.Equal(t, guard.State(), GuardActive)
	assert.Equal(t, guard.ConsecutiveLosses(), uint32(2))

	// Ensure a tie neither extends nor breaks the streak.
	guard.RecordOutcome(shared.Tie, start.Add(time.Minute*2))
	assert.Equal(t, guard.ConsecutiveLosses(), uint32(2))
	assert.Equal(t, guard.State(), GuardActive)

	// Ensure a win resets the streak.
	guard.RecordOutcome(shared.Win, start.Add(time.Minute*3))
	assert.Equal(t, guard.ConsecutiveLosses(), uint32(0))

	// Ensure the streak limit arms the cooldown the instant it is reached.
	armedAt := start.Add(time.Minute * 10)
	guard.RecordOutcome(shared.Loss, armedAt)
	guard.RecordOutcome(shared.Loss, armedAt)
	guard.RecordOutcome(shared.Loss, armedAt)
	assert.Equal(t, guard.State(), GuardCooldown)

	allowed, reason := guard.Allow(armedAt.Add(time.Minute))
	assert.False(t, allowed)
	assert.NotEqual(t, reason, "")

	// Ensure decisions stay blocked up to the cooldown boundary and resume
	// exactly at it, with the streak reset atomically.
	allowed, _ = guard.Allow(armedAt.Add(cooldown - time.Second))
	assert.False(t, allowed)

	allowed, _ = guard.Allow(armedAt.Add(cooldown))
	assert.True(t, allowed)
	assert.Equal(t, guard.State(), GuardActive)
	assert.Equal(t, guard.ConsecutiveLosses(), uint32(0))
}

func TestGuardHardStop(t *testing.T) {
	guard, err := NewGuard(&GuardConfig{
		MaxConsecutiveLosses: 2,
		CooldownDuration:     0,
		Logger:               zerologNop(),
	})
	assert.NoError(t, err)

	start := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)
	guard.RecordOutcome(shared.Loss, start)
	guard.RecordOutcome(shared.Loss, start)

	// Ensure a zero cooldown blocks decisions indefinitely.
	allowed, reason := guard.Allow(start.Add(time.Hour * 24 * 365))
	assert.False(t, allowed)
	assert.NotEqual(t, reason, "")

	// Ensure a manual reset is the only way out of the hard stop.
	guard.Reset()
	allowed, _ = guard.Allow(start)
	assert.True(t, allowed)
	assert.Equal(t, guard.ConsecutiveLosses(), uint32(0))
}

func TestGuardStreakBounded(t *testing.T) {
	maxLosses := uint32(3)
	cooldown := time.Minute * 10
	guard, err := NewGuard(&GuardConfig{
		MaxConsecutiveLosses: maxLosses,
		CooldownDuration:     cooldown,
		Logger:               zerologNop(),
	})
	assert.NoError(t, err)

	// Ensure no interleaving of losses and cooldown expiries ever leaves more
	// than the configured limit of unblocked consecutive losses.
	now := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)
	for range 50 {
		allowed, _ := guard.Allow(now)
		if allowed {
			guard.RecordOutcome(shared.Loss, now)
			assert.LessThanOrEqual(t, guard.ConsecutiveLosses(), maxLosses)
		} else {
			now = now.Add(cooldown)
		}
		now = now.Add(time.Minute)
	}
}
