package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/quayle/verdict/shared"
	"github.com/rs/zerolog"
)

// GuardState represents the loss streak guard state.
type GuardState int

const (
	// GuardActive passes decisions through unchanged.
	GuardActive GuardState = iota
	// GuardCooldown forces every decision to no-trade until the cooldown
	// window expires.
	GuardCooldown
)

// String stringifies the provided guard state.
func (s GuardState) String() string {
	switch s {
	case GuardActive:
		return "active"
	case GuardCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// GuardConfig represents the loss streak guard configuration.
type GuardConfig struct {
	// MaxConsecutiveLosses is the losing streak length that arms the
	// cooldown.
	MaxConsecutiveLosses uint32
	// CooldownDuration is how long decisions stay blocked once the streak
	// limit is hit. A zero duration makes the cooldown terminal: the guard
	// stays blocked until manually reset.
	CooldownDuration time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *GuardConfig) Validate() error {
	if cfg.MaxConsecutiveLosses == 0 {
		return fmt.Errorf("max consecutive losses cannot be zero")
	}
	if cfg.CooldownDuration < 0 {
		return fmt.Errorf("cooldown duration cannot be negative")
	}
	if cfg.Logger == nil {
		return fmt.Errorf("logger cannot be nil")
	}

	return nil
}

// Guard bounds the run of consecutive losing outcomes. It is the single
// authority that may veto an otherwise valid signal and is consulted last,
// after scoring, so a score of any magnitude cannot bypass it.
type Guard struct {
	cfg *GuardConfig

	mtx               sync.Mutex
	state             GuardState
	consecutiveLosses uint32
	cooldownUntil     time.Time
}

// NewGuard initializes a new loss streak guard.
func NewGuard(cfg *GuardConfig) (*Guard, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating guard config: %w", err)
	}

	return &Guard{
		cfg: cfg,
	}, nil
}

// Allow reports whether a new decision may pass at the provided time. An
// expired cooldown transitions the guard back to active and resets the loss
// counter atomically with the transition.
func (g *Guard) Allow(now time.Time) (bool, string) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if g.state == GuardActive {
		return true, ""
	}

	if g.cfg.CooldownDuration == 0 {
		return false, "loss streak hard stop; manual reset required"
	}

	if now.Before(g.cooldownUntil) {
		return false, fmt.Sprintf("loss streak cooldown until %s",
			g.cooldownUntil.Format(shared.DateLayout))
	}

	g.state = GuardActive
	g.consecutiveLosses = 0
	g.cfg.Logger.Info().Msgf("loss streak cooldown expired, resuming decisions")

	return true, ""
}

// RecordOutcome folds a settled outcome into the streak. A win resets the
// counter, a loss increments it and arms the cooldown the instant the
// configured maximum is reached, a tie changes nothing.
func (g *Guard) RecordOutcome(result shared.Result, at time.Time) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	switch result {
	case shared.Win:
		g.consecutiveLosses = 0
	case shared.Loss:
		g.consecutiveLosses++
		if g.consecutiveLosses >= g.cfg.MaxConsecutiveLosses && g.state == GuardActive {
			g.state = GuardCooldown
			g.cooldownUntil = at.Add(g.cfg.CooldownDuration)
			g.cfg.Logger.Warn().Msgf("%d consecutive losses, decisions blocked until %s",
				g.consecutiveLosses, g.cooldownUntil.Format(shared.DateLayout))
		}
	case shared.Tie:
		// A tie neither extends nor breaks the streak.
	}
}

// ConsecutiveLosses returns the current losing streak length.
func (g *Guard) ConsecutiveLosses() uint32 {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	return g.consecutiveLosses
}

// State returns the current guard state.
func (g *Guard) State() GuardState {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	return g.state
}

// Reset returns the guard to active with a zeroed streak. It is the manual
// intervention required by the hard stop configuration.
func (g *Guard) Reset() {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.state = GuardActive
	g.consecutiveLosses = 0
	g.cooldownUntil = time.Time{}
}
