package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quayle/verdict/shared"
	"github.com/rs/zerolog"
)

// martingaleMultipliers is the capped stake ladder. Each step is sized to
// recover the preceding losses plus a margin.
var martingaleMultipliers = []float64{1.0, 2.2, 5.0}

// ManagerConfig represents the risk manager configuration.
type ManagerConfig struct {
	// InitialBalance is the starting account balance.
	InitialBalance float64
	// BaseStake is the base contract stake.
	BaseStake float64
	// RiskPercent is the percentage of balance risked per trade.
	RiskPercent float64
	// MaxMartingaleSteps caps the stake ladder; zero disables martingale.
	MaxMartingaleSteps uint32
	// MaxDailyTrades caps the number of settled trades per UTC day.
	MaxDailyTrades int
	// MaxDailyLossPercent caps the daily loss as a percentage of the session
	// start balance.
	MaxDailyLossPercent float64
	// PayoutRate is the payout fraction of stake for a winning contract.
	PayoutRate float64
	// MaxConsecutiveLosses and CooldownDuration configure the loss streak
	// guard.
	MaxConsecutiveLosses uint32
	CooldownDuration     time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.InitialBalance <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial balance must be positive"))
	}
	if cfg.BaseStake <= 0 {
		errs = errors.Join(errs, fmt.Errorf("base stake must be positive"))
	}
	if cfg.PayoutRate <= 0 || cfg.PayoutRate > 1 {
		errs = errors.Join(errs, fmt.Errorf("payout rate must be in (0, 1], got %.2f", cfg.PayoutRate))
	}
	if cfg.MaxDailyTrades <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max daily trades must be positive"))
	}
	if cfg.MaxConsecutiveLosses == 0 {
		errs = errors.Join(errs, fmt.Errorf("max consecutive losses cannot be zero"))
	}
	if cfg.CooldownDuration < 0 {
		errs = errors.Join(errs, fmt.Errorf("cooldown duration cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager tracks balance, stake sizing, daily limits and the loss streak
// guard. It is the single owner of cross-cycle risk state; decision cycles
// and outcome notifications may touch it concurrently, so all state is
// mutex-guarded.
type Manager struct {
	cfg   *ManagerConfig
	guard *Guard

	mtx                 sync.Mutex
	balance             float64
	sessionStartBalance float64
	martingaleStep      uint32
	trades              []*TradeRecord
	dailyTrades         []*TradeRecord
	currentDay          time.Time
	maxLossStreak       uint32
	lossStreak          uint32
}

// NewManager initializes a new risk manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating risk config: %w", err)
	}

	guard, err := NewGuard(&GuardConfig{
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		CooldownDuration:     cfg.CooldownDuration,
		Logger:               cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating loss streak guard: %w", err)
	}

	return &Manager{
		cfg:                 cfg,
		guard:               guard,
		balance:             cfg.InitialBalance,
		sessionStartBalance: cfg.InitialBalance,
	}, nil
}

// Guard returns the loss streak guard.
func (m *Manager) Guard() *Guard {
	return m.guard
}

// Balance returns the current account balance.
func (m *Manager) Balance() float64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.balance
}

// rollDay resets the daily tracking when the provided time crosses into a new
// UTC day. The caller must hold the mutex.
func (m *Manager) rollDay(now time.Time) {
	day := now.UTC().Truncate(time.Hour * 24)
	if !day.Equal(m.currentDay) {
		m.currentDay = day
		m.dailyTrades = m.dailyTrades[:0]
	}
}

// Stake returns the next contract stake from the capped martingale ladder,
// adjusted for the balance ratio and capped at the configured risk fraction.
func (m *Manager) Stake() float64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	baseStake := m.cfg.BaseStake
	balanceRatio := m.balance / m.cfg.InitialBalance
	switch {
	case balanceRatio > 1.5:
		baseStake = m.cfg.BaseStake * 1.5
	case balanceRatio < 0.5:
		baseStake = m.cfg.BaseStake * 0.5
	}

	step := m.martingaleStep
	if m.cfg.MaxMartingaleSteps == 0 || step >= m.cfg.MaxMartingaleSteps {
		step = 0
	}
	if int(step) >= len(martingaleMultipliers) {
		step = uint32(len(martingaleMultipliers) - 1)
	}

	stake := baseStake * martingaleMultipliers[step]

	maxStake := m.balance * (m.cfg.RiskPercent / 100) * 3
	if stake > maxStake {
		stake = maxStake
	}
	if stake < 1 {
		stake = 1
	}

	return stake
}

// CanTrade reports whether a new decision may be taken at the provided time,
// checking the daily limits, the account balance and the loss streak guard.
func (m *Manager) CanTrade(now time.Time) (bool, string) {
	m.mtx.Lock()
	m.rollDay(now)

	if len(m.dailyTrades) >= m.cfg.MaxDailyTrades {
		m.mtx.Unlock()
		return false, fmt.Sprintf("daily trade limit reached (%d)", m.cfg.MaxDailyTrades)
	}

	var dailyPNL float64
	for idx := range m.dailyTrades {
		dailyPNL += m.dailyTrades[idx].Profit
	}
	maxDailyLoss := m.sessionStartBalance * (m.cfg.MaxDailyLossPercent / 100)
	if dailyPNL < -maxDailyLoss {
		m.mtx.Unlock()
		return false, fmt.Sprintf("daily loss limit reached (%.1f%%)", m.cfg.MaxDailyLossPercent)
	}

	if m.balance < m.cfg.BaseStake {
		m.mtx.Unlock()
		return false, "insufficient balance for base stake"
	}
	m.mtx.Unlock()

	return m.guard.Allow(now)
}

// RecordTrade folds a settled trade into the balance, the stake ladder, the
// daily tracking and the loss streak guard.
func (m *Manager) RecordTrade(record *TradeRecord) {
	m.mtx.Lock()
	m.rollDay(record.SettledOn)

	m.balance += record.Profit
	m.trades = append(m.trades, record)
	m.dailyTrades = append(m.dailyTrades, record)

	switch record.Result {
	case shared.Win:
		m.martingaleStep = 0
		m.lossStreak = 0
	case shared.Loss:
		m.martingaleStep++
		m.lossStreak++
		if m.lossStreak > m.maxLossStreak {
			m.maxLossStreak = m.lossStreak
		}
	case shared.Tie:
		// A tie does not advance the ladder.
	}
	m.mtx.Unlock()

	m.guard.RecordOutcome(record.Result, record.SettledOn)
}

// TradeHistory returns up to limit of the most recent settled trades, newest
// first.
func (m *Manager) TradeHistory(limit int) []*TradeRecord {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if limit <= 0 || limit > len(m.trades) {
		limit = len(m.trades)
	}

	history := make([]*TradeRecord, limit)
	for idx := range limit {
		history[idx] = m.trades[len(m.trades)-1-idx]
	}

	return history
}

// ResetDailyStats clears the daily tracking. It is scheduled at the UTC day
// boundary for live runs.
func (m *Manager) ResetDailyStats(now time.Time) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.currentDay = now.UTC().Truncate(time.Hour * 24)
	m.dailyTrades = m.dailyTrades[:0]
}
