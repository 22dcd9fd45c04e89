package risk

import "github.com/quayle/verdict/shared"

// Statistics summarizes session performance.
type Statistics struct {
	Trades               int
	Wins                 int
	Losses               int
	Ties                 int
	WinRate              float64
	TotalProfit          float64
	ProfitFactor         float64
	Expectancy           float64
	MaxDrawdown          float64
	MaxConsecutiveLosses uint32
	CurrentBalance       float64
	DailyPNL             float64
}

// Statistics computes the running session statistics from the settled trades.
func (m *Manager) Statistics() *Statistics {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	stats := &Statistics{
		Trades:               len(m.trades),
		MaxConsecutiveLosses: m.maxLossStreak,
		CurrentBalance:       m.balance,
	}

	var grossProfit, grossLoss float64
	peak := m.cfg.InitialBalance
	balance := m.cfg.InitialBalance
	for idx := range m.trades {
		record := m.trades[idx]

		switch record.Result {
		case shared.Win:
			stats.Wins++
			grossProfit += record.Profit
		case shared.Loss:
			stats.Losses++
			grossLoss += -record.Profit
		case shared.Tie:
			stats.Ties++
		}

		stats.TotalProfit += record.Profit

		balance += record.Profit
		if balance > peak {
			peak = balance
		}
		drawdown := peak - balance
		if drawdown > stats.MaxDrawdown {
			stats.MaxDrawdown = drawdown
		}
	}

	settled := stats.Wins + stats.Losses
	if settled > 0 {
		stats.WinRate = float64(stats.Wins) / float64(settled)
		stats.Expectancy = stats.TotalProfit / float64(settled)
	}
	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	}

	for idx := range m.dailyTrades {
		stats.DailyPNL += m.dailyTrades[idx].Profit
	}

	return stats
}
