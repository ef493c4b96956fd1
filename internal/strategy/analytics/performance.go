package analytics

import (
	"sort"
	"time"

	"zoneSignalBot/internal/domain"
)

// PerformanceMetrics holds outcome statistics of replayed signals. All
// returns are in R, the trade result divided by its initial risk.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades   int
	WinningTrades int // closed at take-profit
	LosingTrades  int // closed at stop-loss
	ExpiredTrades int
	WinRate       float64 // wins / (wins + losses); expired trades excluded
	TotalR        float64
	AverageR      float64
	AverageWinR   float64
	AverageLossR  float64 // negative
	Expectancy    float64 // expected R per resolved trade

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	MaxDrawdownR         float64
	AverageTradeDuration time.Duration
	ByDirection          map[domain.Direction]int
	MonthlyR             map[string]float64
	EquityCurve          []EquityPoint
}

// EquityPoint represents a point on the cumulative-R curve.
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// AnalyzePerformance calculates outcome statistics from replayed trades.
// The input slice is not reordered.
func AnalyzePerformance(trades []*domain.Trade) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		ByDirection: make(map[domain.Direction]int),
		MonthlyR:    make(map[string]float64),
		EquityCurve: make([]EquityPoint, 0, len(trades)),
	}
	if len(trades) == 0 {
		return metrics
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryTime.Before(ordered[j].EntryTime)
	})

	var equity, peak float64
	var consecutiveWins, consecutiveLosses int
	var sumWinR, sumLossR float64
	var totalDuration time.Duration

	for _, trade := range ordered {
		r := trade.RMultiple()
		metrics.TotalTrades++
		metrics.ByDirection[trade.Direction]++

		switch trade.Outcome {
		case domain.OutcomeTakeProfit:
			metrics.WinningTrades++
			sumWinR += r
			consecutiveWins++
			consecutiveLosses = 0
		case domain.OutcomeStopLoss:
			metrics.LosingTrades++
			sumLossR += r
			consecutiveLosses++
			consecutiveWins = 0
		default:
			metrics.ExpiredTrades++
			consecutiveWins, consecutiveLosses = 0, 0
		}
		metrics.MaxConsecutiveWins = max(metrics.MaxConsecutiveWins, consecutiveWins)
		metrics.MaxConsecutiveLosses = max(metrics.MaxConsecutiveLosses, consecutiveLosses)

		equity += r
		metrics.TotalR += r
		metrics.MonthlyR[trade.ExitTime.Format("2006-01")] += r
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)

		peak = max(peak, equity)
		drawdown := peak - equity
		metrics.MaxDrawdownR = max(metrics.MaxDrawdownR, drawdown)
		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Time:     trade.ExitTime,
			Value:    equity,
			Drawdown: drawdown,
		})
	}

	metrics.AverageR = metrics.TotalR / float64(metrics.TotalTrades)
	metrics.AverageTradeDuration = totalDuration / time.Duration(metrics.TotalTrades)
	if metrics.WinningTrades > 0 {
		metrics.AverageWinR = sumWinR / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLossR = sumLossR / float64(metrics.LosingTrades)
	}
	if resolved := metrics.WinningTrades + metrics.LosingTrades; resolved > 0 {
		metrics.WinRate = float64(metrics.WinningTrades) / float64(resolved)
		metrics.Expectancy = metrics.WinRate*metrics.AverageWinR + (1-metrics.WinRate)*metrics.AverageLossR
	}

	return metrics
}

// GetMonthlyR returns the monthly R totals as a sorted slice
func (m *PerformanceMetrics) GetMonthlyR() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyR))
	for month, r := range m.MonthlyR {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: r,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly R total
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
