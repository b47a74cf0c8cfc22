package backtest

import (
	"encoding/json"
	"math"
)

// Report aggregates performance metrics derived from a completed trade
// log and snapshot series. It never mutates its inputs.
type Report struct {
	InitialCapital   float64            `json:"initial_capital"`
	FinalValue       float64            `json:"final_value"`
	TotalReturnPct   float64            `json:"total_return_percent"`
	AnnualizedPct    float64            `json:"annualized_return_percent"`
	TotalTrades      int                `json:"total_trades"`
	WinningTrades    int                `json:"winning_trades"`
	LosingTrades     int                `json:"losing_trades"`
	WinRatePct       float64            `json:"win_rate_percent"`
	GrossProfit      float64            `json:"gross_profit"`
	GrossLoss        float64            `json:"gross_loss"`
	ProfitFactor     float64            `json:"profit_factor"`
	MaxDrawdownPct   float64            `json:"max_drawdown_percent"`
	SharpeRatio      float64            `json:"sharpe_ratio"`
	AvgTrade         float64            `json:"avg_trade"`
	AvgWin           float64            `json:"avg_winning_trade"`
	AvgLoss          float64            `json:"avg_losing_trade"`
	LargestWin       float64            `json:"largest_winning_trade"`
	LargestLoss      float64            `json:"largest_losing_trade"`
	TotalCommission  float64            `json:"total_commission"`
	MonthlyReturnPct map[string]float64 `json:"monthly_returns"`
	Score            int                `json:"score"`
	Grade            string             `json:"grade,omitempty"`
}

// MarshalJSON renders an infinite profit factor (zero gross loss) as a
// string, since JSON has no representation for +Inf.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	out := struct {
		*alias
		ProfitFactor any `json:"profit_factor"`
	}{alias: (*alias)(r), ProfitFactor: r.ProfitFactor}

	if math.IsInf(r.ProfitFactor, 1) {
		out.ProfitFactor = "inf"
	}
	return json.Marshal(out)
}

// Analyze reduces the trade log and snapshot series into a Report. An
// empty trade log yields a zero-valued report with no grade.
func Analyze(trades []Trade, snapshots []Snapshot, initialCapital, finalValue float64) *Report {
	report := &Report{
		InitialCapital:   initialCapital,
		FinalValue:       finalValue,
		MonthlyReturnPct: map[string]float64{},
	}

	if len(trades) == 0 {
		report.FinalValue = initialCapital
		return report
	}

	if initialCapital > 0 {
		report.TotalReturnPct = (finalValue/initialCapital - 1) * 100
	}

	var grossProfit, grossLoss, pnlSum float64
	var largestWin, largestLoss float64
	closing := 0

	for _, t := range trades {
		report.TotalCommission += t.Commission
		if !t.Exit {
			continue
		}
		closing++
		pnlSum += t.PnL
		switch {
		case t.PnL > 0:
			report.WinningTrades++
			grossProfit += t.PnL
			if t.PnL > largestWin {
				largestWin = t.PnL
			}
		case t.PnL < 0:
			report.LosingTrades++
			grossLoss += -t.PnL
			if t.PnL < largestLoss {
				largestLoss = t.PnL
			}
		}
	}

	report.TotalTrades = closing
	report.GrossProfit = grossProfit
	report.GrossLoss = grossLoss
	report.LargestWin = largestWin
	report.LargestLoss = largestLoss

	if closing > 0 {
		report.WinRatePct = float64(report.WinningTrades) / float64(closing) * 100
		report.AvgTrade = pnlSum / float64(closing)
	}
	if report.WinningTrades > 0 {
		report.AvgWin = grossProfit / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = -grossLoss / float64(report.LosingTrades)
	}

	if grossLoss > 0 {
		report.ProfitFactor = grossProfit / grossLoss
	} else {
		report.ProfitFactor = math.Inf(1)
	}

	report.MaxDrawdownPct = maxDrawdown(snapshots)
	report.SharpeRatio = sharpeRatio(snapshots)
	report.AnnualizedPct = annualizedReturn(initialCapital, finalValue, len(snapshots))

	for _, t := range trades {
		month := t.Date.Format("2006-01")
		report.MonthlyReturnPct[month] += t.PnL / initialCapital * 100
	}

	report.Score = performanceScore(report.TotalReturnPct, report.MaxDrawdownPct,
		report.WinRatePct, report.SharpeRatio)
	report.Grade = gradeFor(report.Score)

	return report
}

// maxDrawdown finds the largest peak-to-trough decline in total value,
// returned as a negative percentage of the peak.
func maxDrawdown(snapshots []Snapshot) float64 {
	var maxDD, peak float64

	for _, s := range snapshots {
		if s.TotalValue > peak {
			peak = s.TotalValue
		}
		if peak > 0 {
			dd := (s.TotalValue - peak) / peak * 100
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio annualizes the mean daily return over the population
// standard deviation of daily returns. Zero volatility yields zero.
func sharpeRatio(snapshots []Snapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].TotalValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, snapshots[i].TotalValue/prev-1)
	}
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))

	if stdDev == 0 {
		return 0
	}
	return (mean * 252) / (stdDev * math.Sqrt(252))
}

// annualizedReturn compounds the total return over the elapsed days.
func annualizedReturn(initial, final float64, days int) float64 {
	if days <= 0 || initial <= 0 || final <= 0 {
		return 0
	}
	return (math.Pow(final/initial, 365/float64(days)) - 1) * 100
}

// performanceScore weights return (40%), drawdown (30%), win rate (20%)
// and Sharpe (10%) into a 0-100 score.
func performanceScore(totalReturn, maxDrawdown, winRate, sharpe float64) int {
	score := 0

	switch {
	case totalReturn >= 20:
		score += 40
	case totalReturn >= 15:
		score += 35
	case totalReturn >= 10:
		score += 30
	case totalReturn >= 5:
		score += 20
	case totalReturn >= 0:
		score += 10
	}

	switch {
	case maxDrawdown >= -5:
		score += 30
	case maxDrawdown >= -10:
		score += 25
	case maxDrawdown >= -15:
		score += 20
	case maxDrawdown >= -20:
		score += 15
	case maxDrawdown >= -30:
		score += 10
	}

	switch {
	case winRate >= 60:
		score += 20
	case winRate >= 55:
		score += 18
	case winRate >= 50:
		score += 15
	case winRate >= 45:
		score += 12
	case winRate >= 40:
		score += 8
	}

	switch {
	case sharpe >= 2.0:
		score += 10
	case sharpe >= 1.5:
		score += 8
	case sharpe >= 1.0:
		score += 6
	case sharpe >= 0.5:
		score += 4
	case sharpe >= 0:
		score += 2
	}

	return score
}

// gradeFor maps a composite score to a letter grade.
func gradeFor(score int) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 85:
		return "A"
	case score >= 80:
		return "B+"
	case score >= 75:
		return "B"
	case score >= 70:
		return "C+"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}
