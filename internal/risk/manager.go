package risk

import "fmt"

// ExitAction is the outcome of a risk evaluation against an open position.
type ExitAction string

const (
	// ExitNone means the position stays open.
	ExitNone ExitAction = "NONE"
	// ExitStopLoss means the adverse move threshold was hit.
	ExitStopLoss ExitAction = "CLOSE_STOP_LOSS"
	// ExitTakeProfit means the favorable move threshold was hit.
	ExitTakeProfit ExitAction = "CLOSE_TAKE_PROFIT"
)

// IsClose reports whether the action closes the position.
func (a ExitAction) IsClose() bool {
	return a == ExitStopLoss || a == ExitTakeProfit
}

// CheckResult reports the outcome of a stop-loss/take-profit check.
type CheckResult struct {
	Action ExitAction `json:"action"`
	Reason string     `json:"reason"`
	// PnLPercent is the directional P&L at the checked price, as a
	// percentage (not a fraction), reported for every outcome.
	PnLPercent float64 `json:"pnl_percent"`
}

// Manager evaluates open positions against fixed exit thresholds. It is a
// pure evaluation: the caller performs the actual close.
type Manager struct {
	stopLoss   float64
	takeProfit float64
}

// NewManager creates a Manager with the given stop-loss and take-profit
// fractions.
func NewManager(stopLoss, takeProfit float64) *Manager {
	return &Manager{stopLoss: stopLoss, takeProfit: takeProfit}
}

// Check evaluates the position at the current price and reports whether
// an exit threshold has been tripped.
func (m *Manager) Check(pos Position, currentPrice float64) CheckResult {
	if !pos.IsOpen() {
		return CheckResult{Action: ExitNone, Reason: "no open position"}
	}
	if pos.EntryPrice <= 0 || currentPrice <= 0 {
		return CheckResult{Action: ExitNone, Reason: "invalid price"}
	}

	pnl := pos.PnLPercent(currentPrice)

	if pnl <= -m.stopLoss {
		return CheckResult{
			Action:     ExitStopLoss,
			Reason:     fmt.Sprintf("stop loss threshold breached (%.2f%%)", pnl*100),
			PnLPercent: pnl * 100,
		}
	}

	if pnl >= m.takeProfit {
		return CheckResult{
			Action:     ExitTakeProfit,
			Reason:     fmt.Sprintf("take profit threshold reached (%.2f%%)", pnl*100),
			PnLPercent: pnl * 100,
		}
	}

	return CheckResult{
		Action:     ExitNone,
		Reason:     fmt.Sprintf("within thresholds (P&L: %.2f%%)", pnl*100),
		PnLPercent: pnl * 100,
	}
}
