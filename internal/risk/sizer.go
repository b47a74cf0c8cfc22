package risk

import (
	"fmt"
	"math"

	"github.com/fusorlabs/fusor/internal/core"
)

// maxPortfolioFraction is the hard safety ceiling on a single position,
// independent of the risk budget.
const maxPortfolioFraction = 0.20

// SizeResult holds the outcome of a position sizing calculation.
type SizeResult struct {
	// Shares is the whole-share quantity to trade; zero means no trade.
	Shares int64 `json:"shares"`
	// Investment is the realized dollar amount (shares × price).
	Investment float64 `json:"investment_amount"`
	// RiskAmount is the dollar loss if the stop-loss triggers.
	RiskAmount float64 `json:"risk_amount"`
	// PortfolioPercent is Investment as a percentage of portfolio value.
	PortfolioPercent float64 `json:"portfolio_percent"`
	// RiskPercent is RiskAmount as a percentage of portfolio value.
	RiskPercent float64 `json:"risk_percent"`
	// Reason explains a zero-size result.
	Reason string `json:"reason,omitempty"`
}

// Sizer converts portfolio value, price and decision confidence into a
// whole-share position under a fixed risk budget.
type Sizer struct {
	riskPerTrade float64
	stopLoss     float64
}

// NewSizer creates a Sizer. riskPerTrade is the portfolio fraction risked
// per trade; stopLoss is the stop-loss fraction the risk budget assumes.
func NewSizer(riskPerTrade, stopLoss float64) *Sizer {
	return &Sizer{riskPerTrade: riskPerTrade, stopLoss: stopLoss}
}

// Size computes the position for the given portfolio value, price and
// decision confidence. Confidence scales the risk budget down; a sized
// position never exceeds 20% of portfolio value.
func (s *Sizer) Size(portfolioValue, price, confidence float64) (*SizeResult, error) {
	if portfolioValue <= 0 || math.IsNaN(portfolioValue) {
		return nil, core.WrapError(core.ErrInvalidSizing,
			fmt.Errorf("portfolio value must be positive, got %f", portfolioValue))
	}
	if price <= 0 || math.IsNaN(price) {
		return nil, core.WrapError(core.ErrInvalidSizing,
			fmt.Errorf("price must be positive, got %f", price))
	}
	if s.riskPerTrade <= 0 || s.riskPerTrade > 1 {
		return nil, core.WrapError(core.ErrInvalidSizing,
			fmt.Errorf("risk fraction must be in (0, 1], got %f", s.riskPerTrade))
	}
	if confidence <= 0 || confidence > 1 || math.IsNaN(confidence) {
		return nil, core.WrapError(core.ErrInvalidSizing,
			fmt.Errorf("confidence must be in (0, 1], got %f", confidence))
	}

	// Dollar risk scaled by how strongly the decision is supported
	riskAmount := portfolioValue * s.riskPerTrade * confidence

	// The investment whose loss at the stop level equals the risk budget
	maxInvestment := riskAmount / s.stopLoss

	// Hard ceiling regardless of risk budget
	investment := math.Min(maxInvestment, portfolioValue*maxPortfolioFraction)

	shares := int64(math.Floor(investment / price))
	if shares < 1 {
		return &SizeResult{Reason: "below minimum position"}, nil
	}

	actualInvestment := float64(shares) * price
	actualRisk := actualInvestment * s.stopLoss

	return &SizeResult{
		Shares:           shares,
		Investment:       actualInvestment,
		RiskAmount:       actualRisk,
		PortfolioPercent: actualInvestment / portfolioValue * 100,
		RiskPercent:      actualRisk / portfolioValue * 100,
	}, nil
}
