// Package risk provides position sizing and stop-loss/take-profit evaluation.
package risk

import (
	"time"
)

// Side represents the direction of an open position.
type Side string

const (
	// SideLong profits when price rises.
	SideLong Side = "LONG"
	// SideShort profits when price falls.
	SideShort Side = "SHORT"
)

// Position represents a holding owned by the backtest ledger. It is
// created on entry and destroyed on full exit; a symbol has at most one
// open position at a time.
type Position struct {
	// Symbol is the ticker symbol.
	Symbol string `json:"symbol"`
	// Side indicates long or short exposure.
	Side Side `json:"side"`
	// Shares is the whole-share quantity, always positive.
	Shares int64 `json:"shares"`
	// EntryPrice is the fill price at entry.
	EntryPrice float64 `json:"entry_price"`
	// EntryDate is the bar date the position was opened on.
	EntryDate time.Time `json:"entry_date"`
}

// IsOpen reports whether the position holds any shares.
func (p Position) IsOpen() bool {
	return p.Shares > 0
}

// CostBasis returns the total entry cost of the position.
func (p Position) CostBasis() float64 {
	return float64(p.Shares) * p.EntryPrice
}

// MarketValue returns the position value at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Shares) * price
}

// PnLPercent returns the directional unrealized P&L fraction at the
// given price: positive means the position is in profit.
func (p Position) PnLPercent(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	if p.Side == SideShort {
		return (p.EntryPrice - price) / p.EntryPrice
	}
	return (price - p.EntryPrice) / p.EntryPrice
}
