package backtest

import (
	"time"

	"github.com/fusorlabs/fusor/internal/core"
)

// Trade is an append-only log entry, immutable once recorded. Exit marks
// trades that close a position; entries always carry zero PnL.
type Trade struct {
	Date       time.Time   `json:"date"`
	Symbol     string      `json:"symbol"`
	Action     core.Action `json:"action"`
	Exit       bool        `json:"exit"`
	Shares     int64       `json:"shares"`
	Price      float64     `json:"price"`
	GrossValue float64     `json:"gross_value"`
	Commission float64     `json:"commission"`
	PnL        float64     `json:"pnl"`
	PnLPercent float64     `json:"pnl_percent"`
	Reason     string      `json:"reason"`
	// CashAfter equals the ledger's cash immediately after this trade.
	CashAfter float64 `json:"cash_after"`
}

// IsWin reports whether a closing trade realized a profit.
func (t Trade) IsWin() bool {
	return t.Exit && t.PnL > 0
}

// Snapshot records the ledger state after one simulated day.
type Snapshot struct {
	Date           time.Time `json:"date"`
	Cash           float64   `json:"cash"`
	PositionsValue float64   `json:"positions_value"`
	TotalValue     float64   `json:"total_value"`
	OpenPositions  int       `json:"open_positions"`
	// CumulativeReturnPercent is relative to initial capital.
	CumulativeReturnPercent float64 `json:"cumulative_return_percent"`
}

// Result holds the complete backtest output: the trade log, the daily
// snapshot series and the derived performance report. All fields are
// plain serializable records.
type Result struct {
	Symbol         string     `json:"symbol"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	InitialCapital float64    `json:"initial_capital"`
	FinalValue     float64    `json:"final_value"`
	TotalReturnPct float64    `json:"total_return_percent"`
	BarsProcessed  int        `json:"bars_processed"`
	DaysSkipped    int        `json:"days_skipped"`
	Trades         []Trade    `json:"trades"`
	Snapshots      []Snapshot `json:"snapshots"`
	Report         *Report    `json:"report,omitempty"`
}
