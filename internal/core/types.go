package core

import (
	"math"
	"strings"
	"time"
)

// Action represents a trade decision action
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// SignalClass is the normalized tri-state form of a predictive signal.
// Numeric and string signal inputs are converted once at the boundary;
// nothing downstream branches on the raw form.
type SignalClass int

const (
	SignalShort   SignalClass = -1
	SignalNeutral SignalClass = 0
	SignalLong    SignalClass = 1
)

func (s SignalClass) String() string {
	switch s {
	case SignalLong:
		return "long"
	case SignalShort:
		return "short"
	default:
		return "neutral"
	}
}

// ClassifySignal normalizes a string signal label to a SignalClass.
// Unknown labels map to neutral.
func ClassifySignal(label string) SignalClass {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "BUY", "LONG", "1":
		return SignalLong
	case "SELL", "SHORT", "-1":
		return SignalShort
	default:
		return SignalNeutral
	}
}

// ClassifyNumericSignal normalizes a numeric prediction to a SignalClass.
// Positive values favor long, negative favor short, zero (and NaN) is neutral.
func ClassifyNumericSignal(v float64) SignalClass {
	if math.IsNaN(v) {
		return SignalNeutral
	}
	switch {
	case v > 0:
		return SignalLong
	case v < 0:
		return SignalShort
	default:
		return SignalNeutral
	}
}

// Indicators holds precomputed technical indicators attached to a bar.
// The engine consumes these; it never computes them.
type Indicators struct {
	SMA20        float64 `json:"sma_20"`
	SMA50        float64 `json:"sma_50"`
	RSI          float64 `json:"rsi"`
	MACDHist     float64 `json:"macd_hist"`
	BBUpper      float64 `json:"bb_upper"`
	BBLower      float64 `json:"bb_lower"`
	Volatility   float64 `json:"volatility"`
	VolumeRatio  float64 `json:"volume_ratio"`
	VolumeChange float64 `json:"volume_change"`
}

// Bar represents one trading day of market data with indicators attached.
// Bars are immutable, ordered by date ascending and unique per date.
type Bar struct {
	Symbol     string     `json:"symbol"`
	Date       time.Time  `json:"date"`
	Open       float64    `json:"open"`
	High       float64    `json:"high"`
	Low        float64    `json:"low"`
	Close      float64    `json:"close"`
	Volume     int64      `json:"volume"`
	Indicators Indicators `json:"indicators"`
}

// IsValid checks the bar has a usable close price.
func (b Bar) IsValid() bool {
	return b.Close > 0 && !math.IsNaN(b.Close) && !b.Date.IsZero()
}

// Sentiment is a per-date news sentiment observation for a symbol.
// Score is in [-1, 1]; Confidence reflects how much news backed it.
type Sentiment struct {
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Score      float64   `json:"score"`
	NewsCount  int       `json:"news_count"`
	Confidence float64   `json:"confidence"`
}
