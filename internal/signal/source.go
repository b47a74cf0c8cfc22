// Package signal defines the external signal and sentiment collaborator
// interfaces consumed by the backtest simulator.
package signal

import (
	"context"
	"time"

	"github.com/fusorlabs/fusor/internal/core"
)

// Prediction is a model's view of a single bar: a tri-state class plus
// an optional probability proxy in [0, 1].
type Prediction struct {
	Class       core.SignalClass `json:"class"`
	Probability float64          `json:"probability"`
}

// Source produces a prediction for a bar. Implementations wrap trained
// models, remote inference services or simple indicator rules; the
// simulator treats them uniformly.
type Source interface {
	Predict(ctx context.Context, bar core.Bar) (Prediction, error)
}

// SentimentSource resolves a news sentiment observation for a symbol
// and date. Scores are in [-1, 1].
type SentimentSource interface {
	SentimentFor(ctx context.Context, symbol string, date time.Time) (core.Sentiment, error)
}
