package signal

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/fusorlabs/fusor/internal/core"
)

// SimulatedSentiment is a deterministic stand-in for a real news
// sentiment feed: the score for a given symbol and date is always the
// same, built from a slow trend component plus seeded noise. Useful for
// backtests when no historical sentiment data is available.
type SimulatedSentiment struct{}

// NewSimulatedSentiment creates a simulated sentiment source.
func NewSimulatedSentiment() *SimulatedSentiment {
	return &SimulatedSentiment{}
}

// SentimentFor returns the deterministic simulated score for the date.
func (s *SimulatedSentiment) SentimentFor(_ context.Context, symbol string, date time.Time) (core.Sentiment, error) {
	seed := seedFor(symbol, date)
	rng := rand.New(rand.NewSource(seed))

	day := float64(date.Unix() / 86400)
	trend := math.Sin(day/10) * 0.3
	noise := rng.NormFloat64() * 0.2

	score := clip(trend+noise, -1, 1)

	newsCount := 1 + rng.Intn(9)
	confidence := math.Min(1.0, float64(newsCount)/5.0)

	return core.Sentiment{
		Symbol:     symbol,
		Date:       date,
		Score:      score,
		NewsCount:  newsCount,
		Confidence: confidence,
	}, nil
}

func seedFor(symbol string, date time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(date.Format("2006-01-02")))
	return int64(h.Sum64() % 1000000)
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// IndicatorSource derives a tri-state prediction from a bar's attached
// indicators. It stands in for a trained model when only price history
// is available: oversold momentum favors long, overbought weakness
// favors short.
type IndicatorSource struct{}

// NewIndicatorSource creates an indicator-rule signal source.
func NewIndicatorSource() *IndicatorSource {
	return &IndicatorSource{}
}

// Predict scores the bar's indicators and maps the vote to a class.
func (s *IndicatorSource) Predict(_ context.Context, bar core.Bar) (Prediction, error) {
	ind := bar.Indicators

	vote := 0
	if ind.RSI > 0 && ind.RSI < 30 {
		vote++
	}
	if ind.RSI > 70 {
		vote--
	}
	if ind.MACDHist > 0 {
		vote++
	} else if ind.MACDHist < 0 {
		vote--
	}
	if ind.SMA20 > 0 {
		if bar.Close > ind.SMA20 {
			vote++
		} else {
			vote--
		}
	}

	class := core.SignalNeutral
	switch {
	case vote >= 2:
		class = core.SignalLong
	case vote <= -2:
		class = core.SignalShort
	}

	return Prediction{
		Class:       class,
		Probability: math.Min(1.0, math.Abs(float64(vote))/3.0),
	}, nil
}
