// Package sentiment scores daily news sentiment for a symbol, either
// through an LLM provider or a deterministic simulated source.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/core"
	"github.com/fusorlabs/fusor/internal/llm"
	"github.com/fusorlabs/fusor/internal/llm/factory"
	"github.com/fusorlabs/fusor/internal/signal"
	"go.uber.org/zap"
)

const systemPrompt = `You are a financial news analyst. Given a stock symbol and a date,
estimate the aggregate news sentiment for that symbol on that day.
Respond with a JSON object only: {"score": <float -1.0 to 1.0>,
"news_count": <int>, "confidence": <float 0.0 to 1.0>}.`

// Scorer resolves sentiment through an LLM provider. Scores are cached
// per symbol and date so replaying the same range costs one call per day.
type Scorer struct {
	provider llm.Provider
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]core.Sentiment
}

// NewScorer wraps an LLM provider as a sentiment source.
func NewScorer(provider llm.Provider, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{
		provider: provider,
		logger:   log,
		cache:    make(map[string]core.Sentiment),
	}
}

type scorePayload struct {
	Score      float64 `json:"score"`
	NewsCount  int     `json:"news_count"`
	Confidence float64 `json:"confidence"`
}

// SentimentFor asks the provider for a sentiment estimate. Scores are
// clipped to [-1, 1] and confidence to [0, 1] regardless of what the
// model returns.
func (s *Scorer) SentimentFor(ctx context.Context, symbol string, date time.Time) (core.Sentiment, error) {
	key := symbol + "|" + date.Format("2006-01-02")

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	res, err := s.provider.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      fmt.Sprintf("Symbol: %s\nDate: %s", symbol, date.Format("2006-01-02")),
		MaxTokens:   256,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return core.Sentiment{}, core.WrapError(core.ErrSentimentFailed, err)
	}

	payload, err := parsePayload(res.Text)
	if err != nil {
		s.logger.Warn("unparseable sentiment response",
			zap.String("symbol", symbol),
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return core.Sentiment{}, core.WrapError(core.ErrSentimentFailed, err)
	}

	sent := core.Sentiment{
		Symbol:     symbol,
		Date:       date,
		Score:      clip(payload.Score, -1, 1),
		NewsCount:  payload.NewsCount,
		Confidence: clip(payload.Confidence, 0, 1),
	}

	s.mu.Lock()
	s.cache[key] = sent
	s.mu.Unlock()

	return sent, nil
}

// parsePayload tolerates prose around the JSON object, which some
// providers emit even when asked not to.
func parsePayload(text string) (scorePayload, error) {
	var p scorePayload

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return p, fmt.Errorf("no JSON object in response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return p, fmt.Errorf("decode sentiment payload: %w", err)
	}
	return p, nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NewSource builds the configured sentiment source: the deterministic
// simulated source, or an LLM-backed scorer.
func NewSource(cfg config.SentimentConfig, log *zap.Logger) (signal.SentimentSource, error) {
	switch cfg.Mode {
	case "", "simulated":
		return signal.NewSimulatedSentiment(), nil
	case "llm":
		provider, err := factory.New(cfg)
		if err != nil {
			return nil, core.WrapError(core.ErrSentimentFailed, err)
		}
		return NewScorer(provider, log), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown sentiment mode: %s", cfg.Mode))
	}
}
