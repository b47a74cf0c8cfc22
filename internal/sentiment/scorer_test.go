package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/core"
	"github.com/fusorlabs/fusor/internal/llm"
)

type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, _ llm.Request) (*llm.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Result{Text: f.text}, nil
}

var testDate = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func TestScorer_ParsesPayload(t *testing.T) {
	p := &fakeProvider{text: `{"score": 0.45, "news_count": 7, "confidence": 0.8}`}
	s := NewScorer(p, nil)

	sent, err := s.SentimentFor(context.Background(), "AAPL", testDate)
	if err != nil {
		t.Fatalf("SentimentFor: %v", err)
	}
	if sent.Score != 0.45 || sent.NewsCount != 7 || sent.Confidence != 0.8 {
		t.Errorf("sentiment = %+v", sent)
	}
	if sent.Symbol != "AAPL" || !sent.Date.Equal(testDate) {
		t.Errorf("identity fields = %q %v", sent.Symbol, sent.Date)
	}
}

func TestScorer_ToleratesSurroundingProse(t *testing.T) {
	p := &fakeProvider{text: "Here is the analysis:\n{\"score\": -0.3, \"news_count\": 2, \"confidence\": 0.4}\nDone."}
	s := NewScorer(p, nil)

	sent, err := s.SentimentFor(context.Background(), "TSLA", testDate)
	if err != nil {
		t.Fatalf("SentimentFor: %v", err)
	}
	if sent.Score != -0.3 {
		t.Errorf("score = %v", sent.Score)
	}
}

func TestScorer_ClipsOutOfRangeValues(t *testing.T) {
	p := &fakeProvider{text: `{"score": 3.5, "news_count": 1, "confidence": 1.8}`}
	s := NewScorer(p, nil)

	sent, err := s.SentimentFor(context.Background(), "AAPL", testDate)
	if err != nil {
		t.Fatalf("SentimentFor: %v", err)
	}
	if sent.Score != 1.0 {
		t.Errorf("score should clip to 1.0, got %v", sent.Score)
	}
	if sent.Confidence != 1.0 {
		t.Errorf("confidence should clip to 1.0, got %v", sent.Confidence)
	}
}

func TestScorer_CachesPerSymbolDate(t *testing.T) {
	p := &fakeProvider{text: `{"score": 0.1, "news_count": 1, "confidence": 0.2}`}
	s := NewScorer(p, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.SentimentFor(ctx, "AAPL", testDate); err != nil {
			t.Fatalf("SentimentFor: %v", err)
		}
	}
	if p.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", p.calls)
	}

	if _, err := s.SentimentFor(ctx, "AAPL", testDate.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("SentimentFor: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("different date should miss the cache, calls = %d", p.calls)
	}
}

func TestScorer_ProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	s := NewScorer(p, nil)

	_, err := s.SentimentFor(context.Background(), "AAPL", testDate)
	if !errors.Is(err, core.ErrSentimentFailed) {
		t.Fatalf("expected ErrSentimentFailed, got %v", err)
	}
}

func TestScorer_GarbageResponse(t *testing.T) {
	p := &fakeProvider{text: "I cannot help with that."}
	s := NewScorer(p, nil)

	_, err := s.SentimentFor(context.Background(), "AAPL", testDate)
	if !errors.Is(err, core.ErrSentimentFailed) {
		t.Fatalf("expected ErrSentimentFailed, got %v", err)
	}
}

func TestNewSource_Simulated(t *testing.T) {
	src, err := NewSource(config.SentimentConfig{Mode: "simulated"}, nil)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}

	a, err := src.SentimentFor(context.Background(), "AAPL", testDate)
	if err != nil {
		t.Fatalf("SentimentFor: %v", err)
	}
	b, _ := src.SentimentFor(context.Background(), "AAPL", testDate)
	if a.Score != b.Score {
		t.Error("simulated sentiment must be deterministic")
	}
}

func TestNewSource_UnknownMode(t *testing.T) {
	_, err := NewSource(config.SentimentConfig{Mode: "astrology"}, nil)
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestNewSource_LLMRequiresProvider(t *testing.T) {
	_, err := NewSource(config.SentimentConfig{Mode: "llm"}, nil)
	if !errors.Is(err, core.ErrSentimentFailed) {
		t.Fatalf("expected ErrSentimentFailed for missing provider config, got %v", err)
	}
}
