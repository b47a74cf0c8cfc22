package decision

import (
	"math"
	"reflect"
	"testing"

	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/core"
)

func testEngine() *Engine {
	return NewEngine(config.DecisionConfig{
		SentimentPositive: 0.2,
		SentimentNegative: -0.2,
		MinConfidence:     0.5,
	}, nil)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_RuleTable(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name       string
		signal     core.SignalClass
		sentiment  float64
		wantAction core.Action
		wantConf   float64
	}{
		{"strong buy agreement", core.SignalLong, 0.4, core.ActionBuy, 1.0},        // 0.8 + min(0.2, 0.4)
		{"strong buy at threshold", core.SignalLong, 0.2, core.ActionBuy, 0.8},     // 0.8 + 0
		{"strong sell agreement", core.SignalShort, -0.4, core.ActionSell, 1.0},    // 0.8 + min(0.2, 0.4)
		{"strong sell at threshold", core.SignalShort, -0.2, core.ActionSell, 0.8}, // 0.8 + 0
		{"moderate buy", core.SignalLong, 0.1, core.ActionBuy, 0.62},               // 0.6 + 0.02
		{"moderate buy at zero", core.SignalLong, 0.0, core.ActionBuy, 0.6},        //
		{"moderate sell", core.SignalShort, -0.1, core.ActionSell, 0.62},           // 0.6 + 0.02
		{"conflict buy vs negative news", core.SignalLong, -0.3, core.ActionHold, 0.3},
		{"conflict sell vs positive news", core.SignalShort, 0.3, core.ActionHold, 0.3},
		{"neutral with strong positive news", core.SignalNeutral, 0.55, core.ActionBuy, 0.6},
		{"neutral with strong negative news", core.SignalNeutral, -0.55, core.ActionSell, 0.6},
		{"neutral with neutral news", core.SignalNeutral, 0.1, core.ActionHold, 0.4},
		{"long signal in negative band", core.SignalLong, -0.1, core.ActionHold, 0.5},
		{"short signal in positive band", core.SignalShort, 0.1, core.ActionHold, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(Input{Signal: tt.signal, Sentiment: tt.sentiment, Price: 100, PortfolioValue: 10000})
			if got.Action != tt.wantAction {
				t.Errorf("action = %v, want %v", got.Action, tt.wantAction)
			}
			if !almostEqual(got.Confidence, tt.wantConf) {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if len(got.Reasoning) == 0 {
				t.Error("expected reasoning")
			}
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := testEngine()
	in := Input{
		Signal:         core.SignalLong,
		Sentiment:      0.35,
		Price:          150,
		PortfolioValue: 10000,
		Context:        &Context{Volatility: 0.03, VolumeRatio: 1.2},
	}

	first := e.Evaluate(in)
	second := e.Evaluate(in)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different decisions: %+v vs %+v", first, second)
	}
}

func TestEvaluate_ContextAdjustments(t *testing.T) {
	e := testEngine()
	base := Input{Signal: core.SignalLong, Sentiment: 0.1, Price: 100, PortfolioValue: 10000}

	// Baseline: 0.62
	plain := e.Evaluate(base)
	if !almostEqual(plain.Confidence, 0.62) {
		t.Fatalf("baseline confidence = %v, want 0.62", plain.Confidence)
	}

	highVol := base
	highVol.Context = &Context{Volatility: 0.06, VolumeRatio: 1.0}
	if got := e.Evaluate(highVol); !almostEqual(got.Confidence, 0.62*0.8) {
		t.Errorf("high volatility confidence = %v, want %v", got.Confidence, 0.62*0.8)
	}

	thinVolume := base
	thinVolume.Context = &Context{Volatility: 0.02, VolumeRatio: 0.4}
	if got := e.Evaluate(thinVolume); !almostEqual(got.Confidence, 0.62*0.9) {
		t.Errorf("thin volume confidence = %v, want %v", got.Confidence, 0.62*0.9)
	}

	heavyVolume := base
	heavyVolume.Context = &Context{Volatility: 0.02, VolumeRatio: 2.5}
	if got := e.Evaluate(heavyVolume); !almostEqual(got.Confidence, math.Min(1.0, 0.62*1.1)) {
		t.Errorf("heavy volume confidence = %v, want %v", got.Confidence, 0.62*1.1)
	}

	// Boost is capped at 1.0
	strong := Input{Signal: core.SignalLong, Sentiment: 0.4, Price: 100, PortfolioValue: 10000,
		Context: &Context{Volatility: 0.02, VolumeRatio: 3.0}}
	if got := e.Evaluate(strong); got.Confidence > 1.0 {
		t.Errorf("confidence %v exceeds 1.0 cap", got.Confidence)
	}
}

func TestEvaluate_ConfidenceBounds(t *testing.T) {
	e := testEngine()

	signals := []core.SignalClass{core.SignalLong, core.SignalShort, core.SignalNeutral}
	for _, sig := range signals {
		for sent := -1.0; sent <= 1.0; sent += 0.05 {
			got := e.Evaluate(Input{Signal: sig, Sentiment: sent, Price: 100, PortfolioValue: 10000,
				Context: &Context{Volatility: 0.08, VolumeRatio: 0.3}})
			if got.Confidence < 0.1 || got.Confidence > 1.0 {
				t.Fatalf("signal=%v sentiment=%v: confidence %v out of [0.1, 1.0]", sig, sent, got.Confidence)
			}
		}
	}
}

func TestEvaluate_ErrorFallback(t *testing.T) {
	e := testEngine()

	for _, sent := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		got := e.Evaluate(Input{Signal: core.SignalLong, Sentiment: sent, Price: 100, PortfolioValue: 10000})
		if got.Action != core.ActionHold {
			t.Errorf("sentiment %v: action = %v, want HOLD", sent, got.Action)
		}
		if got.Confidence != 0 {
			t.Errorf("sentiment %v: confidence = %v, want 0", sent, got.Confidence)
		}
		if got.Reason() != "error fallback" {
			t.Errorf("sentiment %v: reason = %q", sent, got.Reason())
		}
	}
}

func TestDecision_Reason(t *testing.T) {
	d := Decision{Reasoning: []string{"ML buy signal", "confidence reduced on high volatility"}}
	want := "ML buy signal; confidence reduced on high volatility"
	if got := d.Reason(); got != want {
		t.Errorf("Reason() = %q, want %q", got, want)
	}
}
