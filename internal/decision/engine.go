// Package decision fuses predictive signals with news sentiment into
// trade decisions.
package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/core"
	"go.uber.org/zap"
)

// Context carries optional market context used to adjust confidence.
type Context struct {
	Volatility  float64
	VolumeRatio float64
}

// Input is the per-step input to the engine. It is constructed fresh for
// every time step and never retained.
type Input struct {
	Signal         core.SignalClass
	Sentiment      float64 // [-1, 1]
	Price          float64
	PortfolioValue float64
	Context        *Context
}

// Decision is the fused output. Reasoning holds the triggering rule
// description followed by any adjustment notes, in order.
type Decision struct {
	Action     core.Action `json:"action"`
	Confidence float64     `json:"confidence"`
	Reasoning  []string    `json:"reasoning"`
}

// Reason joins the reasoning parts for display.
func (d Decision) Reason() string {
	return strings.Join(d.Reasoning, "; ")
}

// Engine turns a normalized signal plus a sentiment score into a decision.
// It holds only immutable thresholds; Evaluate is a pure function of its
// input.
type Engine struct {
	positive float64
	negative float64
	logger   *zap.Logger
}

// NewEngine creates an engine with the given fusion thresholds.
func NewEngine(cfg config.DecisionConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		positive: cfg.SentimentPositive,
		negative: cfg.SentimentNegative,
		logger:   log,
	}
}

// errFallback is the fail-closed decision: internal faults never escape
// the engine boundary.
func errFallback() Decision {
	return Decision{
		Action:     core.ActionHold,
		Confidence: 0,
		Reasoning:  []string{"error fallback"},
	}
}

// Evaluate applies the fusion rule table, first match wins.
func (e *Engine) Evaluate(in Input) (out Decision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("decision evaluation panicked", zap.Any("cause", r))
			out = errFallback()
		}
	}()

	if math.IsNaN(in.Sentiment) || math.IsInf(in.Sentiment, 0) {
		return errFallback()
	}

	sent := in.Sentiment
	action := core.ActionHold
	confidence := 0.5
	var reasoning []string

	switch {
	// Strong buy: signal and sentiment agree above the positive band
	case in.Signal == core.SignalLong && sent >= e.positive:
		action = core.ActionBuy
		confidence = 0.8 + math.Min(0.2, (sent-e.positive)*2)
		reasoning = append(reasoning, fmt.Sprintf("ML buy signal + positive news sentiment (%.2f)", sent))

	// Strong sell: signal and sentiment agree below the negative band
	case in.Signal == core.SignalShort && sent <= e.negative:
		action = core.ActionSell
		confidence = 0.8 + math.Min(0.2, math.Abs(sent-e.negative)*2)
		reasoning = append(reasoning, fmt.Sprintf("ML sell signal + negative news sentiment (%.2f)", sent))

	// Moderate buy: sentiment at least neutral
	case in.Signal == core.SignalLong && sent >= 0:
		action = core.ActionBuy
		confidence = 0.6 + sent*0.2
		reasoning = append(reasoning, fmt.Sprintf("ML buy signal + neutral/positive news sentiment (%.2f)", sent))

	// Moderate sell: sentiment at most neutral
	case in.Signal == core.SignalShort && sent <= 0:
		action = core.ActionSell
		confidence = 0.6 + math.Abs(sent)*0.2
		reasoning = append(reasoning, fmt.Sprintf("ML sell signal + neutral/negative news sentiment (%.2f)", sent))

	// Conflicting evidence: stand aside
	case in.Signal == core.SignalLong && sent < e.negative:
		confidence = 0.3
		reasoning = append(reasoning, fmt.Sprintf("conflicting signals: ML buy vs negative news (%.2f)", sent))

	case in.Signal == core.SignalShort && sent > e.positive:
		confidence = 0.3
		reasoning = append(reasoning, fmt.Sprintf("conflicting signals: ML sell vs positive news (%.2f)", sent))

	// Neutral signal: only very strong sentiment moves the needle
	case in.Signal == core.SignalNeutral && sent >= e.positive+0.3:
		action = core.ActionBuy
		confidence = 0.6
		reasoning = append(reasoning, fmt.Sprintf("ML hold but strongly positive news (%.2f)", sent))

	case in.Signal == core.SignalNeutral && sent <= e.negative-0.3:
		action = core.ActionSell
		confidence = 0.6
		reasoning = append(reasoning, fmt.Sprintf("ML hold but strongly negative news (%.2f)", sent))

	case in.Signal == core.SignalNeutral:
		confidence = 0.4
		reasoning = append(reasoning, fmt.Sprintf("ML hold + neutral news sentiment (%.2f)", sent))

	default:
		// Long/short signal with sentiment inside the opposing neutral band
		reasoning = append(reasoning, fmt.Sprintf("no decisive alignment between signal and sentiment (%.2f)", sent))
	}

	if in.Context != nil {
		confidence, reasoning = adjustForContext(confidence, reasoning, in.Context)
	}

	// Clamp so sizing never sees a degenerate confidence
	confidence = math.Max(0.1, math.Min(1.0, confidence))

	out = Decision{Action: action, Confidence: confidence, Reasoning: reasoning}

	e.logger.Debug("decision evaluated",
		zap.String("signal", in.Signal.String()),
		zap.Float64("sentiment", sent),
		zap.String("action", string(out.Action)),
		zap.Float64("confidence", out.Confidence))

	return out
}

// adjustForContext scales confidence for volatility and volume conditions.
func adjustForContext(confidence float64, reasoning []string, ctx *Context) (float64, []string) {
	if ctx.Volatility > 0.05 {
		confidence *= 0.8
		reasoning = append(reasoning, "confidence reduced on high volatility")
	}

	if ctx.VolumeRatio < 0.5 {
		confidence *= 0.9
		reasoning = append(reasoning, "confidence reduced on thin volume")
	} else if ctx.VolumeRatio > 2.0 {
		confidence = math.Min(1.0, confidence*1.1)
		reasoning = append(reasoning, "confidence boosted on heavy volume")
	}

	return confidence, reasoning
}
