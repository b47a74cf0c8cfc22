// Package backtest replays decision fusion over historical bars and
// reduces the resulting trade history into performance metrics.
package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/core"
	"github.com/fusorlabs/fusor/internal/decision"
	"github.com/fusorlabs/fusor/internal/risk"
	"github.com/fusorlabs/fusor/internal/signal"
	"go.uber.org/zap"
)

// Recorder receives decision and trade events for instrumentation.
type Recorder interface {
	RecordDecision(action string)
	RecordTrade(side string)
}

// Simulator drives the day-by-day simulation: exits are always evaluated
// before new entries, using only information available as of that day.
// One Simulator instance must not be driven by two goroutines at once;
// independent runs are safe in parallel with one instance per worker.
type Simulator struct {
	cfg           config.BacktestConfig
	minConfidence float64
	engine        *decision.Engine
	sizer         *risk.Sizer
	riskMgr       *risk.Manager
	recorder      Recorder
	logger        *zap.Logger
}

// New creates a Simulator from an immutable configuration. The engine,
// sizer and risk manager are constructed once and shared across runs.
func New(cfg *config.Config, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{
		cfg:           cfg.Backtest,
		minConfidence: cfg.Decision.MinConfidence,
		engine:        decision.NewEngine(cfg.Decision, log),
		sizer:         risk.NewSizer(cfg.Risk.RiskPerTrade, cfg.Risk.StopLoss),
		riskMgr:       risk.NewManager(cfg.Risk.StopLoss, cfg.Risk.TakeProfit),
		logger:        log,
	}
}

// WithRecorder attaches a metrics recorder and returns the simulator.
func (s *Simulator) WithRecorder(r Recorder) *Simulator {
	s.recorder = r
	return s
}

// ledger is the mutable simulation state, owned exclusively by one run.
type ledger struct {
	cash      float64
	positions map[string]*risk.Position
	trades    []Trade
	snapshots []Snapshot
}

func (l *ledger) openSymbols() []string {
	syms := make([]string, 0, len(l.positions))
	for s := range l.positions {
		syms = append(syms, s)
	}
	// Deterministic iteration: identical runs must produce identical logs
	sort.Strings(syms)
	return syms
}

// Run simulates the strategy over the bar sequence. Bars must be in
// ascending date order with no duplicates. Fatal conditions (bad bar
// sequence, insufficient usable data) return an error before any
// partial output is produced.
func (s *Simulator) Run(ctx context.Context, symbol string, bars []core.Bar,
	signals signal.Source, sentiment signal.SentimentSource) (*Result, error) {

	if len(bars) == 0 {
		return nil, core.ErrNoData
	}

	usable := 0
	for i, b := range bars {
		if i > 0 && !bars[i-1].Date.Before(b.Date) {
			return nil, core.ErrBadBarSequence
		}
		if b.IsValid() {
			usable++
		}
	}
	if usable < s.cfg.MinDays {
		return nil, core.WrapError(core.ErrInsufficientData, nil)
	}

	s.logger.Info("backtest starting",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Float64("initial_capital", s.cfg.InitialCapital))

	led := &ledger{
		cash:      s.cfg.InitialCapital,
		positions: make(map[string]*risk.Position),
	}
	portfolioValue := s.cfg.InitialCapital

	var lastValid core.Bar
	skipped := 0

	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Warm-up: indicators and signals are not trusted yet
		if i < s.cfg.WarmupBars {
			continue
		}

		if !bar.IsValid() {
			skipped++
			continue
		}

		sym := symbol
		if bar.Symbol != "" {
			sym = bar.Symbol
		}

		pred, err := signals.Predict(ctx, bar)
		if err != nil {
			s.logger.Warn("skipping day: prediction failed",
				zap.Time("date", bar.Date), zap.Error(err))
			skipped++
			continue
		}

		sent, err := sentiment.SentimentFor(ctx, sym, bar.Date)
		if err != nil {
			s.logger.Warn("skipping day: sentiment failed",
				zap.Time("date", bar.Date), zap.Error(err))
			skipped++
			continue
		}

		lastValid = bar

		// EVALUATE_EXITS: risk rules close positions before any entry
		for _, open := range led.openSymbols() {
			pos := led.positions[open]
			check := s.riskMgr.Check(*pos, bar.Close)
			if check.Action.IsClose() {
				s.closePosition(led, pos, bar.Date, bar.Close, check.Reason)
			}
		}

		// EVALUATE_ENTRY
		dec := s.engine.Evaluate(decision.Input{
			Signal:         pred.Class,
			Sentiment:      sent.Score,
			Price:          bar.Close,
			PortfolioValue: portfolioValue,
			Context:        contextFromBar(bar),
		})
		if s.recorder != nil {
			s.recorder.RecordDecision(string(dec.Action))
		}

		if (dec.Action == core.ActionBuy || dec.Action == core.ActionSell) &&
			dec.Confidence >= s.minConfidence {
			s.tryOpen(led, sym, bar, dec, portfolioValue)
		}

		// MARK_TO_MARKET
		positionsValue := 0.0
		for _, open := range led.openSymbols() {
			positionsValue += led.positions[open].MarketValue(bar.Close)
		}
		portfolioValue = led.cash + positionsValue

		led.snapshots = append(led.snapshots, Snapshot{
			Date:                    bar.Date,
			Cash:                    led.cash,
			PositionsValue:          positionsValue,
			TotalValue:              portfolioValue,
			OpenPositions:           len(led.positions),
			CumulativeReturnPercent: (portfolioValue/s.cfg.InitialCapital - 1) * 100,
		})
	}

	// Terminal state: force-close anything still open at the final price
	if lastValid.IsValid() {
		for _, open := range led.openSymbols() {
			pos := led.positions[open]
			s.closePosition(led, pos, lastValid.Date, lastValid.Close,
				"end-of-backtest liquidation")
		}
	}

	result := &Result{
		Symbol:         symbol,
		StartDate:      bars[0].Date,
		EndDate:        bars[len(bars)-1].Date,
		InitialCapital: s.cfg.InitialCapital,
		FinalValue:     led.cash,
		TotalReturnPct: (led.cash/s.cfg.InitialCapital - 1) * 100,
		BarsProcessed:  len(bars),
		DaysSkipped:    skipped,
		Trades:         led.trades,
		Snapshots:      led.snapshots,
	}
	result.Report = Analyze(led.trades, led.snapshots, s.cfg.InitialCapital, led.cash)

	s.logger.Info("backtest finished",
		zap.String("symbol", symbol),
		zap.Float64("final_value", led.cash),
		zap.Float64("total_return_pct", result.TotalReturnPct),
		zap.Int("trades", len(led.trades)),
		zap.Int("days_skipped", skipped))

	return result, nil
}

// tryOpen sizes and opens a position if cash allows and the symbol has
// no position yet. An unaffordable or sub-minimum size is a legitimate
// no-trade outcome, not an error.
func (s *Simulator) tryOpen(led *ledger, sym string, bar core.Bar,
	dec decision.Decision, portfolioValue float64) {

	if _, exists := led.positions[sym]; exists {
		return
	}

	sized, err := s.sizer.Size(portfolioValue, bar.Close, dec.Confidence)
	if err != nil || sized.Shares < 1 {
		return
	}

	commission := sized.Investment * s.cfg.CommissionRate
	totalCost := sized.Investment + commission
	if totalCost > led.cash {
		return
	}

	side := risk.SideLong
	if dec.Action == core.ActionSell {
		side = risk.SideShort
	}

	led.cash -= totalCost
	led.positions[sym] = &risk.Position{
		Symbol:     sym,
		Side:       side,
		Shares:     sized.Shares,
		EntryPrice: bar.Close,
		EntryDate:  bar.Date,
	}

	led.trades = append(led.trades, Trade{
		Date:       bar.Date,
		Symbol:     sym,
		Action:     dec.Action,
		Shares:     sized.Shares,
		Price:      bar.Close,
		GrossValue: sized.Investment,
		Commission: commission,
		Reason:     dec.Reason(),
		CashAfter:  led.cash,
	})

	if s.recorder != nil {
		s.recorder.RecordTrade(string(side))
	}

	s.logger.Debug("position opened",
		zap.String("symbol", sym),
		zap.String("side", string(side)),
		zap.Int64("shares", sized.Shares),
		zap.Float64("price", bar.Close),
		zap.Float64("confidence", dec.Confidence))
}

// closePosition settles a position at the given price, net of
// commission, and removes it from the ledger.
func (s *Simulator) closePosition(led *ledger, pos *risk.Position,
	date time.Time, price float64, reason string) {

	saleValue := pos.MarketValue(price)
	commission := saleValue * s.cfg.CommissionRate
	netProceeds := saleValue - commission

	led.cash += netProceeds

	costBasis := pos.CostBasis()
	pnl := netProceeds - costBasis
	pnlPercent := 0.0
	if costBasis > 0 {
		pnlPercent = pnl / costBasis * 100
	}

	led.trades = append(led.trades, Trade{
		Date:       date,
		Symbol:     pos.Symbol,
		Action:     core.ActionSell,
		Exit:       true,
		Shares:     pos.Shares,
		Price:      price,
		GrossValue: saleValue,
		Commission: commission,
		PnL:        pnl,
		PnLPercent: pnlPercent,
		Reason:     reason,
		CashAfter:  led.cash,
	})

	delete(led.positions, pos.Symbol)

	s.logger.Debug("position closed",
		zap.String("symbol", pos.Symbol),
		zap.Int64("shares", pos.Shares),
		zap.Float64("price", price),
		zap.Float64("pnl", pnl),
		zap.String("reason", reason))
}

// contextFromBar builds the decision context, defaulting missing
// indicator values the way upstream feature pipelines do.
func contextFromBar(bar core.Bar) *decision.Context {
	vol := bar.Indicators.Volatility
	if vol == 0 {
		vol = 0.02
	}
	vr := bar.Indicators.VolumeRatio
	if vr == 0 {
		vr = 1.0
	}
	return &decision.Context{Volatility: vol, VolumeRatio: vr}
}
