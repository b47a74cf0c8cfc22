package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fusorlabs/fusor/internal/backtest"
	"github.com/fusorlabs/fusor/internal/logger"
	"github.com/fusorlabs/fusor/internal/marketdata"
	"github.com/fusorlabs/fusor/internal/sentiment"
	sig "github.com/fusorlabs/fusor/internal/signal"
	"github.com/fusorlabs/fusor/internal/storage/archive"
	"github.com/spf13/cobra"
)

var (
	backtestSymbol string
	backtestData   string
	backtestFrom   string
	backtestTo     string
	backtestSave   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest over historical bars",
	Long:  "Replay the decision engine over a CSV bar series and print performance statistics",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestData, "data", "", "CSV file with daily bars (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "Archive the result")

	backtestCmd.MarkFlagRequired("symbol")
	backtestCmd.MarkFlagRequired("data")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	bars, err := marketdata.LoadCSV(backtestData, backtestSymbol)
	if err != nil {
		return fmt.Errorf("loading bars: %w", err)
	}

	if backtestFrom != "" || backtestTo != "" {
		var from, to time.Time
		if backtestFrom != "" {
			if from, err = time.Parse("2006-01-02", backtestFrom); err != nil {
				return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
			}
		}
		if backtestTo != "" {
			if to, err = time.Parse("2006-01-02", backtestTo); err != nil {
				return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
			}
		}
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			return fmt.Errorf("end date must be after start date")
		}

		kept := bars[:0]
		for _, b := range bars {
			if !from.IsZero() && b.Date.Before(from) {
				continue
			}
			if !to.IsZero() && b.Date.After(to) {
				continue
			}
			kept = append(kept, b)
		}
		bars = kept
	}

	sentimentSource, err := sentiment.NewSource(cfg.Sentiment, log)
	if err != nil {
		return fmt.Errorf("creating sentiment source: %w", err)
	}

	sim := backtest.New(cfg, log)
	result, err := sim.Run(cmd.Context(), backtestSymbol, bars,
		sig.NewIndicatorSource(), sentimentSource)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printResult(result)

	if backtestSave {
		arc, err := archive.New(cfg.Archive)
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		key, err := arc.SaveResult(ctx, result)
		if err != nil {
			return fmt.Errorf("archiving result: %w", err)
		}
		fmt.Printf("\nResult archived: %s\n", key)
	}

	return nil
}

func printResult(res *backtest.Result) {
	fmt.Println("=== FUSOR Backtest ===")
	fmt.Printf("Symbol:   %s\n", res.Symbol)
	fmt.Printf("Period:   %s to %s\n",
		res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"))
	fmt.Printf("Bars:     %d (%d skipped)\n", res.BarsProcessed, res.DaysSkipped)
	fmt.Println()
	fmt.Printf("Initial capital:  %12.2f\n", res.InitialCapital)
	fmt.Printf("Final value:      %12.2f\n", res.FinalValue)
	fmt.Printf("Total return:     %11.2f%%\n", res.TotalReturnPct)

	r := res.Report
	if r == nil {
		return
	}
	fmt.Printf("Annualized:       %11.2f%%\n", r.AnnualizedPct)
	fmt.Println()
	fmt.Printf("Trades:           %6d (%d wins / %d losses)\n",
		r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Printf("Win rate:         %11.2f%%\n", r.WinRatePct)
	fmt.Printf("Profit factor:    %12.2f\n", r.ProfitFactor)
	fmt.Printf("Max drawdown:     %11.2f%%\n", r.MaxDrawdownPct)
	fmt.Printf("Sharpe ratio:     %12.2f\n", r.SharpeRatio)
	fmt.Printf("Commission paid:  %12.2f\n", r.TotalCommission)
	if r.Grade != "" {
		fmt.Println()
		fmt.Printf("Score: %d/100  Grade: %s\n", r.Score, r.Grade)
	}
}
