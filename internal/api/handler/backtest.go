// Package handler implements the backtest REST handlers.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fusorlabs/fusor/internal/api/job"
	"github.com/fusorlabs/fusor/internal/api/response"
	"github.com/fusorlabs/fusor/internal/backtest"
	"github.com/fusorlabs/fusor/internal/core"
	"github.com/fusorlabs/fusor/internal/marketdata"
	"github.com/fusorlabs/fusor/internal/metrics"
	"github.com/fusorlabs/fusor/internal/signal"
	"github.com/fusorlabs/fusor/internal/storage/archive"
	"go.uber.org/zap"
)

const backtestTimeout = 5 * time.Minute

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Symbol   string `json:"symbol"`
	DataPath string `json:"data_path"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore  *job.Store
	simulator *backtest.Simulator
	signals   signal.Source
	sentiment signal.SentimentSource
	archive   *archive.Archive
	registry  *metrics.Registry
	logger    *zap.Logger
}

// NewBacktestHandler creates a new backtest handler. The archive and
// registry may be nil; results are then neither persisted nor counted.
func NewBacktestHandler(
	jobStore *job.Store,
	simulator *backtest.Simulator,
	signals signal.Source,
	sentiment signal.SentimentSource,
	arc *archive.Archive,
	registry *metrics.Registry,
	logger *zap.Logger,
) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		jobStore:  jobStore,
		simulator: simulator,
		signals:   signals,
		sentiment: sentiment,
		archive:   arc,
		registry:  registry,
		logger:    logger,
	}
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	if req.Symbol == "" || req.DataPath == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, nil))
		return
	}

	var start, end time.Time
	var err error
	if req.Start != "" {
		if start, err = time.Parse("2006-01-02", req.Start); err != nil {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrConfigInvalid, err))
			return
		}
	}
	if req.End != "" {
		if end, err = time.Parse("2006-01-02", req.End); err != nil {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrConfigInvalid, err))
			return
		}
	}

	j := h.jobStore.Create(req.Symbol)

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	go h.runBacktest(jobID, req.Symbol, req.DataPath, start, end)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID, symbol, dataPath string, start, end time.Time) {
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})
	h.trackJobs()

	began := time.Now()
	result, err := h.execute(symbol, dataPath, start, end)
	elapsed := time.Since(began).Seconds()

	if err != nil {
		h.logger.Warn("backtest job failed",
			zap.String("job_id", jobID),
			zap.String("symbol", symbol),
			zap.Error(err))
		if h.registry != nil {
			h.registry.RecordBacktest("failed", elapsed)
		}
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = core.WrapError(core.ErrSimulationFailed, err)
		})
		h.trackJobs()
		return
	}

	if h.registry != nil {
		h.registry.RecordBacktest("completed", elapsed)
	}
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = result
	})
	h.trackJobs()
}

func (h *BacktestHandler) execute(symbol, dataPath string, start, end time.Time) (*backtest.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	bars, err := marketdata.LoadCSV(dataPath, symbol)
	if err != nil {
		return nil, err
	}
	bars = filterRange(bars, start, end)

	result, err := h.simulator.Run(ctx, symbol, bars, h.signals, h.sentiment)
	if err != nil {
		return nil, err
	}

	if h.archive != nil {
		key, err := h.archive.SaveResult(ctx, result)
		if err != nil {
			// The result is still returned to the client
			h.logger.Warn("archiving result failed",
				zap.String("symbol", symbol), zap.Error(err))
		} else {
			h.logger.Info("result archived", zap.String("key", key))
		}
	}

	return result, nil
}

func (h *BacktestHandler) trackJobs() {
	if h.registry != nil {
		h.registry.SetJobsActive(h.jobStore.ActiveCount())
	}
}

func filterRange(bars []core.Bar, start, end time.Time) []core.Bar {
	if start.IsZero() && end.IsZero() {
		return bars
	}
	out := bars[:0:0]
	for _, b := range bars {
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id": j.ID,
		"symbol": j.Symbol,
		"status": j.Status,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

// List returns all known jobs.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.jobStore.List())
}

// ListResults returns archived result keys, optionally for one symbol.
func (h *BacktestHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		response.JSON(w, http.StatusOK, []string{})
		return
	}

	keys, err := h.archive.ListResults(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.JSON(w, http.StatusOK, keys)
}
