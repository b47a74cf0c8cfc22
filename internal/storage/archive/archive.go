// Package archive persists completed backtest results to cold storage,
// locally or in an S3-compatible bucket.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fusorlabs/fusor/internal/backtest"
	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/core"
)

// Backend is a flat blob store keyed by slash-separated paths.
type Backend interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// Archive stores backtest results as JSON documents. Keys are derived
// from the symbol and the simulated date range, so re-running the same
// backtest overwrites its previous result rather than accumulating.
type Archive struct {
	backend Backend
}

// New builds the configured archive backend.
func New(cfg config.ArchiveConfig) (*Archive, error) {
	switch cfg.Type {
	case "", "localfs":
		backend, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Archive{backend: backend}, nil
	case "s3":
		backend, err := NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		return &Archive{backend: backend}, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %s", cfg.Type))
	}
}

// NewWithBackend wraps an existing backend, mainly for tests.
func NewWithBackend(b Backend) *Archive {
	return &Archive{backend: b}
}

// ResultKey is the storage key for a result document.
func ResultKey(res *backtest.Result) string {
	return fmt.Sprintf("backtests/%s/%s_%s.json",
		res.Symbol,
		res.StartDate.Format("20060102"),
		res.EndDate.Format("20060102"))
}

// SaveResult writes the result document and returns its key.
func (a *Archive) SaveResult(ctx context.Context, res *backtest.Result) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}

	key := ResultKey(res)
	if err := a.backend.Write(ctx, key, data); err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}
	return key, nil
}

// LoadResult reads a result document back by key.
func (a *Archive) LoadResult(ctx context.Context, key string) (*backtest.Result, error) {
	data, err := a.backend.Read(ctx, key)
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}

	var res backtest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return &res, nil
}

// ListResults returns the stored result keys for a symbol, sorted so
// the most recent date range comes last. An empty symbol lists all.
func (a *Archive) ListResults(ctx context.Context, symbol string) ([]string, error) {
	prefix := "backtests/"
	if symbol != "" {
		prefix += symbol + "/"
	}

	keys, err := a.backend.List(ctx, prefix)
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}

	out := keys[:0]
	for _, k := range keys {
		if strings.HasSuffix(k, ".json") {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// DeleteResult removes a stored result.
func (a *Archive) DeleteResult(ctx context.Context, key string) error {
	if err := a.backend.Delete(ctx, key); err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	return nil
}
