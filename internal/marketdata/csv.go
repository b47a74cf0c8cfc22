// Package marketdata loads historical bar series from local files.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fusorlabs/fusor/internal/core"
)

// Required CSV columns. Indicator columns are optional and matched by
// header name; unknown columns are ignored.
var requiredColumns = []string{"date", "open", "high", "low", "close", "volume"}

var indicatorColumns = map[string]func(*core.Indicators, float64){
	"sma_20":        func(ind *core.Indicators, v float64) { ind.SMA20 = v },
	"sma_50":        func(ind *core.Indicators, v float64) { ind.SMA50 = v },
	"rsi":           func(ind *core.Indicators, v float64) { ind.RSI = v },
	"macd_hist":     func(ind *core.Indicators, v float64) { ind.MACDHist = v },
	"bb_upper":      func(ind *core.Indicators, v float64) { ind.BBUpper = v },
	"bb_lower":      func(ind *core.Indicators, v float64) { ind.BBLower = v },
	"volatility":    func(ind *core.Indicators, v float64) { ind.Volatility = v },
	"volume_ratio":  func(ind *core.Indicators, v float64) { ind.VolumeRatio = v },
	"volume_change": func(ind *core.Indicators, v float64) { ind.VolumeChange = v },
}

// LoadCSV reads a daily bar series for one symbol from a CSV file. The
// first row must be a header naming at least the OHLCV columns. Rows
// must be in ascending date order with no duplicate dates.
func LoadCSV(path, symbol string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}
	defer f.Close()

	bars, err := ReadCSV(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV parses bars from an open CSV stream.
func ReadCSV(r io.Reader, symbol string) ([]core.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, core.WrapError(core.ErrNoData,
				fmt.Errorf("missing column %q", name))
		}
	}

	var bars []core.Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, core.WrapError(core.ErrNoData,
				fmt.Errorf("line %d: %w", line, err))
		}

		bar, err := parseBar(record, cols, symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if n := len(bars); n > 0 && !bars[n-1].Date.Before(bar.Date) {
			return nil, core.WrapError(core.ErrBadBarSequence,
				fmt.Errorf("line %d: date %s not after %s", line,
					bar.Date.Format("2006-01-02"), bars[n-1].Date.Format("2006-01-02")))
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, core.ErrNoData
	}
	return bars, nil
}

func parseBar(record []string, cols map[string]int, symbol string) (core.Bar, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := parseDate(field("date"))
	if err != nil {
		return core.Bar{}, err
	}

	bar := core.Bar{Symbol: symbol, Date: date}

	for name, dst := range map[string]*float64{
		"open": &bar.Open, "high": &bar.High, "low": &bar.Low, "close": &bar.Close,
	} {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("bad %s value %q", name, field(name))
		}
		*dst = v
	}

	vol, err := strconv.ParseFloat(field("volume"), 64)
	if err != nil {
		return core.Bar{}, fmt.Errorf("bad volume value %q", field("volume"))
	}
	bar.Volume = int64(vol)

	for name, set := range indicatorColumns {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			continue
		}
		raw := strings.TrimSpace(record[i])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("bad %s value %q", name, raw)
		}
		set(&bar.Indicators, v)
	}

	return bar, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006/01/02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date value %q", s)
}
