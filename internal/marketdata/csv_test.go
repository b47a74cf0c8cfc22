package marketdata

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fusorlabs/fusor/internal/core"
)

const sampleCSV = `date,open,high,low,close,volume,rsi,volatility
2024-01-02,100,102,99,101,1500000,55.2,0.015
2024-01-03,101,103,100,102.5,1600000,58.1,0.016
2024-01-04,102.5,104,101,103,1400000,60.0,0.017
`

func TestReadCSV(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader(sampleCSV), "AAPL")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}

	b := bars[1]
	if b.Symbol != "AAPL" {
		t.Errorf("symbol = %q", b.Symbol)
	}
	if !b.Date.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", b.Date)
	}
	if b.Close != 102.5 || b.Volume != 1600000 {
		t.Errorf("close/volume = %v/%v", b.Close, b.Volume)
	}
	if b.Indicators.RSI != 58.1 || b.Indicators.Volatility != 0.016 {
		t.Errorf("indicators = %+v", b.Indicators)
	}
	// Columns absent from the file stay zero
	if b.Indicators.SMA20 != 0 {
		t.Errorf("sma20 should be zero, got %v", b.Indicators.SMA20)
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("date,open,high,low,volume\n2024-01-02,1,1,1,1\n"), "AAPL")
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData for missing close column, got %v", err)
	}
}

func TestReadCSV_OutOfOrderDates(t *testing.T) {
	csv := `date,open,high,low,close,volume
2024-01-03,100,102,99,101,1000
2024-01-02,101,103,100,102,1000
`
	_, err := ReadCSV(strings.NewReader(csv), "AAPL")
	if !errors.Is(err, core.ErrBadBarSequence) {
		t.Fatalf("expected ErrBadBarSequence, got %v", err)
	}
}

func TestReadCSV_DuplicateDates(t *testing.T) {
	csv := `date,open,high,low,close,volume
2024-01-02,100,102,99,101,1000
2024-01-02,101,103,100,102,1000
`
	_, err := ReadCSV(strings.NewReader(csv), "AAPL")
	if !errors.Is(err, core.ErrBadBarSequence) {
		t.Fatalf("expected ErrBadBarSequence, got %v", err)
	}
}

func TestReadCSV_BadNumeric(t *testing.T) {
	csv := `date,open,high,low,close,volume
2024-01-02,100,102,99,n/a,1000
`
	if _, err := ReadCSV(strings.NewReader(csv), "AAPL"); err == nil {
		t.Fatal("expected parse error for non-numeric close")
	}
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("date,open,high,low,close,volume\n"), "AAPL")
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData for header-only file, got %v", err)
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV("/nonexistent/path.csv", "AAPL")
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
