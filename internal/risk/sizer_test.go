package risk_test

import (
	"testing"

	"github.com/fusorlabs/fusor/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizer_Size_RiskBudget(t *testing.T) {
	sizer := risk.NewSizer(0.01, 0.02)

	// Risk budget $100; max investment $5,000 capped to the 20% ceiling
	// ($2,000), so 20 shares at $100.
	result, err := sizer.Size(10000, 100, 1.0)
	require.NoError(t, err)

	assert.Equal(t, int64(20), result.Shares)
	assert.Equal(t, 2000.0, result.Investment)
	assert.Equal(t, 40.0, result.RiskAmount, "realized risk is investment x stop-loss fraction")
	assert.Equal(t, 20.0, result.PortfolioPercent)
	assert.InDelta(t, 0.4, result.RiskPercent, 1e-9)
}

func TestSizer_Size_ConfidenceScalesRisk(t *testing.T) {
	sizer := risk.NewSizer(0.01, 0.05)

	full, err := sizer.Size(10000, 100, 1.0)
	require.NoError(t, err)
	half, err := sizer.Size(10000, 100, 0.5)
	require.NoError(t, err)

	// Full confidence: 100/0.05 = $2,000 -> 20 shares.
	// Half confidence: 50/0.05 = $1,000 -> 10 shares.
	assert.Equal(t, int64(20), full.Shares)
	assert.Equal(t, int64(10), half.Shares)
}

func TestSizer_Size_PortfolioCeiling(t *testing.T) {
	// Generous risk budget that would exceed the 20% ceiling
	sizer := risk.NewSizer(0.10, 0.02)

	for _, portfolio := range []float64{5000, 10000, 250000} {
		result, err := sizer.Size(portfolio, 37.5, 1.0)
		require.NoError(t, err)
		assert.LessOrEqual(t, result.Investment, 0.20*portfolio,
			"investment must never exceed 20%% of portfolio value")
		assert.Equal(t, float64(result.Shares)*37.5, result.Investment,
			"investment must equal shares x price")
	}
}

func TestSizer_Size_BelowMinimumPosition(t *testing.T) {
	sizer := risk.NewSizer(0.01, 0.02)

	// $1,000 portfolio, 20% ceiling is $200, price $5,000 -> zero shares
	result, err := sizer.Size(1000, 5000, 1.0)
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.Shares)
	assert.Equal(t, 0.0, result.Investment)
	assert.Equal(t, "below minimum position", result.Reason)
}

func TestSizer_Size_InvalidInputs(t *testing.T) {
	tests := []struct {
		name       string
		sizer      *risk.Sizer
		portfolio  float64
		price      float64
		confidence float64
	}{
		{"zero portfolio", risk.NewSizer(0.01, 0.02), 0, 100, 1.0},
		{"negative portfolio", risk.NewSizer(0.01, 0.02), -500, 100, 1.0},
		{"zero price", risk.NewSizer(0.01, 0.02), 10000, 0, 1.0},
		{"negative price", risk.NewSizer(0.01, 0.02), 10000, -10, 1.0},
		{"zero risk fraction", risk.NewSizer(0, 0.02), 10000, 100, 1.0},
		{"risk fraction above one", risk.NewSizer(1.5, 0.02), 10000, 100, 1.0},
		{"zero confidence", risk.NewSizer(0.01, 0.02), 10000, 100, 0},
		{"confidence above one", risk.NewSizer(0.01, 0.02), 10000, 100, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.sizer.Size(tt.portfolio, tt.price, tt.confidence)
			assert.Error(t, err)
			assert.Nil(t, result)
		})
	}
}
