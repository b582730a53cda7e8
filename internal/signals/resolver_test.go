package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

const sampleCSV = `Symphony,Ticker,Ticker Allocation Percent
Steady Eddies,SPY,60
Steady Eddies,tlt,30
Steady Eddies,GLD,10
Moon Shot,TQQQ,100
`

func TestResolveAllocations_NormalizesToFractions(t *testing.T) {
	targets, err := ResolveAllocations([]byte(sampleCSV), "Steady Eddies")
	require.NoError(t, err)

	assert.Len(t, targets, 3)
	assert.InDelta(t, 0.6, targets["SPY"], 1e-9)
	assert.InDelta(t, 0.3, targets["TLT"], 1e-9, "tickers should be uppercased")
	assert.InDelta(t, 0.1, targets["GLD"], 1e-9)

	sum := 0.0
	for _, w := range targets {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestResolveAllocations_NormalizesPartialAllocations(t *testing.T) {
	// Percentages not summing to 100 are rescaled, matching the provider's
	// convention of publishing raw percents.
	csv := "Symphony,Ticker,Ticker Allocation Percent\nHalf,AAA,25\nHalf,BBB,25\n"
	targets, err := ResolveAllocations([]byte(csv), "Half")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, targets["AAA"], 1e-9)
	assert.InDelta(t, 0.5, targets["BBB"], 1e-9)
}

func TestResolveAllocations_SumsDuplicateTickers(t *testing.T) {
	csv := "Symphony,Ticker,Ticker Allocation Percent\nDup,SPY,40\nDup,SPY,40\nDup,TLT,20\n"
	targets, err := ResolveAllocations([]byte(csv), "Dup")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, targets["SPY"], 1e-9)
	assert.InDelta(t, 0.2, targets["TLT"], 1e-9)
}

func TestResolveAllocations_SymphonyNotFound(t *testing.T) {
	_, err := ResolveAllocations([]byte(sampleCSV), "No Such Symphony")
	assert.ErrorIs(t, err, domain.ErrSignalNotFound)
}

func TestResolveAllocations_ToleratesExtraColumns(t *testing.T) {
	csv := "Date,Symphony,Ticker,Ticker Allocation Percent,Notes\n2026-08-28,X,SPY,100,ok\n"
	targets, err := ResolveAllocations([]byte(csv), "X")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, targets["SPY"], 1e-9)
}

func TestResolveAllocations_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty file", ""},
		{"missing columns", "Strategy,Symbol,Weight\nX,SPY,100\n"},
		{"non-numeric percent", "Symphony,Ticker,Ticker Allocation Percent\nX,SPY,lots\n"},
		{"NaN percent", "Symphony,Ticker,Ticker Allocation Percent\nX,SPY,NaN\n"},
		{"negative percent", "Symphony,Ticker,Ticker Allocation Percent\nX,SPY,-10\n"},
		{"empty ticker", "Symphony,Ticker,Ticker Allocation Percent\nX,,100\n"},
		{"zero-sum allocations", "Symphony,Ticker,Ticker Allocation Percent\nX,SPY,0\n"},
		{"ragged row", "Symphony,Ticker,Ticker Allocation Percent\nX,SPY\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveAllocations([]byte(tt.csv), "X")
			assert.ErrorIs(t, err, domain.ErrSignalParse)
		})
	}
}
