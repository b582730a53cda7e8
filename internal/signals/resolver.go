package signals

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

// Signal file columns, owned by the upstream provider
const (
	colSymphony = "Symphony"
	colTicker   = "Ticker"
	colPercent  = "Ticker Allocation Percent"
)

// ResolveAllocations selects one symphony's rows from the raw signal CSV and
// returns its normalized target weights (fractions summing to 1).
//
// Pure transform: no I/O, no side effects. Returns domain.ErrSignalParse for
// malformed files or invalid weights and domain.ErrSignalNotFound when the
// symphony has no rows.
func ResolveAllocations(raw []byte, symphony string) (domain.AllocationTarget, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignalParse, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrSignalParse)
	}

	cols, err := columnIndexes(records[0])
	if err != nil {
		return nil, err
	}

	raws := make(map[string]float64)
	for i, row := range records[1:] {
		if row[cols.symphony] != symphony {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(row[cols.ticker]))
		if ticker == "" {
			return nil, fmt.Errorf("%w: empty ticker on row %d", domain.ErrSignalParse, i+2)
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(row[cols.percent]), 64)
		if err != nil || math.IsNaN(pct) || math.IsInf(pct, 0) {
			return nil, fmt.Errorf("%w: non-numeric allocation for %s on row %d", domain.ErrSignalParse, ticker, i+2)
		}
		if pct < 0 {
			return nil, fmt.Errorf("%w: negative allocation %v for %s", domain.ErrSignalParse, pct, ticker)
		}
		// The provider occasionally splits one ticker across rows; sum them
		raws[ticker] += pct
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrSignalNotFound, symphony)
	}

	pcts := make([]float64, 0, len(raws))
	for _, pct := range raws {
		pcts = append(pcts, pct)
	}
	total := floats.Sum(pcts)
	if total <= 0 {
		return nil, fmt.Errorf("%w: symphony %q allocations sum to zero", domain.ErrSignalParse, symphony)
	}

	targets := make(domain.AllocationTarget, len(raws))
	for ticker, pct := range raws {
		targets[ticker] = pct / total
	}
	return targets, nil
}

type columns struct {
	symphony, ticker, percent int
}

// columnIndexes locates the expected columns in the header row. The upstream
// schema is versioned, so extra columns are tolerated; missing ones are not.
func columnIndexes(header []string) (columns, error) {
	cols := columns{symphony: -1, ticker: -1, percent: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case colSymphony:
			cols.symphony = i
		case colTicker:
			cols.ticker = i
		case colPercent:
			cols.percent = i
		}
	}
	if cols.symphony < 0 || cols.ticker < 0 || cols.percent < 0 {
		return cols, fmt.Errorf("%w: missing expected columns (want %q, %q, %q)",
			domain.ErrSignalParse, colSymphony, colTicker, colPercent)
	}
	return cols, nil
}
