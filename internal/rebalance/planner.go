// Package rebalance implements the daily rebalance computation and
// order-submission sequence.
package rebalance

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

// fractionalPlaces is the broker's minimum fractional-share increment (1e-4)
const fractionalPlaces = 4

// PlannerConfig holds rebalance computation parameters
type PlannerConfig struct {
	// CashWeight multiplies account equity to get tradable capital.
	// Values above 1.0 imply margin use.
	CashWeight float64

	// MinOrderQty drops deltas smaller than this many shares, avoiding
	// churn on rounding dust.
	MinOrderQty float64
}

// Planner computes the buy/sell deltas needed to move current positions to
// the target allocation.
type Planner struct {
	cfg PlannerConfig
	log zerolog.Logger
}

// NewPlanner creates a new rebalance planner
func NewPlanner(cfg PlannerConfig, log zerolog.Logger) *Planner {
	return &Planner{
		cfg: cfg,
		log: log.With().Str("component", "planner").Logger(),
	}
}

// Plan computes the ordered instruction sequence for one rebalance run.
//
// The plan covers exactly the union of target symbols and held symbols. A
// held symbol absent from the targets (or targeted at weight zero) is fully
// liquidated; liquidations need no price. A targeted symbol with no entry in
// prices is skipped and reported, never fatal. Quantities are truncated
// toward zero: whole shares unless the symbol is marked fractionable, in
// which case four decimal places. Sells come before buys so sale proceeds
// count toward buying power.
func (p *Planner) Plan(
	targets domain.AllocationTarget,
	account *domain.AccountSnapshot,
	positions []domain.Position,
	prices map[string]float64,
	fractionable map[string]bool,
) (plan []domain.PlannedOrder, skipped []string) {
	capital := account.Equity * p.cfg.CashWeight
	minQty := decimal.NewFromFloat(p.cfg.MinOrderQty)

	held := make(map[string]float64, len(positions))
	for _, pos := range positions {
		held[pos.Symbol] = pos.Quantity
	}

	var sells, buys []domain.PlannedOrder
	for _, symbol := range unionSymbols(targets, held) {
		weight := targets[symbol]
		heldQty := decimal.NewFromFloat(held[symbol])

		var targetQty decimal.Decimal
		if weight > 0 {
			price, ok := prices[symbol]
			if !ok || price <= 0 {
				p.log.Warn().Str("symbol", symbol).Msg("No price available, skipping symbol")
				skipped = append(skipped, symbol)
				continue
			}
			targetQty = truncateQty(decimal.NewFromFloat(capital*weight/price), fractionable[symbol])
		}
		// weight == 0: full liquidation, target stays zero

		delta := truncateQty(targetQty.Sub(heldQty), fractionable[symbol])
		if delta.Abs().LessThan(minQty) || delta.IsZero() {
			continue
		}

		if delta.IsNegative() {
			sells = append(sells, domain.PlannedOrder{Symbol: symbol, Side: domain.SideSell, Quantity: delta.Neg()})
		} else {
			buys = append(buys, domain.PlannedOrder{Symbol: symbol, Side: domain.SideBuy, Quantity: delta})
		}
	}

	plan = append(sells, buys...)

	p.log.Debug().
		Int("sells", len(sells)).
		Int("buys", len(buys)).
		Int("skipped", len(skipped)).
		Float64("capital", capital).
		Msg("Rebalance plan computed")

	return plan, skipped
}

// truncateQty truncates toward zero: four decimal places for fractionable
// symbols, whole shares otherwise.
func truncateQty(qty decimal.Decimal, isFractionable bool) decimal.Decimal {
	if isFractionable {
		return qty.Truncate(fractionalPlaces)
	}
	return qty.Truncate(0)
}

// unionSymbols returns the union of target and held symbols, sorted for
// deterministic plans
func unionSymbols(targets domain.AllocationTarget, held map[string]float64) []string {
	seen := make(map[string]struct{}, len(targets)+len(held))
	for s := range targets {
		seen[s] = struct{}{}
	}
	for s := range held {
		seen[s] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
