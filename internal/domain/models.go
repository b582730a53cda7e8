package domain

// Broker-agnostic types for the rebalance run.
// These abstract away the concrete brokerage (Alpaca) so the core logic
// can be exercised against fakes.

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// AllocationTarget maps ticker symbol to target fractional weight (0..1).
// Resolved fresh each run from the downloaded signal file.
type AllocationTarget map[string]float64

// Position represents a currently held position
type Position struct {
	Symbol       string  // Security symbol, uppercase
	Quantity     float64 // Signed shares held (negative = short)
	MarketValue  float64 // Current position value
	CurrentPrice float64 // Current market price per share
}

// AccountSnapshot represents the brokerage account state at run start
type AccountSnapshot struct {
	Equity      float64 // Total account equity
	BuyingPower float64 // Available buying power
	Cash        float64 // Settled cash
	Currency    string  // Account currency
}

// MarketClock represents the brokerage market calendar state
type MarketClock struct {
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

// AssetInfo describes tradability of a security
type AssetInfo struct {
	Symbol       string
	Tradable     bool
	Fractionable bool // Whether the broker accepts fractional quantities
}

// PlannedOrder is a single instruction produced by the planner
type PlannedOrder struct {
	Symbol   string
	Side     OrderSide
	Quantity decimal.Decimal // Always positive; side carries the sign
}

// OrderRequest is a broker order submission
type OrderRequest struct {
	Symbol        string
	Side          OrderSide
	Quantity      decimal.Decimal
	ClientOrderID string
	TimeInForce   string // e.g. "day"
}

// OrderResult is the broker's acknowledgement of a submitted order
type OrderResult struct {
	OrderID       string
	ClientOrderID string
	Status        string
}

// OrderStatus is the broker-reported state of a previously submitted order
type OrderStatus struct {
	OrderID       string
	ClientOrderID string
	Status        string // "new", "partially_filled", "filled", "canceled", "expired", "rejected"
	FilledQty     decimal.Decimal
}

// Terminal order statuses as reported by the broker
const (
	OrderStatusFilled   = "filled"
	OrderStatusCanceled = "canceled"
	OrderStatusExpired  = "expired"
	OrderStatusRejected = "rejected"
)

// OrderOutcome records what happened to one planned instruction
type OrderOutcome struct {
	Symbol   string
	Side     OrderSide
	Quantity decimal.Decimal
	OrderID  string
	Filled   bool
	Err      string // Empty when the order went through
}

// Run status values recorded in the journal
const (
	RunStatusCompleted    = "completed"
	RunStatusMarketClosed = "market_closed"
	RunStatusFailed       = "failed"
)

// RunReport summarizes one rebalance run
type RunReport struct {
	Symphony       string
	Status         string
	StartedAt      time.Time
	FinishedAt     time.Time
	Orders         []OrderOutcome
	SkippedSymbols []string // Symbols dropped for missing quotes
	Err            string   // Fatal error, when Status is failed
}

// Rejections counts the orders that did not go through
func (r *RunReport) Rejections() int {
	n := 0
	for _, o := range r.Orders {
		if o.Err != "" {
			n++
		}
	}
	return n
}

// Submitted counts the orders that were accepted and filled
func (r *RunReport) Submitted() int {
	return len(r.Orders) - r.Rejections()
}
