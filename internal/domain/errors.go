package domain

import (
	"context"
	"errors"
	"net"
)

// Error taxonomy for a rebalance run. Fatal errors abort the run and surface
// at the entry point; per-symbol and per-order errors are logged and the run
// continues.
var (
	// ErrAuth indicates a credential or service-account failure. Fatal.
	ErrAuth = errors.New("authentication failed")

	// ErrSignalNotFound indicates the configured symphony is absent from the
	// signal file. Fatal: no plan can be built.
	ErrSignalNotFound = errors.New("symphony not found in signal file")

	// ErrSignalParse indicates a malformed signal file or invalid weights. Fatal.
	ErrSignalParse = errors.New("malformed signal file")

	// ErrPriceUnavailable indicates a symbol has no current quote. Per-symbol:
	// that symbol is skipped, the run continues.
	ErrPriceUnavailable = errors.New("no current price available")

	// ErrOrderRejected indicates the broker refused an order. Per-order:
	// logged, remaining instructions are still attempted.
	ErrOrderRejected = errors.New("order rejected by broker")
)

// IsTimeout reports whether err is a network timeout or deadline expiry.
// Timeouts during signal fetch or account reads are fatal; during an
// individual order submission only that order is abandoned.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
