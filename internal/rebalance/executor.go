package rebalance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

// defaultPollInterval is how often the executor checks for order fills
const defaultPollInterval = 3 * time.Second

// Executor submits planned orders through the broker, one at a time, in plan
// order. A rejection or unfilled order is recorded and the remaining
// instructions are still attempted; nothing here aborts the run.
type Executor struct {
	broker       domain.BrokerClient
	fillTimeout  time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
}

// NewExecutor creates a new order executor
func NewExecutor(broker domain.BrokerClient, fillTimeout time.Duration, log zerolog.Logger) *Executor {
	return &Executor{
		broker:       broker,
		fillTimeout:  fillTimeout,
		pollInterval: defaultPollInterval,
		log:          log.With().Str("component", "executor").Logger(),
	}
}

// Execute submits every instruction in the plan serially and returns one
// outcome per instruction. Submission is intentionally not parallel: the
// sell-before-buy ordering only means anything when sells settle first.
func (e *Executor) Execute(plan []domain.PlannedOrder) []domain.OrderOutcome {
	outcomes := make([]domain.OrderOutcome, 0, len(plan))

	for _, order := range plan {
		outcome := domain.OrderOutcome{
			Symbol:   order.Symbol,
			Side:     order.Side,
			Quantity: order.Quantity,
		}

		e.log.Info().
			Str("symbol", order.Symbol).
			Str("side", string(order.Side)).
			Str("qty", order.Quantity.String()).
			Msg("Submitting order")

		clientOrderID := uuid.NewString()
		result, err := e.broker.SubmitOrder(domain.OrderRequest{
			Symbol:        order.Symbol,
			Side:          order.Side,
			Quantity:      order.Quantity,
			ClientOrderID: clientOrderID,
			TimeInForce:   "day",
		})
		if err != nil {
			e.log.Error().Err(err).Str("symbol", order.Symbol).Msg("Order submission failed")
			outcome.Err = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.OrderID = result.OrderID
		if err := e.waitForFill(clientOrderID); err != nil {
			e.log.Error().Err(err).Str("symbol", order.Symbol).Str("order_id", result.OrderID).Msg("Order not filled")
			outcome.Err = err.Error()
		} else {
			outcome.Filled = true
			e.log.Info().
				Str("symbol", order.Symbol).
				Str("side", string(order.Side)).
				Str("qty", order.Quantity.String()).
				Str("order_id", result.OrderID).
				Msg("Order filled")
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// waitForFill polls the order status until it fills, reaches a terminal
// failure state, or the configured timeout elapses.
func (e *Executor) waitForFill(clientOrderID string) error {
	deadline := time.Now().Add(e.fillTimeout)
	for {
		status, err := e.broker.GetOrderByClientOrderID(clientOrderID)
		if err != nil {
			e.log.Warn().Err(err).Str("client_order_id", clientOrderID).Msg("Order status check failed")
		} else {
			switch status.Status {
			case domain.OrderStatusFilled:
				return nil
			case domain.OrderStatusCanceled, domain.OrderStatusExpired, domain.OrderStatusRejected:
				return fmt.Errorf("%w: order %s ended %s", domain.ErrOrderRejected, clientOrderID, status.Status)
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("order %s not filled within %s", clientOrderID, e.fillTimeout)
		}
		time.Sleep(e.pollInterval)
	}
}
