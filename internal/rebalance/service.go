package rebalance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
	"github.com/joshwigginton/composer-signals-alpaca/internal/signals"
)

// Recorder persists run reports. Satisfied by the journal; nil disables it.
type Recorder interface {
	Record(report *domain.RunReport) error
}

// ServiceConfig holds one-run orchestration parameters
type ServiceConfig struct {
	Symphony    string
	CashWeight  float64
	MinOrderQty float64
	FillTimeout time.Duration
}

// Service runs the full rebalance sequence:
// fetch the signal, resolve allocations, read the account, plan, submit orders.
// One call to Run is one complete, stateless run.
type Service struct {
	cfg      ServiceConfig
	source   domain.SignalSource
	broker   domain.BrokerClient
	planner  *Planner
	executor *Executor
	journal  Recorder
	log      zerolog.Logger
}

// NewService creates a new rebalance service
func NewService(
	cfg ServiceConfig,
	source domain.SignalSource,
	broker domain.BrokerClient,
	journal Recorder,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:    cfg,
		source: source,
		broker: broker,
		planner: NewPlanner(PlannerConfig{
			CashWeight:  cfg.CashWeight,
			MinOrderQty: cfg.MinOrderQty,
		}, log),
		executor: NewExecutor(broker, cfg.FillTimeout, log),
		journal:  journal,
		log:      log.With().Str("service", "rebalance").Logger(),
	}
}

// Run executes one rebalance pass. The returned report is always non-nil;
// the error is non-nil only for fatal failures (auth, signal fetch/parse,
// account reads). Individual order rejections never fail the run.
func (s *Service) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		Symphony:  s.cfg.Symphony,
		StartedAt: time.Now().UTC(),
	}

	// Signal fetch and resolution come first: a missing or malformed signal
	// aborts before any broker call is made.
	raw, err := s.source.Fetch(ctx)
	if err != nil {
		return s.fail(report, fmt.Errorf("fetching signal: %w", err))
	}

	targets, err := signals.ResolveAllocations(raw, s.cfg.Symphony)
	if err != nil {
		return s.fail(report, err)
	}
	s.log.Info().Int("symbols", len(targets)).Str("symphony", s.cfg.Symphony).Msg("Target allocations resolved")

	account, err := s.broker.GetAccount()
	if err != nil {
		return s.fail(report, fmt.Errorf("reading account: %w", err))
	}

	positions, err := s.broker.GetPositions()
	if err != nil {
		return s.fail(report, fmt.Errorf("reading positions: %w", err))
	}
	s.log.Info().
		Float64("equity", account.Equity).
		Int("positions", len(positions)).
		Msg("Account state read")

	clock, err := s.broker.GetClock()
	if err != nil {
		return s.fail(report, fmt.Errorf("reading market clock: %w", err))
	}
	if !clock.IsOpen {
		s.log.Info().Time("next_open", clock.NextOpen).Msg("Market is closed, no orders will be placed")
		report.Status = domain.RunStatusMarketClosed
		return s.finish(report), nil
	}

	prices, fractionable := s.gatherMarketData(targets, positions, report)

	plan, skipped := s.planner.Plan(targets, account, positions, prices, fractionable)
	report.SkippedSymbols = append(report.SkippedSymbols, skipped...)

	report.Orders = s.executor.Execute(plan)
	report.Status = domain.RunStatusCompleted
	return s.finish(report), nil
}

// gatherMarketData fetches prices and fractionability for every symbol the
// planner may trade. A missing quote only removes that symbol from the plan.
func (s *Service) gatherMarketData(
	targets domain.AllocationTarget,
	positions []domain.Position,
	report *domain.RunReport,
) (map[string]float64, map[string]bool) {
	prices := make(map[string]float64, len(targets))
	for symbol := range targets {
		if targets[symbol] <= 0 {
			continue
		}
		price, err := s.broker.GetLatestPrice(symbol)
		if err != nil {
			if errors.Is(err, domain.ErrPriceUnavailable) {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price unavailable")
				continue
			}
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed")
			continue
		}
		prices[symbol] = price
	}

	held := make(map[string]float64, len(positions))
	for _, pos := range positions {
		held[pos.Symbol] = pos.Quantity
	}

	fractionable := make(map[string]bool)
	for _, symbol := range unionSymbols(targets, held) {
		asset, err := s.broker.GetAsset(symbol)
		if err != nil {
			// Unknown assets fall back to whole shares
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("Asset lookup failed, assuming whole shares")
			continue
		}
		fractionable[symbol] = asset.Fractionable
	}

	return prices, fractionable
}

// fail finalizes a fatally failed run
func (s *Service) fail(report *domain.RunReport, err error) (*domain.RunReport, error) {
	report.Status = domain.RunStatusFailed
	report.Err = err.Error()
	s.finish(report)
	return report, err
}

// finish stamps, journals and logs the run summary. One log line per run:
// timestamp, symphony, instructions executed, rejections and errors.
func (s *Service) finish(report *domain.RunReport) *domain.RunReport {
	report.FinishedAt = time.Now().UTC()

	if s.journal != nil {
		if err := s.journal.Record(report); err != nil {
			s.log.Warn().Err(err).Msg("Failed to record run in journal")
		}
	}

	event := s.log.Info()
	if report.Status == domain.RunStatusFailed {
		event = s.log.Error()
	}
	event.
		Str("symphony", report.Symphony).
		Str("status", report.Status).
		Int("orders", len(report.Orders)).
		Int("rejections", report.Rejections()).
		Strs("skipped", report.SkippedSymbols).
		Str("error", report.Err).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Rebalance run finished")

	return report
}
