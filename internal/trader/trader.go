package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"trader/internal/config"
	"trader/internal/market"
	"trader/internal/obs"
	"trader/internal/risk"
	"trader/pkg/exception"
)

// Option configures a Trader.
type Option func(*Trader)

// WithClock sets the time source.
func WithClock(clock market.Clock) Option {
	return func(t *Trader) { t.clock = clock }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *obs.Metrics) Option {
	return func(t *Trader) { t.metrics = m }
}

// Trader drives one connector, one broker and one reporter. Initialize runs
// once, then Step is called back to back by a single goroutine.
type Trader struct {
	store     *config.Store
	connector Connector
	broker    Broker
	reporter  Reporter
	clock     market.Clock
	metrics   *obs.Metrics

	mu    sync.Mutex
	state State

	cycle  uint64
	engine *risk.Engine
}

// New wires a Trader from resolved capabilities.
func New(store *config.Store, connector Connector, broker Broker, reporter Reporter, opts ...Option) (*Trader, error) {
	if store == nil {
		return nil, exception.ErrNilInstance
	}
	if connector == nil || broker == nil || reporter == nil {
		return nil, exception.ErrTraderMissingCapability
	}
	t := &Trader{
		store:     store,
		connector: connector,
		broker:    broker,
		reporter:  reporter,
		clock:     market.UTCClock{},
		state:     StateCreated,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// State returns the current lifecycle state.
func (t *Trader) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Cycles returns how many work steps have been started.
func (t *Trader) Cycles() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cycle
}

func (t *Trader) transition(to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !canTransition(t.state, to) {
		return transitionError(t.state, to)
	}
	t.state = to
	return nil
}

// Initialize sets up the three capabilities concurrently. Any failure
// leaves the Trader Faulted.
func (t *Trader) Initialize(ctx context.Context) error {
	if err := t.transition(StateInitializing); err != nil {
		return &InitError{Err: err}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(initGuard("connector "+t.connector.Name(), func() error { return t.connector.Init(gctx) }))
	g.Go(initGuard("broker "+t.broker.Name(), func() error { return t.broker.Init(gctx) }))
	g.Go(initGuard("reporter "+t.reporter.Name(), func() error { return t.reporter.Init(gctx) }))
	if err := g.Wait(); err != nil {
		_ = t.transition(StateFaulted)
		return err
	}

	settings := t.store.Load()
	t.engine = risk.NewEngine(settings.Risk)
	if err := t.transition(StateRunning); err != nil {
		return &InitError{Err: err}
	}
	logs.Infof("trader: initialized connector=%s broker=%s reporter=%s symbol=%s",
		t.connector.Name(), t.broker.Name(), t.reporter.Name(), settings.Trading.Symbol)
	return nil
}

// Step performs exactly one trading cycle with the latest settings.
func (t *Trader) Step(ctx context.Context) (err error) {
	t.mu.Lock()
	if t.state != StateRunning {
		state := t.state
		t.mu.Unlock()
		return &StepError{Stage: "precondition", Err: fmt.Errorf("%w: state %s", exception.ErrTraderNotRunning, state)}
	}
	t.cycle++
	cycle := t.cycle
	t.mu.Unlock()

	stage := "risk"
	defer func() {
		if r := recover(); r != nil {
			err = t.fail(cycle, stage, NewPanicError(r))
		}
	}()

	startedAt := t.clock.Now()
	settings := t.store.Load()
	if settings.Risk.Version != t.engine.Version() {
		logs.Infof("trader: risk limits changed, version %d -> %d", t.engine.Version(), settings.Risk.Version)
		t.engine = risk.NewEngine(settings.Risk)
	}

	stage = "quote"
	quote, err := t.connector.Quote(ctx, settings.Trading.Symbol)
	if err != nil {
		return t.fail(cycle, "quote", err)
	}

	stage = "risk"
	order := buildOrder(settings.Trading, quote, startedAt)
	decision := t.engine.Evaluate(order, startedAt)
	report := Report{
		Cycle:         cycle,
		ConfigVersion: settings.Version,
		Connector:     t.connector.Name(),
		Broker:        t.broker.Name(),
		Quote:         quote,
		Order:         order,
		Decision:      decision,
		StartedAt:     startedAt,
	}

	if decision.Allowed() {
		stage = "place order"
		execution, err := t.broker.Place(ctx, order)
		if err != nil {
			return t.fail(cycle, "place order", err)
		}
		report.Execution = &execution
		t.metrics.IncOrderPlaced()
	} else {
		t.metrics.IncOrderDenied(decision.Reason)
	}

	report.Elapsed = t.clock.Now().Sub(startedAt)
	stage = "report"
	if err := t.reporter.Report(ctx, report); err != nil {
		return t.fail(cycle, "report", err)
	}
	t.metrics.ObserveStep(report.Elapsed)
	return nil
}

func (t *Trader) fail(cycle uint64, stage string, err error) error {
	_ = t.transition(StateFaulted)
	t.metrics.IncStepFailure()
	return &StepError{Cycle: cycle, Stage: stage, Err: err}
}

// Shutdown marks the Trader as shutting down. No step runs afterwards.
func (t *Trader) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if canTransition(t.state, StateShuttingDown) {
		t.state = StateShuttingDown
	}
}

// Close releases the capabilities in reverse construction order and
// leaves the Trader Stopped.
func (t *Trader) Close() error {
	t.Shutdown()
	if state := t.State(); state != StateShuttingDown {
		return transitionError(state, StateStopped)
	}

	var errs []error
	if err := closeGuard(t.reporter.Close); err != nil {
		errs = append(errs, fmt.Errorf("close reporter %s: %w", t.reporter.Name(), err))
	}
	if err := closeGuard(t.broker.Close); err != nil {
		errs = append(errs, fmt.Errorf("close broker %s: %w", t.broker.Name(), err))
	}
	if err := closeGuard(t.connector.Close); err != nil {
		errs = append(errs, fmt.Errorf("close connector %s: %w", t.connector.Name(), err))
	}

	_ = t.transition(StateStopped)
	return errors.Join(errs...)
}

// initGuard runs one capability Init on an errgroup goroutine and reports
// both errors and panics as an InitError.
func initGuard(capability string, init func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &InitError{Capability: capability, Err: NewPanicError(r)}
			}
		}()
		if err := init(); err != nil {
			return &InitError{Capability: capability, Err: err}
		}
		return nil
	}
}

func closeGuard(close func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()
	return close()
}

func buildOrder(spec config.TradingSpec, quote market.Quote, now time.Time) market.Order {
	order := market.Order{
		ClientOrderID: market.NewClientOrderID(spec.OrderPrefix),
		Symbol:        spec.Symbol,
		Side:          spec.Side,
		Qty:           spec.Qty,
		CreatedAt:     now,
	}
	switch spec.Side {
	case market.SideSell:
		order.Price = quote.Bid
	default:
		order.Price = quote.Ask
	}
	return order
}
