package trader

import (
	"context"
	"time"

	"trader/internal/market"
	"trader/internal/risk"
)

// Connector supplies market data for the trading cycle.
type Connector interface {
	Name() string
	Init(ctx context.Context) error
	Quote(ctx context.Context, symbol string) (market.Quote, error)
	Close() error
}

// Broker routes orders to a venue.
type Broker interface {
	Name() string
	Init(ctx context.Context) error
	Place(ctx context.Context, order market.Order) (market.Execution, error)
	Close() error
}

// Reporter publishes the outcome of every cycle.
type Reporter interface {
	Name() string
	Init(ctx context.Context) error
	Report(ctx context.Context, report Report) error
	Close() error
}

// Report is the outcome of one trading cycle.
type Report struct {
	Cycle         uint64
	ConfigVersion uint64
	Connector     string
	Broker        string
	Quote         market.Quote
	Order         market.Order
	Decision      risk.Decision
	Execution     *market.Execution
	StartedAt     time.Time
	Elapsed       time.Duration
}
