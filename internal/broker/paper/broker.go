package paper

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"trader/internal/market"
	"trader/pkg/exception"
)

// Broker simulates a venue in memory. Every valid order is acknowledged and
// filled at its limit price immediately.
type Broker struct {
	clock market.Clock

	mu     sync.Mutex
	state  *StateMachine
	ready  bool
	closed bool
}

func New(clock market.Clock) *Broker {
	if clock == nil {
		clock = market.UTCClock{}
	}
	return &Broker{
		clock: clock,
		state: NewStateMachine(),
	}
}

func (b *Broker) Name() string {
	return "paper"
}

func (b *Broker) Init(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = true
	return nil
}

func (b *Broker) Place(_ context.Context, order market.Order) (market.Execution, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.closed:
		return market.Execution{}, exception.ErrBrokerClosed
	case !b.ready:
		return market.Execution{}, exception.ErrBrokerNotInitialized
	}

	o, err := b.state.ApplyIntent(order, uuid.NewString())
	if err != nil {
		return market.Execution{}, err
	}

	execution := market.Execution{
		ClientOrderID: o.ClientOrderID,
		VenueOrderID:  o.VenueOrderID,
		Time:          b.clock.Now(),
	}

	if order.Symbol == "" || !order.Side.IsAvailable() {
		if _, err := b.state.ApplyAck(o.ClientOrderID, false); err != nil {
			return market.Execution{}, err
		}
		execution.Status = market.ExecutionRejected
		execution.Reason = exception.ErrBrokerInvalidOrder.Error()
		return execution, nil
	}

	if _, err := b.state.ApplyAck(o.ClientOrderID, true); err != nil {
		return market.Execution{}, err
	}
	if _, err := b.state.ApplyFill(o.ClientOrderID); err != nil {
		return market.Execution{}, err
	}

	execution.Status = market.ExecutionFilled
	execution.FilledQty = o.Qty
	execution.AvgPrice = o.Price
	return execution, nil
}

// Orders returns the number of orders the broker has seen.
func (b *Broker) Orders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Len()
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		logs.Infof("paper: closed after %d orders", b.state.Len())
	}
	b.closed = true
	return nil
}
