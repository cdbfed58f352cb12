package paper

import (
	"errors"

	"github.com/yanun0323/decimal"

	"trader/internal/market"
	"trader/pkg/exception"
)

var ErrInvalidTransition = errors.New("paper: invalid order state transition")

// OrderState tracks the lifecycle of a paper order.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStateSent
	OrderStateAcked
	OrderStateFilled
	OrderStateRejected
)

func (s OrderState) String() string {
	switch s {
	case OrderStateSent:
		return "sent"
	case OrderStateAcked:
		return "acked"
	case OrderStateFilled:
		return "filled"
	case OrderStateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Order holds the simulated venue's view of an order.
type Order struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        string
	Side          market.Side
	Price         decimal.Decimal
	Qty           decimal.Decimal
	State         OrderState
}

// StateMachine updates orders from intent/ack/fill events.
type StateMachine struct {
	orders map[string]*Order
}

func NewStateMachine() *StateMachine {
	return &StateMachine{orders: make(map[string]*Order)}
}

// Order returns the current order state.
func (m *StateMachine) Order(clientOrderID string) (*Order, bool) {
	o, ok := m.orders[clientOrderID]
	return o, ok
}

func (m *StateMachine) Len() int {
	return len(m.orders)
}

// ApplyIntent creates a new order in Sent state.
func (m *StateMachine) ApplyIntent(order market.Order, venueOrderID string) (*Order, error) {
	if order.ClientOrderID == "" {
		return nil, exception.ErrBrokerInvalidOrder
	}
	if _, ok := m.orders[order.ClientOrderID]; ok {
		return nil, exception.ErrBrokerDuplicateOrder
	}
	o := &Order{
		ClientOrderID: order.ClientOrderID,
		VenueOrderID:  venueOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Price:         order.Price,
		Qty:           order.Qty,
		State:         OrderStateSent,
	}
	m.orders[o.ClientOrderID] = o
	return o, nil
}

// ApplyAck moves a sent order to Acked or Rejected.
func (m *StateMachine) ApplyAck(clientOrderID string, accepted bool) (*Order, error) {
	o, ok := m.orders[clientOrderID]
	if !ok {
		return nil, exception.ErrBrokerUnknownOrder
	}
	if o.State != OrderStateSent {
		return o, ErrInvalidTransition
	}
	if accepted {
		o.State = OrderStateAcked
	} else {
		o.State = OrderStateRejected
	}
	return o, nil
}

// ApplyFill fully fills an acked order.
func (m *StateMachine) ApplyFill(clientOrderID string) (*Order, error) {
	o, ok := m.orders[clientOrderID]
	if !ok {
		return nil, exception.ErrBrokerUnknownOrder
	}
	if o.State != OrderStateAcked {
		return o, ErrInvalidTransition
	}
	o.State = OrderStateFilled
	return o, nil
}
