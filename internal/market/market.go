package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/decimal"
)

// Side buy, sell
type Side uint8

const (
	_side_beg Side = iota
	SideBuy
	SideSell
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide converts "buy" / "sell" into a Side.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	default:
		return 0, false
	}
}

// Quote is the best bid/ask of a symbol at a point in time.
type Quote struct {
	Symbol string
	Bid    decimal.Decimal
	BidQty decimal.Decimal
	Ask    decimal.Decimal
	AskQty decimal.Decimal
	Time   time.Time
}

// Validate checks the decoded price and size fields.
func (q Quote) Validate() error {
	fields := [...]struct {
		name  string
		value decimal.Decimal
	}{
		{"bid", q.Bid},
		{"bidQty", q.BidQty},
		{"ask", q.Ask},
		{"askQty", q.AskQty},
	}
	for _, f := range fields {
		if err := CheckDecimal(f.value); err != nil {
			return fmt.Errorf("%s %s: %w", q.Symbol, f.name, err)
		}
	}
	return nil
}

// Order is a limit order produced by one trading cycle.
type Order struct {
	ClientOrderID string
	Symbol        string
	Side          Side
	Price         decimal.Decimal
	Qty           decimal.Decimal
	CreatedAt     time.Time
}

// NewClientOrderID returns a venue-safe unique client order id.
func NewClientOrderID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// ExecutionStatus accepted, filled, rejected
type ExecutionStatus uint8

const (
	_execution_status_beg ExecutionStatus = iota
	ExecutionAccepted
	ExecutionFilled
	ExecutionRejected
	_execution_status_end
)

func (s ExecutionStatus) IsAvailable() bool {
	return s > _execution_status_beg && s < _execution_status_end
}

func (s ExecutionStatus) String() string {
	switch s {
	case ExecutionAccepted:
		return "accepted"
	case ExecutionFilled:
		return "filled"
	case ExecutionRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Execution is the broker's answer to a placed order.
type Execution struct {
	ClientOrderID string
	VenueOrderID  string
	Status        ExecutionStatus
	FilledQty     decimal.Decimal
	AvgPrice      decimal.Decimal
	Reason        string
	Time          time.Time
}
