package risk

import (
	"slices"
	"strings"
	"time"

	"trader/internal/market"
)

// Config defines simple risk limits.
type Config struct {
	Version         uint16
	KillSwitch      bool
	OrderRateLimit  int
	OrderRateWindow time.Duration
	MaxOrders       uint64
	AllowedSymbols  []string
}

// Action allow, deny
type Action uint8

const (
	ActionAllow Action = iota + 1
	ActionDeny
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// Reason explains a deny decision.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxOrders
	ReasonSymbolNotAllowed
	ReasonInvalidOrder
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill_switch"
	case ReasonRateLimit:
		return "rate_limit"
	case ReasonMaxOrders:
		return "max_orders"
	case ReasonSymbolNotAllowed:
		return "symbol_not_allowed"
	case ReasonInvalidOrder:
		return "invalid_order"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating one order.
type Decision struct {
	Action  Action
	Reason  Reason
	Version uint16
}

// Allowed reports whether the order may be sent.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// Engine evaluates risk decisions. It is used from the trading loop only
// and is not safe for concurrent use.
type Engine struct {
	cfg             Config
	rateWindowStart time.Time
	rateCount       int
	allowed         int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	cfg.AllowedSymbols = slices.Clone(cfg.AllowedSymbols)
	for i := range cfg.AllowedSymbols {
		cfg.AllowedSymbols[i] = strings.ToUpper(strings.TrimSpace(cfg.AllowedSymbols[i]))
	}
	return &Engine{cfg: cfg}
}

// Version returns the config version the engine was built from.
func (e *Engine) Version() uint16 {
	return e.cfg.Version
}

// Evaluate applies the configured checks to an order.
func (e *Engine) Evaluate(order market.Order, now time.Time) Decision {
	decision := Decision{
		Action:  ActionAllow,
		Reason:  ReasonNone,
		Version: e.cfg.Version,
	}
	deny := func(reason Reason) Decision {
		decision.Action = ActionDeny
		decision.Reason = reason
		return decision
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	if e.cfg.KillSwitch {
		return deny(ReasonKillSwitch)
	}

	if order.Symbol == "" || !order.Side.IsAvailable() {
		return deny(ReasonInvalidOrder)
	}

	if len(e.cfg.AllowedSymbols) > 0 && !slices.Contains(e.cfg.AllowedSymbols, strings.ToUpper(order.Symbol)) {
		return deny(ReasonSymbolNotAllowed)
	}

	if e.cfg.MaxOrders > 0 && uint64(e.allowed) >= e.cfg.MaxOrders {
		return deny(ReasonMaxOrders)
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		if e.rateWindowStart.IsZero() || now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return deny(ReasonRateLimit)
		}
	}

	e.allowed++
	return decision
}
