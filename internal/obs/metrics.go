package obs

import (
	"sync/atomic"
	"time"

	"trader/internal/risk"
)

const maxRiskReason = int(risk.ReasonInvalidOrder)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	steps            uint64
	stepFailures     uint64
	ordersPlaced     uint64
	riskReasonCounts [maxRiskReason + 1]uint64
	reloads          uint64
	reloadFailures   uint64
	taskFaults       uint64

	stepLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Steps          uint64
	StepFailures   uint64
	OrdersPlaced   uint64
	OrdersDenied   map[risk.Reason]uint64
	Reloads        uint64
	ReloadFailures uint64
	TaskFaults     uint64
	StepLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveStep counts a completed trading cycle and its latency.
func (m *Metrics) ObserveStep(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.steps, 1)
	m.stepLatency.Observe(d)
}

// IncStepFailure records a failed trading cycle.
func (m *Metrics) IncStepFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.stepFailures, 1)
}

// IncOrderPlaced records an order accepted by the risk engine and sent to the broker.
func (m *Metrics) IncOrderPlaced() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersPlaced, 1)
}

// IncOrderDenied increments the risk reason counter.
func (m *Metrics) IncOrderDenied(reason risk.Reason) {
	if m == nil {
		return
	}
	idx := int(reason)
	if idx >= 0 && idx < len(m.riskReasonCounts) {
		atomic.AddUint64(&m.riskReasonCounts[idx], 1)
	}
}

// IncReload records a successful configuration reload.
func (m *Metrics) IncReload() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reloads, 1)
}

// IncReloadFailure records a rejected configuration reload.
func (m *Metrics) IncReloadFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reloadFailures, 1)
}

// IncTaskFault records a background task failure.
func (m *Metrics) IncTaskFault() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.taskFaults, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	denied := make(map[risk.Reason]uint64)
	for i := range m.riskReasonCounts {
		if v := atomic.LoadUint64(&m.riskReasonCounts[i]); v > 0 {
			denied[risk.Reason(i)] = v
		}
	}
	return Snapshot{
		Steps:          atomic.LoadUint64(&m.steps),
		StepFailures:   atomic.LoadUint64(&m.stepFailures),
		OrdersPlaced:   atomic.LoadUint64(&m.ordersPlaced),
		OrdersDenied:   denied,
		Reloads:        atomic.LoadUint64(&m.reloads),
		ReloadFailures: atomic.LoadUint64(&m.reloadFailures),
		TaskFaults:     atomic.LoadUint64(&m.taskFaults),
		StepLatency:    m.stepLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
