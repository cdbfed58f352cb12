package reporter

import (
	"time"

	"trader/internal/trader"
)

// Record is the flat, storage friendly form of a trader.Report.
type Record struct {
	ID              uint      `json:"-" gorm:"primaryKey"`
	Cycle           uint64    `json:"cycle" gorm:"index"`
	ConfigVersion   uint64    `json:"configVersion"`
	Connector       string    `json:"connector" gorm:"size:32"`
	Broker          string    `json:"broker" gorm:"size:32"`
	Symbol          string    `json:"symbol" gorm:"size:32;index"`
	Side            string    `json:"side" gorm:"size:8"`
	Bid             string    `json:"bid"`
	Ask             string    `json:"ask"`
	ClientOrderID   string    `json:"clientOrderId" gorm:"size:64"`
	Price           string    `json:"price"`
	Qty             string    `json:"qty"`
	Decision        string    `json:"decision" gorm:"size:8"`
	DenyReason      string    `json:"denyReason,omitempty" gorm:"size:32"`
	RiskVersion     uint16    `json:"riskVersion"`
	ExecutionStatus string    `json:"executionStatus,omitempty" gorm:"size:16"`
	VenueOrderID    string    `json:"venueOrderId,omitempty" gorm:"size:64"`
	FilledQty       string    `json:"filledQty,omitempty"`
	AvgPrice        string    `json:"avgPrice,omitempty"`
	StartedAt       time.Time `json:"startedAt"`
	ElapsedMicros   int64     `json:"elapsedMicros"`
}

func (Record) TableName() string {
	return "trade_cycle_reports"
}

// NewRecord flattens report.
func NewRecord(report trader.Report) Record {
	r := Record{
		Cycle:         report.Cycle,
		ConfigVersion: report.ConfigVersion,
		Connector:     report.Connector,
		Broker:        report.Broker,
		Symbol:        report.Order.Symbol,
		Side:          report.Order.Side.String(),
		Bid:           report.Quote.Bid.String(),
		Ask:           report.Quote.Ask.String(),
		ClientOrderID: report.Order.ClientOrderID,
		Price:         report.Order.Price.String(),
		Qty:           report.Order.Qty.String(),
		Decision:      report.Decision.Action.String(),
		RiskVersion:   report.Decision.Version,
		StartedAt:     report.StartedAt,
		ElapsedMicros: report.Elapsed.Microseconds(),
	}
	if !report.Decision.Allowed() {
		r.DenyReason = report.Decision.Reason.String()
	}
	if exec := report.Execution; exec != nil {
		r.ExecutionStatus = exec.Status.String()
		r.VenueOrderID = exec.VenueOrderID
		r.FilledQty = exec.FilledQty.String()
		r.AvgPrice = exec.AvgPrice.String()
	}
	return r
}
