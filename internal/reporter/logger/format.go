package logger

import (
	"strconv"
	"strings"

	"trader/internal/reporter"
)

// Format renders a record as a single key=value line.
func Format(r reporter.Record) string {
	var b strings.Builder
	b.Grow(192)
	b.WriteString("cycle=")
	b.WriteString(strconv.FormatUint(r.Cycle, 10))
	b.WriteString(" cfg=")
	b.WriteString(strconv.FormatUint(r.ConfigVersion, 10))
	b.WriteString(" ")
	b.WriteString(r.Symbol)
	b.WriteString(" ")
	b.WriteString(r.Side)
	b.WriteString(" ")
	b.WriteString(r.Qty)
	b.WriteString("@")
	b.WriteString(r.Price)
	b.WriteString(" bid=")
	b.WriteString(r.Bid)
	b.WriteString(" ask=")
	b.WriteString(r.Ask)
	b.WriteString(" risk=")
	b.WriteString(r.Decision)
	if r.DenyReason != "" {
		b.WriteString("(")
		b.WriteString(r.DenyReason)
		b.WriteString(")")
	}
	if r.ExecutionStatus != "" {
		b.WriteString(" exec=")
		b.WriteString(r.ExecutionStatus)
		b.WriteString(" venue_id=")
		b.WriteString(r.VenueOrderID)
	}
	b.WriteString(" elapsed_us=")
	b.WriteString(strconv.FormatInt(r.ElapsedMicros, 10))
	return b.String()
}
