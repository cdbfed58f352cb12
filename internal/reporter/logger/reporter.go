package logger

import (
	"context"

	"github.com/yanun0323/logs"

	"trader/internal/reporter"
	"trader/internal/trader"
)

// Reporter writes one log line per cycle.
type Reporter struct{}

func New() *Reporter {
	return &Reporter{}
}

func (*Reporter) Name() string {
	return "log"
}

func (*Reporter) Init(context.Context) error {
	return nil
}

func (*Reporter) Report(_ context.Context, report trader.Report) error {
	logs.Info(Format(reporter.NewRecord(report)))
	return nil
}

func (*Reporter) Close() error {
	return nil
}
