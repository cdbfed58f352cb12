package postgres

import (
	"context"
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"trader/internal/config"
	"trader/internal/reporter"
	"trader/internal/trader"
	"trader/pkg/conn"
	"trader/pkg/exception"
)

// Reporter persists one row per cycle into PostgreSQL.
type Reporter struct {
	opt conn.Option

	mu     sync.Mutex
	client *conn.Client
}

func New(cfg config.PostgresConfig) *Reporter {
	return &Reporter{opt: Option(cfg)}
}

// Option maps the configuration section onto connection options.
func Option(cfg config.PostgresConfig) conn.Option {
	return conn.Option{
		Host:       cfg.Host,
		Port:       cfg.Port,
		User:       cfg.User,
		Password:   cfg.Password,
		Database:   cfg.Database,
		SSLMode:    cfg.SSLMode,
		Params:     cfg.Params,
		ConnString: cfg.ConnString,
	}
}

func (r *Reporter) Name() string {
	return "postgres"
}

func (r *Reporter) Init(ctx context.Context) error {
	client, err := conn.New(ctx, r.opt)
	if err != nil {
		return errors.Wrap(err, "connect postgres").With("database", r.opt.Database)
	}
	if err := client.Migrate(ctx, &reporter.Record{}); err != nil {
		_ = client.Close()
		return errors.Wrap(err, "migrate report table")
	}

	r.mu.Lock()
	r.client = client
	r.mu.Unlock()
	logs.Infof("postgres: reporting into %s", reporter.Record{}.TableName())
	return nil
}

func (r *Reporter) Report(ctx context.Context, report trader.Report) error {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()
	if client == nil {
		return exception.ErrReporterNotInitialized
	}

	record := reporter.NewRecord(report)
	if err := client.DB().WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrap(err, "insert report").With("cycle", report.Cycle)
	}
	return nil
}

func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.client.Close()
	r.client = nil
	return err
}
