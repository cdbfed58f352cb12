package file

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"trader/internal/reporter"
	"trader/internal/trader"
	"trader/pkg/exception"
)

// Reporter appends one JSON line per cycle to a file.
type Reporter struct {
	path string

	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func New(path string) *Reporter {
	return &Reporter{path: path}
}

func (r *Reporter) Name() string {
	return "file"
}

func (r *Reporter) Init(_ context.Context) error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create report dir").With("path", r.path)
		}
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open report file").With("path", r.path)
	}

	r.mu.Lock()
	r.f = f
	r.w = bufio.NewWriter(f)
	r.mu.Unlock()
	return nil
}

// Report writes and flushes a single line so the file stays readable while
// the trader runs.
func (r *Reporter) Report(_ context.Context, report trader.Report) error {
	line, err := sonic.ConfigStd.Marshal(reporter.NewRecord(report))
	if err != nil {
		return errors.Wrap(err, "marshal report").With("cycle", report.Cycle)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return exception.ErrReporterNotInitialized
	}
	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, "write report")
	}
	if err := r.w.Flush(); err != nil {
		return errors.Wrap(err, "flush report")
	}
	return nil
}

func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	flushErr := r.w.Flush()
	closeErr := r.f.Close()
	r.f, r.w = nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
