package scheduler

import (
	"fmt"
	"strings"

	"github.com/yanun0323/logs"
)

// cronLogger routes cron's own logging to logs. Info is noisy (one line per
// activation) and only emitted in verbose mode.
type cronLogger struct {
	verbose bool
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if !l.verbose {
		return
	}
	logs.Infof("cron: %s%s", msg, formatKeysAndValues(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logs.Errorf("cron: %s%s, err: %+v", msg, formatKeysAndValues(keysAndValues), err)
}

func formatKeysAndValues(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(kv); i += 2 {
		sb.WriteByte(' ')
		if i+1 < len(kv) {
			fmt.Fprintf(&sb, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&sb, "%v", kv[i])
		}
	}
	return sb.String()
}
