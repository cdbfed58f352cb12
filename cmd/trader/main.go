package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"trader/internal/app"
	"trader/internal/config"
	"trader/internal/errors"
)

const (
	_envConfig     = "TRADER_CONFIG"
	_envWaitOnExit = "TRADER_WAIT_ON_EXIT"

	_defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		reportFatal(err)
		if waitOnExit() {
			logs.Info("press Enter to exit")
			_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		}
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv(_envConfig)
	if path == "" {
		path = _defaultConfigPath
	}

	store, err := config.Open(path)
	if err != nil {
		return err
	}
	settings := store.Load()
	logs.Infof("config: loaded %s, connector=%s broker=%s reporter=%s", path, settings.Connector, settings.Broker, settings.Reporter)

	stopProfiling, err := startProfiling(settings.Profiling)
	if err != nil {
		return errors.Wrap(err, "start profiling")
	}
	defer stopProfiling()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	return app.NewRunner(store).Run(ctx)
}

// reportFatal logs err and every cause below it.
func reportFatal(err error) {
	logs.Errorf("fatal: %s", err.Error())
	for _, cause := range errors.Chain(err)[1:] {
		logs.Errorf("%scaused by: %s", strings.Repeat("  ", cause.Depth), cause.Message)
	}
}

func waitOnExit() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(_envWaitOnExit))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
