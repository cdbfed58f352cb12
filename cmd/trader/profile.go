package main

import (
	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"trader/internal/config"
)

const _defaultApplicationName = "trader"

func startProfiling(cfg config.ProfilingConfig) (stop func(), err error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	name := cfg.ApplicationName
	if name == "" {
		name = _defaultApplicationName
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: name,
		ServerAddress:   cfg.ServerAddress,
		Tags:            cfg.Tags,
		Logger:          profileLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	logs.Infof("profiling: pushing %s to %s", name, cfg.ServerAddress)
	return func() {
		if err := profiler.Stop(); err != nil {
			logs.Errorf("profiling: stop, err: %+v", err)
		}
	}, nil
}

// profileLogger forwards pyroscope errors to logs and drops the chatter.
type profileLogger struct{}

func (profileLogger) Infof(_ string, _ ...interface{})  {}
func (profileLogger) Debugf(_ string, _ ...interface{}) {}
func (profileLogger) Errorf(format string, args ...interface{}) {
	logs.Errorf("profiling: "+format, args...)
}
