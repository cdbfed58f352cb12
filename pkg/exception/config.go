package exception

import "errors"

// Config errors
var (
	ErrConfigReload  = errors.New("config: reload failed")
	ErrConfigInvalid = errors.New("config: invalid settings")
	ErrConfigFormat  = errors.New("config: unsupported file format")
)
