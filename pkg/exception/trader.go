package exception

import "errors"

// Trader lifecycle errors
var (
	ErrTraderInvalidTransition = errors.New("trader: invalid state transition")
	ErrTraderNotRunning        = errors.New("trader: not running")
	ErrTraderMissingCapability = errors.New("trader: missing capability")
	ErrTraderPanic             = errors.New("trader: capability panicked")
)
