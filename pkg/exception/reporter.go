package exception

import "errors"

var (
	ErrReporterNotInitialized = errors.New("reporter: not initialized")
)
