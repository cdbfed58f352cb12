package exception

import "errors"

// Capability resolution errors
var (
	ErrCapabilityNotFound   = errors.New("capability: no variant matches identifier")
	ErrCapabilityAmbiguous  = errors.New("capability: more than one variant matches identifier")
	ErrCapabilityEmptyID    = errors.New("capability: empty identifier")
	ErrCapabilityNilFactory = errors.New("capability: nil factory")
)
