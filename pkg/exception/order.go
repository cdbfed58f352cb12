package exception

import "errors"

var (
	ErrBrokerNotInitialized = errors.New("broker: not initialized")
	ErrBrokerInvalidOrder   = errors.New("broker: invalid order")
	ErrBrokerMissingToken   = errors.New("broker: missing api credentials")
	ErrBrokerDuplicateOrder = errors.New("broker: duplicate client order id")
	ErrBrokerUnknownOrder   = errors.New("broker: unknown order")
	ErrBrokerClosed         = errors.New("broker: closed")
)

var (
	ErrOrderResponseBTCCCode = errors.New("broker: btcc response code is not zero")
	ErrOrderEmptyResponseID  = errors.New("broker: empty response order id")
)
