package exception

import "errors"

var (
	ErrConnectorNotInitialized = errors.New("connector: not initialized")
	ErrConnectorNoQuote        = errors.New("connector: no quote received yet")
	ErrConnectorUnknownSymbol  = errors.New("connector: unknown symbol")
	ErrConnectorEmptyFeed      = errors.New("connector: empty tick feed")
)
