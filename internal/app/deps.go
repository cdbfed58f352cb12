package app

import (
	"net/http"

	"trader/internal/config"
	"trader/internal/market"
)

// Deps are the low-level services shared by every capability variant. They
// are built once per run and released after the capabilities.
type Deps struct {
	Store *config.Store
	Clock market.Clock
	HTTP  *http.Client
}

// NewDeps builds the shared services from the current settings.
func NewDeps(store *config.Store, clock market.Clock) Deps {
	if clock == nil {
		clock = market.UTCClock{}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	return Deps{
		Store: store,
		Clock: clock,
		HTTP: &http.Client{
			Timeout:   store.Load().HTTP.Timeout,
			Transport: transport,
		},
	}
}

// Close drops idle HTTP connections.
func (d Deps) Close() error {
	if d.HTTP != nil {
		d.HTTP.CloseIdleConnections()
	}
	return nil
}
