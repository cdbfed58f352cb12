package app

import (
	"fmt"

	"trader/internal/broker/btcc"
	"trader/internal/broker/paper"
	"trader/internal/capability"
	"trader/internal/connector/binance"
	"trader/internal/connector/replay"
	"trader/internal/reporter/file"
	"trader/internal/reporter/logger"
	"trader/internal/reporter/postgres"
	"trader/internal/trader"
	"trader/pkg/exception"
)

type (
	ConnectorVariant = capability.Variant[trader.Connector, Deps]
	BrokerVariant    = capability.Variant[trader.Broker, Deps]
	ReporterVariant  = capability.Variant[trader.Reporter, Deps]
)

// Catalog holds one registry per capability. It is filled once before
// Compose and only read afterwards.
type Catalog struct {
	Connectors *capability.Registry[trader.Connector, Deps]
	Brokers    *capability.Registry[trader.Broker, Deps]
	Reporters  *capability.Registry[trader.Reporter, Deps]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Connectors: capability.NewRegistry[trader.Connector, Deps]("connector"),
		Brokers:    capability.NewRegistry[trader.Broker, Deps]("broker"),
		Reporters:  capability.NewRegistry[trader.Reporter, Deps]("reporter"),
	}
}

// DefaultCatalog registers every variant built into the binary.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Connectors.MustRegister(
		ConnectorVariant{ID: "binance", Name: "Binance book ticker", New: newBinanceConnector},
		ConnectorVariant{ID: "replay", Name: "Replay tick file", New: newReplayConnector},
	)
	c.Brokers.MustRegister(
		BrokerVariant{ID: "btcc", Name: "BTCC spot REST", New: newBTCCBroker},
		BrokerVariant{ID: "paper", Name: "Paper trading", New: newPaperBroker},
	)
	c.Reporters.MustRegister(
		ReporterVariant{ID: "postgres", Name: "PostgreSQL", New: newPostgresReporter},
		ReporterVariant{ID: "file", Name: "JSON lines file", New: newFileReporter},
		ReporterVariant{ID: "log", Name: "Log", New: newLogReporter},
	)
	return c
}

func newBinanceConnector(d Deps) (trader.Connector, error) {
	s := d.Store.Load()
	return binance.New(s.Venues.Binance.WsURL, s.Trading.Symbol, d.Clock), nil
}

func newReplayConnector(d Deps) (trader.Connector, error) {
	path := d.Store.Load().Venues.Replay.Path
	if path == "" {
		return nil, fmt.Errorf("%w: venues.replay.path is empty", exception.ErrInvalidArgument)
	}
	return replay.New(path, d.Clock), nil
}

func newBTCCBroker(d Deps) (trader.Broker, error) {
	s := d.Store.Load()
	if s.Credentials.Empty() {
		return nil, exception.ErrBrokerMissingToken
	}
	baseUrl := s.Venues.BTCC.BaseURL
	if baseUrl == "" && s.Venues.BTCC.Dev {
		baseUrl = btcc.BaseUrlDev
	}
	return btcc.New(baseUrl, s.Credentials, d.HTTP, d.Clock, s.HTTP.Timeout), nil
}

func newPaperBroker(d Deps) (trader.Broker, error) {
	return paper.New(d.Clock), nil
}

func newPostgresReporter(d Deps) (trader.Reporter, error) {
	return postgres.New(d.Store.Load().Postgres), nil
}

func newFileReporter(d Deps) (trader.Reporter, error) {
	path := d.Store.Load().ReportFile
	if path == "" {
		return nil, fmt.Errorf("%w: reporters.file.path is empty", exception.ErrInvalidArgument)
	}
	return file.New(path), nil
}

func newLogReporter(Deps) (trader.Reporter, error) {
	return logger.New(), nil
}
