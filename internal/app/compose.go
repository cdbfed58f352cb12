package app

import (
	"errors"
	"fmt"

	"github.com/yanun0323/logs"

	"trader/internal/trader"
)

// Container owns everything Compose built: the Trader, its capabilities and
// the shared Deps.
type Container struct {
	Trader *trader.Trader
	Deps   Deps

	Connector string
	Broker    string
	Reporter  string
}

// Compose resolves one variant per capability from the identifiers in the
// current settings and wires them into a Trader. Only the selected variants
// are instantiated.
func Compose(catalog *Catalog, deps Deps, opts ...trader.Option) (_ *Container, err error) {
	settings := deps.Store.Load()
	var built []func() error
	release := func() {
		for i := len(built) - 1; i >= 0; i-- {
			_ = built[i]()
		}
		_ = deps.Close()
	}
	defer func() {
		if p := recover(); p != nil {
			release()
			err = fmt.Errorf("compose: %w", trader.NewPanicError(p))
		}
	}()

	connector, cv, err := catalog.Connectors.Build(settings.Connector, deps)
	if err != nil {
		release()
		return nil, err
	}
	built = append(built, connector.Close)

	broker, bv, err := catalog.Brokers.Build(settings.Broker, deps)
	if err != nil {
		release()
		return nil, err
	}
	built = append(built, broker.Close)

	reporter, rv, err := catalog.Reporters.Build(settings.Reporter, deps)
	if err != nil {
		release()
		return nil, err
	}
	built = append(built, reporter.Close)

	t, err := trader.New(deps.Store, connector, broker, reporter, opts...)
	if err != nil {
		release()
		return nil, fmt.Errorf("new trader: %w", err)
	}

	logs.Infof("compose: connector=%s (%s) broker=%s (%s) reporter=%s (%s)",
		cv.ID, cv.Name, bv.ID, bv.Name, rv.ID, rv.Name)
	return &Container{
		Trader:    t,
		Deps:      deps,
		Connector: string(cv.ID),
		Broker:    string(bv.ID),
		Reporter:  string(rv.ID),
	}, nil
}

// Close releases the Trader's capabilities, then the shared Deps.
func (c *Container) Close() error {
	return errors.Join(c.Trader.Close(), c.Deps.Close())
}
