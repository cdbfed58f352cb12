package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trader/internal/capability"
	"trader/internal/config"
	"trader/pkg/exception"
)

func TestDefaultCatalogIDs(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []capability.ID{"binance", "replay"}, c.Connectors.IDs())
	assert.Equal(t, []capability.ID{"btcc", "paper"}, c.Brokers.IDs())
	assert.Equal(t, []capability.ID{"file", "log", "postgres"}, c.Reporters.IDs())
}

func TestDefaultCatalogBuild(t *testing.T) {
	settings := baseSettings()
	settings.Venues.Replay.Path = "testdata/ticks.jsonl"
	settings.ReportFile = filepath.Join(t.TempDir(), "reports.jsonl")
	deps := NewDeps(config.NewStore("unused.json", settings), nil)
	c := DefaultCatalog()

	for _, id := range []capability.ID{"binance", "replay"} {
		v, _, err := c.Connectors.Build(id, deps)
		require.NoError(t, err, id)
		assert.Equal(t, string(id), v.Name())
	}
	for _, id := range []capability.ID{"file", "log", "postgres"} {
		v, _, err := c.Reporters.Build(id, deps)
		require.NoError(t, err, id)
		assert.Equal(t, string(id), v.Name())
	}

	paper, _, err := c.Brokers.Build("paper", deps)
	require.NoError(t, err)
	assert.Equal(t, "paper", paper.Name())

	_, _, err = c.Brokers.Build("btcc", deps)
	assert.ErrorIs(t, err, exception.ErrBrokerMissingToken)

	settings.Credentials = config.Credentials{APIKey: "k", APISecret: "s"}
	deps.Store.Update(settings)
	btcc, _, err := c.Brokers.Build("btcc", deps)
	require.NoError(t, err)
	assert.Equal(t, "btcc", btcc.Name())
}

func TestDefaultCatalogRequiresPaths(t *testing.T) {
	deps := NewDeps(config.NewStore("unused.json", baseSettings()), nil)
	c := DefaultCatalog()

	_, _, err := c.Connectors.Build("replay", deps)
	assert.ErrorIs(t, err, exception.ErrInvalidArgument)

	_, _, err = c.Reporters.Build("file", deps)
	assert.ErrorIs(t, err, exception.ErrInvalidArgument)
}

func TestEndToEndReplayPaperFile(t *testing.T) {
	settings := baseSettings()
	settings.Connector = "replay"
	settings.Broker = "paper"
	settings.Reporter = "file"
	settings.Venues.Replay.Path = "testdata/ticks.jsonl"
	settings.ReportFile = filepath.Join(t.TempDir(), "reports.jsonl")
	settings.Risk.MaxOrders = 3
	store := config.NewStore("unused.json", settings)

	r := NewRunner(store)
	container, err := Compose(r.catalog, NewDeps(store, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	require.NoError(t, container.Trader.Initialize(t.Context()))
	for range 5 {
		require.NoError(t, container.Trader.Step(t.Context()))
	}
	require.NoError(t, container.Close())
}
