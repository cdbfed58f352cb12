package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trader/internal/capability"
	"trader/internal/market"
	"trader/pkg/exception"
)

const sampleJSON = `{
  "capabilities": {"connector": "Replay", "broker": "paper", "reporter": "log"},
  "credentials": {"apiKey": "key-1", "apiSecret": "secret-1"},
  "trading": {"symbol": "btcusdt", "side": "buy", "qty": "0.01"},
  "risk": {"version": 3, "orderRateLimit": 5, "orderRateWindow": "1s", "allowedSymbols": ["BTCUSDT"]},
  "reload": {"interval": "45s"},
  "loop": {"minInterval": 250000000},
  "venues": {"replay": {"path": "testdata/ticks.jsonl"}},
  "reporters": {"file": {"path": "reports.jsonl"}}
}`

const sampleYAML = `
capabilities:
  connector: binance
  broker: btcc
  reporter: postgres
credentials:
  apiKey: key-2
  apiSecret: secret-2
trading:
  symbol: ETHUSDT
  side: sell
  qty: "1.5"
  orderPrefix: bot
reload:
  failureFatal: true
reporters:
  postgres:
    host: db.internal
    port: 6543
    database: trading
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	settings, err := Load(writeFile(t, "config.json", sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, capability.ID("replay"), settings.Connector)
	assert.Equal(t, capability.ID("paper"), settings.Broker)
	assert.Equal(t, capability.ID("log"), settings.Reporter)
	assert.Equal(t, Credentials{APIKey: "key-1", APISecret: "secret-1"}, settings.Credentials)
	assert.Equal(t, "BTCUSDT", settings.Trading.Symbol)
	assert.Equal(t, market.SideBuy, settings.Trading.Side)
	assert.Equal(t, "0.01", settings.Trading.Qty.String())
	assert.Equal(t, DefaultOrderPrefix, settings.Trading.OrderPrefix)
	assert.Equal(t, uint16(3), settings.Risk.Version)
	assert.Equal(t, time.Second, settings.Risk.OrderRateWindow)
	assert.Equal(t, 45*time.Second, settings.Reload.Interval)
	assert.Equal(t, 250*time.Millisecond, settings.Loop.MinInterval)
	assert.Equal(t, DefaultHTTPTimeout, settings.HTTP.Timeout)
	assert.Equal(t, "testdata/ticks.jsonl", settings.Venues.Replay.Path)
	assert.Equal(t, "reports.jsonl", settings.ReportFile)
}

func TestLoadYAML(t *testing.T) {
	settings, err := Load(writeFile(t, "config.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, capability.ID("binance"), settings.Connector)
	assert.Equal(t, capability.ID("btcc"), settings.Broker)
	assert.Equal(t, capability.ID("postgres"), settings.Reporter)
	assert.Equal(t, market.SideSell, settings.Trading.Side)
	assert.Equal(t, "bot", settings.Trading.OrderPrefix)
	assert.Equal(t, DefaultReloadInterval, settings.Reload.Interval)
	assert.True(t, settings.Reload.FailureFatal)
	assert.Equal(t, "db.internal", settings.Postgres.Host)
	assert.Equal(t, 6543, settings.Postgres.Port)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		desc    string
		name    string
		content string
		is      error
	}{
		{"unknown format", "config.toml", `a = 1`, exception.ErrConfigFormat},
		{"missing capability", "c.json", `{"capabilities":{"connector":"replay","broker":"paper"},"trading":{"symbol":"X","side":"buy","qty":"1"}}`, exception.ErrConfigInvalid},
		{"half credentials", "c.json", `{"capabilities":{"connector":"a","broker":"b","reporter":"c"},"credentials":{"apiKey":"k"},"trading":{"symbol":"X","side":"buy","qty":"1"}}`, exception.ErrConfigInvalid},
		{"bad side", "c.json", `{"capabilities":{"connector":"a","broker":"b","reporter":"c"},"trading":{"symbol":"X","side":"hold","qty":"1"}}`, exception.ErrConfigInvalid},
		{"negative qty", "c.json", `{"capabilities":{"connector":"a","broker":"b","reporter":"c"},"trading":{"symbol":"X","side":"buy","qty":"-1"}}`, exception.ErrConfigInvalid},
		{"garbage qty", "c.json", `{"capabilities":{"connector":"a","broker":"b","reporter":"c"},"trading":{"symbol":"X","side":"buy","qty":"abc"}}`, exception.ErrConfigInvalid},
		{"zero qty", "c.json", `{"capabilities":{"connector":"a","broker":"b","reporter":"c"},"trading":{"symbol":"X","side":"buy","qty":"0.00"}}`, exception.ErrConfigInvalid},
		{"profiling without address", "c.json", `{"capabilities":{"connector":"a","broker":"b","reporter":"c"},"trading":{"symbol":"X","side":"buy","qty":"1"},"profiling":{"enabled":true}}`, exception.ErrConfigInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.name, tc.content))
			assert.ErrorIs(t, err, tc.is)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeFile(t, "c.json", `{"capabilities": `))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "c.json", `{"capabilitiez": {}}`))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Std())
	require.NoError(t, d.UnmarshalJSON([]byte(`1000`)))
	assert.Equal(t, time.Microsecond, d.Std())
	require.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, Duration(0), d)
	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))

	b, err := Duration(2 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(b))
}

func validSettingsJSON(n int) string {
	return fmt.Sprintf(`{
  "capabilities": {"connector": "replay", "broker": "paper", "reporter": "log"},
  "credentials": {"apiKey": "key-%d", "apiSecret": "secret-%d"},
  "trading": {"symbol": "BTCUSDT", "side": "buy", "qty": "0.01"}
}`, n, n)
}

func TestStoreReload(t *testing.T) {
	path := writeFile(t, "config.json", validSettingsJSON(1))
	store, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), store.Version())
	assert.Equal(t, "key-1", store.Load().Credentials.APIKey)

	require.NoError(t, os.WriteFile(path, []byte(validSettingsJSON(2)), 0o644))
	require.NoError(t, store.Reload())
	assert.Equal(t, uint64(2), store.Version())
	assert.Equal(t, "key-2", store.Load().Credentials.APIKey)
	assert.Equal(t, uint64(1), store.Reloads())
}

func TestStoreFailedReloadKeepsPreviousValues(t *testing.T) {
	path := writeFile(t, "config.json", validSettingsJSON(1))
	store, err := Open(path)
	require.NoError(t, err)
	before := store.Load()

	for _, broken := range []string{`{"capabilities":`, `{"capabilities":{}}`, ``} {
		require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))
		err := store.Reload()
		require.Error(t, err)
		assert.ErrorIs(t, err, exception.ErrConfigReload)

		var rerr *ReloadError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, path, rerr.Path)
		assert.Equal(t, before, store.Load())
	}

	require.NoError(t, os.Remove(path))
	assert.ErrorIs(t, store.Reload(), os.ErrNotExist)
	assert.Equal(t, before, store.Load())
	assert.Equal(t, uint64(4), store.Failures())
}

func TestStoreReloadRejectsBadQty(t *testing.T) {
	path := writeFile(t, "config.json", validSettingsJSON(1))
	store, err := Open(path)
	require.NoError(t, err)
	before := store.Load()

	for _, qty := range []string{"abc", "0", "0.000", "-0.5", "1e3"} {
		body := strings.Replace(validSettingsJSON(2), `"qty": "0.01"`, fmt.Sprintf(`"qty": %q`, qty), 1)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		err := store.Reload()
		require.Error(t, err, qty)
		assert.ErrorIs(t, err, exception.ErrConfigReload, qty)
		assert.ErrorIs(t, err, exception.ErrInvalidDecimal, qty)
		assert.Equal(t, uint64(1), store.Version(), qty)
		assert.Equal(t, before, store.Load(), qty)
		assert.Equal(t, "0.01", store.Load().Trading.Qty.String())
	}
}

func TestOpenFails(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestStoreReloadIsAtomicUnderConcurrentReads(t *testing.T) {
	var n int
	loader := func(string) (Settings, error) {
		n++
		return Settings{
			Connector: "replay",
			Credentials: Credentials{
				APIKey:    fmt.Sprintf("key-%d", n),
				APISecret: fmt.Sprintf("secret-%d", n),
			},
		}, nil
	}
	store, err := Open("memory", WithLoader(loader))
	require.NoError(t, err)

	stop := make(chan struct{})
	errs := make(chan string, 8)
	for range 8 {
		go func() {
			for {
				select {
				case <-stop:
					errs <- ""
					return
				default:
				}
				s := store.Load()
				var k, v int
				_, _ = fmt.Sscanf(s.Credentials.APIKey, "key-%d", &k)
				_, _ = fmt.Sscanf(s.Credentials.APISecret, "secret-%d", &v)
				if k != v {
					errs <- fmt.Sprintf("torn read: %s / %s", s.Credentials.APIKey, s.Credentials.APISecret)
					return
				}
			}
		}()
	}

	for range 2000 {
		require.NoError(t, store.Reload())
	}
	close(stop)
	for range 8 {
		assert.Empty(t, <-errs)
	}
	assert.Equal(t, uint64(2001), store.Version())
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writeFile(t, "config.json", validSettingsJSON(1))
	store, err := Open(path)
	require.NoError(t, err)

	w := NewWatcher(store, 20*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(validSettingsJSON(7)), 0o644))
	assert.Eventually(t, func() bool {
		return store.Load().Credentials.APIKey == "key-7"
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	assert.Eventually(t, func() bool {
		return store.Failures() > 0
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "key-7", store.Load().Credentials.APIKey)
}

func TestExampleConfigLoads(t *testing.T) {
	settings, err := Load("../../config.example.json")
	require.NoError(t, err)
	assert.Equal(t, capability.ID("replay"), settings.Connector)
	assert.Equal(t, 100*time.Millisecond, settings.Loop.MinInterval)
	assert.Equal(t, 30*time.Second, settings.Reload.Interval)
	assert.Equal(t, uint64(1000), settings.Risk.MaxOrders)
}
