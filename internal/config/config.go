package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/decimal"
	"gopkg.in/yaml.v3"

	"trader/internal/capability"
	"trader/internal/market"
	"trader/internal/risk"
	"trader/pkg/exception"
)

const (
	DefaultReloadInterval = 30 * time.Second
	DefaultHTTPTimeout    = 15 * time.Second
	DefaultOrderPrefix    = "trader"
)

var jsonAPI = sonic.Config{
	DisallowUnknownFields: true,
	UseNumber:             true,
}.Froze()

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Capabilities CapabilitiesConfig `json:"capabilities" yaml:"capabilities"`
	Credentials  CredentialsConfig  `json:"credentials" yaml:"credentials"`
	Trading      TradingConfig      `json:"trading" yaml:"trading"`
	Risk         RiskConfig         `json:"risk" yaml:"risk"`
	Reload       ReloadConfig       `json:"reload" yaml:"reload"`
	Loop         LoopConfig         `json:"loop" yaml:"loop"`
	HTTP         HTTPConfig         `json:"http" yaml:"http"`
	Venues       VenuesConfig       `json:"venues" yaml:"venues"`
	Reporters    ReportersConfig    `json:"reporters" yaml:"reporters"`
	Profiling    ProfilingConfig    `json:"profiling" yaml:"profiling"`
}

// CapabilitiesConfig picks one variant per capability.
type CapabilitiesConfig struct {
	Connector string `json:"connector" yaml:"connector"`
	Broker    string `json:"broker" yaml:"broker"`
	Reporter  string `json:"reporter" yaml:"reporter"`
}

// CredentialsConfig holds the venue API key pair.
type CredentialsConfig struct {
	APIKey    string `json:"apiKey" yaml:"apiKey"`
	APISecret string `json:"apiSecret" yaml:"apiSecret"`
}

// TradingConfig describes the order each cycle produces.
type TradingConfig struct {
	Symbol      string `json:"symbol" yaml:"symbol"`
	Side        string `json:"side" yaml:"side"`
	Qty         string `json:"qty" yaml:"qty"`
	OrderPrefix string `json:"orderPrefix" yaml:"orderPrefix"`
}

// RiskConfig mirrors risk.Config with file friendly durations.
type RiskConfig struct {
	Version         uint16   `json:"version" yaml:"version"`
	KillSwitch      bool     `json:"killSwitch" yaml:"killSwitch"`
	OrderRateLimit  int      `json:"orderRateLimit" yaml:"orderRateLimit"`
	OrderRateWindow Duration `json:"orderRateWindow" yaml:"orderRateWindow"`
	MaxOrders       uint64   `json:"maxOrders" yaml:"maxOrders"`
	AllowedSymbols  []string `json:"allowedSymbols" yaml:"allowedSymbols"`
}

// ReloadConfig controls the background reload task.
type ReloadConfig struct {
	Interval     Duration `json:"interval" yaml:"interval"`
	Watch        bool     `json:"watch" yaml:"watch"`
	FailureFatal bool     `json:"failureFatal" yaml:"failureFatal"`
}

// LoopConfig controls the trading loop.
type LoopConfig struct {
	MinInterval Duration `json:"minInterval" yaml:"minInterval"`
}

// HTTPConfig tunes the shared HTTP client.
type HTTPConfig struct {
	Timeout Duration `json:"timeout" yaml:"timeout"`
}

// VenuesConfig holds venue endpoints.
type VenuesConfig struct {
	Binance BinanceConfig `json:"binance" yaml:"binance"`
	BTCC    BTCCConfig    `json:"btcc" yaml:"btcc"`
	Replay  ReplayConfig  `json:"replay" yaml:"replay"`
}

type BinanceConfig struct {
	WsURL string `json:"wsUrl" yaml:"wsUrl"`
}

type BTCCConfig struct {
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
	Dev     bool   `json:"dev" yaml:"dev"`
}

type ReplayConfig struct {
	Path string `json:"path" yaml:"path"`
}

// ReportersConfig holds reporter targets.
type ReportersConfig struct {
	Postgres PostgresConfig `json:"postgres" yaml:"postgres"`
	File     FileConfigSpec `json:"file" yaml:"file"`
}

type PostgresConfig struct {
	Host       string            `json:"host" yaml:"host"`
	Port       int               `json:"port" yaml:"port"`
	User       string            `json:"user" yaml:"user"`
	Password   string            `json:"password" yaml:"password"`
	Database   string            `json:"database" yaml:"database"`
	SSLMode    string            `json:"sslMode" yaml:"sslMode"`
	Params     map[string]string `json:"params" yaml:"params"`
	ConnString string            `json:"connString" yaml:"connString"`
}

type FileConfigSpec struct {
	Path string `json:"path" yaml:"path"`
}

type ProfilingConfig struct {
	Enabled         bool              `json:"enabled" yaml:"enabled"`
	ServerAddress   string            `json:"serverAddress" yaml:"serverAddress"`
	ApplicationName string            `json:"applicationName" yaml:"applicationName"`
	Tags            map[string]string `json:"tags" yaml:"tags"`
}

// Settings is the resolved configuration ready for use. A Settings value
// handed out by the Store is never mutated afterwards.
type Settings struct {
	Version  uint64
	LoadedAt time.Time

	Connector capability.ID
	Broker    capability.ID
	Reporter  capability.ID

	Credentials Credentials
	Trading     TradingSpec
	Risk        risk.Config
	Reload      ReloadSpec
	Loop        LoopSpec
	HTTP        HTTPSpec
	Venues      VenuesConfig
	Postgres    PostgresConfig
	ReportFile  string
	Profiling   ProfilingConfig
}

// Credentials is the venue API key pair.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Empty reports whether no credentials are configured.
func (c Credentials) Empty() bool {
	return c.APIKey == "" && c.APISecret == ""
}

// TradingSpec is the resolved order template.
type TradingSpec struct {
	Symbol      string
	Side        market.Side
	Qty         decimal.Decimal
	OrderPrefix string
}

type ReloadSpec struct {
	Interval     time.Duration
	Watch        bool
	FailureFatal bool
}

type LoopSpec struct {
	MinInterval time.Duration
}

type HTTPSpec struct {
	Timeout time.Duration
}

// Load reads a JSON or YAML config file and resolves it.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	cfg, err := Decode(path, data)
	if err != nil {
		return Settings{}, err
	}
	return Resolve(cfg)
}

// Decode parses raw file content; the format follows the file extension.
func Decode(path string, data []byte) (FileConfig, error) {
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", "":
		if err := jsonAPI.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return FileConfig{}, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return FileConfig{}, fmt.Errorf("decode %s: %w", path, exception.ErrConfigFormat)
	}
	return cfg, nil
}

// Resolve validates a decoded file and applies defaults.
func Resolve(cfg FileConfig) (Settings, error) {
	invalid := func(format string, args ...any) (Settings, error) {
		return Settings{}, fmt.Errorf("%w: %s", exception.ErrConfigInvalid, fmt.Sprintf(format, args...))
	}

	connector := capability.ID(cfg.Capabilities.Connector).Normalize()
	broker := capability.ID(cfg.Capabilities.Broker).Normalize()
	reporter := capability.ID(cfg.Capabilities.Reporter).Normalize()
	if connector == "" || broker == "" || reporter == "" {
		return invalid("capabilities connector, broker and reporter are required")
	}

	creds := Credentials{
		APIKey:    strings.TrimSpace(cfg.Credentials.APIKey),
		APISecret: strings.TrimSpace(cfg.Credentials.APISecret),
	}
	if (creds.APIKey == "") != (creds.APISecret == "") {
		return invalid("credentials apiKey and apiSecret must be set together")
	}

	trading, err := resolveTrading(cfg.Trading)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %w", exception.ErrConfigInvalid, err)
	}

	if cfg.Risk.OrderRateLimit < 0 || cfg.Risk.OrderRateWindow < 0 {
		return invalid("risk orderRateLimit and orderRateWindow must be >= 0")
	}

	reload := ReloadSpec{
		Interval:     cfg.Reload.Interval.Std(),
		Watch:        cfg.Reload.Watch,
		FailureFatal: cfg.Reload.FailureFatal,
	}
	if reload.Interval < 0 {
		return invalid("reload interval must be >= 0")
	}
	if reload.Interval == 0 {
		reload.Interval = DefaultReloadInterval
	}

	if cfg.Loop.MinInterval < 0 {
		return invalid("loop minInterval must be >= 0")
	}

	httpSpec := HTTPSpec{Timeout: cfg.HTTP.Timeout.Std()}
	if httpSpec.Timeout < 0 {
		return invalid("http timeout must be >= 0")
	}
	if httpSpec.Timeout == 0 {
		httpSpec.Timeout = DefaultHTTPTimeout
	}

	if cfg.Profiling.Enabled && cfg.Profiling.ServerAddress == "" {
		return invalid("profiling serverAddress is required when profiling is enabled")
	}

	return Settings{
		Connector:   connector,
		Broker:      broker,
		Reporter:    reporter,
		Credentials: creds,
		Trading:     trading,
		Risk: risk.Config{
			Version:         cfg.Risk.Version,
			KillSwitch:      cfg.Risk.KillSwitch,
			OrderRateLimit:  cfg.Risk.OrderRateLimit,
			OrderRateWindow: cfg.Risk.OrderRateWindow.Std(),
			MaxOrders:       cfg.Risk.MaxOrders,
			AllowedSymbols:  cfg.Risk.AllowedSymbols,
		},
		Reload:     reload,
		Loop:       LoopSpec{MinInterval: cfg.Loop.MinInterval.Std()},
		HTTP:       httpSpec,
		Venues:     cfg.Venues,
		Postgres:   cfg.Reporters.Postgres,
		ReportFile: cfg.Reporters.File.Path,
		Profiling:  cfg.Profiling,
	}, nil
}

func resolveTrading(cfg TradingConfig) (TradingSpec, error) {
	symbol := strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if symbol == "" {
		return TradingSpec{}, fmt.Errorf("trading symbol is empty")
	}
	side, ok := market.ParseSide(cfg.Side)
	if !ok {
		return TradingSpec{}, fmt.Errorf("trading side %q is unknown", cfg.Side)
	}
	if strings.TrimSpace(cfg.Qty) == "" {
		return TradingSpec{}, fmt.Errorf("trading qty is empty")
	}
	qty, err := market.ParsePositiveDecimal(cfg.Qty)
	if err != nil {
		return TradingSpec{}, fmt.Errorf("trading qty %q: %w", cfg.Qty, err)
	}
	prefix := strings.TrimSpace(cfg.OrderPrefix)
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return TradingSpec{
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		OrderPrefix: prefix,
	}, nil
}
