package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v2"
)

type appConfig struct {
	listenAddr      string
	gameID          string
	logFormat       string
	logLevel        string
	metricsAddr     string
	maxClients      int
	handshakeTO     time.Duration
	clientReadTO    time.Duration
	discoveryMode   string // lan|mdns|none
	logMetricsEvery time.Duration
	configFile      string
}

// fileConfig mirrors appConfig's flag-settable fields for the optional
// --config YAML file, the lowest-precedence source.
type fileConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	GameID          string `yaml:"game_id"`
	LogFormat       string `yaml:"log_format"`
	LogLevel        string `yaml:"log_level"`
	MetricsAddr     string `yaml:"metrics_addr"`
	MaxClients      *int   `yaml:"max_clients"`
	HandshakeTO     string `yaml:"handshake_timeout"`
	ClientReadTO    string `yaml:"client_read_timeout"`
	DiscoveryMode   string `yaml:"discovery"`
	LogMetricsEvery string `yaml:"log_metrics_interval"`
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":12345", "Reliable (TCP) listen address")
	gameID := flag.String("game-id", "default", "Game variant id; clients with a different id are rejected")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	maxClients := flag.Int("max-clients", 0, "Maximum simultaneous sessions (0 = unlimited)")
	handshakeTO := flag.Duration("handshake-timeout", 3*time.Second, "Reliable handshake timeout")
	clientReadTO := flag.Duration("client-read-timeout", 60*time.Second, "Per-session reliable read deadline")
	discoveryMode := flag.String("discovery", "lan", "Discovery backend: lan|mdns|none")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	configFile := flag.String("config", "", "Optional YAML config file, lowest precedence (overridden by env and flags)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	cfg.gameID = *gameID
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.maxClients = *maxClients
	cfg.handshakeTO = *handshakeTO
	cfg.clientReadTO = *clientReadTO
	cfg.discoveryMode = *discoveryMode
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.configFile = *configFile

	if cfg.configFile != "" {
		if err := applyFileOverrides(cfg, setFlags); err != nil {
			fmt.Printf("config file error: %v\n", err)
			return nil, *showVersion
		}
	}
	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation; it never opens a socket.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.discoveryMode {
	case "lan", "mdns", "none":
	default:
		return fmt.Errorf("invalid discovery mode: %s", c.discoveryMode)
	}
	if c.gameID == "" {
		return errors.New("game-id must not be empty")
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	if c.handshakeTO <= 0 {
		return fmt.Errorf("handshake-timeout must be > 0")
	}
	if c.clientReadTO <= 0 {
		return fmt.Errorf("client-read-timeout must be > 0")
	}
	return nil
}

// applyFileOverrides layers --config's YAML beneath flags: a field is only
// applied if its flag was not explicitly set.
func applyFileOverrides(c *appConfig, set map[string]struct{}) error {
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if _, ok := set["listen"]; !ok && fc.ListenAddr != "" {
		c.listenAddr = fc.ListenAddr
	}
	if _, ok := set["game-id"]; !ok && fc.GameID != "" {
		c.gameID = fc.GameID
	}
	if _, ok := set["log-format"]; !ok && fc.LogFormat != "" {
		c.logFormat = fc.LogFormat
	}
	if _, ok := set["log-level"]; !ok && fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if _, ok := set["metrics-addr"]; !ok && fc.MetricsAddr != "" {
		c.metricsAddr = fc.MetricsAddr
	}
	if _, ok := set["max-clients"]; !ok && fc.MaxClients != nil {
		c.maxClients = *fc.MaxClients
	}
	if _, ok := set["handshake-timeout"]; !ok && fc.HandshakeTO != "" {
		d, err := time.ParseDuration(fc.HandshakeTO)
		if err != nil {
			return fmt.Errorf("invalid handshake_timeout: %w", err)
		}
		c.handshakeTO = d
	}
	if _, ok := set["client-read-timeout"]; !ok && fc.ClientReadTO != "" {
		d, err := time.ParseDuration(fc.ClientReadTO)
		if err != nil {
			return fmt.Errorf("invalid client_read_timeout: %w", err)
		}
		c.clientReadTO = d
	}
	if _, ok := set["discovery"]; !ok && fc.DiscoveryMode != "" {
		c.discoveryMode = fc.DiscoveryMode
	}
	if _, ok := set["log-metrics-interval"]; !ok && fc.LogMetricsEvery != "" {
		d, err := time.ParseDuration(fc.LogMetricsEvery)
		if err != nil {
			return fmt.Errorf("invalid log_metrics_interval: %w", err)
		}
		c.logMetricsEvery = d
	}
	return nil
}

// applyEnvOverrides maps NETCORE_HOST_* environment variables to config
// fields unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["listen"]; !ok {
		if v, ok := get("NETCORE_HOST_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["game-id"]; !ok {
		if v, ok := get("NETCORE_HOST_GAME_ID"); ok && v != "" {
			c.gameID = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("NETCORE_HOST_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("NETCORE_HOST_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("NETCORE_HOST_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["max-clients"]; !ok {
		if v, ok := get("NETCORE_HOST_MAX_CLIENTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.maxClients = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid NETCORE_HOST_MAX_CLIENTS: %w", err)
			}
		}
	}
	if _, ok := set["handshake-timeout"]; !ok {
		if v, ok := get("NETCORE_HOST_HANDSHAKE_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.handshakeTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid NETCORE_HOST_HANDSHAKE_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["client-read-timeout"]; !ok {
		if v, ok := get("NETCORE_HOST_CLIENT_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.clientReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid NETCORE_HOST_CLIENT_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["discovery"]; !ok {
		if v, ok := get("NETCORE_HOST_DISCOVERY"); ok && v != "" {
			c.discoveryMode = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("NETCORE_HOST_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid NETCORE_HOST_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}
