package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Storage   StorageConfig   `koanf:"storage"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Providers ProvidersConfig `koanf:"providers"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type GatewayConfig struct {
	// PrimaryProvider overrides the first-initialized primary when that provider is available.
	PrimaryProvider string `koanf:"primary_provider"`
	// HealthCheckInterval re-probes adapters on a schedule. Zero keeps the startup result.
	HealthCheckInterval time.Duration `koanf:"healthcheck_interval"`
	// HealthCheckTimeout bounds each re-probe.
	HealthCheckTimeout time.Duration `koanf:"healthcheck_timeout"`
}

type StorageConfig struct {
	Type string `koanf:"type"` // none, memory, sqlite
	Path string `koanf:"path"`
}

type LoggingConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

type TelemetryConfig struct {
	// Tracing exports spans to stdout.
	Tracing bool `koanf:"tracing"`
}

type ProvidersConfig struct {
	Local   ProviderConfig `koanf:"local"`
	HostedA ProviderConfig `koanf:"hosted_a"`
	HostedB ProviderConfig `koanf:"hosted_b"`
	HostedC ProviderConfig `koanf:"hosted_c"`
}

// ProviderConfig is built once at startup and never mutated.
type ProviderConfig struct {
	Name        domain.ProviderName `koanf:"-"`
	BaseURL     string              `koanf:"base_url"`
	APIKey      string              `koanf:"api_key"`
	Model       string              `koanf:"model"`
	MaxTokens   int                 `koanf:"max_tokens"`
	Temperature float64             `koanf:"temperature"`
	TopP        float64             `koanf:"top_p"`
	Timeout     time.Duration       `koanf:"timeout"`
}

// Ordered returns the provider configs in registry construction order.
func (p ProvidersConfig) Ordered() []ProviderConfig {
	local, a, b, c := p.Local, p.HostedA, p.HostedB, p.HostedC
	local.Name = domain.ProviderLocal
	a.Name = domain.ProviderHostedA
	b.Name = domain.ProviderHostedB
	c.Name = domain.ProviderHostedC
	return []ProviderConfig{local, a, b, c}
}

// APIKeys returns the configured provider API keys, skipping empty ones.
func (p ProvidersConfig) APIKeys() []string {
	var keys []string
	for _, pc := range p.Ordered() {
		if pc.APIKey != "" {
			keys = append(keys, pc.APIKey)
		}
	}
	return keys
}

// envPrefixes maps environment variable prefixes to provider config keys.
var envPrefixes = map[string]string{
	"LOCAL_":    "providers.local.",
	"HOSTED_A_": "providers.hosted_a.",
	"HOSTED_B_": "providers.hosted_b.",
	"HOSTED_C_": "providers.hosted_c.",
}

var providerFields = map[string]string{
	"BASE_URL":    "base_url",
	"API_KEY":     "api_key",
	"MODEL":       "model",
	"MAX_TOKENS":  "max_tokens",
	"TEMPERATURE": "temperature",
	"TOP_P":       "top_p",
	"TIMEOUT":     "timeout",
}

var gatewayVars = map[string]string{
	"PRIMARY_PROVIDER":             "gateway.primary_provider",
	"GATEWAY_HEALTHCHECK_INTERVAL": "gateway.healthcheck_interval",
	"GATEWAY_HEALTHCHECK_TIMEOUT":  "gateway.healthcheck_timeout",
	"GATEWAY_PORT":                 "server.port",
	"GATEWAY_REQUEST_TIMEOUT":      "server.request_timeout",
	"GATEWAY_STORAGE_TYPE":         "storage.type",
	"GATEWAY_STORAGE_PATH":         "storage.path",
	"GATEWAY_LOG_LEVEL":            "logging.level",
	"GATEWAY_TRACING":              "telemetry.tracing",
}

var defaults = map[string]any{
	"server.port":                 8080,
	"server.request_timeout":      "5m",
	"gateway.healthcheck_timeout": "10s",
	"storage.type":                "none",
	"storage.path":                "./data/gateway.db",
	"logging.level":               "info",
	"telemetry.tracing":           false,

	"providers.local.base_url":    "http://localhost:11434",
	"providers.local.model":       "llama3.1:8b",
	"providers.hosted_a.base_url": "https://api.openai.com/v1",
	"providers.hosted_a.model":    "gpt-4o-mini",
	"providers.hosted_b.base_url": "https://api.anthropic.com",
	"providers.hosted_b.model":    "claude-3-5-haiku-latest",
	"providers.hosted_c.base_url": "https://generativelanguage.googleapis.com/v1beta",
	"providers.hosted_c.model":    "gemini-1.5-flash",
}

// envKey maps a recognized environment variable to its config key.
// Unrecognized variables map to "" and are skipped by the env provider.
func envKey(name string) string {
	if key, ok := gatewayVars[name]; ok {
		return key
	}
	for prefix, base := range envPrefixes {
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		if field, ok := providerFields[name[len(prefix):]]; ok {
			return base + field
		}
	}
	return ""
}

// Load builds the configuration from an optional YAML file named by
// GATEWAY_CONFIG_FILE, then environment variables, then defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("GATEWAY_CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
