package config

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultLogOutput       = "stdout"
	DefaultMetricsNS       = "modboot"
	DefaultMarker          = "I"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the root configuration of a modboot application.
type Config struct {
	// Includes lists files merged underneath this one, in order.
	Includes []string `yaml:"includes,omitempty"`

	Application ApplicationConfig       `yaml:"application"`
	Logging     LoggingConfig           `yaml:"logging"`
	Tracing     TracingConfig           `yaml:"tracing"`
	Metrics     MetricsConfig           `yaml:"metrics"`
	Exposure    ExposureConfig          `yaml:"exposure"`
	Pipeline    PipelineConfig          `yaml:"pipeline"`
	Modules     map[string]ModuleConfig `yaml:"modules,omitempty"`
}

// ApplicationConfig configures the application host.
type ApplicationConfig struct {
	Name            string   `yaml:"name,omitempty"`
	Environment     string   `yaml:"environment,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	Output string `yaml:"output,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace,omitempty"`
}

// ExposureConfig configures the exposure resolver.
type ExposureConfig struct {
	// Marker is the capability name prefix stripped before the convention
	// match. Nil means DefaultMarker; an empty string disables stripping.
	Marker *string `yaml:"marker,omitempty"`
}

// PipelineConfig configures the configuration pipeline.
type PipelineConfig struct {
	// TerminalFailure makes a failed run final instead of retryable.
	TerminalFailure bool `yaml:"terminalFailure"`
}

// ModuleConfig holds per-module settings keyed by module name.
type ModuleConfig struct {
	Disabled             bool           `yaml:"disabled,omitempty"`
	EnabledWhen          string         `yaml:"enabledWhen,omitempty"`
	SkipAutoRegistration bool           `yaml:"skipAutoRegistration,omitempty"`
	Settings             map[string]any `yaml:"settings,omitempty"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = DefaultLogOutput
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNS
	}
	if c.Tracing.Enabled && c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}
	if c.Application.ShutdownTimeout == 0 {
		c.Application.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Modules == nil {
		c.Modules = make(map[string]ModuleConfig)
	}
}

// Module returns the settings of the named module.
func (c *Config) Module(name string) (ModuleConfig, bool) {
	m, ok := c.Modules[name]
	return m, ok
}

// MarkerOrDefault returns the configured marker or DefaultMarker.
func (e ExposureConfig) MarkerOrDefault() string {
	if e.Marker == nil {
		return DefaultMarker
	}
	return *e.Marker
}

// String returns the configuration as YAML.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimSpace(string(out))
}

// MergeConfigs merges configurations; later ones take precedence.
func MergeConfigs(configs ...*Config) *Config {
	if len(configs) == 0 {
		return DefaultConfig()
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		result = mergeTwo(result, configs[i])
	}
	return result
}

// mergeTwo merges two configurations, with the second taking precedence.
// Scalars are overridden when set; modules are merged by name.
func mergeTwo(base, override *Config) *Config {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}

	result := *base
	result.Includes = nil

	if override.Application.Name != "" {
		result.Application.Name = override.Application.Name
	}
	if override.Application.Environment != "" {
		result.Application.Environment = override.Application.Environment
	}
	if override.Application.ShutdownTimeout != 0 {
		result.Application.ShutdownTimeout = override.Application.ShutdownTimeout
	}

	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}

	if override.Tracing.Enabled {
		result.Tracing = override.Tracing
	}
	if override.Metrics.Enabled {
		result.Metrics.Enabled = true
	}
	if override.Metrics.Namespace != "" {
		result.Metrics.Namespace = override.Metrics.Namespace
	}
	if override.Exposure.Marker != nil {
		result.Exposure.Marker = override.Exposure.Marker
	}
	if override.Pipeline.TerminalFailure {
		result.Pipeline.TerminalFailure = true
	}

	result.Modules = maps.Clone(base.Modules)
	if result.Modules == nil {
		result.Modules = make(map[string]ModuleConfig, len(override.Modules))
	}
	for name, m := range override.Modules {
		result.Modules[name] = m
	}

	return &result
}
