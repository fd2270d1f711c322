package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vyrodovalexey/modboot/internal/util"
)

// metricNamespacePattern is the Prometheus metric name grammar.
var metricNamespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	validLogFormats = []string{"json", "console"}
	validLogOutputs = []string{"stdout", "stderr"}
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is reports whether target is util.ErrConfigInvalid.
func (e ValidationErrors) Is(target error) bool {
	return target == util.ErrConfigInvalid
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates modboot configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a configuration.
func ValidateConfig(config *Config) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns every problem found.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateApplication(&config.Application)
	v.validateLogging(&config.Logging)
	v.validateTracing(&config.Tracing)
	v.validateMetrics(&config.Metrics)
	v.validateExposure(&config.Exposure)
	v.validateModules(config.Modules)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateApplication(app *ApplicationConfig) {
	if app.ShutdownTimeout < 0 {
		v.addError("application.shutdownTimeout", "must not be negative")
	}
	if app.Name != "" {
		if _, err := util.NotBlank(app.Name, "name", 128, 0); err != nil {
			v.addError("application.name", err.Error())
		}
	}
}

func (v *Validator) validateLogging(logging *LoggingConfig) {
	if logging.Level != "" && !contains(validLogLevels, logging.Level) {
		v.addError("logging.level", fmt.Sprintf("must be one of %s", strings.Join(validLogLevels, ", ")))
	}
	if logging.Format != "" && !contains(validLogFormats, logging.Format) {
		v.addError("logging.format", fmt.Sprintf("must be one of %s", strings.Join(validLogFormats, ", ")))
	}
	if logging.Output != "" && !contains(validLogOutputs, logging.Output) {
		v.addError("logging.output", fmt.Sprintf("must be one of %s", strings.Join(validLogOutputs, ", ")))
	}
}

func (v *Validator) validateTracing(tracing *TracingConfig) {
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "must be between 0 and 1")
	}
	if tracing.OTLPEndpoint != "" && strings.Contains(tracing.OTLPEndpoint, "://") {
		v.addError("tracing.otlpEndpoint", "must be host:port without a scheme")
	}
}

func (v *Validator) validateMetrics(metrics *MetricsConfig) {
	if metrics.Namespace != "" && !metricNamespacePattern.MatchString(metrics.Namespace) {
		v.addError("metrics.namespace", "must match "+metricNamespacePattern.String())
	}
}

func (v *Validator) validateExposure(exposure *ExposureConfig) {
	if exposure.Marker != nil && strings.TrimSpace(*exposure.Marker) != *exposure.Marker {
		v.addError("exposure.marker", "must not contain leading or trailing whitespace")
	}
}

func (v *Validator) validateModules(modules map[string]ModuleConfig) {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := "modules." + name
		if strings.TrimSpace(name) == "" {
			v.addError("modules", "module name must not be blank")
			continue
		}
		m := modules[name]
		if m.Disabled && m.EnabledWhen != "" {
			v.addError(path, "disabled and enabledWhen are mutually exclusive")
		}
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
