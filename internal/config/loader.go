package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// DefaultMaxIncludes bounds the number of files one load may read.
const DefaultMaxIncludes = 10

// Loader handles configuration loading from files and readers.
type Loader struct {
	loading      map[string]bool
	maxIncludes  int
	includeCount int
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		loading:     make(map[string]bool),
		maxIncludes: DefaultMaxIncludes,
	}
}

// LoadConfig loads path with its includes, applies defaults and validates
// the result.
func LoadConfig(path string) (*Config, error) {
	cfg, err := NewLoader().LoadWithIncludes(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromReader loads, defaults and validates configuration from r.
// Includes are not followed.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg, err := NewLoader().LoadFromReader(r)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration from a single file without following includes.
func (l *Loader) Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // path is validated via filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return l.parseConfig(data)
}

// LoadFromReader loads configuration from an io.Reader.
func (l *Loader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return l.parseConfig(data)
}

// parseConfig parses YAML data into a Config.
func (l *Loader) parseConfig(data []byte) (*Config, error) {
	content := l.substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment variable values.
func (l *Loader) substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// LoadWithIncludes loads path and the files it includes. Included files
// form the base in listed order; the including file overrides them.
func (l *Loader) LoadWithIncludes(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	return l.loadWithIncludes(absPath)
}

// loadWithIncludes recursively loads configuration files with include support.
func (l *Loader) loadWithIncludes(path string) (*Config, error) {
	if l.loading[path] {
		return nil, fmt.Errorf("circular include detected: %s", path)
	}

	if l.includeCount >= l.maxIncludes {
		return nil, fmt.Errorf("maximum include depth (%d) exceeded", l.maxIncludes)
	}

	l.loading[path] = true
	defer delete(l.loading, path)
	l.includeCount++

	data, err := os.ReadFile(path) //nolint:gosec // path validated via circular include check
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	current, err := l.parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	layers := make([]*Config, 0, len(current.Includes)+1)
	for _, includePath := range current.Includes {
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(filepath.Dir(path), includePath)
		}

		included, err := l.loadWithIncludes(includePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load include %s: %w", includePath, err)
		}
		layers = append(layers, included)
	}
	layers = append(layers, current)

	return MergeConfigs(layers...), nil
}

// ResolveConfigPath resolves a configuration file path, checking common locations.
func ResolveConfigPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("config file not found: %s", path)
	}

	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}

	etcPath := filepath.Join(string(filepath.Separator), "etc", "modboot")
	commonPaths := []string{
		filepath.Join("configs", path),
		filepath.Join(etcPath, path),
	}
	if home, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(home, ".modboot", path))
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("config file not found: %s", path)
}
