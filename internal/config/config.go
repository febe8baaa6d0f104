// Package config provides configuration loading and validation for huntparse.
package config

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joshsymonds/huntparse/internal/models"
	"github.com/joshsymonds/huntparse/pkg/logger"
	"github.com/joshsymonds/huntparse/pkg/pathutil"
)

// EnvPrefix is prepended to environment variable overrides,
// e.g. HUNTPARSE_LOGGING_LEVEL=debug.
const EnvPrefix = "HUNTPARSE"

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// Config represents the complete huntparse configuration.
type Config struct {
	Parser     ParserConfig     `yaml:"parser" mapstructure:"parser"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// ParserConfig tunes how raw reports are normalized.
type ParserConfig struct {
	// SeverityOverrides maps kube-hunter vulnerability IDs to severities.
	// Keys are case-insensitive.
	SeverityOverrides map[string]string `yaml:"severity_overrides,omitempty" mapstructure:"severity_overrides"`
	DefaultSeverity   string            `yaml:"default_severity" mapstructure:"default_severity"`
	LocationScheme    string            `yaml:"location_scheme" mapstructure:"location_scheme"`
}

// ValidationConfig selects which validators run on parser output.
type ValidationConfig struct {
	Schema     bool `yaml:"schema" mapstructure:"schema"`
	Structural bool `yaml:"structural" mapstructure:"structural"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Parser: ParserConfig{
			DefaultSeverity: string(models.DefaultSeverity),
			LocationScheme:  "tcp",
		},
		Validation: ValidationConfig{
			Schema:     true,
			Structural: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("parser.default_severity", d.Parser.DefaultSeverity)
	v.SetDefault("parser.location_scheme", d.Parser.LocationScheme)
	v.SetDefault("validation.schema", d.Validation.Schema)
	v.SetDefault("validation.structural", d.Validation.Structural)
}

// LoadConfig reads a YAML configuration file, applies environment overrides
// and validates the result. An empty path yields defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		validPath, err := pathutil.ValidateConfigPath(path)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		v.SetConfigFile(validPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("logging.format must be console or json; got %q", c.Logging.Format)
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation settings cannot be negative")
	}

	if _, ok := models.NormalizeSeverity(c.Parser.DefaultSeverity); !ok {
		return fmt.Errorf("parser.default_severity %q is not a valid severity", c.Parser.DefaultSeverity)
	}

	for vid, sev := range c.Parser.SeverityOverrides {
		if _, ok := models.NormalizeSeverity(sev); !ok {
			return fmt.Errorf("parser.severity_overrides.%s: %q is not a valid severity", vid, sev)
		}
	}

	if c.Parser.LocationScheme != "" && !schemePattern.MatchString(c.Parser.LocationScheme) {
		return fmt.Errorf("parser.location_scheme %q is not a valid URI scheme", c.Parser.LocationScheme)
	}

	return nil
}

// DefaultSeverity returns the configured fallback severity.
func (c *Config) DefaultSeverity() models.Severity {
	return models.ParseSeverity(c.Parser.DefaultSeverity, models.DefaultSeverity)
}

// SeverityOverrides returns the overrides keyed by upper-case vulnerability ID.
func (c *Config) SeverityOverrides() map[string]models.Severity {
	out := make(map[string]models.Severity, len(c.Parser.SeverityOverrides))
	for vid, sev := range c.Parser.SeverityOverrides {
		if s, ok := models.NormalizeSeverity(sev); ok {
			out[strings.ToUpper(vid)] = s
		}
	}
	return out
}

// GetSeverityOverride returns the overridden severity for a vulnerability ID, if any.
func (c *Config) GetSeverityOverride(vid string) (models.Severity, bool) {
	sev, ok := c.SeverityOverrides()[strings.ToUpper(vid)]
	return sev, ok
}

// LoggerOptions converts the logging section into logger options.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
