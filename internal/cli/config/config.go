package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config represents the fielder configuration
type Config struct {
	// Debuggable enables notes and stack traces in diagnostics
	Debuggable bool `mapstructure:"debuggable"`
	// Output is the directory generated files go to ("" = next to the source)
	Output string `mapstructure:"output"`
	// Patterns are the Go package patterns scanned for markers
	Patterns []string `mapstructure:"patterns"`
	// Manifests are YAML type manifests processed instead of Go packages
	Manifests []string `mapstructure:"manifests"`
	// Tests includes _test.go files when scanning packages
	Tests bool `mapstructure:"tests"`
}

// Load loads the configuration from fielder.yml or fielder.yaml in dir
// ("" means the working directory). Environment variables prefixed with
// FIELDER_ override file values.
func Load(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("debuggable", true)
	v.SetDefault("output", "")
	v.SetDefault("patterns", []string{"./..."})
	v.SetDefault("manifests", []string{})
	v.SetDefault("tests", false)

	if dir == "" {
		dir = "."
	}
	v.SetConfigName("fielder")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("fielder")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Options returns the string-keyed option map handed to the processor
func (c *Config) Options() map[string]string {
	return map[string]string{
		"debuggable": strconv.FormatBool(c.Debuggable),
		"output":     c.Output,
	}
}

// FindConfigFile returns the config file in dir, or "" if there is none
func FindConfigFile(dir string) string {
	for _, name := range []string{"fielder.yml", "fielder.yaml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if len(cfg.Patterns) == 0 && len(cfg.Manifests) == 0 {
		return fmt.Errorf("patterns must not be empty when no manifests are configured")
	}
	for _, m := range cfg.Manifests {
		if m == "" {
			return fmt.Errorf("manifests must not contain empty paths")
		}
	}
	return nil
}
