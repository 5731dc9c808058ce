// Package config implements layered configuration for shellguard.
//
// Precedence, lowest to highest: built-in defaults, user config
// (~/.shellguard/config.toml), project config (.shellguard/config.toml),
// SHELLGUARD_* environment variables, explicit flag overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete shellguard configuration.
type Config struct {
	Rules RulesConfig `mapstructure:"rules" json:"rules"`
	Audit AuditConfig `mapstructure:"audit" json:"audit"`
}

// RulesConfig holds additive user rules. User rules are appended after the
// builtin tables and can never replace or remove them.
type RulesConfig struct {
	Blocking    []RuleConfig `mapstructure:"blocking" json:"blocking,omitempty"`
	Suggestions []RuleConfig `mapstructure:"suggestions" json:"suggestions,omitempty"`
}

// RuleConfig is one user-supplied rule.
type RuleConfig struct {
	Pattern string `mapstructure:"pattern" json:"pattern"`
	Message string `mapstructure:"message" json:"message"`
}

// AuditConfig controls the decision audit store.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Audit: AuditConfig{
			Enabled: true,
			Path:    "", // resolved to ~/.shellguard/decisions.db on open
		},
	}
}

// UserConfigPath returns the user-level config file path.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shellguard", "config.toml")
}

// LoadOptions configures Load.
type LoadOptions struct {
	// ConfigFile, when set, is used instead of the default search paths.
	ConfigFile string
	// ProjectDir is the directory searched for .shellguard/config.toml.
	ProjectDir string
	// FlagOverrides are dotted-key values from CLI flags (highest precedence).
	FlagOverrides map[string]any
}

// Load reads configuration with full precedence handling and validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	// Defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "")

	merge := func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := v.MergeConfig(strings.NewReader(string(data))); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	}

	if opts.ConfigFile != "" {
		if err := merge(opts.ConfigFile); err != nil {
			return nil, err
		}
	} else {
		if p := UserConfigPath(); p != "" {
			if err := merge(p); err != nil {
				return nil, err
			}
		}
		if opts.ProjectDir != "" {
			if err := merge(filepath.Join(opts.ProjectDir, ".shellguard", "config.toml")); err != nil {
				return nil, err
			}
		}
	}

	// Environment: SHELLGUARD_AUDIT_ENABLED etc.
	v.SetEnvPrefix("SHELLGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flags win over everything.
	for key, val := range opts.FlagOverrides {
		v.Set(key, val)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	checkRules := func(table string, list []RuleConfig) {
		for i, r := range list {
			if r.Pattern == "" {
				errs = append(errs, fmt.Sprintf("rules.%s[%d]: pattern is required", table, i))
				continue
			}
			if _, err := regexp.Compile(r.Pattern); err != nil {
				errs = append(errs, fmt.Sprintf("rules.%s[%d]: invalid pattern %q: %v", table, i, r.Pattern, err))
			}
			if r.Message == "" {
				errs = append(errs, fmt.Sprintf("rules.%s[%d]: message is required", table, i))
			}
		}
	}
	checkRules("blocking", cfg.Rules.Blocking)
	checkRules("suggestions", cfg.Rules.Suggestions)

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
