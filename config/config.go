package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/maxpert/saslmechs/auth"
	"github.com/maxpert/saslmechs/errors"
	"github.com/maxpert/saslmechs/interfaces"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file settings.
// SASLMECHS_AUTH__USER_FILE maps to auth.user_file.
const EnvPrefix = "SASLMECHS_"

var logLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var _ interfaces.Config = (*Config)(nil)

// DefaultConfig creates a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Auth: interfaces.AuthConfig{
			Mechanisms:      []string{auth.MechanismSCRAMSHA1, auth.MechanismSCRAMSHA256},
			UserFile:        "./users.yaml",
			DefaultDatabase: "admin",
		},
		Server: interfaces.ServerConfig{
			Name:     "saslmechs",
			LogLevel: "info",
		},
		Telemetry: interfaces.TelemetryConfig{
			Enabled: false,
			Port:    9419,
		},
	}
}

// Config implements the interfaces.Config interface
type Config struct {
	Auth      interfaces.AuthConfig      `koanf:"auth" yaml:"auth"`
	Server    interfaces.ServerConfig    `koanf:"server" yaml:"server"`
	Telemetry interfaces.TelemetryConfig `koanf:"telemetry" yaml:"telemetry"`
}

// GetAuth returns authentication configuration
func (c *Config) GetAuth() interfaces.AuthConfig {
	return c.Auth
}

// GetServer returns server configuration
func (c *Config) GetServer() interfaces.ServerConfig {
	return c.Server
}

// GetTelemetry returns telemetry configuration
func (c *Config) GetTelemetry() interfaces.TelemetryConfig {
	return c.Telemetry
}

// Mechanisms returns the enabled mechanism set
func (c *Config) Mechanisms() (auth.MechanismSet, error) {
	set, err := auth.ParseMechanismSet(c.Auth.Mechanisms)
	if err != nil {
		return auth.MechanismSet{}, errors.NewConfigError(err.Error(), "auth", "mechanisms", err)
	}
	return set, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate auth configuration
	for _, mechanism := range c.Auth.Mechanisms {
		if !auth.IsKnownMechanism(mechanism) {
			return errors.NewConfigValidationError("auth", "mechanisms", fmt.Sprintf("unknown mechanism %q", mechanism))
		}
	}

	if c.Auth.UserFile == "" {
		return errors.NewConfigValidationError("auth", "user_file", "user file path cannot be empty")
	}

	if strings.Contains(c.Auth.DefaultDatabase, ".") {
		return errors.NewConfigValidationError("auth", "default_database", "database name cannot contain '.'")
	}

	// Validate server configuration
	if _, ok := logLevels[c.Server.LogLevel]; !ok {
		return errors.NewConfigValidationError("server", "log_level", fmt.Sprintf("unknown log level %q", c.Server.LogLevel))
	}

	// Validate telemetry configuration
	if c.Telemetry.Enabled && (c.Telemetry.Port <= 0 || c.Telemetry.Port > 65535) {
		return errors.NewConfigValidationError("telemetry", "port", fmt.Sprintf("invalid port: %d", c.Telemetry.Port))
	}

	return nil
}

// Load loads configuration from a YAML file, then applies SASLMECHS_* environment
// overrides on top. An empty source applies only the environment.
func (c *Config) Load(source string) error {
	k := koanf.New(".")

	if source != "" {
		ext := filepath.Ext(source)
		if ext != ".yaml" && ext != ".yml" {
			return errors.NewConfigError(fmt.Sprintf("unsupported configuration format: %s (only YAML supported)", ext), "", "", nil)
		}

		if err := k.Load(file.Provider(source), yaml.Parser()); err != nil {
			return errors.NewConfigError("failed to read configuration file", "", "", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return errors.NewConfigError("failed to read environment", "", "", err)
	}

	// Lists replace the defaults instead of merging element-wise
	if k.Exists("auth.mechanisms") {
		c.Auth.Mechanisms = nil
	}

	if err := k.Unmarshal("", c); err != nil {
		return errors.NewConfigError("failed to parse configuration", "", "", err)
	}

	return c.Validate()
}

// listKeys are environment keys holding comma-separated lists
var listKeys = map[string]struct{}{
	"auth.mechanisms": {},
}

// transformEnv maps SASLMECHS_AUTH__USER_FILE to auth.user_file and splits list keys
// on commas. An empty list value yields an empty list.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if _, ok := listKeys[key]; ok {
		parts := []string{}
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		return key, parts
	}
	return key, value
}

// Save saves configuration to a YAML file
func (c *Config) Save(destination string) error {
	// Ensure destination directory exists
	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(destination, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}
