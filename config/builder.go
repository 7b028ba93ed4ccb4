package config

// ConfigBuilder provides a fluent API for building configuration
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder with defaults
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: DefaultConfig(),
	}
}

// FromConfig creates a builder from an existing configuration
func FromConfig(config *Config) *ConfigBuilder {
	builder := NewConfigBuilder()
	*builder.config = *config
	builder.config.Auth.Mechanisms = append([]string(nil), config.Auth.Mechanisms...)
	return builder
}

// Auth Configuration

// WithMechanisms replaces the enabled mechanism list
func (b *ConfigBuilder) WithMechanisms(mechanisms ...string) *ConfigBuilder {
	b.config.Auth.Mechanisms = append([]string(nil), mechanisms...)
	return b
}

// WithUserFile sets the path of the YAML user file
func (b *ConfigBuilder) WithUserFile(path string) *ConfigBuilder {
	b.config.Auth.UserFile = path
	return b
}

// WithDefaultDatabase sets the database for unqualified principal names
func (b *ConfigBuilder) WithDefaultDatabase(db string) *ConfigBuilder {
	b.config.Auth.DefaultDatabase = db
	return b
}

// Server Configuration

// WithServerName sets the server name used in logs
func (b *ConfigBuilder) WithServerName(name string) *ConfigBuilder {
	b.config.Server.Name = name
	return b
}

// WithLogLevel sets the log level
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.config.Server.LogLevel = level
	return b
}

// Telemetry Configuration

// WithTelemetry enables the metrics endpoint on port
func (b *ConfigBuilder) WithTelemetry(port int) *ConfigBuilder {
	b.config.Telemetry.Enabled = true
	b.config.Telemetry.Port = port
	return b
}

// Build returns the configured Config
func (b *ConfigBuilder) Build() (*Config, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// BuildUnsafe returns the configured Config without validation
func (b *ConfigBuilder) BuildUnsafe() *Config {
	return b.config
}
