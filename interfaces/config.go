package interfaces

// Config defines the interface for server configuration
type Config interface {
	// GetAuth returns authentication configuration
	GetAuth() AuthConfig

	// GetServer returns server configuration
	GetServer() ServerConfig

	// GetTelemetry returns telemetry configuration
	GetTelemetry() TelemetryConfig

	// Validate validates the configuration
	Validate() error

	// Load loads configuration from a source
	Load(source string) error

	// Save saves configuration to a destination
	Save(destination string) error
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	// Enabled SASL mechanisms, read once at startup
	Mechanisms []string `koanf:"mechanisms" yaml:"mechanisms"`

	// Path to the YAML user file
	UserFile string `koanf:"user_file" yaml:"user_file"`

	// Database used for principal names that are not database-qualified
	DefaultDatabase string `koanf:"default_database" yaml:"default_database"`
}

// ServerConfig holds server information configuration
type ServerConfig struct {
	Name     string `koanf:"name" yaml:"name"`
	LogLevel string `koanf:"log_level" yaml:"log_level"`
}

// TelemetryConfig holds the metrics endpoint configuration
type TelemetryConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
	Port    int  `koanf:"port" yaml:"port"`
}
