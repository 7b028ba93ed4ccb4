package server

import (
	"fmt"

	"github.com/maxpert/saslmechs/auth"
	"github.com/maxpert/saslmechs/config"
	"github.com/maxpert/saslmechs/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultCommand is the command name reported in request errors
const DefaultCommand = "hello"

// AdvertiserBuilder provides a fluent API for building a SASLMechanismAdvertiser
type AdvertiserBuilder struct {
	config    *config.Config
	logger    *zap.Logger
	metrics   *metrics.Collector
	directory auth.UserDirectory
	command   string
}

// NewAdvertiserBuilder creates a new builder with default configuration
func NewAdvertiserBuilder() *AdvertiserBuilder {
	return &AdvertiserBuilder{
		config:  config.DefaultConfig(),
		command: DefaultCommand,
	}
}

// WithConfig sets the configuration
func (b *AdvertiserBuilder) WithConfig(cfg *config.Config) *AdvertiserBuilder {
	b.config = cfg
	return b
}

// WithCommand sets the command name reported in request errors
func (b *AdvertiserBuilder) WithCommand(command string) *AdvertiserBuilder {
	b.command = command
	return b
}

// WithLogger sets a custom logger
func (b *AdvertiserBuilder) WithLogger(logger *zap.Logger) *AdvertiserBuilder {
	b.logger = logger
	return b
}

// WithZapLogger creates a logger using zap with the specified level
func (b *AdvertiserBuilder) WithZapLogger(level string) *AdvertiserBuilder {
	b.logger = NewZapLogger(level)
	return b
}

// WithMetrics sets the metrics collector
func (b *AdvertiserBuilder) WithMetrics(collector *metrics.Collector) *AdvertiserBuilder {
	b.metrics = collector
	return b
}

// WithUserDirectory sets the directory used to resolve principals
func (b *AdvertiserBuilder) WithUserDirectory(directory auth.UserDirectory) *AdvertiserBuilder {
	b.directory = directory
	return b
}

// Build validates the configuration and constructs the advertiser. Without an
// injected directory the configured user file is loaded.
func (b *AdvertiserBuilder) Build() (*SASLMechanismAdvertiser, error) {
	if b.config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mechanisms, err := b.config.Mechanisms()
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = NewZapLogger(b.config.Server.LogLevel)
	}

	directory := b.directory
	if directory == nil {
		fileDirectory, err := auth.NewFileUserDirectory(b.config.Auth.UserFile)
		if err != nil {
			return nil, err
		}
		directory = fileDirectory
	}

	logger.Info("SASL mechanism advertiser ready",
		zap.String("server", b.config.Server.Name),
		zap.Strings("mechanisms", mechanisms.List()))

	return &SASLMechanismAdvertiser{
		Directory:       directory,
		Mechanisms:      mechanisms,
		DefaultDatabase: b.config.Auth.DefaultDatabase,
		Command:         b.command,
		Log:             logger,
		Metrics:         b.metrics,
	}, nil
}

// NewZapLogger builds a zap logger for the given level, development style for debug
func NewZapLogger(level string) *zap.Logger {
	var zapConfig zap.Config

	switch level {
	case "debug":
		zapConfig = zap.NewDevelopmentConfig()
	case "info", "warn", "error":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = parseZapLevel(level)
	default:
		zapConfig = zap.NewProductionConfig()
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// Fallback to a basic logger if configuration fails
		logger, _ = zap.NewProduction()
	}

	return logger
}

func parseZapLevel(level string) zap.AtomicLevel {
	switch level {
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}
