package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxpert/saslmechs/auth"
	"github.com/maxpert/saslmechs/config"
	"github.com/maxpert/saslmechs/errors"
	"github.com/maxpert/saslmechs/metrics"
	"github.com/maxpert/saslmechs/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	// Define command-line flags
	var (
		configFile      = flag.String("config", "", "Configuration file path (YAML)")
		showVersion     = flag.Bool("version", false, "Show version and exit")
		generateConfig  = flag.String("generate-config", "", "Generate default config file and exit (e.g., config.yaml)")
		user            = flag.String("user", "", "Print the mechanisms advertised to a principal (db.user)")
		command         = flag.String("command", "", "Evaluate a JSON command document; '-' reads one document per line from stdin")
		addUser         = flag.String("add-user", "", "Derive credentials for a principal (db.user) and store them in the user file")
		password        = flag.String("password", "", "Password for -add-user")
		enableTelemetry = flag.Bool("enable-telemetry", false, "Enable telemetry endpoint (Prometheus metrics)")
		telemetryPort   = flag.Int("telemetry-port", 0, "Telemetry HTTP server port (overrides config)")
	)

	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("saslmechs version %s\n", version)
		return
	}

	// Generate default config and exit
	if *generateConfig != "" {
		cfg := config.DefaultConfig()
		if err := cfg.Save(*generateConfig); err != nil {
			log.Fatalf("Failed to generate config file: %v", err)
		}
		fmt.Printf("Generated default configuration: %s\n", *generateConfig)
		return
	}

	// Load configuration (SASLMECHS_* environment variables override the file)
	cfg := config.DefaultConfig()
	if err := cfg.Load(*configFile); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *enableTelemetry {
		cfg.Telemetry.Enabled = true
	}
	if *telemetryPort != 0 {
		cfg.Telemetry.Port = *telemetryPort
	}

	if *addUser != "" {
		if err := runAddUser(cfg, *addUser, *password); err != nil {
			log.Fatalf("Failed to add user: %v", err)
		}
		return
	}

	logger := server.NewZapLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	directory, err := auth.NewFileUserDirectory(cfg.Auth.UserFile)
	if err != nil {
		logger.Fatal("Failed to open user directory", zap.String("path", cfg.Auth.UserFile), zap.Error(err))
	}

	builder := server.NewAdvertiserBuilder().
		WithConfig(cfg).
		WithLogger(logger).
		WithUserDirectory(directory)

	if cfg.Telemetry.Enabled {
		registry := prometheus.NewRegistry()
		builder = builder.WithMetrics(metrics.NewCollector("saslmechs", registry))
		telemetryServer := metrics.NewServer(cfg.Telemetry.Port, registry)

		go func() {
			logger.Info("Telemetry server listening", zap.Int("port", telemetryServer.Port()))
			if err := telemetryServer.Start(); err != nil {
				logger.Error("Telemetry server failed", zap.Error(err))
			}
		}()
	}

	advertiser, err := builder.Build()
	if err != nil {
		logger.Fatal("Failed to create advertiser", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	setupReload(directory, logger)

	switch {
	case *user != "":
		err = runQuery(ctx, advertiser, *user, os.Stdout)
	case *command == "-":
		err = runStream(ctx, advertiser, os.Stdin, os.Stdout)
	case *command != "":
		err = runCommand(ctx, advertiser, []byte(*command), os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Request failed", zap.Error(err))
		os.Exit(1)
	}
}

// setupReload re-reads the user file on SIGHUP
func setupReload(directory *auth.FileUserDirectory, logger *zap.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)

	go func() {
		for range c {
			if err := directory.Reload(); err != nil {
				logger.Error("Failed to reload user file", zap.Error(err))
				continue
			}
			logger.Info("Reloaded user file", zap.Int("users", len(directory.Users())))
		}
	}()
}

// runQuery prints the mechanisms advertised to a single principal
func runQuery(ctx context.Context, advertiser *server.SASLMechanismAdvertiser, user string, out io.Writer) error {
	reply := map[string]interface{}{}
	cmd := map[string]interface{}{server.SupportedMechsField: user}
	if err := advertiser.Advertise(ctx, cmd, reply); err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(reply[server.SupportedMechsField])
}

// runCommand evaluates one JSON command document and prints the reply document
func runCommand(ctx context.Context, advertiser *server.SASLMechanismAdvertiser, doc []byte, out io.Writer) error {
	return json.NewEncoder(out).Encode(evaluate(ctx, advertiser, doc))
}

// runStream evaluates newline-delimited command documents until EOF or cancellation.
// Cancellation closes in when it is an io.Closer so a blocked read returns.
func runStream(ctx context.Context, advertiser *server.SASLMechanismAdvertiser, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	encoder := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			closeInput(in)
			return nil
		case line, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					closeInput(in)
					return nil
				}
				return <-scanErr
			}
			if len(line) == 0 {
				continue
			}
			if err := encoder.Encode(evaluate(ctx, advertiser, line)); err != nil {
				return err
			}
		}
	}
}

func closeInput(in io.Reader) {
	if closer, ok := in.(io.Closer); ok {
		closer.Close()
	}
}

// evaluate turns a command document into a reply document, reporting faults inline
func evaluate(ctx context.Context, advertiser *server.SASLMechanismAdvertiser, doc []byte) map[string]interface{} {
	var cmd map[string]interface{}
	if err := json.Unmarshal(doc, &cmd); err != nil {
		return errorReply(errors.NewRequestError(errors.FailedToParse, err.Error(), advertiser.Command, "", err))
	}

	reply := map[string]interface{}{}
	if err := advertiser.Advertise(ctx, cmd, reply); err != nil {
		return errorReply(err)
	}
	reply["ok"] = 1
	return reply
}

func errorReply(err error) map[string]interface{} {
	code := errors.GetErrorCode(err)
	return map[string]interface{}{
		"ok":       0,
		"code":     code,
		"codeName": errors.CodeName(code),
		"errmsg":   err.Error(),
	}
}

// runAddUser derives credentials for every enabled SCRAM mechanism and saves the entry
func runAddUser(cfg *config.Config, principal, password string) error {
	name, err := auth.ParseUserName(principal, cfg.Auth.DefaultDatabase)
	if err != nil {
		return err
	}

	directory, err := auth.LoadOrCreateFileUserDirectory(cfg.Auth.UserFile)
	if err != nil {
		return err
	}

	entry := auth.UserEntry{User: name.User, DB: name.DB}
	if name.IsExternal() {
		entry.External = true
	} else {
		if password == "" {
			return fmt.Errorf("-password is required for local users")
		}
		entry.Credentials = map[string]auth.SCRAMCredential{}
		for _, mechanism := range cfg.Auth.Mechanisms {
			variant, ok := auth.SCRAMVariantForMechanism(mechanism)
			if !ok {
				continue
			}
			cred, err := auth.NewSCRAMCredential(variant, name.User, password, nil, 0)
			if err != nil {
				return err
			}
			entry.Credentials[mechanism] = cred
		}
		if len(entry.Credentials) == 0 {
			return fmt.Errorf("no SCRAM mechanism is enabled; nothing to derive for %s", name)
		}
	}

	if err := directory.Put(entry); err != nil {
		return err
	}
	if err := directory.Save(); err != nil {
		return err
	}

	fmt.Printf("Stored %s in %s\n", name, cfg.Auth.UserFile)
	return nil
}
