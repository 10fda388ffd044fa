package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/internal/telemetry"
	"github.com/marmos91/esgate/pkg/api"
	"github.com/marmos91/esgate/pkg/cache"
	"github.com/marmos91/esgate/pkg/config"
	"github.com/marmos91/esgate/pkg/crypto"
	"github.com/marmos91/esgate/pkg/directory"
	"github.com/marmos91/esgate/pkg/issuer"
	"github.com/marmos91/esgate/pkg/metrics"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `esgate - Elasticsearch authentication gate

Turns trusted proxy identity headers into Elasticsearch users with
short-lived passwords and answers with a Basic Authorization header.

Usage:
  esgate <command> [flags]

Commands:
  init     Initialize a sample configuration file
  start    Start the esgate server
  keygen   Generate a secret key for credential encryption
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/esgate/config.yaml)
  --force            Force overwrite existing config file (init command only)

Examples:
  # Initialize config file
  esgate init

  # Start server with default config location
  esgate start

  # Start server with custom config
  esgate start --config /etc/esgate/config.yaml

  # Use environment variables to override config
  ESGATE_LOGGING_LEVEL=DEBUG esgate start

Environment Variables:
  All configuration options can be overridden using environment variables.
  Format: ESGATE_<SECTION>_<KEY> (use underscores for nested keys)

  Examples:
    ESGATE_LOGGING_LEVEL=DEBUG
    ESGATE_SERVER_PORT=5601
    ESGATE_ELASTICSEARCH_URL=https://es.internal:9200
    ESGATE_SECRET_KEY=<64 hex chars>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "init":
		runInit()
	case "start":
		runStart()
	case "keygen":
		runKeygen()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("esgate %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// runInit handles the init subcommand
func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/esgate/config.yaml)")
	force := initFlags.Bool("force", false, "Force overwrite existing config file")

	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	var configPath string
	var err error

	if *configFile != "" {
		err = config.InitConfigToPath(*configFile, *force)
		configPath = *configFile
	} else {
		configPath, err = config.InitConfig(*force)
	}

	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set your Elasticsearch credentials in the configuration file")
	fmt.Println("  2. Start the server with: esgate start")
	fmt.Printf("  3. Or specify custom config: esgate start --config %s\n", configPath)
}

// runKeygen handles the keygen subcommand
func runKeygen() {
	key, err := crypto.GenerateSecretKey()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	fmt.Println(key)
}

// runStart handles the start subcommand
func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/esgate/config.yaml)")

	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "esgate",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(*configFile))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}

	// Metrics before anything that records them.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "endpoint", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	// A generated key works until the next restart; warn loudly.
	if _, err := cfg.EnsureSecretKey(); err != nil {
		log.Fatalf("Failed to generate secret key: %v", err)
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("cache close error", "error", err)
		}
	}()
	logger.Info("Cache initialized", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL.String())

	dir := directory.NewElasticsearchClient(cfg.Elasticsearch)
	if cfg.Elasticsearch.DryRun {
		logger.Warn("Dry run enabled, no users will be written to the directory")
	} else {
		if err := dir.Authenticate(ctx); err != nil {
			log.Fatalf("Directory authentication failed: %v", err)
		}
		logger.Info("Directory reachable", "url", cfg.Elasticsearch.URL)
	}

	iss := issuer.New(store, dir, crypto.New(cfg.SecretKey), cfg.Roles, issuer.Config{
		TTL:           cfg.Cache.TTL,
		ExtendTTL:     cfg.Issuance.ExtendTTL,
		FixedPassword: cfg.Issuance.FixedPassword,
		DryRun:        cfg.Elasticsearch.DryRun,
	})

	srv := api.NewServer(cfg, iss, store, dir)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}

// getConfigSource returns a description of where the config was loaded from
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
