// Siteforged is a conversational website-building daemon.
//
// It walks a user through describing a website section by section,
// generates each section with an LLM, assembles the page, and packages
// the result with a generated backend API and test report.
//
// Usage:
//
//	# Start the daemon with defaults
//	siteforged
//
//	# Start with a config file
//	siteforged -config /etc/siteforged/config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9090 AUTH_ENCRYPTION_KEY=... siteforged
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/agents"
	"github.com/siteforgelabs/siteforged/internal/auth"
	"github.com/siteforgelabs/siteforged/internal/config"
	"github.com/siteforgelabs/siteforged/internal/contextstore"
	"github.com/siteforgelabs/siteforged/internal/embeddings"
	"github.com/siteforgelabs/siteforged/internal/httpapi"
	"github.com/siteforgelabs/siteforged/internal/logging"
	"github.com/siteforgelabs/siteforged/internal/orchestrator"
	"github.com/siteforgelabs/siteforged/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  siteforged            Start the daemon\n")
			fmt.Fprintf(os.Stderr, "  siteforged version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("siteforged %s\n", version)
	fmt.Printf("  commit: %s\n", gitCommit)
	fmt.Printf("  built:  %s\n", buildDate)
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting siteforged",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port))

	embedSvc, err := embeddings.NewService(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	store, err := contextstore.New(cfg.ContextStore, embedSvc.EmbeddingFunc(), logger)
	if err != nil {
		return fmt.Errorf("opening context store: %w", err)
	}

	authSvc, err := auth.NewService(cfg.Auth, cfg.Generation.DefaultAPIKey.Value(), store, logger)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.New(cfg.Telemetry.ServiceName)
	}

	generator := agents.NewLLMGenerator(cfg.Generation, logger)
	orch := orchestrator.New(
		generator,
		agents.NewFrontendAgent(generator, logger),
		agents.NewBackendAgent(generator, logger),
		agents.NewTestAgent(generator, logger),
		store,
		metrics,
		logger,
	)

	srv := httpapi.NewServer(cfg, authSvc, orch, metrics, logger)
	return srv.Start(ctx)
}
