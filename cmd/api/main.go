package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/api"
	"github.com/opinionscience/wikimetron/internal/collectors"
	"github.com/opinionscience/wikimetron/internal/config"
	"github.com/opinionscience/wikimetron/internal/metrics"
	"github.com/opinionscience/wikimetron/internal/pipeline"
	"github.com/opinionscience/wikimetron/internal/wiki"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	configPath := flag.String("config", "", "Path to configuration file")
	portOverride := flag.Int("port", 0, "Override API port (default from config)")
	flag.Parse()

	// Config path: flag > env var > default
	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" {
		cfgPath = "configs/config.dev.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *portOverride > 0 {
		cfg.API.Port = *portOverride
	}

	level, _ := zerolog.ParseLevel(cfg.Logging.Level)
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "wikimetron-api").Logger().Level(level)
	logger.Info().Str("config", cfgPath).Int("port", cfg.API.Port).Msg("Starting Wikimetron API server")

	metrics.InitMetrics()
	metricsServer := metrics.NewServer(cfg.API.MetricsPort, logger)
	metricsServer.Start()

	blacklist, sockpuppets, err := loadSourceLists(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load source lists")
	}

	wikiClient := wiki.NewClient(&cfg.Wiki, logger)
	pipe := pipeline.New(&cfg.Analysis, collectors.All(collectors.Deps{
		Wiki:              wikiClient,
		Blacklist:         blacklist,
		Sockpuppets:       sockpuppets,
		ExcludeBots:       cfg.Analysis.ExcludeBots,
		ExcludePrivileged: cfg.Analysis.ExcludePrivileged,
		Logger:            logger,
	}), logger)

	server := api.NewServer(cfg, pipe, wikiClient, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Metrics server shutdown error")
	}
	logger.Info().Msg("Wikimetron API server stopped")
}

// loadSourceLists reads the blacklist and sockpuppet files when configured.
// Missing paths leave the corresponding metric inert rather than failing
// startup.
func loadSourceLists(cfg *config.Config, logger zerolog.Logger) (*collectors.DomainList, *collectors.UserList, error) {
	blacklist := collectors.NewDomainList(nil)
	if path := cfg.Sources.BlacklistPath; path != "" {
		var err error
		blacklist, err = collectors.LoadDomainList(path)
		if err != nil {
			return nil, nil, fmt.Errorf("blacklist %s: %w", path, err)
		}
		logger.Info().Str("path", path).Int("domains", blacklist.Len()).Msg("Loaded domain blacklist")
	} else {
		logger.Warn().Msg("No blacklist configured; suspicious-sources metric scores 0")
	}

	sockpuppets := collectors.NewUserList(nil)
	if path := cfg.Sources.SockpuppetPath; path != "" {
		var err error
		sockpuppets, err = collectors.LoadUserList(path)
		if err != nil {
			return nil, nil, fmt.Errorf("sockpuppet list %s: %w", path, err)
		}
		logger.Info().Str("path", path).Int("users", sockpuppets.Len()).Msg("Loaded sockpuppet list")
	} else {
		logger.Warn().Msg("No sockpuppet list configured; sockpuppet metric scores 0")
	}

	return blacklist, sockpuppets, nil
}
