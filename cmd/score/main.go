// Command score runs one analysis from the command line and prints the
// result envelope as JSON.
//
//	score -start 2024-06-01 -end 2024-06-30 -lang fr France "Emmanuel Macron"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/collectors"
	"github.com/opinionscience/wikimetron/internal/config"
	"github.com/opinionscience/wikimetron/internal/metrics"
	"github.com/opinionscience/wikimetron/internal/pipeline"
	"github.com/opinionscience/wikimetron/internal/wiki"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file (optional)")
	startDate := flag.String("start", "", "Analysis window start (YYYY-MM-DD)")
	endDate := flag.String("end", "", "Analysis window end (YYYY-MM-DD)")
	language := flag.String("lang", "", "Default language for bare titles")
	batchSize := flag.Int("batch", 0, "Pages per work item (default from config)")
	output := flag.String("o", "", "Write the JSON result to this file instead of stdout")
	verbose := flag.Bool("v", false, "Log collector progress to stderr")
	flag.Parse()

	pages := flag.Args()
	if len(pages) == 0 || *startDate == "" || *endDate == "" {
		fmt.Fprintln(os.Stderr, "usage: score -start YYYY-MM-DD -end YYYY-MM-DD [-lang xx] <page|url> ...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	metrics.InitMetrics()

	blacklist := loadDomainList(cfg.Sources.BlacklistPath, logger)
	sockpuppets := loadUserList(cfg.Sources.SockpuppetPath, logger)

	wikiClient := wiki.NewClient(&cfg.Wiki, logger)
	pipe := pipeline.New(&cfg.Analysis, collectors.All(collectors.Deps{
		Wiki:              wikiClient,
		Blacklist:         blacklist,
		Sockpuppets:       sockpuppets,
		ExcludeBots:       cfg.Analysis.ExcludeBots,
		ExcludePrivileged: cfg.Analysis.ExcludePrivileged,
		Logger:            logger,
	}), logger)

	req := pipeline.Request{
		Inputs:    pages,
		StartDate: *startDate,
		EndDate:   *endDate,
		Language:  *language,
		BatchSize: *batchSize,
	}

	result, err := pipe.Analyze(context.Background(), req)
	exitCode := 0
	if err != nil {
		lang := *language
		if lang == "" {
			lang = cfg.Analysis.DefaultLanguage
		}
		result = pipeline.ErrorResult(pages, lang, err)
		exitCode = 1
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *output != "" {
		if err := os.WriteFile(*output, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *output, err)
			os.Exit(1)
		}
	} else {
		os.Stdout.Write(data)
	}
	os.Exit(exitCode)
}

// loadConfig falls back to built-in defaults when no config file is given
// or the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.dev.yaml"
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}
	return config.LoadConfig(path)
}

func loadDomainList(path string, logger zerolog.Logger) *collectors.DomainList {
	if path == "" {
		return collectors.NewDomainList(nil)
	}
	list, err := collectors.LoadDomainList(path)
	if err != nil {
		logger.Warn().Err(err).Msg("Blacklist unavailable; suspicious-sources metric scores 0")
		return collectors.NewDomainList(nil)
	}
	return list
}

func loadUserList(path string, logger zerolog.Logger) *collectors.UserList {
	if path == "" {
		return collectors.NewUserList(nil)
	}
	list, err := collectors.LoadUserList(path)
	if err != nil {
		logger.Warn().Err(err).Msg("Sockpuppet list unavailable; sockpuppet metric scores 0")
		return collectors.NewUserList(nil)
	}
	return list
}
