package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/wikirag/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := app.DefaultConfig()
	args := os.Args[1:]
	if err := app.LoadLayers(&cfg, app.ArgValue(args, "config"), app.ArgValue(args, "env")); err != nil {
		log.Error().Err(err).Msg("load configuration")
		os.Exit(1)
	}

	var showVersion bool
	flag.StringVar(&cfg.URL, "u", cfg.URL, "URL of a single wiki page to scrape")
	flag.StringVar(&cfg.URLFile, "f", cfg.URLFile, "File with one wiki URL per line")
	flag.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "Output folder for text and CSV files")
	flag.StringVar(&cfg.TableClass, "table.class", cfg.TableClass, "Only extract tables with this class (empty keeps all)")
	flag.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent for page requests")
	flag.BoolVar(&cfg.SSLVerify, "ssl.verify", cfg.SSLVerify, "Verify TLS certificates of the wiki server")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	app.BindBaseFlags(flag.CommandLine, &cfg)
	flag.Parse()

	if showVersion {
		fmt.Println(app.VersionString("wikiscrape"))
		return
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("scrape failed")
		os.Exit(app.ExitCode(err))
	}
}

func run(cfg app.Config) error {
	if err := app.ValidateConfig(cfg, app.CommandScrape); err != nil {
		return err
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.CommandScrape)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	_, err = a.Scrape(ctx)
	return err
}
