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
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := app.DefaultConfig()
	args := os.Args[1:]
	if err := app.LoadLayers(&cfg, app.ArgValue(args, "config"), app.ArgValue(args, "env")); err != nil {
		log.Error().Err(err).Msg("load configuration")
		os.Exit(1)
	}

	var showVersion bool
	flag.StringVar(&cfg.InputDir, "i", cfg.InputDir, "Folder of .txt, .md and .csv files to embed")
	flag.BoolVar(&cfg.EnableCSV, "csv", cfg.EnableCSV, "Summarize and embed CSV files")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	app.BindCommonFlags(flag.CommandLine, &cfg)
	flag.Parse()

	if showVersion {
		fmt.Println(app.VersionString("embed"))
		return
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("embed failed")
		os.Exit(app.ExitCode(err))
	}
}

func run(cfg app.Config) error {
	if err := app.ValidateConfig(cfg, app.CommandEmbed); err != nil {
		return err
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.CommandEmbed)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	_, err = a.Embed(ctx)
	return err
}
