package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
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

	var (
		showVersion      bool
		systemPromptFile string
	)
	flag.StringVar(&cfg.Question, "q", cfg.Question, "Question to answer")
	flag.IntVar(&cfg.TopK, "k", cfg.TopK, "Number of documents to retrieve")
	flag.StringVar(&cfg.AnswerPath, "out", cfg.AnswerPath, "Optional path to write the answer as Markdown")
	flag.StringVar(&cfg.AnswerPDFPath, "pdf", cfg.AnswerPDFPath, "Optional path to write the answer as PDF")
	flag.IntVar(&cfg.MaxTokens, "max.tokens", cfg.MaxTokens, "Maximum tokens in the generated answer (0 uses the default)")
	flag.StringVar(&cfg.SystemPrompt, "system.prompt", cfg.SystemPrompt, "Override the answering system prompt (inline string)")
	flag.StringVar(&systemPromptFile, "system.promptFile", "", "Path to a file containing the answering system prompt")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	app.BindCommonFlags(flag.CommandLine, &cfg)
	flag.Parse()

	if showVersion {
		fmt.Println(app.VersionString("ask"))
		return
	}
	// A prompt file takes precedence over the inline string
	if strings.TrimSpace(systemPromptFile) != "" {
		if b, err := os.ReadFile(systemPromptFile); err == nil {
			cfg.SystemPrompt = string(b)
		} else {
			log.Warn().Err(err).Str("path", systemPromptFile).Msg("system prompt file unreadable; using default")
		}
	}
	if cfg.Question == "" && flag.NArg() > 0 {
		cfg.Question = strings.Join(flag.Args(), " ")
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg, os.Stdout); err != nil {
		log.Error().Err(err).Msg("ask failed")
		os.Exit(app.ExitCode(err))
	}
}

func run(cfg app.Config, out io.Writer) error {
	if err := app.ValidateConfig(cfg, app.CommandAsk); err != nil {
		return err
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.CommandAsk)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	text, err := a.Ask(ctx)
	if text != "" {
		fmt.Fprintf(out, "Answer: %s\n", text)
	}
	return err
}
