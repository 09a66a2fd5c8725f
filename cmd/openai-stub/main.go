package main

import (
	"flag"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/wikirag/internal/llm"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		addr    string
		model   string
		dims    int
		verbose bool
	)
	flag.StringVar(&addr, "addr", envOr("ADDR", ":8081"), "Listen address")
	flag.StringVar(&model, "model", envOr("MODEL_ID", "test-model"), "Model id reported by /v1/models")
	flag.IntVar(&dims, "dims", envInt("STUB_DIMENSIONS", llm.StubDimensions), "Embedding vector size")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           llm.StubHandler(model, dims),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Str("model", model).Int("dims", dims).Msg("openai-stub listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}
