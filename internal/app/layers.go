package app

import (
	"flag"
	"fmt"
	"strings"

	"github.com/hyperifyio/wikirag/internal/extract"
	"github.com/hyperifyio/wikirag/internal/llm"
	"github.com/hyperifyio/wikirag/internal/vectorstore"
)

// DefaultConfig returns the built-in defaults, the lowest configuration layer.
func DefaultConfig() Config {
	return Config{
		TableClass:      extract.DefaultTableClass,
		UserAgent:       DefaultUserAgent,
		TopK:            DefaultTopK,
		LLMAPIType:      llm.APITypeOpenAI,
		LLMAPIVersion:   DefaultAPIVersion,
		EmbeddingModel:  DefaultEmbeddingModel,
		CompletionModel: DefaultCompletionModel,
		VectorStore:     vectorstore.BackendLocal,
		VectorStorePath: DefaultVectorStorePath,
		Collection:      vectorstore.DefaultCollection,
		CacheDir:        DefaultCacheDir,
	}
}

// ArgValue returns the value of -name or --name in args without parsing the
// rest, so the config file can be layered before flags are bound.
func ArgValue(args []string, name string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		trimmed := strings.TrimLeft(a, "-")
		if trimmed == a {
			continue
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(trimmed, name+"=") {
			return strings.TrimPrefix(trimmed, name+"=")
		}
	}
	return ""
}

// LoadLayers applies dotenv files, the optional config file and the
// environment onto cfg, in increasing precedence.
func LoadLayers(cfg *Config, configPath string, envPath string) error {
	if err := LoadEnvFiles(".env", envPath); err != nil {
		return fmt.Errorf("%w: load env: %v", ErrConfig, err)
	}
	if strings.TrimSpace(configPath) != "" {
		fc, err := LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		ApplyFileConfig(cfg, fc)
	}
	ApplyEnvOverrides(cfg)
	return nil
}

// BindCommonFlags registers the flags shared by the embed and ask commands.
// Defaults are the already layered values of cfg, so explicit flags win.
func BindCommonFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL or Azure endpoint")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "API key (openai, azure) or bearer token (azure_ad)")
	fs.StringVar(&cfg.LLMAPIType, "llm.type", cfg.LLMAPIType, "API flavor: openai, azure or azure_ad")
	fs.StringVar(&cfg.LLMAPIVersion, "llm.version", cfg.LLMAPIVersion, "Azure API version")
	fs.StringVar(&cfg.EmbeddingModel, "embedding.model", cfg.EmbeddingModel, "Embedding model or deployment name")
	fs.StringVar(&cfg.CompletionModel, "completion.model", cfg.CompletionModel, "Completion model or deployment name")
	fs.StringVar(&cfg.VectorStore, "store", cfg.VectorStore, "Vector store backend: local or pgvector")
	fs.StringVar(&cfg.VectorStorePath, "store.path", cfg.VectorStorePath, "Directory of the local vector store")
	fs.StringVar(&cfg.DatabaseURL, "store.url", cfg.DatabaseURL, "Postgres connection URL for pgvector")
	fs.StringVar(&cfg.Collection, "collection", cfg.Collection, "Collection name")
	fs.IntVar(&cfg.Dimensions, "store.dims", cfg.Dimensions, "Vector size of the pgvector column (0 leaves it unconstrained)")
	BindBaseFlags(fs, cfg)
}

// BindBaseFlags registers the config source, cache and logging flags shared
// by all commands. -config and -env are read before parsing by ArgValue;
// they are registered here so the parser accepts them.
func BindBaseFlags(fs *flag.FlagSet, cfg *Config) {
	fs.String("config", "", "Path to a YAML or JSON config file")
	fs.String("env", "", "Path to an additional dotenv file")
	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Cache directory path")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cache entries older than this at startup; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear the cache directory before running")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
}
