package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when they are set. This lets env take precedence over a config file while
// flags stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	override := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&cfg.LLMBaseURL, "LLM_BASE_URL", "AZURE_OPENAI_ENDPOINT")
	override(&cfg.LLMAPIKey, "LLM_API_KEY")
	override(&cfg.LLMAPIType, "LLM_API_TYPE")
	override(&cfg.LLMAPIVersion, "LLM_API_VERSION")
	override(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	override(&cfg.CompletionModel, "COMPLETION_MODEL")
	override(&cfg.VectorStore, "VECTOR_STORE")
	override(&cfg.VectorStorePath, "VECTOR_STORE_PATH", "CHROMADB_STORAGE_PATH")
	override(&cfg.DatabaseURL, "DATABASE_URL")
	override(&cfg.Collection, "COLLECTION")
	override(&cfg.CacheDir, "CACHE_DIR")

	if d, ok := envDuration("CACHE_MAX_AGE"); ok {
		cfg.CacheMaxAge = d
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("EMBEDDING_DIMENSIONS"))); err == nil && n > 0 {
		cfg.Dimensions = n
	}
	for key, dst := range map[string]*bool{
		"VERBOSE":            &cfg.Verbose,
		"SSL_VERIFY":         &cfg.SSLVerify,
		"CACHE_CLEAR":        &cfg.CacheClear,
		"CACHE_STRICT_PERMS": &cfg.CacheStrictPerms,
	} {
		if v, ok := envBool(key); ok {
			*dst = v
		}
	}
}

// envBool reads a truthy or falsey environment value. ok is false when the
// variable is unset or unrecognized.
func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}
