package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/wikirag/internal/extract"
	"github.com/hyperifyio/wikirag/internal/llm"
	"github.com/hyperifyio/wikirag/internal/vectorstore"
)

// FileConfig is the single-file configuration schema shared by all commands.
type FileConfig struct {
	LLM struct {
		BaseURL         string `yaml:"base" json:"base"`
		APIKey          string `yaml:"key" json:"key"`
		APIType         string `yaml:"type" json:"type"`
		APIVersion      string `yaml:"version" json:"version"`
		EmbeddingModel  string `yaml:"embeddingModel" json:"embeddingModel"`
		CompletionModel string `yaml:"completionModel" json:"completionModel"`
	} `yaml:"llm" json:"llm"`

	Store struct {
		Backend     string `yaml:"backend" json:"backend"`
		Path        string `yaml:"path" json:"path"`
		DatabaseURL string `yaml:"databaseURL" json:"databaseURL"`
		Collection  string `yaml:"collection" json:"collection"`
		Dimensions  int    `yaml:"dimensions" json:"dimensions"`
	} `yaml:"store" json:"store"`

	Scrape struct {
		Output     string  `yaml:"output" json:"output"`
		TableClass *string `yaml:"tableClass" json:"tableClass"`
		UserAgent  string  `yaml:"userAgent" json:"userAgent"`
		SSLVerify  bool    `yaml:"sslVerify" json:"sslVerify"`
	} `yaml:"scrape" json:"scrape"`

	Embed struct {
		Input     string `yaml:"input" json:"input"`
		EnableCSV bool   `yaml:"csv" json:"csv"`
	} `yaml:"embed" json:"embed"`

	Ask struct {
		TopK         int    `yaml:"k" json:"k"`
		Output       string `yaml:"output" json:"output"`
		OutputPDF    string `yaml:"outputPDF" json:"outputPDF"`
		SystemPrompt string `yaml:"systemPrompt" json:"systemPrompt"`
		MaxTokens    int    `yaml:"maxTokens" json:"maxTokens"`
	} `yaml:"ask" json:"ask"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig fills fields of cfg that are still zero or at their flag
// default with values from fc.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v string, flagDefault string) {
		if (*dst == "" || *dst == flagDefault) && v != "" {
			*dst = v
		}
	}
	str(&cfg.LLMBaseURL, fc.LLM.BaseURL, "")
	str(&cfg.LLMAPIKey, fc.LLM.APIKey, "")
	str(&cfg.LLMAPIType, fc.LLM.APIType, llm.APITypeOpenAI)
	str(&cfg.LLMAPIVersion, fc.LLM.APIVersion, DefaultAPIVersion)
	str(&cfg.EmbeddingModel, fc.LLM.EmbeddingModel, DefaultEmbeddingModel)
	str(&cfg.CompletionModel, fc.LLM.CompletionModel, DefaultCompletionModel)

	str(&cfg.VectorStore, fc.Store.Backend, vectorstore.BackendLocal)
	str(&cfg.VectorStorePath, fc.Store.Path, DefaultVectorStorePath)
	str(&cfg.DatabaseURL, fc.Store.DatabaseURL, "")
	str(&cfg.Collection, fc.Store.Collection, vectorstore.DefaultCollection)
	if cfg.Dimensions == 0 && fc.Store.Dimensions > 0 {
		cfg.Dimensions = fc.Store.Dimensions
	}

	str(&cfg.OutputDir, fc.Scrape.Output, "")
	if fc.Scrape.TableClass != nil && cfg.TableClass == extract.DefaultTableClass {
		cfg.TableClass = *fc.Scrape.TableClass
	}
	str(&cfg.UserAgent, fc.Scrape.UserAgent, DefaultUserAgent)
	if !cfg.SSLVerify && fc.Scrape.SSLVerify {
		cfg.SSLVerify = true
	}

	str(&cfg.InputDir, fc.Embed.Input, "")
	if !cfg.EnableCSV && fc.Embed.EnableCSV {
		cfg.EnableCSV = true
	}

	if (cfg.TopK == 0 || cfg.TopK == DefaultTopK) && fc.Ask.TopK > 0 {
		cfg.TopK = fc.Ask.TopK
	}
	str(&cfg.AnswerPath, fc.Ask.Output, "")
	str(&cfg.AnswerPDFPath, fc.Ask.OutputPDF, "")
	str(&cfg.SystemPrompt, fc.Ask.SystemPrompt, "")
	if cfg.MaxTokens == 0 && fc.Ask.MaxTokens > 0 {
		cfg.MaxTokens = fc.Ask.MaxTokens
	}

	str(&cfg.CacheDir, fc.Cache.Dir, DefaultCacheDir)
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// Command names the operation a Config is validated for.
type Command int

const (
	CommandScrape Command = iota
	CommandEmbed
	CommandAsk
)

// ErrConfig marks configuration problems; commands exit 1 on it.
var ErrConfig = errors.New("config")

// ValidateConfig checks the settings a command needs.
func ValidateConfig(cfg Config, cmd Command) error {
	switch cmd {
	case CommandScrape:
		if strings.TrimSpace(cfg.OutputDir) == "" {
			return fmt.Errorf("%w: output folder is required", ErrConfig)
		}
		if strings.TrimSpace(cfg.URL) == "" && strings.TrimSpace(cfg.URLFile) == "" {
			return fmt.Errorf("%w: a URL or a URL list file is required", ErrConfig)
		}
		return nil
	case CommandEmbed:
		if strings.TrimSpace(cfg.InputDir) == "" {
			return fmt.Errorf("%w: input folder is required", ErrConfig)
		}
		if cfg.EnableCSV && strings.TrimSpace(cfg.CompletionModel) == "" {
			return fmt.Errorf("%w: completion model is required for csv embedding", ErrConfig)
		}
	case CommandAsk:
		if strings.TrimSpace(cfg.Question) == "" {
			return fmt.Errorf("%w: question is required", ErrConfig)
		}
		if strings.TrimSpace(cfg.CompletionModel) == "" {
			return fmt.Errorf("%w: completion model is required (or set COMPLETION_MODEL)", ErrConfig)
		}
		if cfg.TopK < 0 {
			return fmt.Errorf("%w: k must not be negative", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown command %d", ErrConfig, cmd)
	}
	if strings.TrimSpace(cfg.EmbeddingModel) == "" {
		return fmt.Errorf("%w: embedding model is required (or set EMBEDDING_MODEL)", ErrConfig)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.VectorStore)) {
	case "", vectorstore.BackendLocal:
		if strings.TrimSpace(cfg.VectorStorePath) == "" {
			return fmt.Errorf("%w: vector store path is required", ErrConfig)
		}
	case vectorstore.BackendPGVector:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return fmt.Errorf("%w: database URL is required for pgvector", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector store %q", ErrConfig, cfg.VectorStore)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LLMAPIType)) {
	case "", llm.APITypeOpenAI, llm.APITypeAzure, llm.APITypeAzureAD:
	default:
		return fmt.Errorf("%w: unknown llm api type %q", ErrConfig, cfg.LLMAPIType)
	}
	return nil
}
