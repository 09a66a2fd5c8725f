package app

import "time"

// Defaults shared by the commands and the config file overlay.
const (
	DefaultCacheDir        = ".wikirag-cache"
	DefaultVectorStorePath = "vectordb"
	DefaultEmbeddingModel  = "text-embedding-3-large"
	DefaultCompletionModel = "gpt-4o"
	DefaultAPIVersion      = "2023-05-15"
	DefaultTopK            = 5
	DefaultUserAgent       = "wikirag/1.0 (+https://github.com/hyperifyio/wikirag)"
)

// Config holds runtime configuration for the commands.
type Config struct {
	// Scraper
	URL       string
	URLFile   string
	OutputDir string
	// TableClass filters scraped tables; empty keeps all.
	TableClass string
	UserAgent  string
	SSLVerify  bool

	// Embedding
	InputDir  string
	EnableCSV bool

	// Query
	Question      string
	TopK          int
	AnswerPath    string
	AnswerPDFPath string
	SystemPrompt  string
	MaxTokens     int

	// LLM
	LLMBaseURL      string
	LLMAPIKey       string
	LLMAPIType      string
	LLMAPIVersion   string
	EmbeddingModel  string
	CompletionModel string

	// Vector store
	VectorStore     string
	VectorStorePath string
	DatabaseURL     string
	Collection      string
	Dimensions      int

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}
