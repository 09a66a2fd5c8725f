package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/wikirag/internal/answer"
	"github.com/hyperifyio/wikirag/internal/cache"
	"github.com/hyperifyio/wikirag/internal/embed"
	"github.com/hyperifyio/wikirag/internal/extract"
	"github.com/hyperifyio/wikirag/internal/fetch"
	"github.com/hyperifyio/wikirag/internal/index"
	"github.com/hyperifyio/wikirag/internal/llm"
	"github.com/hyperifyio/wikirag/internal/vectorstore"
	"github.com/hyperifyio/wikirag/internal/wiki"
)

// App wires configuration to the scraper, the indexer and the question
// answering pipeline.
type App struct {
	cfg       Config
	http      *http.Client
	provider  *llm.OpenAIProvider
	store     vectorstore.Store
	httpCache *cache.HTTPCache
	llmCache  *cache.LLMCache
}

// New prepares caches and, for the embed and ask commands, the model
// provider and the vector store.
func New(ctx context.Context, cfg Config, cmd Command) (*App, error) {
	a := &App{cfg: cfg, http: newHTTPClient(cfg.SSLVerify)}

	if dir := strings.TrimSpace(cfg.CacheDir); dir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(dir); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			nh, _ := cache.PurgeHTTPCacheByAge(dir, cfg.CacheMaxAge)
			nl, _ := cache.PurgeLLMCacheByAge(dir, cfg.CacheMaxAge)
			log.Debug().Int("http", nh).Int("llm", nl).Msg("purged stale cache entries")
		}
		a.httpCache = &cache.HTTPCache{Dir: filepath.Join(dir, "http"), StrictPerms: cfg.CacheStrictPerms}
		a.llmCache = &cache.LLMCache{Dir: filepath.Join(dir, "llm"), StrictPerms: cfg.CacheStrictPerms}
	}

	if cmd == CommandScrape {
		return a, nil
	}

	provider, err := llm.NewOpenAI(llm.Config{
		APIType:    cfg.LLMAPIType,
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		APIVersion: cfg.LLMAPIVersion,
		HTTPClient: newHTTPClient(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	a.provider = provider
	a.preflight(ctx)

	store, err := vectorstore.Open(ctx, vectorstore.Options{
		Backend:     cfg.VectorStore,
		Collection:  cfg.Collection,
		Path:        cfg.VectorStorePath,
		DatabaseURL: cfg.DatabaseURL,
		Dimensions:  cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	a.store = store
	return a, nil
}

// preflight lists the backend's models. Failure is only a warning; Azure
// deployments commonly refuse the listing.
func (a *App) preflight(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := a.provider.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	log.Debug().Int("count", len(models.Models)).Msg("LLM models available")
}

// Close releases the vector store.
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing vector store")
		}
	}
}

// Scrape fetches the configured URL, or every URL of the configured list,
// and writes text and table files to the output folder.
func (a *App) Scrape(ctx context.Context) ([]wiki.Result, error) {
	ua := a.cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	s := &wiki.Scraper{
		Fetcher: &fetch.Client{
			HTTPClient:        a.http,
			UserAgent:         ua,
			MaxAttempts:       2,
			PerRequestTimeout: 30 * time.Second,
			Cache:             a.httpCache,
			BypassCache:       a.cfg.CacheClear,
			RedirectMaxHops:   5,
		},
		Extractor: extract.WikiExtractor{TableClass: a.cfg.TableClass},
		OutputDir: a.cfg.OutputDir,
	}
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}
	if strings.TrimSpace(a.cfg.URL) != "" {
		res, err := s.ProcessURL(ctx, strings.TrimSpace(a.cfg.URL))
		if err != nil {
			return nil, err
		}
		return []wiki.Result{res}, nil
	}
	results, err := s.ProcessList(ctx, a.cfg.URLFile)
	if err != nil {
		return results, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no page scraped from %s: %w", a.cfg.URLFile, wiki.ErrNoContent)
	}
	log.Info().Int("pages", len(results)).Str("out", a.cfg.OutputDir).Msg("scrape complete")
	return results, nil
}

// Embed stores every supported file of the input folder in the collection.
func (a *App) Embed(ctx context.Context) (index.Stats, error) {
	ix := &index.Indexer{
		Store:    a.store,
		Embedder: a.provider,
		Model:    a.cfg.EmbeddingModel,
		Cache:    a.llmCache,
		Files: embed.Options{
			EnableCSV: a.cfg.EnableCSV,
			Summarizer: &embed.Summarizer{
				Client: a.provider,
				Model:  a.cfg.CompletionModel,
				Cache:  a.llmCache,
			},
		},
	}
	st, err := ix.ProcessFolder(ctx, a.cfg.InputDir)
	if err != nil {
		return st, err
	}
	n, cerr := a.store.Count(ctx)
	if cerr != nil {
		log.Warn().Err(cerr).Msg("count failed")
	}
	log.Info().Int("added", st.Added).Int("skipped", st.Skipped).Int("failed", st.Failed).Int("total", n).
		Msg("embeddings and summaries stored")
	return st, nil
}

// Ask retrieves the documents closest to the configured question and asks
// the completion model for an answer. When output paths are configured the
// answer is also written as Markdown and PDF.
func (a *App) Ask(ctx context.Context) (string, error) {
	q := strings.TrimSpace(a.cfg.Question)
	r := &answer.Retriever{Store: a.store, Embedder: a.provider, Model: a.cfg.EmbeddingModel, Cache: a.llmCache}
	docs, err := r.Relevant(ctx, q, a.cfg.TopK)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("nothing retrieved for question: %w", index.ErrNoDocuments)
	}
	g := &answer.Generator{
		Client:       a.provider,
		Model:        a.cfg.CompletionModel,
		Cache:        a.llmCache,
		MaxTokens:    a.cfg.MaxTokens,
		SystemPrompt: a.cfg.SystemPrompt,
	}
	out, err := g.Answer(ctx, q, docs)
	if err != nil {
		return "", err
	}
	if err := a.writeAnswer(q, out, docs); err != nil {
		return out, err
	}
	return out, nil
}

func (a *App) writeAnswer(question, text string, docs []string) error {
	if a.cfg.AnswerPath == "" && a.cfg.AnswerPDFPath == "" {
		return nil
	}
	md := renderAnswerMarkdown(question, text, docs)
	meta := manifestMeta{
		Question:        question,
		EmbeddingModel:  a.cfg.EmbeddingModel,
		CompletionModel: a.cfg.CompletionModel,
		LLMBaseURL:      a.cfg.LLMBaseURL,
		VectorStore:     backendName(a.cfg.VectorStore),
		Collection:      a.cfg.Collection,
		DocumentCount:   len(docs),
		LLMCache:        a.llmCache != nil,
		GeneratedAt:     time.Now(),
	}
	entries := buildManifestEntries(docs)
	md = appendEmbeddedManifest(md, meta, entries)
	md = appendReproFooter(md, a.cfg.CompletionModel, a.cfg.LLMBaseURL, len(docs), a.llmCache != nil)

	var errs []error
	if a.cfg.AnswerPath != "" {
		if err := os.WriteFile(a.cfg.AnswerPath, []byte(md), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write answer: %w", err))
		} else if b, err := marshalManifestJSON(meta, entries); err == nil {
			if err := os.WriteFile(deriveManifestSidecarPath(a.cfg.AnswerPath), b, 0o644); err != nil {
				errs = append(errs, fmt.Errorf("write manifest: %w", err))
			}
		}
		log.Info().Str("out", a.cfg.AnswerPath).Msg("wrote answer")
	}
	if a.cfg.AnswerPDFPath != "" {
		if err := writeAnswerPDF(md, a.cfg.AnswerPDFPath); err != nil {
			errs = append(errs, fmt.Errorf("write pdf: %w", err))
		} else {
			log.Info().Str("out", a.cfg.AnswerPDFPath).Msg("wrote answer pdf")
		}
	}
	return errors.Join(errs...)
}

func renderAnswerMarkdown(question, text string, docs []string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\n## Retrieved context\n\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(strings.TrimSpace(d), "\n", " "))
	}
	return b.String()
}

func backendName(s string) string {
	if strings.TrimSpace(s) == "" {
		return vectorstore.BackendLocal
	}
	return strings.ToLower(strings.TrimSpace(s))
}
