package index

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/wikirag/internal/cache"
	"github.com/hyperifyio/wikirag/internal/embed"
	"github.com/hyperifyio/wikirag/internal/llm"
	"github.com/hyperifyio/wikirag/internal/vectorstore"
)

// ErrNoDocuments is returned when a folder holds nothing that could be embedded.
var ErrNoDocuments = errors.New("no documents embedded")

// ShortHash is the record id of a text: the first 8 hex digits of its MD5.
func ShortHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}

// Stats counts what Store did.
type Stats struct {
	Added   int
	Skipped int
	Failed  int
}

func (s *Stats) add(o Stats) {
	s.Added += o.Added
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Indexer embeds text and stores it in a collection, skipping texts whose
// id is already present.
type Indexer struct {
	Store    vectorstore.Store
	Embedder llm.Embedder
	Model    string
	// Cache, when set, keeps embedding vectors across runs.
	Cache *cache.LLMCache
	// Files configures the per-file embedders of ProcessFolder.
	Files embed.Options
}

// StoreLines adds every line, then the summary when non-empty. A failure to
// embed or add one line is logged and counted; it does not stop the others.
func (ix *Indexer) StoreLines(ctx context.Context, lines []string, summary string) (Stats, error) {
	var st Stats
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		added, err := ix.put(ctx, line, map[string]string{vectorstore.MetaInputText: line})
		switch {
		case err != nil:
			st.Failed++
			log.Warn().Err(err).Str("line", truncate(line, 40)).Msg("embedding failed; skipping line")
		case added:
			st.Added++
		default:
			st.Skipped++
			log.Debug().Str("line", truncate(line, 30)).Msg("already exists; skipping insertion")
		}
	}
	if summary != "" {
		added, err := ix.put(ctx, summary, map[string]string{
			vectorstore.MetaInputText: "Summary",
			vectorstore.MetaSummary:   summary,
		})
		switch {
		case err != nil:
			st.Failed++
			log.Warn().Err(err).Msg("summary embedding failed")
		case added:
			st.Added++
		default:
			st.Skipped++
			log.Info().Str("id", ShortHash(summary)).Msg("summary already exists; skipping insertion")
		}
	}
	return st, nil
}

func (ix *Indexer) put(ctx context.Context, text string, meta map[string]string) (bool, error) {
	id := ShortHash(text)
	exists, err := ix.Store.Exists(ctx, id)
	if err != nil {
		// Treat lookup errors as absent and let Add decide
		log.Warn().Err(err).Str("id", id).Msg("existence check failed")
		exists = false
	}
	if exists {
		return false, nil
	}
	vec, err := llm.Embed(ctx, ix.Embedder, ix.Cache, ix.Model, text)
	if err != nil {
		return false, err
	}
	if err := ix.Store.Add(ctx, vectorstore.Record{ID: id, Embedding: vec, Metadata: meta}); err != nil {
		return false, fmt.Errorf("add %s: %w", id, err)
	}
	return true, nil
}

// ProcessFolder embeds the files directly inside dir, in name order.
// Unsupported files and per-file failures are logged and skipped.
func (ix *Indexer) ProcessFolder(ctx context.Context, dir string) (Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Stats{}, fmt.Errorf("read input folder: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var total Stats
	files := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		emb, err := embed.ForPath(path, ix.Files)
		if err != nil {
			log.Info().Str("file", e.Name()).Msg("skipping unsupported file type")
			continue
		}
		log.Info().Str("file", e.Name()).Msg("embedding file")
		lines, summary, err := emb.Process(ctx)
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("processing failed; skipping file")
			continue
		}
		st, err := ix.StoreLines(ctx, lines, summary)
		total.add(st)
		if err != nil {
			return total, err
		}
		files++
		log.Debug().Str("file", e.Name()).Int("added", st.Added).Int("skipped", st.Skipped).Msg("file stored")
	}
	if files == 0 {
		return total, ErrNoDocuments
	}
	return total, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
