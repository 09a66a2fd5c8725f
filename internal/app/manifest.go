package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// manifestEntry records one retrieved document used to answer.
type manifestEntry struct {
	Index  int    `json:"index"`
	SHA256 string `json:"sha256"`
	Chars  int    `json:"chars"`
}

// manifestMeta captures run details that aid reproducibility.
type manifestMeta struct {
	Question        string    `json:"question"`
	EmbeddingModel  string    `json:"embedding_model"`
	CompletionModel string    `json:"completion_model"`
	LLMBaseURL      string    `json:"llm_base_url"`
	VectorStore     string    `json:"vector_store"`
	Collection      string    `json:"collection"`
	DocumentCount   int       `json:"document_count"`
	LLMCache        bool      `json:"llm_cache"`
	GeneratedAt     time.Time `json:"generated_at"`
}

func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func buildManifestEntries(docs []string) []manifestEntry {
	out := make([]manifestEntry, 0, len(docs))
	for i, d := range docs {
		content := strings.TrimSpace(d)
		out = append(out, manifestEntry{Index: i + 1, SHA256: computeSHA256Hex(content), Chars: len(content)})
	}
	return out
}

// appendEmbeddedManifest appends a Markdown section listing the digest of
// every document given to the model.
func appendEmbeddedManifest(markdown string, meta manifestMeta, entries []manifestEntry) string {
	var b strings.Builder
	b.WriteString(markdown)
	b.WriteString("\n\n## Manifest\n\n")
	b.WriteString("- Embedding model: ")
	b.WriteString(strings.TrimSpace(meta.EmbeddingModel))
	b.WriteString("\n- Completion model: ")
	b.WriteString(strings.TrimSpace(meta.CompletionModel))
	b.WriteString("\n- Collection: ")
	b.WriteString(meta.VectorStore + "/" + meta.Collection)
	b.WriteString("\n- Documents: ")
	b.WriteString(strconv.Itoa(meta.DocumentCount))
	b.WriteString("\n- Generated: ")
	b.WriteString(meta.GeneratedAt.UTC().Format(time.RFC3339))
	b.WriteString("\n\n")
	for _, e := range entries {
		b.WriteString(strconv.Itoa(e.Index))
		b.WriteString(". sha256=")
		b.WriteString(e.SHA256)
		b.WriteString("; chars=")
		b.WriteString(strconv.Itoa(e.Chars))
		b.WriteString("\n")
	}
	return b.String()
}

// marshalManifestJSON encodes the machine-readable sidecar manifest.
func marshalManifestJSON(meta manifestMeta, entries []manifestEntry) ([]byte, error) {
	payload := struct {
		Meta      manifestMeta    `json:"meta"`
		Documents []manifestEntry `json:"documents"`
	}{Meta: meta, Documents: entries}
	return json.MarshalIndent(payload, "", "  ")
}

func deriveManifestSidecarPath(outputPath string) string {
	return outputPath + ".manifest.json"
}
