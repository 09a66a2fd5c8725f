package app

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBuildManifestEntries_ComputesSHA256AndChars(t *testing.T) {
	entries := buildManifestEntries([]string{"hello", "world\n"})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries; got %d", len(entries))
	}
	if entries[0].Index != 1 || entries[1].Index != 2 {
		t.Fatalf("unexpected indices: %+v", entries)
	}
	if entries[0].Chars != 5 || entries[1].Chars != 5 {
		t.Fatalf("unexpected char counts: %+v", entries)
	}
	// sha256("hello")
	if entries[0].SHA256 != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatalf("unexpected digest %s", entries[0].SHA256)
	}
}

func TestAppendEmbeddedManifest_AppendsReadableSection(t *testing.T) {
	meta := manifestMeta{
		EmbeddingModel:  "emb",
		CompletionModel: "gpt",
		VectorStore:     "local",
		Collection:      "wiki",
		DocumentCount:   1,
		GeneratedAt:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	out := appendEmbeddedManifest("# Q\n", meta, []manifestEntry{{Index: 1, SHA256: "abcd", Chars: 5}})
	for _, want := range []string{"## Manifest", "- Completion model: gpt", "- Collection: local/wiki", "2024-01-01T12:00:00Z", "1. sha256=abcd; chars=5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMarshalManifestJSON(t *testing.T) {
	b, err := marshalManifestJSON(manifestMeta{Question: "q"}, buildManifestEntries([]string{"a"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Meta      manifestMeta    `json:"meta"`
		Documents []manifestEntry `json:"documents"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Meta.Question != "q" || len(decoded.Documents) != 1 {
		t.Fatalf("unexpected manifest %+v", decoded)
	}
	if deriveManifestSidecarPath("answer.md") != "answer.md.manifest.json" {
		t.Fatalf("unexpected sidecar path")
	}
}
