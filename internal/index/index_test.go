package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/wikirag/internal/vectorstore"
)

// fakeEmbedder returns a vector derived from the input length and counts calls.
type fakeEmbedder struct {
	calls int
	fail  string
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls++
	req := conv.Convert()
	inputs, _ := req.Input.([]string)
	if len(inputs) == 1 && inputs[0] == f.fail {
		return openai.EmbeddingResponse{}, errors.New("boom")
	}
	data := make([]openai.Embedding, 0, len(inputs))
	for i, in := range inputs {
		data = append(data, openai.Embedding{Index: i, Embedding: []float32{float32(len(in)), 1}})
	}
	return openai.EmbeddingResponse{Data: data}, nil
}

func newIndexer(t *testing.T) (*Indexer, *vectorstore.Local, *fakeEmbedder) {
	t.Helper()
	store, err := vectorstore.OpenLocal(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	emb := &fakeEmbedder{}
	return &Indexer{Store: store, Embedder: emb, Model: "m"}, store, emb
}

func TestShortHash(t *testing.T) {
	// md5("hello") = 5d41402abc4b2a76b9719d911017c592
	if got := ShortHash("hello"); got != "5d41402a" {
		t.Fatalf("got %q", got)
	}
	if len(ShortHash("")) != 8 {
		t.Fatalf("hash must be 8 characters")
	}
}

func TestStore_AddsLinesAndSummary(t *testing.T) {
	ix, store, _ := newIndexer(t)
	ctx := context.Background()
	st, err := ix.StoreLines(ctx, []string{"alpha", "beta"}, "file name: doc")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if st.Added != 3 || st.Skipped != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	rec, err := store.Get(ctx, ShortHash("alpha"))
	if err != nil {
		t.Fatalf("get line: %v", err)
	}
	if rec.Metadata[vectorstore.MetaInputText] != "alpha" {
		t.Fatalf("unexpected metadata %v", rec.Metadata)
	}
	sum, err := store.Get(ctx, ShortHash("file name: doc"))
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if sum.Metadata[vectorstore.MetaInputText] != "Summary" || sum.Metadata[vectorstore.MetaSummary] != "file name: doc" {
		t.Fatalf("unexpected summary metadata %v", sum.Metadata)
	}
	if sum.Text() != "file name: doc" {
		t.Fatalf("summary text: %q", sum.Text())
	}
}

func TestStore_SkipsExistingWithoutEmbedding(t *testing.T) {
	ix, store, emb := newIndexer(t)
	ctx := context.Background()
	if _, err := ix.StoreLines(ctx, []string{"alpha", "alpha"}, ""); err != nil {
		t.Fatalf("store: %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("expected one embedding call, got %d", emb.calls)
	}
	st, err := ix.StoreLines(ctx, []string{"alpha"}, "")
	if err != nil {
		t.Fatalf("store again: %v", err)
	}
	if st.Added != 0 || st.Skipped != 1 || emb.calls != 1 {
		t.Fatalf("expected skip, stats=%+v calls=%d", st, emb.calls)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestStore_ContinuesAfterEmbeddingFailure(t *testing.T) {
	ix, store, emb := newIndexer(t)
	emb.fail = "bad"
	st, err := ix.StoreLines(context.Background(), []string{"good", "bad", "fine"}, "")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if st.Added != 2 || st.Failed != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if n, _ := store.Count(context.Background()); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
}

func TestProcessFolder(t *testing.T) {
	ix, store, _ := newIndexer(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	st, err := ix.ProcessFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("process folder: %v", err)
	}
	// two lines plus two file-name summaries; CSV is off by default
	if st.Added != 4 {
		t.Fatalf("unexpected stats %+v", st)
	}
	for _, text := range []string{"first", "second", "file name: a", "file name: b"} {
		if ok, _ := store.Exists(context.Background(), ShortHash(text)); !ok {
			t.Fatalf("missing record for %q", text)
		}
	}
}

func TestProcessFolder_NothingEmbeddable(t *testing.T) {
	ix, _, _ := newIndexer(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.ProcessFolder(context.Background(), dir); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
	if _, err := ix.ProcessFolder(context.Background(), filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing folder")
	}
}
