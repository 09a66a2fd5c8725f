package embed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/wikirag/internal/cache"
)

type capturingClient struct {
	calls   int
	lastReq openai.ChatCompletionRequest
	reply   string
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	c.lastReq = req
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestTXTEmbedder_Process(t *testing.T) {
	p := writeFile(t, t.TempDir(), "Imaging_Core.txt", "Title: Imaging Core\n\n  MRI scans  \n\t\nBooking: /x\n")
	lines, summary, err := (&TXTEmbedder{Path: p}).Process(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := []string{"Title: Imaging Core", "MRI scans", "Booking: /x"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
	if summary != "file name: Imaging_Core" {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestForPath(t *testing.T) {
	if _, err := ForPath("a.txt", Options{}); err != nil {
		t.Fatalf("txt: %v", err)
	}
	if _, err := ForPath("a.csv", Options{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected csv unsupported when disabled, got %v", err)
	}
	if _, err := ForPath("a.csv", Options{EnableCSV: true}); err == nil {
		t.Fatalf("expected error without summarizer")
	}
	if e, err := ForPath("a.CSV", Options{EnableCSV: true, Summarizer: &Summarizer{}}); err != nil || e == nil {
		t.Fatalf("csv: %v", err)
	}
	if _, err := ForPath("a.pdf", Options{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestFrame_SchemaAndFlatten(t *testing.T) {
	f, err := ReadFrame(strings.NewReader("name,age,score,active\nAda,36,9.5,true\nBob,41,7,false\n,,,\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	wantSchema := "name: object\nage: int64\nscore: float64\nactive: bool"
	if got := f.Schema(); got != wantSchema {
		t.Fatalf("schema:\n%s\nwant:\n%s", got, wantSchema)
	}
	if got := f.FlattenRow(f.Rows[0]); got != "name: Ada, age: 36, score: 9.5, active: true" {
		t.Fatalf("flatten: %q", got)
	}
}

func TestFrame_RaggedRows(t *testing.T) {
	f, err := ReadFrame(strings.NewReader("a,b\n1\n2,3,4\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := [][]string{{"1", ""}, {"2", "3"}}
	if diff := cmp.Diff(want, f.Rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

func TestFrame_SampleLimitsRows(t *testing.T) {
	f := Frame{Columns: []string{"k"}, Rows: [][]string{{"1"}, {"2"}, {"3"}}}
	got := f.Sample(2)
	if strings.Count(got, "\n") != 2 || strings.Contains(got, "3") {
		t.Fatalf("unexpected sample:\n%s", got)
	}
}

func TestCSVEmbedder_Process(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "Imaging_table_1.csv", "Service,Contact\nMRI,x100;x200\nCT,x300\n")
	cc := &capturingClient{reply: "  Two imaging services with contacts.  "}
	s := &Summarizer{Client: cc, Model: "gpt-4o", Cache: &cache.LLMCache{Dir: filepath.Join(dir, "cache")}}
	lines, summary, err := (&CSVEmbedder{Path: p, Summarizer: s}).Process(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	wantSummary := "Table Name: Imaging_table_1\nTwo imaging services with contacts."
	if summary != wantSummary {
		t.Fatalf("summary %q", summary)
	}
	want := []string{"Service: MRI, Contact: x100;x200", "Service: CT, Contact: x300", wantSummary}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
	user := cc.lastReq.Messages[1].Content
	for _, part := range []string{"Table Schema:", "Service: object", "Sample Data:", "Question: Can you summarize"} {
		if !strings.Contains(user, part) {
			t.Fatalf("user prompt missing %q:\n%s", part, user)
		}
	}
	if cc.lastReq.MaxTokens != 2000 {
		t.Fatalf("expected max tokens 2000, got %d", cc.lastReq.MaxTokens)
	}

	// Cached summary avoids a second model call
	if _, _, err := (&CSVEmbedder{Path: p, Summarizer: s}).Process(context.Background()); err != nil {
		t.Fatalf("process (cached): %v", err)
	}
	if cc.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", cc.calls)
	}
}

func TestCSVEmbedder_EmptyTable(t *testing.T) {
	p := writeFile(t, t.TempDir(), "empty.csv", "a,b\n")
	cc := &capturingClient{}
	lines, summary, err := (&CSVEmbedder{Path: p, Summarizer: &Summarizer{Client: cc, Model: "m"}}).Process(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(lines) != 0 || summary != NoDataSummary {
		t.Fatalf("unexpected lines=%v summary=%q", lines, summary)
	}
	if cc.calls != 0 {
		t.Fatalf("did not expect a model call")
	}
}
