package wiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/wikirag/internal/extract"
	"github.com/hyperifyio/wikirag/internal/fetch"
	"github.com/hyperifyio/wikirag/internal/table"
)

const wikiPage = `<html><head><title>Imaging Core: MRI</title></head><body>
<div id="main-content" class="wiki-content">
  <p>Book scans   early.</p>
  <table class="wrapped confluenceTable">
    <tr><th>Service</th><th>Contact</th></tr>
    <tr><td rowspan="2">Imaging</td><td>x100</td></tr>
    <tr><td>x200</td></tr>
    <tr><td><p>inside</p></td><td>"quoted", text</td></tr>
  </table>
  <ul class="childpages-macro"><li><a href="/display/MRI">MRI</a></li></ul>
</div></body></html>`

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"Imaging Core: MRI":   "Imaging_Core_MRI",
		"a--b__c":             "a_b__c",
		"Café ﬁle":            "Café_file",
		"":                    "",
		"  lead and trail  ":  "_lead_and_trail_",
	}
	for in, want := range cases {
		if got := CleanTitle(in); got != want {
			t.Fatalf("CleanTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteText(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	page := extract.Page{
		Title:      "T",
		Paragraphs: []string{"one", "two"},
		Links:      []extract.Link{{Text: "Child", Href: "/c"}},
	}
	if err := WriteText(p, page); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(p)
	want := "Title: T\n\none\ntwo\n\nList of hyperlinks:\nChild: /c\n"
	if string(b) != want {
		t.Fatalf("got %q want %q", b, want)
	}

	if err := WriteText(p, extract.Page{Title: "T"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ = os.ReadFile(p)
	if string(b) != "Title: T\n\n" {
		t.Fatalf("unexpected content without links %q", b)
	}
}

func TestWriteTables_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory in the way of the first file makes its write fail.
	if err := os.Mkdir(filepath.Join(dir, "p_table_1.csv"), 0o755); err != nil {
		t.Fatal(err)
	}
	page := extract.Page{Tables: []table.Grid{{{"a"}}, {{"b", "c"}}}}
	written := WriteTables(dir, "p", page)
	if len(written) != 1 || filepath.Base(written[0]) != "p_table_2.csv" {
		t.Fatalf("unexpected written files %v", written)
	}
	b, _ := os.ReadFile(written[0])
	if string(b) != "b,c\n" {
		t.Fatalf("unexpected csv %q", b)
	}
}

func TestScraper_ProcessURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(wikiPage))
	}))
	defer srv.Close()

	out := t.TempDir()
	s := &Scraper{Fetcher: &fetch.Client{HTTPClient: srv.Client()}, OutputDir: out}
	res, err := s.ProcessURL(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if filepath.Base(res.Text) != "Imaging_Core_MRI.txt" {
		t.Fatalf("unexpected text file %s", res.Text)
	}
	txt, _ := os.ReadFile(res.Text)
	want := "Title: Imaging Core: MRI\n\nBook scans early.\n\nList of hyperlinks:\nMRI: /display/MRI\n"
	if string(txt) != want {
		t.Fatalf("text mismatch:\n%q\n%q", txt, want)
	}
	if len(res.Tables) != 1 {
		t.Fatalf("expected one table, got %v", res.Tables)
	}
	csvBytes, _ := os.ReadFile(filepath.Join(out, "Imaging_Core_MRI_table_1.csv"))
	wantCSV := "Service,Contact\nImaging,x100;x200\ninside,\"\"\"quoted\"\", text\"\n"
	if string(csvBytes) != wantCSV {
		t.Fatalf("csv mismatch:\n%q\n%q", csvBytes, wantCSV)
	}
}

func TestScraper_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Login</title></head><body><p>sign in</p></body></html>`))
	}))
	defer srv.Close()
	out := t.TempDir()
	s := &Scraper{Fetcher: &fetch.Client{HTTPClient: srv.Client()}, OutputDir: out}
	if _, err := s.ProcessURL(context.Background(), srv.URL); !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Fatalf("expected no files, got %d", len(entries))
	}
}

func TestScraper_ProcessListSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(wikiPage))
	}))
	defer srv.Close()

	dir := t.TempDir()
	list := filepath.Join(dir, "urls.txt")
	content := strings.Join([]string{"# pages", srv.URL + "/missing", "", "  " + srv.URL + "/ok  "}, "\n")
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := &Scraper{Fetcher: &fetch.Client{HTTPClient: srv.Client()}, OutputDir: filepath.Join(dir, "out")}
	results, err := s.ProcessList(context.Background(), list)
	if err != nil {
		t.Fatalf("process list: %v", err)
	}
	if len(results) != 1 || results[0].URL != srv.URL+"/ok" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestReadURLList_Missing(t *testing.T) {
	if _, err := ReadURLList(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}
