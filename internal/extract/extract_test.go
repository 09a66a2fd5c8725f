package extract

import (
    "strings"
    "testing"

    "github.com/google/go-cmp/cmp"

    "github.com/hyperifyio/wikirag/internal/table"
)

const wikiPage = `<!doctype html>
<html>
  <head><title>Imaging Core - Wiki</title></head>
  <body>
    <nav><p>Nav should be ignored</p></nav>
    <div id="main-content" class="wiki-content">
      <p>The imaging core   provides MRI scans.</p>
      <table class="wrapped confluenceTable">
        <tr><th>Service</th><th>Contact</th></tr>
        <tr><td><p>Inside table</p>MRI</td><td>x100</td></tr>
        <tr><td><p>Inside table</p>MRI</td><td>x200</td></tr>
      </table>
      <table class="layout"><tr><td>ignored layout table</td></tr></table>
      <p>Second paragraph.</p>
      <ul class="childpages-macro">
        <li><a href="/display/CORE/Booking">Booking</a></li>
        <li><a href="/display/CORE/Pricing">Pricing</a></li>
      </ul>
    </div>
  </body>
</html>`

func TestFromHTML_WikiContent(t *testing.T) {
    page := FromHTML([]byte(wikiPage))
    if page.Title != "Imaging Core - Wiki" {
        t.Fatalf("unexpected title %q", page.Title)
    }
    if !page.Found {
        t.Fatalf("expected wiki content root to be found")
    }
    wantParas := []string{"The imaging core provides MRI scans.", "Second paragraph."}
    if diff := cmp.Diff(wantParas, page.Paragraphs); diff != "" {
        t.Fatalf("paragraphs (-want +got):\n%s", diff)
    }
    wantLinks := []Link{{Text: "Booking", Href: "/display/CORE/Booking"}, {Text: "Pricing", Href: "/display/CORE/Pricing"}}
    if diff := cmp.Diff(wantLinks, page.Links); diff != "" {
        t.Fatalf("links (-want +got):\n%s", diff)
    }
    if len(page.Tables) != 1 {
        t.Fatalf("expected 1 confluence table, got %d", len(page.Tables))
    }
    wantGrid := table.Grid{{"Service", "Contact"}, {"Inside tableMRI", "x100;x200"}}
    if diff := cmp.Diff(wantGrid, page.Tables[0]); diff != "" {
        t.Fatalf("table (-want +got):\n%s", diff)
    }
}

func TestFromHTML_AllTablesWhenClassEmpty(t *testing.T) {
    page := FromHTMLWithOptions([]byte(wikiPage), Options{})
    if len(page.Tables) != 2 {
        t.Fatalf("expected 2 tables, got %d", len(page.Tables))
    }
}

func TestFromHTML_FallbackToBody(t *testing.T) {
    html := `<!doctype html>
    <html>
      <head><title>No Wiki</title></head>
      <body>
        <h2>Body Heading</h2>
        <p>Body paragraph</p>
      </body>
    </html>`

    page := FromHTML([]byte(html))
    if page.Found {
        t.Fatalf("did not expect wiki content root")
    }
    if len(page.Paragraphs) != 1 || page.Paragraphs[0] != "Body paragraph" {
        t.Fatalf("unexpected paragraphs: %q", page.Paragraphs)
    }
    if page.Links != nil {
        t.Fatalf("expected no links, got %v", page.Links)
    }
}

func TestFromHTML_DecodesDeclaredCharset(t *testing.T) {
    // "café" in ISO-8859-1
    body := []byte("<html><head><title>caf\xe9</title></head><body><p>x</p></body></html>")
    page := FromHTMLWithOptions(body, Options{ContentType: "text/html; charset=iso-8859-1"})
    if page.Title != "café" {
        t.Fatalf("expected decoded title, got %q", page.Title)
    }
}

func TestFromHTML_ParagraphLineBreaksKept(t *testing.T) {
    page := FromHTML([]byte(`<div id="main-content" class="wiki-content"><p>one<br/>  two   words</p></div>`))
    if len(page.Paragraphs) != 1 || !strings.Contains(page.Paragraphs[0], "one\ntwo words") {
        t.Fatalf("unexpected paragraphs: %q", page.Paragraphs)
    }
}

func TestWikiExtractor_Extract(t *testing.T) {
    var e Extractor = WikiExtractor{TableClass: "layout"}
    page := e.Extract([]byte(wikiPage), "text/html; charset=utf-8")
    if len(page.Tables) != 1 || page.Tables[0][0][0] != "ignored layout table" {
        t.Fatalf("expected only the layout table, got %q", page.Tables)
    }
}
