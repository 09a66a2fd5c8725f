package extract

import (
    "bytes"
    "io"
    "strings"

    "golang.org/x/net/html"
    "golang.org/x/net/html/charset"

    "github.com/hyperifyio/wikirag/internal/table"
)

// DefaultTableClass selects the wiki's content tables.
const DefaultTableClass = "confluenceTable"

// Link is an entry of a page's child-pages list.
type Link struct {
    Text string
    Href string
}

// Page is the readable content of one wiki page.
type Page struct {
    Title string
    // Found is true when the wiki content container was present. When false
    // the fields below come from a generic fallback root.
    Found      bool
    Paragraphs []string
    Links      []Link
    Tables     []table.Grid
}

// Options tune extraction.
type Options struct {
    // TableClass keeps only top-level tables carrying this class. Empty keeps all.
    TableClass string
    // ContentType is the response Content-Type, used to pick a charset.
    ContentType string
}

// FromHTML extracts a Page using DefaultTableClass.
func FromHTML(input []byte) Page {
    return FromHTMLWithOptions(input, Options{TableClass: DefaultTableClass})
}

// FromHTMLWithOptions extracts the title, the paragraphs outside tables, the
// child-page links and every top-level table of the content root. The root is
// div#main-content.wiki-content, falling back to <main>, <article> and <body>.
func FromHTMLWithOptions(input []byte, opts Options) Page {
    var r io.Reader = bytes.NewReader(input)
    if cr, err := charset.NewReader(r, opts.ContentType); err == nil {
        r = cr
    }
    node, err := html.Parse(r)
    if err != nil || node == nil {
        return Page{}
    }

    page := Page{Title: strings.TrimSpace(findTitle(node))}
    content := findWikiContent(node)
    page.Found = content != nil
    if content == nil {
        content = findFirst(node, "main")
    }
    if content == nil {
        content = findFirst(node, "article")
    }
    if content == nil {
        content = findFirst(node, "body")
    }
    if content == nil {
        return page
    }

    page.Paragraphs = collectParagraphs(content)
    page.Links = collectChildLinks(content)
    for _, t := range table.TopLevel(content) {
        if opts.TableClass != "" && !hasClass(t, opts.TableClass) {
            continue
        }
        page.Tables = append(page.Tables, table.MergeRows(table.ExtractTable(t)))
    }
    return page
}

func findTitle(n *html.Node) string {
    t := findFirst(n, "title")
    if t == nil {
        return ""
    }
    return table.Text(t)
}

func findFirst(n *html.Node, tag string) *html.Node {
    return findNode(n, func(cur *html.Node) bool {
        return cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag)
    })
}

func findWikiContent(n *html.Node) *html.Node {
    return findNode(n, func(cur *html.Node) bool {
        return cur.Type == html.ElementNode && cur.Data == "div" &&
            attrValue(cur, "id") == "main-content" && hasClass(cur, "wiki-content")
    })
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
    var res *html.Node
    var dfs func(*html.Node)
    dfs = func(cur *html.Node) {
        if res != nil {
            return
        }
        if match(cur) {
            res = cur
            return
        }
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            dfs(c)
            if res != nil {
                return
            }
        }
    }
    dfs(n)
    return res
}

// collectParagraphs returns the text of every <p> below root that is not
// inside a table. Paragraph text keeps its line breaks but collapses runs of
// spaces.
func collectParagraphs(root *html.Node) []string {
    var out []string
    var walk func(n *html.Node, inTable bool)
    walk = func(n *html.Node, inTable bool) {
        if n.Type == html.ElementNode {
            switch strings.ToLower(n.Data) {
            case "table", "tr", "td", "th":
                inTable = true
            case "script", "style", "noscript":
                return
            case "p":
                if !inTable {
                    var b strings.Builder
                    collectText(&b, n)
                    out = append(out, normalizeWhitespace(b.String()))
                }
                // <p> cannot contain another <p>
                return
            }
        }
        for c := n.FirstChild; c != nil; c = c.NextSibling {
            walk(c, inTable)
        }
    }
    walk(root, false)
    return out
}

func collectText(b *strings.Builder, n *html.Node) {
    switch n.Type {
    case html.TextNode:
        data := strings.ReplaceAll(n.Data, "\t", " ")
        data = strings.ReplaceAll(data, "\r", " ")
        b.WriteString(data)
    case html.ElementNode:
        switch strings.ToLower(n.Data) {
        case "script", "style", "noscript":
            return
        case "br":
            b.WriteString("\n")
        }
    }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        collectText(b, c)
    }
}

// collectChildLinks reads the anchors of the first ul.childpages-macro.
func collectChildLinks(root *html.Node) []Link {
    list := findNode(root, func(cur *html.Node) bool {
        return cur.Type == html.ElementNode && cur.Data == "ul" && hasClass(cur, "childpages-macro")
    })
    if list == nil {
        return nil
    }
    var links []Link
    var walk func(*html.Node)
    walk = func(n *html.Node) {
        if n.Type == html.ElementNode && n.Data == "a" {
            links = append(links, Link{Text: table.Text(n), Href: attrValue(n, "href")})
            return
        }
        for c := n.FirstChild; c != nil; c = c.NextSibling {
            walk(c)
        }
    }
    walk(list)
    return links
}

func attrValue(n *html.Node, key string) string {
    for _, a := range n.Attr {
        if strings.EqualFold(a.Key, key) {
            return a.Val
        }
    }
    return ""
}

func hasClass(n *html.Node, class string) bool {
    for _, c := range strings.Fields(attrValue(n, "class")) {
        if c == class {
            return true
        }
    }
    return false
}

func normalizeWhitespace(s string) string {
    // Collapse space runs per line and drop blank lines
    lines := strings.Split(s, "\n")
    out := make([]string, 0, len(lines))
    for _, line := range lines {
        trimmed := strings.TrimSpace(line)
        if trimmed == "" {
            continue
        }
        out = append(out, collapseSpaces(trimmed))
    }
    return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
    var b strings.Builder
    lastSpace := false
    for _, r := range s {
        if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ' ' {
            if !lastSpace {
                b.WriteByte(' ')
                lastSpace = true
            }
            continue
        }
        b.WriteRune(r)
        lastSpace = false
    }
    return b.String()
}
