package table

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// NestedPrefix labels a cell whose content was a nested table.
const NestedPrefix = "NestedTable: "

// nestedRowSep is a literal backslash-n, not a newline, so the flattened
// nested table stays on one CSV line.
const nestedRowSep = `\n`

// Grid is a dense table: every row has the same number of columns.
type Grid [][]string

// TopLevel returns every table element under root, in document order, that
// is not nested inside another table.
func TopLevel(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if isElement(n, "table") {
			out = append(out, n)
			// Anything below belongs to this table's cells.
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// ExtractTable expands rowspan and colspan of a table into a dense grid.
// Cells holding a nested table carry a flattened rendering of it instead of
// its literal text.
func ExtractTable(t *html.Node) Grid {
	rows := rowsOf(t)
	grid := make(Grid, 0, len(rows))
	// row index -> column index -> texts delivered from earlier rows
	pending := map[int]map[int][]string{}

	for r, tr := range rows {
		row := make([]string, 0)
		for _, cell := range cellsOf(tr) {
			rs := spanAttr(cell, "rowspan")
			cs := spanAttr(cell, "colspan")
			text := cellText(cell)
			start := len(row)
			for i := 0; i < cs; i++ {
				row = append(row, text)
			}
			if rs > 1 {
				// spans past the last row are dropped
				for k := 1; k < rs && r+k < len(rows); k++ {
					cols := pending[r+k]
					if cols == nil {
						cols = map[int][]string{}
						pending[r+k] = cols
					}
					for c := start; c < start+cs; c++ {
						cols[c] = append(cols[c], text)
					}
				}
			}
		}
		if cols, ok := pending[r]; ok {
			row = insertPending(row, cols)
			delete(pending, r)
		}
		grid = append(grid, row)
	}
	return pad(grid)
}

// insertPending splices spanned texts into row at their recorded columns,
// lowest column first.
func insertPending(row []string, cols map[int][]string) []string {
	keys := make([]int, 0, len(cols))
	for c := range cols {
		keys = append(keys, c)
	}
	sort.Ints(keys)
	for _, c := range keys {
		text := strings.Join(cols[c], ";")
		if c >= len(row) {
			row = append(row, text)
			continue
		}
		row = append(row, "")
		copy(row[c+1:], row[c:])
		row[c] = text
	}
	return row
}

// pad right-fills short rows with empty strings up to the widest row.
func pad(g Grid) Grid {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range g {
		for len(row) < width {
			row = append(row, "")
		}
		g[i] = row
	}
	return g
}

// MergeRows collapses consecutive rows that only differ in their last column
// into one row whose last column lists the values separated by ";". The
// first row is always kept. The input grid is not modified.
func MergeRows(g Grid) Grid {
	if len(g) < 2 {
		return g
	}
	out := make(Grid, 0, len(g))
	out = append(out, cloneRow(g[0]))
	for _, row := range g[1:] {
		last := out[len(out)-1]
		if sameKey(last, row) {
			last[len(last)-1] += ";" + row[len(row)-1]
			continue
		}
		out = append(out, cloneRow(row))
	}
	return out
}

func sameKey(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneRow(row []string) []string {
	return append([]string(nil), row...)
}

// FormatNested flattens a nested table: cells joined with commas, rows
// joined with a literal `\n`, prefixed with NestedPrefix.
func FormatNested(t *html.Node) string {
	rows := rowsOf(t)
	lines := make([]string, 0, len(rows))
	for _, tr := range rows {
		cells := cellsOf(tr)
		texts := make([]string, 0, len(cells))
		for _, c := range cells {
			texts = append(texts, Text(c))
		}
		lines = append(lines, strings.Join(texts, ","))
	}
	return NestedPrefix + strings.Join(lines, nestedRowSep)
}

func cellText(cell *html.Node) string {
	if nested := findNested(cell); nested != nil {
		return FormatNested(nested)
	}
	return Text(cell)
}

// findNested returns the first table element below cell, if any.
func findNested(cell *html.Node) *html.Node {
	for c := cell.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "table") {
			return c
		}
		if n := findNested(c); n != nil {
			return n
		}
	}
	return nil
}

// rowsOf lists the table's own rows, looking through thead, tbody and tfoot
// but never into nested tables.
func rowsOf(t *html.Node) []*html.Node {
	var rows []*html.Node
	if t == nil {
		return rows
	}
	for c := t.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch strings.ToLower(c.Data) {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if isElement(r, "tr") {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

func cellsOf(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "td") || isElement(c, "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

// Upper bounds browsers apply to span attributes.
const (
	maxColspan = 1000
	maxRowspan = 65534
)

// spanAttr reads a span attribute; anything missing, malformed or below 1
// counts as 1, and values above the browser limits are clamped.
func spanAttr(n *html.Node, key string) int {
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, key) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil || v < 1 {
			return 1
		}
		limit := maxRowspan
		if strings.EqualFold(key, "colspan") {
			limit = maxColspan
		}
		return min(v, limit)
	}
	return 1
}

// Text returns the visible text of n with whitespace runs collapsed and the
// ends trimmed. Script and style contents are skipped.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			return
		case html.ElementNode:
			switch strings.ToLower(cur.Data) {
			case "script", "style", "noscript":
				return
			case "br":
				b.WriteByte(' ')
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
}
