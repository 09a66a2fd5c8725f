package app

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var mdLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// writeAnswerPDF renders the answer Markdown as a plain A4 document. Headings
// get a bold font, links stay clickable and everything else is wrapped text.
func writeAnswerPDF(markdown string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("wikirag answer", true)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(4)
		case s == "---":
			y := pdf.GetY() + 2
			pdf.Line(10, y, 200, y)
			pdf.Ln(5)
		case strings.HasPrefix(s, "#"):
			level := len(s) - len(strings.TrimLeft(s, "#"))
			text := strings.TrimSpace(s[level:])
			if text == "" {
				continue
			}
			size := 15.0
			if level >= 2 {
				size = 12.5
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, 7, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		default:
			writeInline(pdf, tr, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}

func writeInline(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
	parts := mdLink.FindAllStringSubmatchIndex(s, -1)
	if len(parts) == 0 {
		pdf.MultiCell(0, 5, tr(s), "", "L", false)
		return
	}
	pos := 0
	for _, m := range parts {
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		pdf.WriteLinkString(5, tr(s[m[2]:m[3]]), s[m[4]:m[5]])
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
	pdf.Ln(6)
}
