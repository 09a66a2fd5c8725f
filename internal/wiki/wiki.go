package wiki

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/wikirag/internal/extract"
	"github.com/hyperifyio/wikirag/internal/table"
)

// ErrNoContent is returned when a page lacks the wiki content container.
var ErrNoContent = errors.New("main content not found")

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// CleanTitle turns a page title into a file name prefix: every run of
// characters other than letters, digits and underscore becomes "_".
func CleanTitle(title string) string {
	return nonWord.ReplaceAllString(norm.NFKC.String(title), "_")
}

// WriteText writes the page title, its paragraphs and its child-page links.
func WriteText(path string, page extract.Page) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "Title: %s\n\n", page.Title)
	for _, p := range page.Paragraphs {
		fmt.Fprintf(w, "%s\n", p)
	}
	if len(page.Links) > 0 {
		fmt.Fprint(w, "\nList of hyperlinks:\n")
		for _, l := range page.Links {
			fmt.Fprintf(w, "%s: %s\n", l.Text, l.Href)
		}
	} else {
		log.Debug().Str("file", path).Msg("no hyperlinks found")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTables writes each table of page to <dir>/<prefix>_table_<i>.csv,
// numbering from 1. A failing table is logged and the rest are still
// written. It returns the paths written.
func WriteTables(dir, prefix string, page extract.Page) []string {
	if len(page.Tables) == 0 {
		log.Debug().Str("prefix", prefix).Msg("no tables found")
		return nil
	}
	var written []string
	for i, g := range page.Tables {
		path := filepath.Join(dir, fmt.Sprintf("%s_table_%d.csv", prefix, i+1))
		if err := writeCSV(path, g); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("table write failed")
			continue
		}
		log.Info().Str("file", path).Int("rows", len(g)).Msg("table written")
		written = append(written, path)
	}
	return written
}

func writeCSV(path string, g table.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Fetcher retrieves a page body and its content type.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Scraper fetches wiki pages and writes their text and tables to OutputDir.
type Scraper struct {
	Fetcher   Fetcher
	Extractor extract.Extractor
	OutputDir string
}

// Result lists the files produced for one page.
type Result struct {
	URL    string
	Title  string
	Text   string
	Tables []string
}

// ProcessURL scrapes one page.
func (s *Scraper) ProcessURL(ctx context.Context, url string) (Result, error) {
	body, contentType, err := s.Fetcher.Get(ctx, url)
	if err != nil {
		return Result{}, err
	}
	ex := s.Extractor
	if ex == nil {
		ex = extract.WikiExtractor{TableClass: extract.DefaultTableClass}
	}
	page := ex.Extract(body, contentType)
	log.Info().Str("title", page.Title).Str("url", url).Msg("processing page")
	if !page.Found {
		return Result{}, fmt.Errorf("%s: %w", url, ErrNoContent)
	}
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output folder: %w", err)
	}
	prefix := CleanTitle(page.Title)
	res := Result{URL: url, Title: page.Title, Text: filepath.Join(s.OutputDir, prefix+".txt")}
	if err := WriteText(res.Text, page); err != nil {
		return Result{}, fmt.Errorf("write text: %w", err)
	}
	res.Tables = WriteTables(s.OutputDir, prefix, page)
	log.Info().Str("file", res.Text).Msg("text content written")
	return res, nil
}

// ProcessList scrapes every URL listed in the file at path, one per line.
// Blank lines and lines starting with "#" are ignored. Failing pages are
// logged and skipped.
func (s *Scraper) ProcessList(ctx context.Context, path string) ([]Result, error) {
	urls, err := ReadURLList(path)
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.ProcessURL(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("url", u).Msg("page skipped")
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// ReadURLList reads a URL list file.
func ReadURLList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}
