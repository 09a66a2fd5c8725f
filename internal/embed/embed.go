package embed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned by ForPath for file types without an embedder.
var ErrUnsupported = errors.New("unsupported file type")

// Embedder turns one input file into the lines to embed and a summary that
// is stored alongside them.
type Embedder interface {
	Process(ctx context.Context) (lines []string, summary string, err error)
}

// Options configure the embedders returned by ForPath.
type Options struct {
	// EnableCSV turns on table embedding. When false, .csv files are
	// reported as unsupported.
	EnableCSV bool
	// Summarizer describes tables; required when EnableCSV is set.
	Summarizer *Summarizer
}

// ForPath picks an embedder by file extension.
func ForPath(path string, opts Options) (Embedder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return &TXTEmbedder{Path: path}, nil
	case ".csv":
		if !opts.EnableCSV {
			return nil, fmt.Errorf("%w: csv embedding disabled", ErrUnsupported)
		}
		if opts.Summarizer == nil {
			return nil, errors.New("csv embedding needs a summarizer")
		}
		return &CSVEmbedder{Path: path, Summarizer: opts.Summarizer}, nil
	default:
		return nil, ErrUnsupported
	}
}

// TXTEmbedder embeds every non-blank line of a text file.
type TXTEmbedder struct {
	Path string
}

// Process returns the trimmed non-blank lines and a summary naming the file.
func (e *TXTEmbedder) Process(_ context.Context) ([]string, string, error) {
	f, err := os.Open(e.Path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			lines = append(lines, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", e.Path, err)
	}
	return lines, "file name: " + stem(e.Path), nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
