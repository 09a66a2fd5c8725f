package embed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/wikirag/internal/cache"
	"github.com/hyperifyio/wikirag/internal/llm"
)

// NoDataSummary is the summary of an empty table.
const NoDataSummary = "No data to process."

// DefaultSampleRows bounds the rows shown to the model when summarizing.
const DefaultSampleRows = 50

// Frame is a parsed CSV: a header and its rows.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// ReadFrame parses a CSV file. Short rows are padded and long rows cut to
// the header width.
func ReadFrame(r io.Reader) (Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return Frame{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Frame{}, nil
	}
	f := Frame{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make([]string, len(f.Columns))
		copy(row, rec)
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

// FlattenRow renders a row as "col: value, col: value".
func (f Frame) FlattenRow(row []string) string {
	parts := make([]string, len(f.Columns))
	for i, col := range f.Columns {
		parts[i] = col + ": " + row[i]
	}
	return strings.Join(parts, ", ")
}

// Schema lists "column: type" lines with the type inferred from the values.
func (f Frame) Schema() string {
	lines := make([]string, len(f.Columns))
	for i, col := range f.Columns {
		lines[i] = col + ": " + f.columnType(i)
	}
	return strings.Join(lines, "\n")
}

func (f Frame) columnType(i int) string {
	isInt, isFloat, isBool, seen := true, true, true, false
	for _, row := range f.Rows {
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
		if lv := strings.ToLower(v); lv != "true" && lv != "false" {
			isBool = false
		}
	}
	switch {
	case !seen:
		return "object"
	case isInt:
		return "int64"
	case isFloat:
		return "float64"
	case isBool:
		return "bool"
	default:
		return "object"
	}
}

// Sample renders up to n rows as an aligned text table.
func (f Frame) Sample(n int) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(f.Columns, "\t"))
	for i, row := range f.Rows {
		if i >= n {
			break
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// Summarizer asks the completion model for a table overview.
type Summarizer struct {
	Client llm.Client
	Model  string
	Cache  *cache.LLMCache
	// SampleRows defaults to DefaultSampleRows.
	SampleRows int
	// MaxTokens defaults to 2000.
	MaxTokens int
}

const summarizeSystem = "You are an AI with expertise in data analysis and summarization."
const summarizeQuestion = "Can you summarize the following table schema and provide a concise overview of the data?"

// Summarize returns "Table Name: <name>\n" followed by the model's overview.
func (s *Summarizer) Summarize(ctx context.Context, name string, f Frame) (string, error) {
	if s == nil || s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", errors.New("summarizer not configured")
	}
	n := s.SampleRows
	if n <= 0 {
		n = DefaultSampleRows
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	tableContext := fmt.Sprintf("Table Schema:\n%s\n\nSample Data:\n%s", f.Schema(), f.Sample(n))
	user := fmt.Sprintf("Context: %s\n\nQuestion: %s", tableContext, summarizeQuestion)

	key := cache.KeyFrom(s.Model, summarizeSystem+"\n\n"+user)
	var cached struct {
		Summary string `json:"summary"`
	}
	if s.Cache != nil && s.Cache.GetJSON(ctx, key, &cached) && cached.Summary != "" {
		return "Table Name: " + name + "\n" + cached.Summary, nil
	}

	log.Info().Str("table", name).Msg("generating table schema and summary")
	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizeSystem},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", name, err)
	}
	out := llm.FirstContent(resp)
	if out == "" {
		return "", fmt.Errorf("summarize %s: empty response", name)
	}
	if s.Cache != nil {
		cached.Summary = out
		_ = s.Cache.SaveJSON(ctx, key, cached)
	}
	return "Table Name: " + name + "\n" + out, nil
}

// CSVEmbedder embeds every row of a table plus a model-written summary.
type CSVEmbedder struct {
	Path       string
	Summarizer *Summarizer
}

// Process flattens each row and appends the summary to the lines. An empty
// table yields no lines and NoDataSummary.
func (e *CSVEmbedder) Process(ctx context.Context) ([]string, string, error) {
	file, err := os.Open(e.Path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	f, err := ReadFrame(file)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", e.Path, err)
	}
	if len(f.Rows) == 0 {
		log.Warn().Str("file", e.Path).Msg("the input CSV is empty")
		return nil, NoDataSummary, nil
	}
	lines := make([]string, 0, len(f.Rows)+1)
	for _, row := range f.Rows {
		lines = append(lines, f.FlattenRow(row))
	}
	summary, err := e.Summarizer.Summarize(ctx, stem(e.Path), f)
	if err != nil {
		return nil, "", err
	}
	lines = append(lines, summary)
	return lines, summary, nil
}
