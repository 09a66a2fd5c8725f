package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var safeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Local is a persistent collection stored as one JSON file per record under
// <path>/<collection>/. Queries scan every record.
type Local struct {
	dir string
}

// OpenLocal gets or creates the collection directory.
func OpenLocal(path string, collection string) (*Local, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("vector store path is required")
	}
	dir := filepath.Join(path, safeName.ReplaceAllString(collection, "_"))
	if _, err := os.Stat(dir); err == nil {
		log.Info().Str("collection", collection).Msg("collection found; updating existing collection")
	} else {
		log.Info().Str("collection", collection).Msg("collection not found; created a new collection")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) pathFor(id string) string {
	return filepath.Join(l.dir, safeName.ReplaceAllString(id, "_")+".json")
}

func (l *Local) Exists(_ context.Context, id string) (bool, error) {
	_, err := os.Stat(l.pathFor(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Get loads one record.
func (l *Local) Get(_ context.Context, id string) (Record, error) {
	b, err := os.ReadFile(l.pathFor(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return rec, nil
}

func (l *Local) Add(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	// Write then rename so a crash never leaves a half record behind
	tmp := l.pathFor(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.pathFor(rec.ID))
}

func (l *Local) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := l.Get(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable record")
			continue
		}
		if len(rec.Embedding) != len(embedding) {
			continue
		}
		matches = append(matches, Match{Record: rec, Distance: CosineDistance(embedding, rec.Embedding)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (l *Local) Count(_ context.Context) (int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

func (l *Local) Close() error { return nil }

// CosineDistance is 1 - cosine similarity. Zero vectors are at distance 1.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
