package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClearDir removes dir with everything below it and recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes page cache entries saved more than maxAge ago,
// judged by the SavedAt field of <key>.meta.json. Unreadable metadata is left
// alone.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	return purge(dir, maxAge, func(path string, _ fs.DirEntry, now time.Time) bool {
		if !strings.HasSuffix(path, ".meta.json") {
			return false
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return false
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return false
		}
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
		return true
	})
}

// PurgeLLMCacheByAge removes model output entries (*.json, excluding page
// metadata) whose modification time is older than maxAge.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
	return purge(dir, maxAge, func(path string, d fs.DirEntry, now time.Time) bool {
		if strings.HasSuffix(path, ".meta.json") || !strings.HasSuffix(path, ".json") {
			return false
		}
		info, err := d.Info()
		if err != nil {
			return false
		}
		return now.Sub(info.ModTime().UTC()) > maxAge
	})
}

// purge walks dir and removes every file for which expired reports true.
func purge(dir string, maxAge time.Duration, expired func(path string, d fs.DirEntry, now time.Time) bool) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !expired(path, d, now) {
			return nil
		}
		removed++
		_ = os.Remove(path)
		return nil
	})
	return removed, err
}
