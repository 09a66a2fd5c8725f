package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// LLMCache stores model outputs (answers, table summaries, embedding
// vectors) keyed by a digest of the model name and its input.
type LLMCache struct {
	Dir string
	// StrictPerms, when true, enforces 0700 on cache directories and 0600 on
	// files.
	StrictPerms bool
}

func (c *LLMCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return mkdirPerm(c.Dir, c.StrictPerms)
}

// KeyFrom builds a cache key from model and input text.
func KeyFrom(model string, input string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + input))
	return hex.EncodeToString(h[:])
}

func (c *LLMCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns cached bytes if present. A miss is not an error.
func (c *LLMCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	// Touch mtime so age-based purges keep entries still in use
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes to cache.
func (c *LLMCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	return os.WriteFile(c.pathFor(key), data, filePerm(c.StrictPerms))
}

// GetJSON decodes a cached entry into v. It reports false on a miss or when
// the entry cannot be decoded.
func (c *LLMCache) GetJSON(ctx context.Context, key string, v any) bool {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// SaveJSON encodes v and stores it under key.
func (c *LLMCache) SaveJSON(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Save(ctx, key, payload)
}

func mkdirPerm(dir string, strict bool) error {
	perm := os.FileMode(0o755)
	if strict {
		perm = 0o700
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	// If directory already existed, tighten perms
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(dir, 0o700)
		}
	}
	return nil
}

func filePerm(strict bool) os.FileMode {
	if strict {
		return 0o600
	}
	return 0o644
}
