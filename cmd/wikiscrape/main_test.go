package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apppkg "github.com/hyperifyio/wikirag/internal/app"
	"github.com/hyperifyio/wikirag/internal/wiki"
)

const page = `<html><head><title>Lab Hours</title></head><body>
<div id="main-content" class="wiki-content"><p>Open weekdays 8 to 16.</p></div></body></html>`

func TestRun_WritesPageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := apppkg.DefaultConfig()
	cfg.URL = srv.URL + "/display/hours"
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.CacheDir = filepath.Join(dir, "cache")
	if err := run(cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(cfg.OutputDir, "Lab_Hours.txt"))
	if err != nil {
		t.Fatalf("expected page text: %v", err)
	}
	if !strings.Contains(string(b), "Open weekdays 8 to 16.") {
		t.Fatalf("unexpected text %q", b)
	}
}

// Pages without the content container surface ErrNoContent so main exits 2.
func TestRun_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>login</p></body></html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := apppkg.DefaultConfig()
	cfg.URL = srv.URL
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.CacheDir = filepath.Join(dir, "cache")
	err := run(cfg)
	if !errors.Is(err, wiki.ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if apppkg.ExitCode(err) != 2 {
		t.Fatalf("exit code %d", apppkg.ExitCode(err))
	}
}

func TestRun_MissingSource(t *testing.T) {
	cfg := apppkg.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	err := run(cfg)
	if !errors.Is(err, apppkg.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
