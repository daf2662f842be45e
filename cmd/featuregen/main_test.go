package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const fakeDocument = `## Overview
A login screen.

## UI Components Breakdown
- Email field
- Submit button

## Functional Requirements
Users sign in.

## Data Requirements
Accounts.

## User Flows
Login then dashboard.

## Technical Recommendations
React.

## Non-Functional Requirements
Fast.

## Implementation Guide
Start with auth.
`

type fakeOllama struct {
	server *httptest.Server
	vision atomic.Int64
	text   atomic.Int64
}

func newFakeOllama(t *testing.T) *fakeOllama {
	t.Helper()
	f := &fakeOllama{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[
				{"name":"llava:latest","model":"llava:latest","size":4700000000,"modified_at":"2026-01-02T03:04:05Z","details":{"family":"llama","parameter_size":"7B"}},
				{"name":"llama3:latest","model":"llama3:latest","size":4900000000,"modified_at":"2026-01-03T03:04:05Z","details":{"family":"llama","parameter_size":"8B"}}
			]}`))
		case "/api/generate":
			var req struct {
				Images []string `json:"images"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			response := fakeDocument
			if len(req.Images) > 0 {
				f.vision.Add(1)
				response = "## Screen Purpose\nLogin\n\n## UI Components\n- Button: Sign in\n- Input: Email\n"
			} else {
				f.text.Add(1)
			}
			payload, _ := json.Marshal(map[string]any{"model": "m", "response": response, "done": true})
			_, _ = w.Write(append(payload, '\n'))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

type cliEnv struct {
	dir        string
	configPath string
}

func setupCLIEnv(t *testing.T, host string) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))

	configPath := filepath.Join(base, "featuregen.toml")
	body := fmt.Sprintf(`[ollama]
host = %q
timeout_seconds = 5

[models]
vision = "llava"
llm = "llama3"

[output]
dir = %q
template_dir = %q

[cache]
dir = %q

[pipeline]
retry_base_ms = 1
retry_max_ms = 2

[logging]
level = "error"
`, host, filepath.Join(base, "out"), filepath.Join(base, "templates"), filepath.Join(base, "cache"))
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{dir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func TestAnalyzeWritesDocument(t *testing.T) {
	fake := newFakeOllama(t)
	env := setupCLIEnv(t, fake.server.URL)
	login := filepath.Join(env.dir, "login.png")
	writePNG(t, login)

	out, _, err := runCLI(t, []string{"analyze", login}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	target := filepath.Join(env.dir, "out", "login-requirements.md")
	requireContains(t, out, "Wrote "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	requireContains(t, string(data), "# Web Application Requirements")
	requireContains(t, string(data), "## Implementation Guide")
	if fake.vision.Load() != 1 || fake.text.Load() != 1 {
		t.Fatalf("expected 1 vision and 1 text call, got %d and %d", fake.vision.Load(), fake.text.Load())
	}

	// A second run is answered from the cache.
	if _, _, err := runCLI(t, []string{"analyze", "--output", "-", login}, env.configPath); err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if fake.vision.Load() != 1 || fake.text.Load() != 1 {
		t.Fatalf("expected cached second run, got %d vision and %d text calls", fake.vision.Load(), fake.text.Load())
	}

	out, _, err = runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Entries: 2")
}

func TestAnalyzeRejectsUnsupportedFormatBeforeCallingModels(t *testing.T) {
	fake := newFakeOllama(t)
	env := setupCLIEnv(t, fake.server.URL)
	login := filepath.Join(env.dir, "login.png")
	writePNG(t, login)

	_, _, err := runCLI(t, []string{"analyze", "--format", "pdf", login}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	requireContains(t, err.Error(), "pdf")
	if fake.vision.Load() != 0 || fake.text.Load() != 0 {
		t.Fatalf("expected no model calls, got %d vision and %d text", fake.vision.Load(), fake.text.Load())
	}
}

func TestAnalyzeRejectsUnknownInputType(t *testing.T) {
	fake := newFakeOllama(t)
	env := setupCLIEnv(t, fake.server.URL)
	notes := filepath.Join(env.dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	if _, _, err := runCLI(t, []string{"analyze", notes}, env.configPath); err == nil {
		t.Fatal("expected error for unsupported input")
	}
	if fake.vision.Load() != 0 {
		t.Fatalf("expected no vision calls, got %d", fake.vision.Load())
	}
}

func TestRefineRewritesDocument(t *testing.T) {
	fake := newFakeOllama(t)
	env := setupCLIEnv(t, fake.server.URL)
	login := filepath.Join(env.dir, "login.png")
	writePNG(t, login)

	target := filepath.Join(env.dir, "login.json")
	if _, _, err := runCLI(t, []string{"analyze", "--format", "json", "--output", target, login}, env.configPath); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	out, _, err := runCLI(t, []string{"refine", "--feedback", "Add password reset", target}, env.configPath)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	refined := filepath.Join(env.dir, "login-refined.json")
	requireContains(t, out, "Wrote "+refined)
	data, err := os.ReadFile(refined)
	if err != nil {
		t.Fatalf("read refined: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("refined output is not JSON:\n%s", data)
	}
	if fake.text.Load() != 2 {
		t.Fatalf("expected 2 text calls, got %d", fake.text.Load())
	}
}

func TestRefineRequiresFeedback(t *testing.T) {
	env := setupCLIEnv(t, "http://127.0.0.1:1")
	doc := filepath.Join(env.dir, "doc.md")
	if err := os.WriteFile(doc, []byte("# T\n\n## Overview\n\nx\n"), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	_, _, err := runCLI(t, []string{"refine", doc}, env.configPath)
	if err == nil {
		t.Fatal("expected error without feedback")
	}
	requireContains(t, err.Error(), "feedback")
}

func TestInitReportsModels(t *testing.T) {
	fake := newFakeOllama(t)
	env := setupCLIEnv(t, fake.server.URL)

	out, _, err := runCLI(t, []string{"init"}, env.configPath)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	requireContains(t, out, "Ollama reachable")
	requireContains(t, out, "Ready")

	out, _, err = runCLI(t, []string{"models"}, env.configPath)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	requireContains(t, out, "llava:latest")
	requireContains(t, out, "vision")
}

func TestTemplatesList(t *testing.T) {
	env := setupCLIEnv(t, "http://127.0.0.1:1")
	out, _, err := runCLI(t, []string{"templates"}, env.configPath)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	for _, key := range []string{"web_app", "mobile_app", "dashboard"} {
		requireContains(t, out, key)
	}

	out, _, err = runCLI(t, []string{"templates", "show", "dashboard"}, env.configPath)
	if err != nil {
		t.Fatalf("templates show: %v", err)
	}
	requireContains(t, out, "Sections:")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLIEnv(t, "http://127.0.0.1:1")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
}
