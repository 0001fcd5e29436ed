package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harun/roundtable/internal/config"
	"github.com/harun/roundtable/pkg/generation"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers every prompt with a long, deterministic reply
type fakeBackend struct {
	mu        sync.Mutex
	installed []string
	pulled    []string
	calls     int
}

func (f *fakeBackend) Provider() string { return "fake" }

func (f *fakeBackend) Generate(ctx context.Context, req generation.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if strings.Contains(req.Prompt, "Respond with just the number") {
		return "1", nil
	}
	if strings.Contains(req.Prompt, "actionable recommendations") {
		return "Recommendation 1: Ship a thin slice\nRationale: Every persona asked for real usage data", nil
	}
	return fmt.Sprintf("Reply %d: we should ship the smallest useful slice first and measure how people actually use it.", n), nil
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.installed...), nil
}

func (f *fakeBackend) PullModel(ctx context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, model)
	f.installed = append(f.installed, model)
	return nil
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Personas.Dir = filepath.Join(dir, "personas")
	cfg.Logging.File = filepath.Join(dir, "roundtable.log")
	cfg.Cache.Path = filepath.Join(dir, "cache.db")
	cfg.Metrics.PerfLog = filepath.Join(dir, "performance.log")
	cfg.Metrics.Listen = "127.0.0.1:0"
	cfg.Meeting.MaxRounds = 2

	require.NoError(t, os.MkdirAll(cfg.Personas.Dir, 0o755))
	personas := map[string]string{
		"alpha.md":        "You argue for speed.\n",
		"beta.md":         "---\nmodel: phi3:latest\n---\nYou argue for care.\n",
		"violet-noire.md": "You review the whole discussion.\n",
	}
	for name, content := range personas {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Personas.Dir, name), []byte(content), 0o644))
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, backend *fakeBackend) *App {
	t.Helper()
	app, err := NewApp(cfg, AppOptions{Generator: backend})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}
