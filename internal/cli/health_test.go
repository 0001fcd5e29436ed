package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		backend := &fakeBackend{installed: []string{"llama3.2:latest", "phi3:latest"}}
		app := newTestApp(t, testConfig(t), backend)

		out := &bytes.Buffer{}
		report, err := runHealth(context.Background(), app, false, out)
		require.NoError(t, err)

		assert.True(t, report.BackendUp)
		assert.True(t, report.CacheReady)
		assert.Equal(t, map[string]bool{"llama3.2:latest": true, "phi3:latest": true}, report.Models)
		assert.Contains(t, out.String(), "phi3:latest ok")
	})

	t.Run("missing models", func(t *testing.T) {
		app := newTestApp(t, testConfig(t), &fakeBackend{})

		out := &bytes.Buffer{}
		report, err := runHealth(context.Background(), app, false, out)
		assert.ErrorIs(t, err, errUnhealthy)
		assert.Equal(t, []string{"llama3.2:latest", "phi3:latest"}, report.Missing())
		assert.Contains(t, out.String(), "unavailable")
	})

	t.Run("pull fetches missing models", func(t *testing.T) {
		backend := &fakeBackend{installed: []string{"phi3:latest"}}
		app := newTestApp(t, testConfig(t), backend)

		out := &bytes.Buffer{}
		report, err := runHealth(context.Background(), app, true, out)
		require.NoError(t, err)

		assert.Equal(t, []string{"llama3.2:latest"}, backend.pulled)
		assert.Empty(t, report.Missing())
		assert.Contains(t, out.String(), "Pulling 1 missing model(s)")
	})

	t.Run("falls back to default model without personas", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Personas.Dir = t.TempDir()
		backend := &fakeBackend{installed: []string{"llama3.2:latest"}}
		app := newTestApp(t, cfg, backend)

		report, err := runHealth(context.Background(), app, false, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"llama3.2:latest": true}, report.Models)
	})
}

func TestRunHealth_FeedsMetrics(t *testing.T) {
	app := newTestApp(t, testConfig(t), &fakeBackend{installed: []string{"llama3.2:latest"}})

	_, _ = runHealth(context.Background(), app, false, &bytes.Buffer{})

	families, err := app.Metrics.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["roundtable_backend_up"])
	assert.True(t, names["roundtable_model_available"])
}
