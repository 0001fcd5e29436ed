package persona

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "alpha.md", "first")

	var reloads atomic.Int32
	w, err := NewWatcher(context.Background(), WatcherConfig{
		Dir:                dir,
		Source:             NewDirSource(dir, "m", "", nil, zerolog.Nop()),
		StabilityThreshold: 20 * time.Millisecond,
		OnReload:           func(*Roster) { reloads.Add(1) },
		Logger:             zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	snapshot := w.Current()
	assert.Equal(t, 1, snapshot.Len())

	writePersona(t, dir, "beta.md", "second")

	require.Eventually(t, func() bool { return w.Current().Len() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))
	assert.Equal(t, 1, snapshot.Len(), "earlier snapshot is unchanged")
}

func TestWatcher_FailedReloadKeepsRoster(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "alpha.md", "first")

	w, err := NewWatcher(context.Background(), WatcherConfig{
		Dir:    dir,
		Source: NewDirSource(dir, "m", "", nil, zerolog.Nop()),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	defer w.Stop()

	writePersona(t, dir, "broken.md", "---\nid: BAD ID\n---\n")
	w.Reload(context.Background())

	assert.Equal(t, 1, w.Current().Len())
	_, ok := w.Current().Get("alpha")
	assert.True(t, ok)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(filepath.Join("x", "a.md")))
	assert.True(t, relevant("B.MD"))
	assert.False(t, relevant(".hidden.md"))
	assert.False(t, relevant("notes.txt"))
}
