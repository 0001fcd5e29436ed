package persona

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePersona(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"the-skeptic":      "The Skeptic",
		"dev-david-voice":  "Dev David Voice",
		"mrs-violet-noire": "Mrs Violet Noire",
		"ALL-CAPS":         "All Caps",
	}
	for stem, want := range tests {
		assert.Equal(t, want, DisplayName(stem), stem)
	}
}

func TestDirSource_Load(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "zed-analyst.md", "You are a careful analyst.\n")
	writePersona(t, dir, "alpha-optimist.md", "---\nmodel: phi3:latest\n---\nYou see the bright side.\n")
	writePersona(t, dir, "violet.md", "---\nid: mrs-violet-noire\nname: Mrs. Violet Noire\n---\nYou review everything.\n")
	writePersona(t, dir, "notes.txt", "ignored")

	src := NewDirSource(dir, "llama3.2:latest", "mrs-violet-noire", map[string]string{"zed-analyst": "codegemma:latest"}, zerolog.Nop())
	roster, err := src.Load(context.Background())
	require.NoError(t, err)

	all := roster.All()
	require.Len(t, all, 3)

	assert.Equal(t, Persona{ID: "alpha-optimist", Name: "Alpha Optimist", Model: "phi3:latest", Description: "You see the bright side."}, all[0])
	assert.Equal(t, Persona{ID: "zed-analyst", Name: "Zed Analyst", Model: "codegemma:latest", Description: "You are a careful analyst."}, all[1])
	assert.Equal(t, Persona{ID: "mrs-violet-noire", Name: "Mrs. Violet Noire", Model: "llama3.2:latest", Description: "You review everything."}, all[2])

	final, ok := roster.FinalReviewer()
	require.True(t, ok)
	assert.Equal(t, "Mrs. Violet Noire", final.Name)
}

func TestDirSource_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		src := NewDirSource(filepath.Join(t.TempDir(), "nope"), "m", "", nil, zerolog.Nop())
		_, err := src.Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("empty directory", func(t *testing.T) {
		src := NewDirSource(t.TempDir(), "m", "", nil, zerolog.Nop())
		_, err := src.Load(context.Background())
		assert.ErrorIs(t, err, ErrNoPersonas)
	})

	t.Run("schema violation", func(t *testing.T) {
		dir := t.TempDir()
		writePersona(t, dir, "bad.md", "---\nid: Not Valid!\n---\nbody\n")
		src := NewDirSource(dir, "m", "", nil, zerolog.Nop())
		_, err := src.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid front matter")
	})

	t.Run("unterminated front matter", func(t *testing.T) {
		dir := t.TempDir()
		writePersona(t, dir, "open.md", "---\nname: Open\nbody without end\n")
		src := NewDirSource(dir, "m", "", nil, zerolog.Nop())
		_, err := src.Load(context.Background())
		assert.Error(t, err)
	})
}

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		header string
		body   string
	}{
		{"none", "plain body", "", "plain body"},
		{"header", "---\nname: X\n---\nbody\n", "name: X", "body\n"},
		{"empty header", "---\n---\nbody", "", "body"},
		{"dashes later are body", "intro\n---\nmore", "", "intro\n---\nmore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, err := splitFrontMatter([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.header, string(header))
			assert.Equal(t, tt.body, string(body))
		})
	}
}
