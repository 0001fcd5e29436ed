package persona

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoster_FinalReviewerLast(t *testing.T) {
	personas := []Persona{
		{ID: "mrs-violet-noire", Name: "Mrs. Violet Noire", Model: "llama3"},
		{ID: "alpha", Name: "Alpha", Model: "phi3"},
		{ID: "beta", Name: "Beta", Model: "llama3"},
	}

	r, err := NewRoster(personas, "Mrs. Violet Noire")
	require.NoError(t, err)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].ID)
	assert.Equal(t, "mrs-violet-noire", all[2].ID)

	final, ok := r.FinalReviewer()
	require.True(t, ok)
	assert.Equal(t, "mrs-violet-noire", final.ID)

	discussants := r.Discussants()
	assert.Len(t, discussants, 2)
	for _, p := range discussants {
		assert.NotEqual(t, "mrs-violet-noire", p.ID)
	}

	assert.Equal(t, []string{"llama3", "phi3"}, r.Models())
}

func TestNewRoster_NoFinalReviewer(t *testing.T) {
	r, err := NewRoster([]Persona{{ID: "a"}, {ID: "b"}}, "")
	require.NoError(t, err)

	_, ok := r.FinalReviewer()
	assert.False(t, ok)
	assert.Len(t, r.Discussants(), 2)

	p, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", p.ID)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestNewRoster_Empty(t *testing.T) {
	_, err := NewRoster(nil, "")
	assert.ErrorIs(t, err, ErrNoPersonas)
}

func TestRoster_AllIsCopy(t *testing.T) {
	r, err := NewRoster([]Persona{{ID: "a"}}, "")
	require.NoError(t, err)

	all := r.All()
	all[0].ID = "changed"
	assert.Equal(t, "a", r.All()[0].ID)
}

func TestStaticSource(t *testing.T) {
	_, err := StaticSource{}.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoPersonas)
}
