package health

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunNowStoresLatest(t *testing.T) {
	backend := &mockBackend{}
	backend.On("ListModels", mock.Anything).Return([]string{"llama3:latest"}, nil)

	checker, err := NewChecker(Config{Backend: backend, Logger: zerolog.Nop()})
	require.NoError(t, err)

	s, err := NewScheduler(checker, "@every 1h", func() []string { return []string{"llama3"} }, zerolog.Nop())
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	_, ok := s.Latest()
	assert.False(t, ok)

	s.RunNow(context.Background())

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.True(t, latest.Healthy())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	backend := &mockBackend{}
	checker, err := NewChecker(Config{Backend: backend, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = NewScheduler(checker, "not a cron", func() []string { return nil }, zerolog.Nop())
	assert.Error(t, err)
}
