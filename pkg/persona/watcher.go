package persona

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadCallback is called after every successful reload
type ReloadCallback func(r *Roster)

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	Dir                string
	Source             Source
	StabilityThreshold time.Duration
	OnReload           ReloadCallback
	Logger             zerolog.Logger
}

// Watcher reloads the roster when persona files change. Meetings hold the
// roster they started with; only later meetings see a reload.
type Watcher struct {
	watcher            *fsnotify.Watcher
	dir                string
	source             Source
	stabilityThreshold time.Duration
	onReload           ReloadCallback
	logger             zerolog.Logger

	mu      sync.RWMutex
	current *Roster

	done     chan struct{}
	timerMu  sync.Mutex
	timer    *time.Timer
	stopOnce sync.Once
}

// NewWatcher loads the initial roster and prepares a watcher for its directory
func NewWatcher(ctx context.Context, cfg WatcherConfig) (*Watcher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.StabilityThreshold == 0 {
		cfg.StabilityThreshold = 100 * time.Millisecond
	}

	roster, err := cfg.Source.Load(ctx)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		watcher:            fsw,
		dir:                cfg.Dir,
		source:             cfg.Source,
		stabilityThreshold: cfg.StabilityThreshold,
		onReload:           cfg.OnReload,
		logger:             cfg.Logger,
		current:            roster,
		done:               make(chan struct{}),
	}, nil
}

// Current returns the latest successfully loaded roster
func (w *Watcher) Current() *Roster {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Load implements Source by returning the current roster
func (w *Watcher) Load(context.Context) (*Roster, error) {
	return w.Current(), nil
}

// Start begins watching the persona directory
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch persona directory: %w", err)
	}

	go w.eventLoop()

	w.logger.Info().Str("path", w.dir).Msg("Persona watcher started")
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if relevant(event.Name) {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

func relevant(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".md")
}

// scheduleReload debounces bursts of events into a single reload
func (w *Watcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.stabilityThreshold, func() {
		select {
		case <-w.done:
			return
		default:
			w.Reload(context.Background())
		}
	})
}

// Reload loads the roster now. A failed load keeps the previous roster.
func (w *Watcher) Reload(ctx context.Context) {
	roster, err := w.source.Load(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Persona reload failed, keeping previous roster")
		return
	}

	w.mu.Lock()
	w.current = roster
	w.mu.Unlock()

	w.logger.Info().Int("count", roster.Len()).Msg("Persona roster reloaded")
	if w.onReload != nil {
		w.onReload(roster)
	}
}
