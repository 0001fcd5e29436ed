package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/harun/roundtable/pkg/health"
	"github.com/harun/roundtable/pkg/persona"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the long-lived health, metrics and persona service",
	Long: `Run in the foreground: check the backend on the configured cron schedule,
expose Prometheus metrics and reload personas when their files change.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "metrics listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Metrics.Listen = serveListen
	}

	pidFile := getPIDFilePath(cfg.DataDir)
	if isRunning(pidFile) {
		return fmt.Errorf("server is already running (PID file: %s)", pidFile)
	}

	app, err := NewApp(cfg, AppOptions{Console: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Metrics.Tracing {
		if err := tracing.InitOpenTelemetry("roundtable"); err != nil {
			app.Log.Warn().Err(err).Msg("Tracing disabled")
		}
		defer tracing.ShutdownOpenTelemetry(context.Background())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, app)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	if err := writePIDFile(pidFile); err != nil {
		app.Log.Warn().Err(err).Msg("Failed to write PID file")
	}
	defer os.Remove(pidFile)

	app.Log.Info().Str("listen", srv.Addr()).Msg("Roundtable server started")
	<-ctx.Done()
	app.Log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Server keeps the roster fresh, checks health on a schedule and serves metrics
type Server struct {
	app       *App
	watcher   *persona.Watcher
	scheduler *health.Scheduler
	http      *http.Server
	listener  net.Listener
}

// NewServer loads the roster and prepares the watcher and scheduler
func NewServer(ctx context.Context, app *App) (*Server, error) {
	if app.Health == nil {
		return nil, fmt.Errorf("backend %s cannot report health", app.Generator.Provider())
	}

	cfg := app.Config
	logger := app.logs.Component("serve")

	watcher, err := persona.NewWatcher(ctx, persona.WatcherConfig{
		Dir:                cfg.Personas.Dir,
		Source:             app.Personas,
		StabilityThreshold: time.Duration(cfg.Personas.WatchStabilityMs) * time.Millisecond,
		OnReload: func(r *persona.Roster) {
			logger.Info().Int("personas", r.Len()).Strs("models", r.Models()).Msg("Persona roster reloaded")
		},
		Logger: app.logs.Component("persona"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	app.Personas = watcher

	scheduler, err := health.NewScheduler(app.Health, cfg.Health.Schedule, func() []string {
		return watcher.Current().Models()
	}, app.logs.Component("health"))
	if err != nil {
		watcher.Stop()
		return nil, err
	}

	s := &Server{
		app:       app,
		watcher:   watcher,
		scheduler: scheduler,
	}
	s.http = &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler serves /metrics, /healthz, /personas and /queue
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.app.Metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/personas", s.handlePersonas)
	mux.HandleFunc("/queue", s.handleQueue)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, ok := s.scheduler.Latest()
	if !ok {
		report = s.scheduler.RunNow(r.Context())
	}
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.watcher.Current().All())
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Queue.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start begins watching, checking and listening. The first check runs immediately
// when the config asks for a check on start.
func (s *Server) Start() error {
	if err := s.watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch personas: %w", err)
	}
	if s.app.Config.Health.CheckOnStart {
		go s.scheduler.RunNow(context.Background())
	}
	s.scheduler.Start()

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		s.scheduler.Stop()
		s.watcher.Stop()
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.app.Log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	return nil
}

// Addr returns the bound listen address
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

// Shutdown stops every background worker
func (s *Server) Shutdown(ctx context.Context) error {
	s.scheduler.Stop()
	return errors.Join(s.http.Shutdown(ctx), s.watcher.Stop())
}
