package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the roundtable configuration
type Config struct {
	// Generation backend
	Backend BackendConfig `json:"backend" mapstructure:"backend"`

	// Meeting protocol
	Meeting MeetingConfig `json:"meeting" mapstructure:"meeting"`

	// Response cache
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// Health checks
	Health HealthConfig `json:"health" mapstructure:"health"`

	// Metrics and tracing
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Persona roster
	Personas PersonasConfig `json:"personas" mapstructure:"personas"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// BackendConfig selects the text-generation service
type BackendConfig struct {
	Provider       string  `json:"provider" mapstructure:"provider"` // ollama, openai, anthropic
	BaseURL        string  `json:"base_url" mapstructure:"base_url"`
	APIKey         string  `json:"api_key" mapstructure:"api_key"`
	MaxTokens      int     `json:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `json:"requests_per_sec" mapstructure:"requests_per_sec"` // 0 = unlimited
	Burst          int     `json:"burst" mapstructure:"burst"`
}

// MeetingConfig holds meeting protocol settings
type MeetingConfig struct {
	MaxRounds             int    `json:"max_rounds" mapstructure:"max_rounds"`
	Parallelism           int    `json:"parallelism" mapstructure:"parallelism"`
	MaxRetries            int    `json:"max_retries" mapstructure:"max_retries"`
	TimeoutSeconds        int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	SummaryTimeoutSeconds int    `json:"summary_timeout_seconds" mapstructure:"summary_timeout_seconds"`
	VoteTimeoutSeconds    int    `json:"vote_timeout_seconds" mapstructure:"vote_timeout_seconds"`
	WarmUpTimeoutSeconds  int    `json:"warm_up_timeout_seconds" mapstructure:"warm_up_timeout_seconds"`
	BackoffBaseMs         int    `json:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	WarmUp                bool   `json:"warm_up" mapstructure:"warm_up"`
	UserQuestions         bool   `json:"user_questions" mapstructure:"user_questions"`
	AskUser               bool   `json:"ask_user" mapstructure:"ask_user"`
	PeerQuestions         bool   `json:"peer_questions" mapstructure:"peer_questions"`
	BallotSize            int    `json:"ballot_size" mapstructure:"ballot_size"`
	BallotMinSize         int    `json:"ballot_min_size" mapstructure:"ballot_min_size"`
	MinRecommendation     int    `json:"min_recommendation_length" mapstructure:"min_recommendation_length"`
	ActionItems           bool   `json:"action_items" mapstructure:"action_items"`
	ActionModel           string `json:"action_model" mapstructure:"action_model"` // empty = final reviewer's model
	SaveTranscripts       bool   `json:"save_transcripts" mapstructure:"save_transcripts"`
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Path       string `json:"path" mapstructure:"path"` // sqlite file, empty = in-memory only
	TTLSeconds int    `json:"ttl_seconds" mapstructure:"ttl_seconds"`
	MemorySize int    `json:"memory_size" mapstructure:"memory_size"`
}

// HealthConfig holds health check settings
type HealthConfig struct {
	CheckOnStart        bool   `json:"check_on_start" mapstructure:"check_on_start"`
	Schedule            string `json:"schedule" mapstructure:"schedule"` // cron expression for serve mode
	CheckTimeoutSeconds int    `json:"check_timeout_seconds" mapstructure:"check_timeout_seconds"`
	ListTimeoutSeconds  int    `json:"list_timeout_seconds" mapstructure:"list_timeout_seconds"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	PerfLog   string `json:"perf_log" mapstructure:"perf_log"`
	Listen    string `json:"listen" mapstructure:"listen"` // serve mode /metrics address
	Tracing   bool   `json:"tracing" mapstructure:"tracing"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
}

// PersonasConfig holds persona loading settings
type PersonasConfig struct {
	Dir              string            `json:"dir" mapstructure:"dir"`
	DefaultModel     string            `json:"default_model" mapstructure:"default_model"`
	FinalReviewer    string            `json:"final_reviewer" mapstructure:"final_reviewer"`
	ModelMap         map[string]string `json:"model_map" mapstructure:"model_map"`
	WatchStabilityMs int               `json:"watch_stability_ms" mapstructure:"watch_stability_ms"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Burst:    1,
		},
		Meeting: MeetingConfig{
			MaxRounds:             3,
			Parallelism:           1,
			MaxRetries:            3,
			TimeoutSeconds:        10,
			SummaryTimeoutSeconds: 15,
			VoteTimeoutSeconds:    10,
			WarmUpTimeoutSeconds:  30,
			BackoffBaseMs:         1000,
			WarmUp:                true,
			UserQuestions:         true,
			AskUser:               false,
			PeerQuestions:         false,
			BallotSize:            5,
			BallotMinSize:         3,
			MinRecommendation:     50,
			ActionItems:           true,
			SaveTranscripts:       true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 3600,
			MemorySize: 4096,
		},
		Health: HealthConfig{
			CheckOnStart:        true,
			Schedule:            "*/5 * * * *",
			CheckTimeoutSeconds: 5,
			ListTimeoutSeconds:  10,
		},
		Metrics: MetricsConfig{
			Listen:    "127.0.0.1:9464",
			Namespace: "roundtable",
		},
		Personas: PersonasConfig{
			DefaultModel:     "llama3.2:latest",
			FinalReviewer:    "violet-noire",
			ModelMap:         map[string]string{},
			WatchStabilityMs: 500,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   50,
			MaxAge:    14,
			Compress:  true,
			Redaction: true,
			Pretty:    true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks the settings a meeting cannot run without
func (c *Config) Validate() error {
	switch c.Backend.Provider {
	case "ollama":
	case "openai", "anthropic":
		if c.Backend.APIKey == "" {
			return fmt.Errorf("backend %s: api_key is required", c.Backend.Provider)
		}
	default:
		return fmt.Errorf("invalid backend provider %q (must be: ollama, openai, anthropic)", c.Backend.Provider)
	}
	if c.Backend.RequestsPerSec < 0 {
		return fmt.Errorf("backend requests_per_sec must be >= 0")
	}

	m := c.Meeting
	if m.MaxRounds < 1 {
		return fmt.Errorf("meeting max_rounds must be at least 1, got %d", m.MaxRounds)
	}
	if m.Parallelism < 1 {
		return fmt.Errorf("meeting parallelism must be at least 1, got %d", m.Parallelism)
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("meeting max_retries must be >= 0, got %d", m.MaxRetries)
	}
	for name, seconds := range map[string]int{
		"timeout_seconds":         m.TimeoutSeconds,
		"summary_timeout_seconds": m.SummaryTimeoutSeconds,
		"vote_timeout_seconds":    m.VoteTimeoutSeconds,
		"warm_up_timeout_seconds": m.WarmUpTimeoutSeconds,
	} {
		if seconds <= 0 {
			return fmt.Errorf("meeting %s must be positive, got %d", name, seconds)
		}
	}
	if m.BallotSize < 3 || m.BallotSize > 5 {
		return fmt.Errorf("meeting ballot_size must be between 3 and 5, got %d", m.BallotSize)
	}
	if m.BallotMinSize < 1 || m.BallotMinSize > m.BallotSize {
		return fmt.Errorf("meeting ballot_min_size must be between 1 and ballot_size, got %d", m.BallotMinSize)
	}

	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}

	if c.Personas.Dir == "" {
		return fmt.Errorf("personas dir is required")
	}
	if c.Personas.DefaultModel == "" {
		return fmt.Errorf("personas default_model is required")
	}

	return nil
}

// Timeout returns the per-attempt generation timeout
func (m MeetingConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// SummaryTimeout returns the timeout for recommendation calls
func (m MeetingConfig) SummaryTimeout() time.Duration {
	return time.Duration(m.SummaryTimeoutSeconds) * time.Second
}

// VoteTimeout returns the timeout for vote calls
func (m MeetingConfig) VoteTimeout() time.Duration {
	return time.Duration(m.VoteTimeoutSeconds) * time.Second
}

// WarmUpTimeout returns the timeout for model warm-up calls
func (m MeetingConfig) WarmUpTimeout() time.Duration {
	return time.Duration(m.WarmUpTimeoutSeconds) * time.Second
}

// BackoffBase returns the retry backoff unit
func (m MeetingConfig) BackoffBase() time.Duration {
	return time.Duration(m.BackoffBaseMs) * time.Millisecond
}

// TTL returns the cache entry lifetime
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
