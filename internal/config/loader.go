package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appDir     = ".roundtable"
	configFile = "roundtable.json"
	envPrefix  = "ROUNDTABLE"
)

// envKeys can be overridden with ROUNDTABLE_<SECTION>_<KEY>
var envKeys = []string{
	"backend.provider",
	"backend.base_url",
	"backend.api_key",
	"meeting.max_rounds",
	"meeting.parallelism",
	"meeting.max_retries",
	"personas.dir",
	"personas.default_model",
	"personas.final_reviewer",
	"cache.path",
	"logging.level",
	"metrics.listen",
	"data_dir",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader. An empty path means ~/.roundtable/roundtable.json.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load reads the config file over DefaultConfig, applies environment
// overrides and fills derived paths. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return nil, fmt.Errorf("failed to determine config path")
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyDerivedPaths(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDerivedPaths(cfg *Config) error {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, appDir)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "roundtable.log")
	}
	if cfg.Personas.Dir == "" {
		cfg.Personas.Dir = filepath.Join(cfg.DataDir, "personas")
	}
	if cfg.Cache.Enabled && cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(cfg.DataDir, "cache.db")
	}
	if cfg.Metrics.PerfLog == "" {
		cfg.Metrics.PerfLog = filepath.Join(cfg.DataDir, "performance.log")
	}
	if cfg.Personas.ModelMap == nil {
		cfg.Personas.ModelMap = map[string]string{}
	}
	return nil
}

// TranscriptDir is where meeting transcripts are stored
func (c *Config) TranscriptDir() string {
	return filepath.Join(c.DataDir, "transcripts")
}

// Save writes cfg as JSON, creating the directory if needed
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("backend", cfg.Backend)
	v.Set("meeting", cfg.Meeting)
	v.Set("cache", cfg.Cache)
	v.Set("health", cfg.Health)
	v.Set("metrics", cfg.Metrics)
	v.Set("personas", cfg.Personas)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, appDir, configFile)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
