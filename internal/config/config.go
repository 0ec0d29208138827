// Package config provides configuration management for the arena core.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentarena/arena/internal/apperrors"
)

// Config holds all configuration sections for the arena core.
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Events       EventsConfig       `mapstructure:"events"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Memory       MemoryConfig       `mapstructure:"memory"`
	Registry     RegistryConfig     `mapstructure:"registry"`
	Worker       WorkerConfig       `mapstructure:"worker"`
}

// HTTPConfig holds the ingress/egress HTTP surface configuration.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig holds the embedded SQLite database configuration.
type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	MaxConns int    `mapstructure:"maxConns"`
}

// EventsConfig holds event bus configuration. An empty NATSURL selects the in-memory bus.
type EventsConfig struct {
	NATSURL   string `mapstructure:"natsUrl"`
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// OrchestratorConfig holds default Group config values. They are loaded and
// validated here; nothing in this module applies them to groups.
type OrchestratorConfig struct {
	MaxResponders          int  `mapstructure:"maxResponders"`
	TurnTimeoutSeconds     int  `mapstructure:"turnTimeoutSeconds"`
	ChainDepthLimit        int  `mapstructure:"chainDepthLimit"`
	ReInvokeAlreadyReplied bool `mapstructure:"reInvokeAlreadyReplied"`
	SupervisorEnabled      bool `mapstructure:"supervisorEnabled"`
	AutoSummaryInterval    int  `mapstructure:"autoSummaryInterval"`
}

// MemoryConfig holds the Memory Plane's character budgets and retrieval defaults.
type MemoryConfig struct {
	RootDir                 string `mapstructure:"rootDir"`
	PersonalProfileMaxChars int    `mapstructure:"personalProfileMaxChars"`
	DailyLogMaxChars        int    `mapstructure:"dailyLogMaxChars"`
	RetrievalTopK           int    `mapstructure:"retrievalTopK"`
	SummaryMaxEntries       int    `mapstructure:"summaryMaxEntries"`
}

// RegistryConfig holds the optional on-disk agent-profile loader configuration.
type RegistryConfig struct {
	ProfilesDir string `mapstructure:"profilesDir"`
}

// WorkerConfig holds the subprocess worker pool configuration.
type WorkerConfig struct {
	MaxConcurrent         int `mapstructure:"maxConcurrent"`
	DefaultTimeoutSeconds int `mapstructure:"defaultTimeoutSeconds"`
}

// detectDefaultLogFormat returns "json" for deployed environments, "text" for a terminal.
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("ARENA_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "./data/arena.db")
	v.SetDefault("database.maxConns", 1)

	v.SetDefault("events.natsUrl", "")
	v.SetDefault("events.namespace", "")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("orchestrator.maxResponders", 5)
	v.SetDefault("orchestrator.turnTimeoutSeconds", 120)
	v.SetDefault("orchestrator.chainDepthLimit", 5)
	v.SetDefault("orchestrator.reInvokeAlreadyReplied", false)
	v.SetDefault("orchestrator.supervisorEnabled", false)
	v.SetDefault("orchestrator.autoSummaryInterval", 20)

	v.SetDefault("memory.rootDir", "./data/memory")
	v.SetDefault("memory.personalProfileMaxChars", 2400)
	v.SetDefault("memory.dailyLogMaxChars", 1600)
	v.SetDefault("memory.retrievalTopK", 5)
	v.SetDefault("memory.summaryMaxEntries", 20)

	v.SetDefault("registry.profilesDir", "")

	v.SetDefault("worker.maxConcurrent", 8)
	v.SetDefault("worker.defaultTimeoutSeconds", 300)
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix ARENA_ with snake_case naming.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not translate camelCase config keys to SNAKE_CASE env
	// names, so bind the keys whose naming differs explicitly.
	_ = v.BindEnv("database.maxConns", "ARENA_DATABASE_MAX_CONNS")
	_ = v.BindEnv("logging.level", "ARENA_LOG_LEVEL")
	_ = v.BindEnv("orchestrator.maxResponders", "ARENA_MAX_RESPONDERS")
	_ = v.BindEnv("orchestrator.chainDepthLimit", "ARENA_CHAIN_DEPTH_LIMIT")
	_ = v.BindEnv("registry.profilesDir", "ARENA_REGISTRY_PROFILES_DIR")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/arena/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate accumulates every configuration problem instead of failing on the first.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if cfg.Database.MaxConns <= 0 {
		errs = append(errs, "database.maxConns must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text, console")
	}

	if cfg.Orchestrator.MaxResponders < 0 {
		errs = append(errs, "orchestrator.maxResponders must not be negative")
	}
	if cfg.Orchestrator.ChainDepthLimit < 0 {
		errs = append(errs, "orchestrator.chainDepthLimit must not be negative")
	}
	if cfg.Orchestrator.TurnTimeoutSeconds <= 0 {
		errs = append(errs, "orchestrator.turnTimeoutSeconds must be positive")
	}

	if cfg.Memory.RetrievalTopK <= 0 {
		errs = append(errs, "memory.retrievalTopK must be positive")
	}
	if cfg.Memory.SummaryMaxEntries <= 0 {
		errs = append(errs, "memory.summaryMaxEntries must be positive")
	}

	if cfg.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required")
	}

	if cfg.Worker.MaxConcurrent <= 0 {
		errs = append(errs, "worker.maxConcurrent must be positive")
	}
	if cfg.Worker.DefaultTimeoutSeconds <= 0 {
		errs = append(errs, "worker.defaultTimeoutSeconds must be positive")
	}

	if len(errs) > 0 {
		return apperrors.Config("config validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

// DSN returns the SQLite data-source name with the pragmas the session manager relies on.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", d.Path)
}
