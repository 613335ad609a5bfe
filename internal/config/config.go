// Package config loads the YAML configuration shared by the CLI and the server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cfjudge/internal/judge/compare"
	"cfjudge/internal/judge/engine"
	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/worker"
	appErr "cfjudge/pkg/errors"
	"cfjudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath            = "configs/cfjudge.yaml"
	DefaultStdoutMaxBytes  = 64 * 1024 * 1024
	DefaultStderrMaxBytes  = 64 * 1024
	DefaultServerAddr      = "127.0.0.1:8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	defaultHistoryName     = ".cfjudge_history"
)

// Config holds the application configuration.
type Config struct {
	Logger    logger.Config          `yaml:"logger"`
	Judge     JudgeConfig            `yaml:"judge"`
	Compare   CompareConfig          `yaml:"compare"`
	Languages []profile.LanguageSpec `yaml:"languages"`
	Server    ServerConfig           `yaml:"server"`
	REPL      REPLConfig             `yaml:"repl"`
}

// JudgeConfig holds run limits.
type JudgeConfig struct {
	BuildTimeout    time.Duration `yaml:"buildTimeout"`
	RunTimeout      time.Duration `yaml:"runTimeout"`
	StdoutMaxBytes  int64         `yaml:"stdoutMaxBytes"`
	StderrMaxBytes  int64         `yaml:"stderrMaxBytes"`
	DisplayMaxBytes int           `yaml:"displayMaxBytes"`
}

// CompareConfig selects the output comparison mode.
type CompareConfig struct {
	Mode compare.Mode `yaml:"mode"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// MaxConcurrentRuns bounds runs across all directories; 0 keeps the service default.
	MaxConcurrentRuns int `yaml:"maxConcurrentRuns"`
}

// REPLConfig holds interactive session settings.
type REPLConfig struct {
	HistoryFile string `yaml:"historyFile"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOptional behaves like Load, except that a missing file at the
// default path yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *Config) {
	if cfg.Judge.BuildTimeout <= 0 {
		cfg.Judge.BuildTimeout = worker.DefaultBuildTimeout
	}
	if cfg.Judge.RunTimeout <= 0 {
		cfg.Judge.RunTimeout = worker.DefaultRunTimeout
	}
	if cfg.Judge.StdoutMaxBytes <= 0 {
		cfg.Judge.StdoutMaxBytes = DefaultStdoutMaxBytes
	}
	if cfg.Judge.StderrMaxBytes <= 0 {
		cfg.Judge.StderrMaxBytes = DefaultStderrMaxBytes
	}
	if cfg.Judge.DisplayMaxBytes <= 0 {
		cfg.Judge.DisplayMaxBytes = worker.DefaultDisplayMaxBytes
	}
	if cfg.Compare.Mode == "" {
		cfg.Compare.Mode = compare.ModeTrim
	}
	cfg.Languages = profile.MergeLanguages(profile.DefaultLanguages(), cfg.Languages)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxConcurrentRuns < 0 {
		cfg.Server.MaxConcurrentRuns = 0
	}
	if cfg.REPL.HistoryFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.REPL.HistoryFile = filepath.Join(home, defaultHistoryName)
		}
	}
}

// Validate checks values that defaults cannot repair.
func (c Config) Validate() error {
	if _, err := compare.ParseMode(string(c.Compare.Mode)); err != nil {
		return err
	}
	for _, lang := range c.Languages {
		if !lang.Kind.Valid() {
			return appErr.ValidationError("languages."+lang.ID+".kind", "must be one of native, jvm, script")
		}
		if len(lang.Extensions) == 0 {
			return appErr.ValidationError("languages."+lang.ID+".extensions", "required")
		}
		if lang.RunCmdTpl == "" {
			return appErr.ValidationError("languages."+lang.ID+".runCmd", "required")
		}
		if lang.Kind != profile.KindScript && lang.CompileCmdTpl == "" {
			return appErr.ValidationError("languages."+lang.ID+".compileCmd", "required")
		}
	}
	return nil
}

// Resolver builds the language resolver from the configured table.
func (c Config) Resolver() *profile.Resolver {
	return profile.NewResolver(c.Languages)
}

// EngineConfig maps judge limits onto the process engine.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		StdoutMaxBytes: c.Judge.StdoutMaxBytes,
		StderrMaxBytes: c.Judge.StderrMaxBytes,
	}
}

// WorkerConfig maps judge settings onto the run aggregator.
func (c Config) WorkerConfig() worker.Config {
	return worker.Config{
		BuildTimeout:    c.Judge.BuildTimeout,
		RunTimeout:      c.Judge.RunTimeout,
		CompareMode:     c.Compare.Mode,
		DisplayMaxBytes: c.Judge.DisplayMaxBytes,
	}
}
