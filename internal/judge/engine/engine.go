// Package engine runs one external process under a wall-clock limit.
package engine

import (
	"context"
	"time"

	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/spec"
)

const (
	defaultStdoutMaxBytes int64 = 64 * 1024 * 1024
	defaultStderrMaxBytes int64 = 64 * 1024
	defaultWaitDelay            = time.Second
)

// Engine executes a RunSpec.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error)
}

// Config controls engine behavior.
type Config struct {
	StdoutMaxBytes int64
	StderrMaxBytes int64
	// WaitDelay bounds how long Wait blocks on pipes held open by leftover descendants.
	WaitDelay time.Duration
}

// NewEngine creates a process engine.
func NewEngine(cfg Config) Engine {
	if cfg.StdoutMaxBytes <= 0 {
		cfg.StdoutMaxBytes = defaultStdoutMaxBytes
	}
	if cfg.StderrMaxBytes <= 0 {
		cfg.StderrMaxBytes = defaultStderrMaxBytes
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	return &execEngine{cfg: cfg}
}
