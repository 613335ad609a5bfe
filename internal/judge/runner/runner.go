// Package runner turns language templates into engine invocations for build and execution.
package runner

import (
	"context"
	"time"

	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/result"
)

// CompileRequest describes one build task.
type CompileRequest struct {
	RunID   string
	Program profile.Program
	Timeout time.Duration
}

// RunRequest describes one execution against a single input.
type RunRequest struct {
	RunID   string
	TestID  string
	Program profile.Program
	// WorkDir is the test case directory.
	WorkDir   string
	InputPath string
	Timeout   time.Duration
}

// Runner orchestrates compile and run workflows.
type Runner interface {
	Compile(ctx context.Context, req CompileRequest) (result.BuildResult, error)
	Run(ctx context.Context, req RunRequest) (result.RunResult, error)
}
