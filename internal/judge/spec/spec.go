// Package spec defines the execution specification and its limits.
package spec

import "time"

// Limits bounds one process execution.
type Limits struct {
	WallTime time.Duration
	// StdoutMaxBytes caps captured stdout; overflow sets RunResult.Truncated.
	StdoutMaxBytes int64
	StderrMaxBytes int64
}

// RunSpec is the unified execution specification for one process.
type RunSpec struct {
	RunID   string
	TestID  string
	WorkDir string
	Cmd     []string
	Env     []string
	// StdinPath is fed to the process; empty means no input.
	StdinPath string
	// MergeOutput sends stderr into the stdout buffer, as compilers interleave diagnostics.
	MergeOutput bool
	Limits      Limits
}
