package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/spec"
	appErr "cfjudge/pkg/errors"
	"cfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

type execEngine struct {
	cfg Config
}

func (e *execEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return result.RunResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return result.RunResult{}, err
	}

	cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
	cmd.Dir = runSpec.WorkDir
	if len(runSpec.Env) > 0 {
		cmd.Env = append(os.Environ(), runSpec.Env...)
	}
	cmd.WaitDelay = e.cfg.WaitDelay
	setProcessGroup(cmd)

	if runSpec.StdinPath != "" {
		stdin, err := os.Open(runSpec.StdinPath)
		if err != nil {
			return result.RunResult{}, appErr.Wrapf(err, appErr.FileSystemError, "open input failed").
				WithDetail("path", runSpec.StdinPath)
		}
		defer stdin.Close()
		cmd.Stdin = stdin
	}

	stdout := newCappedBuffer(pickLimit(runSpec.Limits.StdoutMaxBytes, e.cfg.StdoutMaxBytes))
	cmd.Stdout = stdout
	var stderr *cappedBuffer
	if runSpec.MergeOutput {
		cmd.Stderr = stdout
	} else {
		stderr = newCappedBuffer(pickLimit(runSpec.Limits.StderrMaxBytes, e.cfg.StderrMaxBytes))
		cmd.Stderr = stderr
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return result.RunResult{}, classifyStartErr(runSpec.Cmd[0], err)
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if runSpec.Limits.WallTime > 0 {
			timer := time.NewTimer(runSpec.Limits.WallTime)
			defer timer.Stop()
			wallTimer = timer.C
		}
		select {
		case <-ctx.Done():
			e.kill(ctx, cmd)
		case <-wallTimer:
			timedOut.Store(true)
			e.kill(ctx, cmd)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	// Descendants that outlived the leader still hold the group.
	_ = killProcessGroup(cmd)

	runResult := result.RunResult{
		ExitCode:  exitCodeFromErr(waitErr, cmd.ProcessState),
		TimeMs:    time.Since(start).Milliseconds(),
		Stdout:    stdout.String(),
		TimedOut:  timedOut.Load(),
		Truncated: stdout.Truncated(),
	}
	if stderr != nil {
		runResult.Stderr = stderr.String()
	}
	if runResult.TimedOut && runResult.ExitCode == 0 {
		runResult.ExitCode = -1
	}

	if err := ctx.Err(); err != nil && !runResult.TimedOut {
		return runResult, err
	}
	if waitErr != nil && errors.Is(waitErr, exec.ErrWaitDelay) {
		logger.Debug(ctx, "process pipes held open after exit", zap.Strings("cmd", runSpec.Cmd))
	}
	return runResult, nil
}

func (e *execEngine) kill(ctx context.Context, cmd *exec.Cmd) {
	if err := killProcessGroup(cmd); err != nil {
		logger.Warn(ctx, "kill process group failed", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
	}
}

func classifyStartErr(name string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return appErr.Wrapf(err, appErr.CompilerUnavailable, "%s not found in PATH", name).WithDetail("tool", name)
	}
	return appErr.Wrapf(err, appErr.JudgeSystemError, "start %s failed", name).WithDetail("tool", name)
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if len(runSpec.Cmd) == 0 || runSpec.Cmd[0] == "" {
		return appErr.ValidationError("cmd", "required")
	}
	if runSpec.WorkDir == "" {
		return appErr.ValidationError("work_dir", "required")
	}
	return nil
}

func pickLimit(override, fallback int64) int64 {
	if override > 0 {
		return override
	}
	return fallback
}

// cappedBuffer keeps the first max bytes and silently drops the rest,
// so a chatty child never blocks or sees EPIPE.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - int64(b.buf.Len())
	if remaining <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	return b.truncated
}
