package runner

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"cfjudge/internal/judge/engine"
	"cfjudge/internal/judge/observer"
	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/spec"
	appErr "cfjudge/pkg/errors"
	"cfjudge/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// DefaultRunner implements compile/run workflows for every language kind.
type DefaultRunner struct {
	eng     engine.Engine
	metrics observer.MetricsRecorder
}

// NewRunner creates a new runner backed by the process engine.
func NewRunner(eng engine.Engine) *DefaultRunner {
	return NewRunnerWithObserver(eng, observer.NoopMetricsRecorder{})
}

// NewRunnerWithObserver creates a new runner with metrics hooks.
func NewRunnerWithObserver(eng engine.Engine, metrics observer.MetricsRecorder) *DefaultRunner {
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &DefaultRunner{eng: eng, metrics: metrics}
}

func (r *DefaultRunner) Compile(ctx context.Context, req CompileRequest) (result.BuildResult, error) {
	if err := validateCompileRequest(req); err != nil {
		return result.BuildResult{}, err
	}
	prog := req.Program
	if !prog.Language.CompileEnabled() {
		return r.checkInterpreter(ctx, prog)
	}

	cmd, err := buildCommand(prog.Language.CompileCmdTpl, prog)
	if err != nil {
		return result.BuildResult{}, err
	}

	strategy := prog.Strategy()
	before, err := strategy.Snapshot(prog)
	if err != nil {
		return result.BuildResult{}, appErr.Wrapf(err, appErr.FileSystemError, "snapshot build outputs failed")
	}

	runSpec := spec.RunSpec{
		RunID:       req.RunID,
		TestID:      "compile",
		WorkDir:     prog.Dir,
		Cmd:         cmd,
		Env:         prog.Language.Env,
		MergeOutput: true,
		Limits:      spec.Limits{WallTime: req.Timeout},
	}
	runRes, runErr := r.eng.Run(ctx, runSpec)

	// Partial outputs are collected on every path so the caller can remove them.
	artifacts, artErr := strategy.Artifacts(prog, before)
	if artErr != nil {
		logger.Warn(ctx, "collect build outputs failed", zap.String("dir", prog.Dir), zap.Error(artErr))
	}
	buildRes := result.BuildResult{
		ExitCode:  runRes.ExitCode,
		TimeMs:    runRes.TimeMs,
		Artifacts: artifacts,
	}

	switch {
	case runErr != nil && ctx.Err() != nil:
		return buildRes, runErr
	case appErr.Is(runErr, appErr.CompilerUnavailable), appErr.Is(runErr, appErr.JudgeSystemError):
		buildRes.Reason = result.BuildReasonToolMissing
		buildRes.Diagnostic = runErr.Error()
	case runErr != nil:
		return buildRes, runErr
	case runRes.TimedOut:
		buildRes.Reason = result.BuildReasonTimeout
		buildRes.Diagnostic = fmt.Sprintf("compilation exceeded %s\n%s", req.Timeout, runRes.Stdout)
	case runRes.ExitCode != 0:
		buildRes.Reason = result.BuildReasonCompileError
		buildRes.Diagnostic = runRes.Stdout
	default:
		buildRes.OK = true
		buildRes.ArtifactPath = prog.Binary
	}
	r.metrics.ObserveBuild(ctx, prog.Language.ID, buildRes.OK, buildRes.TimeMs)
	return buildRes, nil
}

// checkInterpreter stands in for a build when the language runs from source.
func (r *DefaultRunner) checkInterpreter(ctx context.Context, prog profile.Program) (result.BuildResult, error) {
	cmd, err := buildCommand(prog.Language.RunCmdTpl, prog)
	if err != nil {
		return result.BuildResult{}, err
	}
	if _, err := exec.LookPath(cmd[0]); err != nil {
		r.metrics.ObserveBuild(ctx, prog.Language.ID, false, 0)
		return result.BuildResult{
			Reason:     result.BuildReasonToolMissing,
			Diagnostic: fmt.Sprintf("%s not found in PATH", cmd[0]),
			ExitCode:   -1,
		}, nil
	}
	r.metrics.ObserveBuild(ctx, prog.Language.ID, true, 0)
	return result.BuildResult{OK: true, ArtifactPath: prog.SourcePath}, nil
}

func (r *DefaultRunner) Run(ctx context.Context, req RunRequest) (result.RunResult, error) {
	if err := validateRunRequest(req); err != nil {
		return result.RunResult{}, err
	}
	prog := req.Program
	cmd, err := buildCommand(prog.Language.RunCmdTpl, prog)
	if err != nil {
		return result.RunResult{}, err
	}

	runSpec := spec.RunSpec{
		RunID:     req.RunID,
		TestID:    req.TestID,
		WorkDir:   req.WorkDir,
		Cmd:       cmd,
		Env:       prog.Language.Env,
		StdinPath: req.InputPath,
		Limits:    spec.Limits{WallTime: scaleTimeout(req.Timeout, prog.Language.TimeMultiplier)},
	}
	runRes, err := r.eng.Run(ctx, runSpec)
	if err != nil {
		return runRes, err
	}
	r.metrics.ObserveRun(ctx, prog.Language.ID, mapRunOutcome(runRes), runRes.TimeMs)
	return runRes, nil
}

// mapRunOutcome labels a raw result before output comparison.
func mapRunOutcome(res result.RunResult) string {
	if res.TimedOut {
		return string(result.OutcomeTimedOut)
	}
	if res.ExitCode != 0 {
		return string(result.OutcomeRuntimeError)
	}
	return "Exited"
}

func validateCompileRequest(req CompileRequest) error {
	if req.Program.Language.ID == "" {
		return appErr.ValidationError("language_id", "required")
	}
	if req.Program.SourcePath == "" {
		return appErr.ValidationError("source_path", "required")
	}
	if req.Program.Strategy() == nil {
		return appErr.ValidationError("program", "unresolved")
	}
	return nil
}

func validateRunRequest(req RunRequest) error {
	if req.TestID == "" {
		return appErr.ValidationError("test_id", "required")
	}
	if req.WorkDir == "" {
		return appErr.ValidationError("work_dir", "required")
	}
	if req.InputPath == "" {
		return appErr.ValidationError("input_path", "required")
	}
	if req.Program.Language.ID == "" {
		return appErr.ValidationError("language_id", "required")
	}
	return nil
}

// buildCommand splits the template before substituting, so paths with spaces stay one argument.
func buildCommand(tpl string, prog profile.Program) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command template is required")
	}
	fields, err := shlex.Split(tpl)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	vars := prog.Vars()
	cmd := make([]string, 0, len(fields))
	for _, field := range fields {
		for placeholder, value := range vars {
			field = strings.ReplaceAll(field, placeholder, value)
		}
		if field == "" {
			continue
		}
		cmd = append(cmd, field)
	}
	if len(cmd) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after expansion")
	}
	return cmd, nil
}

func scaleTimeout(value time.Duration, multiplier float64) time.Duration {
	if value <= 0 {
		return 0
	}
	if multiplier <= 0 {
		return value
	}
	return time.Duration(math.Ceil(float64(value) * multiplier))
}
