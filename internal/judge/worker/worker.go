// Package worker drives one run: build once, execute every case, compare and report.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"cfjudge/internal/judge/compare"
	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/runner"
	"cfjudge/internal/judge/testcase"
	appErr "cfjudge/pkg/errors"
	"cfjudge/pkg/utils/contextkey"
	"cfjudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBuildTimeout    = 30 * time.Second
	DefaultRunTimeout      = 2 * time.Second
	DefaultDisplayMaxBytes = 4096
)

// Config holds per-run limits and comparison settings.
type Config struct {
	BuildTimeout    time.Duration
	RunTimeout      time.Duration
	CompareMode     compare.Mode
	DisplayMaxBytes int
}

// RunRequest selects what to judge. Zero values fall back to the worker config.
type RunRequest struct {
	Dir string
	// SourcePath overrides discovery; relative paths are taken from Dir.
	SourcePath   string
	BuildTimeout time.Duration
	RunTimeout   time.Duration
	CompareMode  compare.Mode
	// Reporter receives this run's updates in addition to the worker-wide reporter.
	Reporter StatusReporter
}

// Worker is the run scheduling unit. It holds no per-run state, so
// runs on different directories may share one Worker concurrently.
type Worker struct {
	runner         runner.Runner
	resolver       *profile.Resolver
	cfg            Config
	statusReporter StatusReporter
}

// NewWorker creates a new worker with required dependencies.
func NewWorker(r runner.Runner, resolver *profile.Resolver, cfg Config) *Worker {
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = DefaultBuildTimeout
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.DisplayMaxBytes <= 0 {
		cfg.DisplayMaxBytes = DefaultDisplayMaxBytes
	}
	if cfg.CompareMode == "" {
		cfg.CompareMode = compare.ModeTrim
	}
	return &Worker{runner: r, resolver: resolver, cfg: cfg}
}

// SetStatusReporter injects a status reporter for intermediate updates.
func (w *Worker) SetStatusReporter(reporter StatusReporter) {
	w.statusReporter = reporter
}

// Config returns the effective worker settings.
func (w *Worker) Config() Config {
	return w.cfg
}

// Languages returns the language table used for resolution.
func (w *Worker) Languages() []profile.LanguageSpec {
	return w.resolver.Languages()
}

// Run judges the solution in dir against the test cases found there.
func (w *Worker) Run(ctx context.Context, dir string) (result.RunReport, error) {
	return w.Execute(ctx, RunRequest{Dir: dir})
}

// Execute runs the full workflow for one request. Build artifacts are
// removed before it returns on every path.
func (w *Worker) Execute(ctx context.Context, req RunRequest) (result.RunReport, error) {
	if w.runner == nil || w.resolver == nil {
		return result.RunReport{}, appErr.New(appErr.JudgeSystemError).WithMessage("worker dependencies are not initialized")
	}
	if strings.TrimSpace(req.Dir) == "" {
		return result.RunReport{}, appErr.ValidationError("dir", "required")
	}
	opts := w.applyDefaults(req)

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, contextkey.RunID, runID)
	start := time.Now()

	prog, err := w.resolveProgram(req.Dir, req.SourcePath)
	if err != nil {
		return result.RunReport{}, err
	}
	cases, err := testcase.Locate(req.Dir)
	if err != nil {
		return result.RunReport{}, err
	}

	report := result.RunReport{
		RunID:      runID,
		Language:   prog.Language.ID,
		SourcePath: prog.SourcePath,
		Cases:      []result.CaseVerdict{},
	}
	logger.Info(ctx, "run started",
		zap.String("dir", req.Dir),
		zap.String("language", prog.Language.ID),
		zap.Int("cases", len(cases)),
	)

	var artifacts []string
	defer func() {
		w.cleanup(ctx, artifacts)
		w.reportStatus(ctx, req, StatusUpdate{RunID: runID, Phase: result.PhaseDone, Language: prog.Language.ID, TotalCases: len(cases), DoneCases: len(report.Cases)})
	}()

	w.reportStatus(ctx, req, StatusUpdate{RunID: runID, Phase: result.PhaseBuilding, Language: prog.Language.ID, TotalCases: len(cases)})
	build, err := w.runner.Compile(ctx, runner.CompileRequest{RunID: runID, Program: prog, Timeout: opts.BuildTimeout})
	artifacts = build.Artifacts
	if err != nil {
		return result.RunReport{}, err
	}
	report.Build = &build

	if !build.OK {
		report.Status = result.StatusBuildFailed
		report.TotalTimeMs = time.Since(start).Milliseconds()
		logger.Warn(ctx, "build failed", zap.String("reason", string(build.Reason)), zap.Int("exit_code", build.ExitCode))
		w.finish(ctx, req, report, len(cases))
		return report, nil
	}

	comparator := compare.New(opts.CompareMode)
	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			return result.RunReport{}, err
		}
		w.reportStatus(ctx, req, StatusUpdate{RunID: runID, Phase: result.PhaseRunning, Language: prog.Language.ID, TotalCases: len(cases), DoneCases: i})

		verdict, err := w.judgeCase(ctx, runID, prog, tc, comparator, opts)
		if err != nil {
			return result.RunReport{}, err
		}
		report.Cases = append(report.Cases, verdict)
		logger.Debug(ctx, "case judged",
			zap.String("case", tc.Name),
			zap.String("outcome", string(verdict.Outcome)),
			zap.Int64("time_ms", verdict.TimeMs),
		)
		w.reportStatus(ctx, req, StatusUpdate{RunID: runID, Phase: result.PhaseRunning, Language: prog.Language.ID, TotalCases: len(cases), DoneCases: i + 1, Case: &verdict})
	}

	report.Status = aggregateStatus(report.Cases)
	report.TotalTimeMs = time.Since(start).Milliseconds()
	w.finish(ctx, req, report, len(cases))
	return report, nil
}

func (w *Worker) applyDefaults(req RunRequest) RunRequest {
	if req.BuildTimeout <= 0 {
		req.BuildTimeout = w.cfg.BuildTimeout
	}
	if req.RunTimeout <= 0 {
		req.RunTimeout = w.cfg.RunTimeout
	}
	if req.CompareMode == "" {
		req.CompareMode = w.cfg.CompareMode
	}
	return req
}

func (w *Worker) resolveProgram(dir, sourcePath string) (profile.Program, error) {
	if sourcePath == "" {
		discovered, err := w.resolver.Discover(dir)
		if err != nil {
			return profile.Program{}, err
		}
		sourcePath = discovered
	} else if !filepath.IsAbs(sourcePath) {
		sourcePath = filepath.Join(dir, sourcePath)
	}

	prog, err := w.resolver.Resolve(sourcePath)
	if err != nil {
		return profile.Program{}, err
	}
	if _, err := os.Stat(prog.SourcePath); err != nil {
		if os.IsNotExist(err) {
			return profile.Program{}, appErr.Newf(appErr.SourceNotFound, "source %s not found", sourcePath).WithDetail("path", sourcePath)
		}
		return profile.Program{}, appErr.Wrapf(err, appErr.FileSystemError, "stat source failed")
	}
	return prog, nil
}

// judgeCase runs one case. Only context cancellation escapes as an error;
// every other failure becomes part of the verdict.
func (w *Worker) judgeCase(ctx context.Context, runID string, prog profile.Program, tc testcase.Case, comparator *compare.Comparator, opts RunRequest) (result.CaseVerdict, error) {
	verdict := result.CaseVerdict{Index: tc.Index, Name: tc.Name}

	runRes, err := w.runner.Run(ctx, runner.RunRequest{
		RunID:     runID,
		TestID:    tc.Name,
		Program:   prog,
		WorkDir:   filepath.Dir(tc.InputPath),
		InputPath: tc.InputPath,
		Timeout:   opts.RunTimeout,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return verdict, ctxErr
		}
		verdict.Outcome = result.OutcomeRuntimeError
		verdict.ExitCode = -1
		verdict.Message = err.Error()
		return verdict, nil
	}

	verdict.ExitCode = runRes.ExitCode
	verdict.TimeMs = runRes.TimeMs
	verdict.Stderr = w.excerpt(runRes.Stderr)

	switch {
	case runRes.TimedOut:
		verdict.Outcome = result.OutcomeTimedOut
		verdict.Message = fmt.Sprintf("time limit %s exceeded", opts.RunTimeout)
		return verdict, nil
	case runRes.ExitCode != 0:
		verdict.Outcome = result.OutcomeRuntimeError
		verdict.Actual = w.excerpt(runRes.Stdout)
		verdict.Message = fmt.Sprintf("exit code %d", runRes.ExitCode)
		return verdict, nil
	case runRes.Truncated:
		verdict.Outcome = result.OutcomeWrongOutput
		verdict.Actual = w.excerpt(runRes.Stdout)
		verdict.Message = "output limit exceeded"
		return verdict, nil
	}

	expected, err := os.ReadFile(tc.AnswerPath)
	if err != nil {
		verdict.Outcome = result.OutcomeWrongOutput
		verdict.Actual = w.excerpt(runRes.Stdout)
		verdict.Message = fmt.Sprintf("read expected output failed: %v", err)
		return verdict, nil
	}

	ok, diff := comparator.Compare(string(expected), runRes.Stdout)
	if ok {
		verdict.Outcome = result.OutcomePassed
		return verdict, nil
	}
	verdict.Outcome = result.OutcomeWrongOutput
	verdict.Actual = w.excerpt(runRes.Stdout)
	verdict.Diff = diff
	return verdict, nil
}

func aggregateStatus(cases []result.CaseVerdict) result.Status {
	if len(cases) == 0 {
		return result.StatusNoTestCases
	}
	for _, c := range cases {
		if !c.Passed() {
			return result.StatusSomeFailed
		}
	}
	return result.StatusAllPassed
}

func (w *Worker) finish(ctx context.Context, req RunRequest, report result.RunReport, total int) {
	w.reportStatus(ctx, req, StatusUpdate{
		RunID:      report.RunID,
		Phase:      result.PhaseReporting,
		Language:   report.Language,
		TotalCases: total,
		DoneCases:  len(report.Cases),
	})
	logger.Info(ctx, "run finished",
		zap.String("status", string(report.Status)),
		zap.Int("passed", report.PassedCount()),
		zap.Int("total", len(report.Cases)),
		zap.Int64("elapsed_ms", report.TotalTimeMs),
	)
}

func (w *Worker) cleanup(ctx context.Context, artifacts []string) {
	for _, path := range artifacts {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn(ctx, "remove artifact failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func (w *Worker) reportStatus(ctx context.Context, req RunRequest, update StatusUpdate) {
	for _, reporter := range []StatusReporter{w.statusReporter, req.Reporter} {
		if reporter == nil {
			continue
		}
		if err := reporter.ReportStatus(ctx, update); err != nil {
			logger.Debug(ctx, "report status failed", zap.Error(err))
		}
	}
}

// excerpt shortens text for display without splitting a UTF-8 sequence.
func (w *Worker) excerpt(text string) string {
	limit := w.cfg.DisplayMaxBytes
	if len(text) <= limit {
		return text
	}
	end := limit
	for end > 0 && end > limit-utf8.UTFMax && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[:end] + "\n... (truncated)"
}
