package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/spec"
	appErr "cfjudge/pkg/errors"
)

type fakeEngine struct {
	specs []spec.RunSpec
	res   result.RunResult
	err   error
	// onRun simulates side effects such as the compiler writing a binary.
	onRun func(spec.RunSpec)
}

func (f *fakeEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error) {
	f.specs = append(f.specs, runSpec)
	if f.onRun != nil {
		f.onRun(runSpec)
	}
	return f.res, f.err
}

func resolve(t *testing.T, langs []profile.LanguageSpec, path string) profile.Program {
	t.Helper()
	prog, err := profile.NewResolver(langs).Resolve(path)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	return prog
}

func TestCompileNativeSuccess(t *testing.T) {
	dir := t.TempDir()
	prog := resolve(t, profile.DefaultLanguages(), filepath.Join(dir, "main.cpp"))
	eng := &fakeEngine{onRun: func(runSpec spec.RunSpec) {
		_ = os.WriteFile(prog.Binary, []byte("elf"), 0755)
	}}
	r := NewRunner(eng)

	res, err := r.Compile(context.Background(), CompileRequest{RunID: "r1", Program: prog, Timeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !res.OK || res.ArtifactPath != prog.Binary {
		t.Fatalf("unexpected build result: %+v", res)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0] != prog.Binary {
		t.Fatalf("expected binary tracked as artifact, got %v", res.Artifacts)
	}

	got := eng.specs[0]
	want := []string{"g++", "-std=gnu++17", "-O2", "-pipe", "-o", prog.Binary, prog.SourcePath}
	if strings.Join(got.Cmd, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected compile cmd: %v", got.Cmd)
	}
	if !got.MergeOutput || got.WorkDir != dir || got.Limits.WallTime != 30*time.Second {
		t.Fatalf("unexpected compile spec: %+v", got)
	}
}

func TestCompileFailureKeepsDiagnostic(t *testing.T) {
	prog := resolve(t, profile.DefaultLanguages(), filepath.Join(t.TempDir(), "main.cpp"))
	eng := &fakeEngine{res: result.RunResult{ExitCode: 1, Stdout: "main.cpp:1:1: error: expected"}}
	r := NewRunner(eng)

	res, err := r.Compile(context.Background(), CompileRequest{Program: prog, Timeout: time.Second})
	if err != nil {
		t.Fatalf("compile returned error: %v", err)
	}
	if res.OK || res.Reason != result.BuildReasonCompileError {
		t.Fatalf("expected compile error, got %+v", res)
	}
	if res.Diagnostic != "main.cpp:1:1: error: expected" {
		t.Fatalf("diagnostic should be verbatim, got %q", res.Diagnostic)
	}
	if res.ArtifactPath != "" {
		t.Fatalf("failed build must not report an artifact")
	}
}

func TestCompileTimeout(t *testing.T) {
	prog := resolve(t, profile.DefaultLanguages(), filepath.Join(t.TempDir(), "main.c"))
	eng := &fakeEngine{res: result.RunResult{ExitCode: -1, TimedOut: true}}
	r := NewRunner(eng)

	res, err := r.Compile(context.Background(), CompileRequest{Program: prog, Timeout: time.Second})
	if err != nil {
		t.Fatalf("compile returned error: %v", err)
	}
	if res.Reason != result.BuildReasonTimeout {
		t.Fatalf("expected build-timeout, got %+v", res)
	}
}

func TestCompileToolMissing(t *testing.T) {
	prog := resolve(t, profile.DefaultLanguages(), filepath.Join(t.TempDir(), "Main.java"))
	eng := &fakeEngine{err: appErr.New(appErr.CompilerUnavailable).WithMessage("javac not found in PATH")}
	r := NewRunner(eng)

	res, err := r.Compile(context.Background(), CompileRequest{Program: prog, Timeout: time.Second})
	if err != nil {
		t.Fatalf("compile returned error: %v", err)
	}
	if res.OK || res.Reason != result.BuildReasonToolMissing || !strings.Contains(res.Diagnostic, "javac") {
		t.Fatalf("expected tool-missing naming javac, got %+v", res)
	}
}

func TestCompileCanceled(t *testing.T) {
	prog := resolve(t, profile.DefaultLanguages(), filepath.Join(t.TempDir(), "main.cpp"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := &fakeEngine{err: context.Canceled}
	r := NewRunner(eng)

	if _, err := r.Compile(ctx, CompileRequest{Program: prog, Timeout: time.Second}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCompileScriptChecksInterpreter(t *testing.T) {
	langs := profile.MergeLanguages(profile.DefaultLanguages(), []profile.LanguageSpec{
		{ID: "python", RunCmdTpl: "cfjudge-missing-python {src}"},
	})
	prog := resolve(t, langs, filepath.Join(t.TempDir(), "main.py"))
	eng := &fakeEngine{}
	r := NewRunner(eng)

	res, err := r.Compile(context.Background(), CompileRequest{Program: prog})
	if err != nil {
		t.Fatalf("compile returned error: %v", err)
	}
	if res.OK || res.Reason != result.BuildReasonToolMissing {
		t.Fatalf("expected tool-missing, got %+v", res)
	}
	if !strings.Contains(res.Diagnostic, "cfjudge-missing-python") {
		t.Fatalf("diagnostic should name the interpreter: %q", res.Diagnostic)
	}
	if len(eng.specs) != 0 {
		t.Fatalf("script build must not spawn processes")
	}
}

func TestRunBuildsSpec(t *testing.T) {
	dir := t.TempDir()
	langs := profile.MergeLanguages(profile.DefaultLanguages(), []profile.LanguageSpec{
		{ID: "java", TimeMultiplier: 1.5},
	})
	prog := resolve(t, langs, filepath.Join(dir, "Main.java"))
	eng := &fakeEngine{res: result.RunResult{Stdout: "3\n"}}
	r := NewRunner(eng)

	input := filepath.Join(dir, "in1.txt")
	res, err := r.Run(context.Background(), RunRequest{
		RunID:     "r1",
		TestID:    "1",
		Program:   prog,
		WorkDir:   dir,
		InputPath: input,
		Timeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Stdout != "3\n" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	got := eng.specs[0]
	want := []string{"java", "-cp", dir, "Main"}
	if strings.Join(got.Cmd, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected run cmd: %v", got.Cmd)
	}
	if got.StdinPath != input || got.WorkDir != dir {
		t.Fatalf("unexpected run spec: %+v", got)
	}
	if got.Limits.WallTime != 3*time.Second {
		t.Fatalf("expected scaled timeout 3s, got %v", got.Limits.WallTime)
	}
}

func TestRunValidation(t *testing.T) {
	r := NewRunner(&fakeEngine{})
	_, err := r.Run(context.Background(), RunRequest{TestID: "1", WorkDir: "/tmp"})
	if !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildCommandKeepsSpacedPaths(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Problem A")
	prog := resolve(t, profile.DefaultLanguages(), filepath.Join(dir, "main.py"))
	cmd, err := buildCommand(prog.Language.RunCmdTpl, prog)
	if err != nil {
		t.Fatalf("build command failed: %v", err)
	}
	if len(cmd) != 2 || cmd[1] != prog.SourcePath {
		t.Fatalf("expected path kept as one argument, got %q", cmd)
	}

	if _, err := buildCommand("   ", prog); !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected InvalidParams for empty template, got %v", err)
	}
}

func TestScaleTimeout(t *testing.T) {
	cases := []struct {
		value      time.Duration
		multiplier float64
		want       time.Duration
	}{
		{value: 2 * time.Second, multiplier: 0, want: 2 * time.Second},
		{value: 2 * time.Second, multiplier: 2, want: 4 * time.Second},
		{value: 0, multiplier: 2, want: 0},
	}
	for _, tc := range cases {
		if got := scaleTimeout(tc.value, tc.multiplier); got != tc.want {
			t.Fatalf("scaleTimeout(%v, %v) = %v, want %v", tc.value, tc.multiplier, got, tc.want)
		}
	}
}
