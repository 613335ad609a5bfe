package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cfjudge/internal/judge/compare"
	"cfjudge/internal/judge/profile"
	appErr "cfjudge/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfjudge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logger:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Logger.Level != "debug" {
		t.Fatalf("expected logger level debug, got %q", cfg.Logger.Level)
	}
	if cfg.Judge.BuildTimeout != 30*time.Second || cfg.Judge.RunTimeout != 2*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg.Judge)
	}
	if cfg.Compare.Mode != compare.ModeTrim {
		t.Fatalf("expected trim mode, got %q", cfg.Compare.Mode)
	}
	if len(cfg.Languages) != len(profile.DefaultLanguages()) {
		t.Fatalf("expected default language table, got %d entries", len(cfg.Languages))
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Fatalf("unexpected server addr %q", cfg.Server.Addr)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
judge:
  buildTimeout: 1m
  runTimeout: 500ms
  stdoutMaxBytes: 1024
compare:
  mode: trim-right
languages:
  - id: python
    runCmd: pypy3 {src}
  - id: go
    kind: native
    extensions: [".go"]
    compileCmd: go build -o {bin} {src}
    runCmd: "{bin}"
server:
  addr: ":9000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Judge.BuildTimeout != time.Minute || cfg.Judge.RunTimeout != 500*time.Millisecond {
		t.Fatalf("timeouts not parsed: %+v", cfg.Judge)
	}
	if cfg.EngineConfig().StdoutMaxBytes != 1024 {
		t.Fatalf("stdout cap not mapped: %+v", cfg.EngineConfig())
	}
	if cfg.WorkerConfig().CompareMode != compare.ModeTrimRight {
		t.Fatalf("compare mode not mapped: %+v", cfg.WorkerConfig())
	}
	resolver := cfg.Resolver()
	py, ok := resolver.Lookup("main.py")
	if !ok || py.RunCmdTpl != "pypy3 {src}" {
		t.Fatalf("python override missing: %+v", py)
	}
	if _, ok := resolver.Lookup("main.go"); !ok {
		t.Fatal("extra language should resolve")
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("unexpected server addr %q", cfg.Server.Addr)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "bad compare mode", content: "compare:\n  mode: fuzzy\n"},
		{name: "bad kind", content: "languages:\n  - id: rust\n    kind: llvm\n    extensions: [\".rs\"]\n    runCmd: x\n"},
		{name: "native without compile", content: "languages:\n  - id: rust\n    kind: native\n    extensions: [\".rs\"]\n    runCmd: \"{bin}\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if !appErr.Is(err, appErr.ValidationFailed) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit file")
	}
	if _, err := Load(writeConfig(t, "judge: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptionalDefaultPath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	defer func() {
		_ = os.Chdir(wd)
	}()

	cfg, err := LoadOptional(DefaultPath)
	if err != nil {
		t.Fatalf("missing default config should fall back, got %v", err)
	}
	if cfg.Judge.RunTimeout != 2*time.Second {
		t.Fatalf("expected defaults, got %+v", cfg.Judge)
	}
	if _, err := LoadOptional("other.yaml"); err == nil {
		t.Fatal("missing non-default config must fail")
	}
}
