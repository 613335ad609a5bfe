package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cfjudge/internal/config"

	"github.com/google/go-cmp/cmp"
)

func TestParseOverrideNestsKeys(t *testing.T) {
	got, err := parseOverride("judge.runTimeout=3s")
	if err != nil {
		t.Fatalf("parseOverride() error = %v", err)
	}
	want := map[string]interface{}{"judge": map[string]interface{}{"runTimeout": "3s"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("override mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"judge.runTimeout", "=3s"} {
		if _, err := parseOverride(bad); err == nil {
			t.Errorf("parseOverride(%q) should fail", bad)
		}
	}
}

func TestMergeMapKeepsSiblings(t *testing.T) {
	base := map[string]interface{}{
		"judge":   map[string]interface{}{"runTimeout": "2s", "buildTimeout": "30s"},
		"compare": map[string]interface{}{"mode": "trim"},
	}
	override := map[string]interface{}{
		"judge":   map[string]interface{}{"runTimeout": "5s"},
		"compare": "exact",
	}
	got, err := mergeMap(base, override)
	if err != nil {
		t.Fatalf("mergeMap() error = %v", err)
	}
	want := map[string]interface{}{
		"judge":   map[string]interface{}{"runTimeout": "5s", "buildTimeout": "30s"},
		"compare": "exact",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if _, err := mergeMap("scalar", override); err == nil {
		t.Fatal("non-map base should fail")
	}
}

func TestGenerateProducesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(basePath, []byte("compare:\n  mode: exact\n"), 0o644); err != nil {
		t.Fatalf("write base failed: %v", err)
	}

	generated, err := generate(basePath, []string{"judge.runTimeout=3s", "server.addr=0.0.0.0:9090"})
	if err != nil {
		t.Fatalf("generate() error = %v", err)
	}
	out := filepath.Join(dir, "out", "cfjudge.yaml")
	if err := writeYAML(out, generated); err != nil {
		t.Fatalf("writeYAML() error = %v", err)
	}

	cfg, err := config.Load(out)
	if err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	if cfg.Judge.RunTimeout != 3*time.Second {
		t.Errorf("runTimeout = %v, want 3s", cfg.Judge.RunTimeout)
	}
	if cfg.Judge.BuildTimeout != 30*time.Second {
		t.Errorf("buildTimeout = %v, want default 30s", cfg.Judge.BuildTimeout)
	}
	if cfg.Compare.Mode != "exact" {
		t.Errorf("compare = %q, want exact", cfg.Compare.Mode)
	}
	if cfg.Server.Addr != "0.0.0.0:9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Languages) != len(config.Default().Languages) {
		t.Errorf("languages = %d, want %d", len(cfg.Languages), len(config.Default().Languages))
	}
}
