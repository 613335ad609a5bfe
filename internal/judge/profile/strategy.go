package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Snapshot records build outputs present before a build started.
type Snapshot map[string]struct{}

// Strategy holds the behavior that differs per language kind.
type Strategy interface {
	Kind() Kind
	// Bind fixes the artifact locations for one source file.
	Bind(lang LanguageSpec, sourcePath string) Program
	// Snapshot is taken before the build so Artifacts can tell new outputs apart.
	Snapshot(p Program) (Snapshot, error)
	// Artifacts lists files the build left next to the source.
	Artifacts(p Program, before Snapshot) ([]string, error)
}

// Program is a language bound to a concrete source file.
type Program struct {
	Language   LanguageSpec `json:"language"`
	SourcePath string       `json:"source_path"`
	Dir        string       `json:"-"`
	Binary     string       `json:"-"`
	Class      string       `json:"-"`

	strategy Strategy
}

// Kind returns the program's language kind.
func (p Program) Kind() Kind {
	return p.Language.Kind
}

// Strategy returns the strategy the program was resolved with.
func (p Program) Strategy() Strategy {
	return p.strategy
}

// Vars returns the command template substitutions for the program.
func (p Program) Vars() map[string]string {
	return map[string]string{
		"{src}":   p.SourcePath,
		"{bin}":   p.Binary,
		"{dir}":   p.Dir,
		"{class}": p.Class,
	}
}

func strategyFor(kind Kind) Strategy {
	switch kind {
	case KindNative:
		return nativeStrategy{}
	case KindJVM:
		return jvmStrategy{}
	case KindScript:
		return scriptStrategy{}
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// nativeStrategy compiles to an executable next to the source.
type nativeStrategy struct{}

func (nativeStrategy) Kind() Kind { return KindNative }

func (s nativeStrategy) Bind(lang LanguageSpec, sourcePath string) Program {
	dir := filepath.Dir(sourcePath)
	bin := filepath.Join(dir, stem(sourcePath))
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	return Program{Language: lang, SourcePath: sourcePath, Dir: dir, Binary: bin, strategy: s}
}

func (nativeStrategy) Snapshot(Program) (Snapshot, error) {
	return nil, nil
}

// Artifacts always claims the binary path; it belongs to the run even when a stale copy existed.
func (nativeStrategy) Artifacts(p Program, _ Snapshot) ([]string, error) {
	if _, err := os.Stat(p.Binary); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return []string{p.Binary}, nil
}

// jvmStrategy compiles class files into the source directory.
type jvmStrategy struct{}

func (jvmStrategy) Kind() Kind { return KindJVM }

func (s jvmStrategy) Bind(lang LanguageSpec, sourcePath string) Program {
	dir := filepath.Dir(sourcePath)
	return Program{Language: lang, SourcePath: sourcePath, Dir: dir, Binary: dir, Class: stem(sourcePath), strategy: s}
}

func (jvmStrategy) Snapshot(p Program) (Snapshot, error) {
	files, err := classFiles(p.Dir)
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(files))
	for _, f := range files {
		snap[f] = struct{}{}
	}
	return snap, nil
}

func (jvmStrategy) Artifacts(p Program, before Snapshot) ([]string, error) {
	files, err := classFiles(p.Dir)
	if err != nil {
		return nil, err
	}
	var created []string
	for _, f := range files {
		if _, ok := before[f]; !ok {
			created = append(created, f)
		}
	}
	return created, nil
}

func classFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.class"))
}

// scriptStrategy runs the source directly.
type scriptStrategy struct{}

func (scriptStrategy) Kind() Kind { return KindScript }

func (s scriptStrategy) Bind(lang LanguageSpec, sourcePath string) Program {
	return Program{Language: lang, SourcePath: sourcePath, Dir: filepath.Dir(sourcePath), Binary: sourcePath, strategy: s}
}

func (scriptStrategy) Snapshot(Program) (Snapshot, error) {
	return nil, nil
}

func (scriptStrategy) Artifacts(Program, Snapshot) ([]string, error) {
	return nil, nil
}
