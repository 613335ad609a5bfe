// Package profile maps solution files to the language strategy that builds and runs them.
package profile

import (
	"path/filepath"
	"strings"
)

// Kind identifies how a language turns source into something runnable.
type Kind string

const (
	KindNative Kind = "native"
	KindJVM    Kind = "jvm"
	KindScript Kind = "script"
)

// Valid reports whether k names a known strategy.
func (k Kind) Valid() bool {
	switch k {
	case KindNative, KindJVM, KindScript:
		return true
	}
	return false
}

// LanguageSpec describes one supported language.
// Command templates accept {src}, {bin}, {dir} and {class}.
type LanguageSpec struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Kind           Kind     `yaml:"kind" json:"kind"`
	Extensions     []string `yaml:"extensions" json:"extensions"`
	CompileCmdTpl  string   `yaml:"compileCmd" json:"compile_cmd,omitempty"`
	RunCmdTpl      string   `yaml:"runCmd" json:"run_cmd"`
	Env            []string `yaml:"env" json:"-"`
	TimeMultiplier float64  `yaml:"timeMultiplier" json:"time_multiplier,omitempty"`
}

// CompileEnabled reports whether a build step invokes an external tool.
func (l LanguageSpec) CompileEnabled() bool {
	return l.Kind != KindScript && strings.TrimSpace(l.CompileCmdTpl) != ""
}

// Matches reports whether path carries one of the language's extensions.
func (l LanguageSpec) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, candidate := range l.Extensions {
		if strings.ToLower(candidate) == ext {
			return true
		}
	}
	return false
}

// DefaultLanguages returns the built-in language table in resolution order.
func DefaultLanguages() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:            "cpp",
			Name:          "C++17 (GNU)",
			Kind:          KindNative,
			Extensions:    []string{".cpp", ".cc", ".cxx", ".c++"},
			CompileCmdTpl: "g++ -std=gnu++17 -O2 -pipe -o {bin} {src}",
			RunCmdTpl:     "{bin}",
		},
		{
			ID:            "c",
			Name:          "C11 (GNU)",
			Kind:          KindNative,
			Extensions:    []string{".c"},
			CompileCmdTpl: "gcc -std=gnu11 -O2 -pipe -o {bin} {src} -lm",
			RunCmdTpl:     "{bin}",
		},
		{
			ID:            "java",
			Name:          "Java",
			Kind:          KindJVM,
			Extensions:    []string{".java"},
			CompileCmdTpl: "javac -encoding UTF-8 -d {dir} {src}",
			RunCmdTpl:     "java -cp {dir} {class}",
		},
		{
			ID:         "python",
			Name:       "Python 3",
			Kind:       KindScript,
			Extensions: []string{".py"},
			RunCmdTpl:  "python3 {src}",
		},
	}
}

// MergeLanguages overlays overrides on base by id; unknown ids are appended.
func MergeLanguages(base, overrides []LanguageSpec) []LanguageSpec {
	merged := make([]LanguageSpec, len(base))
	copy(merged, base)
	for _, override := range overrides {
		if override.ID == "" {
			continue
		}
		replaced := false
		for i := range merged {
			if merged[i].ID != override.ID {
				continue
			}
			merged[i] = mergeLanguage(merged[i], override)
			replaced = true
			break
		}
		if !replaced {
			merged = append(merged, override)
		}
	}
	return merged
}

func mergeLanguage(base, override LanguageSpec) LanguageSpec {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Kind != "" {
		base.Kind = override.Kind
	}
	if len(override.Extensions) > 0 {
		base.Extensions = override.Extensions
	}
	if override.CompileCmdTpl != "" {
		base.CompileCmdTpl = override.CompileCmdTpl
	}
	if override.RunCmdTpl != "" {
		base.RunCmdTpl = override.RunCmdTpl
	}
	if len(override.Env) > 0 {
		base.Env = override.Env
	}
	if override.TimeMultiplier > 0 {
		base.TimeMultiplier = override.TimeMultiplier
	}
	return base
}
