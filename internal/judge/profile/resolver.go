package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	appErr "cfjudge/pkg/errors"
)

// Resolver picks the language strategy for a source file.
type Resolver struct {
	languages []LanguageSpec
}

// NewResolver creates a resolver over languages in priority order.
// Entries without an id or with an unknown kind are skipped.
func NewResolver(languages []LanguageSpec) *Resolver {
	valid := make([]LanguageSpec, 0, len(languages))
	for _, lang := range languages {
		if lang.ID == "" || !lang.Kind.Valid() {
			continue
		}
		valid = append(valid, lang)
	}
	return &Resolver{languages: valid}
}

// Languages returns the configured language table.
func (r *Resolver) Languages() []LanguageSpec {
	out := make([]LanguageSpec, len(r.languages))
	copy(out, r.languages)
	return out
}

// Lookup returns the language for a file name without touching the filesystem.
func (r *Resolver) Lookup(path string) (LanguageSpec, bool) {
	for _, lang := range r.languages {
		if lang.Matches(path) {
			return lang, true
		}
	}
	return LanguageSpec{}, false
}

// Resolve binds sourcePath to its language strategy.
func (r *Resolver) Resolve(sourcePath string) (Program, error) {
	lang, ok := r.Lookup(sourcePath)
	if !ok {
		return Program{}, appErr.UnsupportedLanguage(sourcePath)
	}
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return Program{}, appErr.Wrapf(err, appErr.FileSystemError, "resolve source path failed")
	}
	return strategyFor(lang.Kind).Bind(lang, abs), nil
}

// Discover finds the solution file in dir.
// A file named main.* wins; otherwise the language table order decides, then the file name.
func (r *Resolver) Discover(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", appErr.Newf(appErr.FileNotFound, "directory %s not found", dir).WithDetail("dir", dir)
		}
		return "", appErr.Wrapf(err, appErr.FileSystemError, "read directory failed")
	}

	type candidate struct {
		name     string
		priority int
		main     bool
	}
	var candidates []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		for i, lang := range r.languages {
			if lang.Matches(name) {
				candidates = append(candidates, candidate{name: name, priority: i, main: stem(name) == "main"})
				break
			}
		}
	}
	if len(candidates) == 0 {
		return "", appErr.Newf(appErr.LanguageNotSupported, "no solution file in a supported language in %s", dir).WithDetail("dir", dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.main != b.main {
			return a.main
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.name < b.name
	})
	return filepath.Join(dir, candidates[0].name), nil
}
