// Package compare decides whether program output matches the expected answer.
package compare

import (
	"strings"

	"cfjudge/internal/judge/result"
	appErr "cfjudge/pkg/errors"
)

// Mode selects how much whitespace is ignored.
type Mode string

const (
	// ModeTrim trims the whole text and every line; internal spacing still counts.
	ModeTrim Mode = "trim"
	// ModeTrimRight ignores trailing spaces per line and trailing blank lines.
	ModeTrimRight Mode = "trim-right"
	// ModeExact requires byte equality once line endings are unified.
	ModeExact Mode = "exact"
)

// Modes lists the accepted modes.
func Modes() []Mode {
	return []Mode{ModeTrim, ModeTrimRight, ModeExact}
}

// ParseMode validates a mode name; empty selects ModeTrim.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeTrim, nil
	case ModeTrim, ModeTrimRight, ModeExact:
		return Mode(s), nil
	}
	return "", appErr.ValidationError("compare.mode", "must be one of trim, trim-right, exact")
}

// Comparator compares actual output against expected output.
type Comparator struct {
	mode Mode
}

// New creates a comparator; an unknown mode falls back to ModeTrim.
func New(mode Mode) *Comparator {
	if _, err := ParseMode(string(mode)); err != nil || mode == "" {
		mode = ModeTrim
	}
	return &Comparator{mode: mode}
}

// Mode returns the active mode.
func (c *Comparator) Mode() Mode {
	return c.mode
}

// Compare reports whether actual matches expected. On mismatch the diff
// points at the first differing line and is advisory only.
func (c *Comparator) Compare(expected, actual string) (bool, *result.Diff) {
	want := c.normalize(expected)
	got := c.normalize(actual)

	if equalLines(want, got) {
		return true, nil
	}
	return false, firstDiff(want, got)
}

func (c *Comparator) normalize(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	switch c.mode {
	case ModeExact:
		return strings.Split(text, "\n")
	case ModeTrimRight:
		lines := strings.Split(text, "\n")
		for i := range lines {
			lines[i] = strings.TrimRight(lines[i], " \t\r")
		}
		for len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		return lines
	default:
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		lines := strings.Split(text, "\n")
		for i := range lines {
			lines[i] = strings.TrimSpace(lines[i])
		}
		return lines
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func firstDiff(want, got []string) *result.Diff {
	n := len(want)
	if len(got) > n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		var w, g string
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			g = got[i]
		}
		if i >= len(want) || i >= len(got) || w != g {
			return &result.Diff{Line: i + 1, Expected: w, Actual: g, ExpectedLines: len(want), ActualLines: len(got)}
		}
	}
	return nil
}
