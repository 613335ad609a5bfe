package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cfjudge/internal/judge/compare"
	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/report"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/worker"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const promptSuffix = "> "

// LineReader yields one input line per call; io.EOF ends the session.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Judge is the part of the worker the session drives.
type Judge interface {
	Execute(ctx context.Context, req worker.RunRequest) (result.RunReport, error)
	Languages() []profile.LanguageSpec
}

// Options seeds the session state.
type Options struct {
	Dir         string
	RunTimeout  time.Duration
	CompareMode compare.Mode
	JSON        bool
	ConfigPath  string
}

// Session holds REPL state.
type Session struct {
	judge        Judge
	reader       LineReader
	outputWriter *bufio.Writer
	opts         Options
}

// NewReadline creates a line editor with persistent history.
func NewReadline(historyFile string) (LineReader, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          "cfjudge" + promptSuffix,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
}

func New(judge Judge, reader LineReader, out io.Writer, opts Options) *Session {
	if opts.CompareMode == "" {
		opts.CompareMode = compare.ModeTrim
	}
	return &Session{
		judge:        judge,
		reader:       reader,
		outputWriter: bufio.NewWriter(out),
		opts:         opts,
	}
}

// Run reads commands until exit, EOF or ctx cancellation.
func (s *Session) Run(ctx context.Context) error {
	defer s.outputWriter.Flush()
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.updatePrompt()
		line, err := s.reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			s.printLine("bye")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if done := s.handleLine(ctx, line); done {
			s.printLine("bye")
			return nil
		}
	}
}

func (s *Session) updatePrompt() {
	setter, ok := s.reader.(interface{ SetPrompt(string) })
	if !ok {
		return
	}
	name := "cfjudge"
	if s.opts.Dir != "" {
		name = filepath.Base(s.opts.Dir)
	}
	setter.SetPrompt(name + promptSuffix)
}

// handleLine dispatches one command and reports whether the session should end.
func (s *Session) handleLine(ctx context.Context, line string) bool {
	tokens, err := shlex.Split(line)
	if err != nil {
		s.printLine("parse command failed: %v", err)
		return false
	}
	if len(tokens) == 0 {
		return false
	}
	args := tokens[1:]
	switch tokens[0] {
	case "exit", "quit":
		return true
	case "help":
		s.printHelp()
	case "run":
		s.handleRun(ctx, args)
	case "cd":
		s.handleCd(args)
	case "set":
		s.handleSet(args)
	case "show":
		s.handleShow(args)
	default:
		s.printLine("unknown command: %s (try help)", tokens[0])
	}
	return false
}

func (s *Session) handleRun(ctx context.Context, args []string) {
	dir := s.opts.Dir
	source := ""
	if len(args) > 0 {
		dir = args[0]
	}
	if len(args) > 1 {
		source = args[1]
	}
	if dir == "" {
		s.printLine("usage: run <dir> [source]")
		return
	}
	if !filepath.IsAbs(dir) && s.opts.Dir != "" && len(args) > 0 {
		if _, err := os.Stat(dir); err != nil {
			dir = filepath.Join(s.opts.Dir, dir)
		}
	}
	s.opts.Dir = dir

	rep, err := s.judge.Execute(ctx, worker.RunRequest{
		Dir:         dir,
		SourcePath:  source,
		RunTimeout:  s.opts.RunTimeout,
		CompareMode: s.opts.CompareMode,
	})
	if err != nil {
		s.printLine("error: %v", err)
		return
	}
	if s.opts.JSON {
		formatted, _ := json.MarshalIndent(rep, "", "  ")
		s.printLine("%s", string(formatted))
		return
	}
	_, _ = s.outputWriter.WriteString(report.Render(rep))
	_ = s.outputWriter.Flush()
}

func (s *Session) handleCd(args []string) {
	if len(args) != 1 {
		s.printLine("usage: cd <dir>")
		return
	}
	dir := args[0]
	if !filepath.IsAbs(dir) && s.opts.Dir != "" {
		dir = filepath.Join(s.opts.Dir, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.printLine("not a directory: %s", dir)
		return
	}
	s.opts.Dir = filepath.Clean(dir)
	s.printLine("dir set to %s", s.opts.Dir)
}

func (s *Session) handleSet(args []string) {
	if len(args) < 2 {
		s.printLine("usage: set timeout|compare|json <value>")
		return
	}
	switch args[0] {
	case "timeout":
		dur, err := time.ParseDuration(args[1])
		if err != nil || dur <= 0 {
			s.printLine("invalid duration: %s", args[1])
			return
		}
		s.opts.RunTimeout = dur
		s.printLine("timeout set to %s", dur)
	case "compare":
		mode, err := compare.ParseMode(args[1])
		if err != nil {
			s.printLine("invalid compare mode: %v", err)
			return
		}
		s.opts.CompareMode = mode
		s.printLine("compare set to %s", mode)
	case "json":
		s.opts.JSON = args[1] == "on" || args[1] == "true"
		s.printLine("json output %t", s.opts.JSON)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args []string) {
	what := ""
	if len(args) > 0 {
		what = args[0]
	}
	switch what {
	case "config":
		timeout := "default"
		if s.opts.RunTimeout > 0 {
			timeout = s.opts.RunTimeout.String()
		}
		s.printLine("dir: %s", s.opts.Dir)
		s.printLine("timeout: %s", timeout)
		s.printLine("compare: %s", s.opts.CompareMode)
		s.printLine("json: %t", s.opts.JSON)
		if s.opts.ConfigPath != "" {
			s.printLine("config file: %s", s.opts.ConfigPath)
		}
	case "languages":
		for _, lang := range s.judge.Languages() {
			s.printLine("%-8s %-7s %s", lang.ID, lang.Kind, strings.Join(lang.Extensions, " "))
		}
	default:
		s.printLine("usage: show config|languages")
	}
}

func (s *Session) printHelp() {
	s.printLine("Commands:")
	s.printLine("  run [dir] [source]        judge dir (defaults to the current dir)")
	s.printLine("  cd <dir>                  change the current problem dir")
	s.printLine("  set timeout <duration>    per-case time limit, e.g. 2s")
	s.printLine("  set compare <mode>        trim | trim-right | exact")
	s.printLine("  set json on|off           print reports as JSON")
	s.printLine("  show config|languages")
	s.printLine("  help")
	s.printLine("  exit | quit")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = s.outputWriter.WriteString(fmt.Sprintf(format, args...))
	_, _ = s.outputWriter.WriteString("\n")
	_ = s.outputWriter.Flush()
}
