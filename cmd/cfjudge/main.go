package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cfjudge/internal/cli/repl"
	"cfjudge/internal/config"
	"cfjudge/internal/judge/compare"
	"cfjudge/internal/judge/engine"
	"cfjudge/internal/judge/observer"
	"cfjudge/internal/judge/report"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/runner"
	"cfjudge/internal/judge/worker"
	"cfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	exitPassed    = 0
	exitFailed    = 1
	exitHardError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath, "Path to config file")
	jsonOutput := flag.Bool("json", false, "Print the run report as JSON")
	runTimeout := flag.Duration("timeout", 0, "Override per-case time limit (e.g. 2s)")
	buildTimeout := flag.Duration("build-timeout", 0, "Override build time limit (e.g. 30s)")
	compareMode := flag.String("compare", "", "Override compare mode (trim, trim-right, exact)")
	source := flag.String("source", "", "Judge this source file instead of discovering one")
	interactive := flag.Bool("i", false, "Start an interactive session")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: cfjudge [flags] <dir>\n       cfjudge -i [dir]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return exitHardError
	}
	if *runTimeout > 0 {
		cfg.Judge.RunTimeout = *runTimeout
	}
	if *buildTimeout > 0 {
		cfg.Judge.BuildTimeout = *buildTimeout
	}
	if *compareMode != "" {
		mode, err := compare.ParseMode(*compareMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -compare: %v\n", err)
			return exitHardError
		}
		cfg.Compare.Mode = mode
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "warn"
	}
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return exitHardError
	}
	defer func() {
		_ = logger.Sync()
	}()

	eng := engine.NewEngine(cfg.EngineConfig())
	jobRunner := runner.NewRunnerWithObserver(eng, observer.LogRecorder{})
	w := worker.NewWorker(jobRunner, cfg.Resolver(), cfg.WorkerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := flag.Arg(0)
	if *interactive {
		return runInteractive(ctx, w, cfg, *configPath, dir, *jsonOutput)
	}
	if dir == "" {
		dir = "."
	}

	rep, err := w.Execute(ctx, worker.RunRequest{Dir: dir, SourcePath: *source})
	if err != nil {
		logger.Error(ctx, "run failed", zap.String("dir", dir), zap.Error(err))
		fmt.Fprintf(os.Stderr, "cfjudge: %v\n", err)
		return exitHardError
	}
	if *jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "encode report failed: %v\n", err)
			return exitHardError
		}
	} else {
		report.Write(os.Stdout, rep)
	}
	if rep.Status == result.StatusAllPassed {
		return exitPassed
	}
	return exitFailed
}

func runInteractive(ctx context.Context, w *worker.Worker, cfg config.Config, configPath, dir string, jsonOutput bool) int {
	reader, err := repl.NewReadline(cfg.REPL.HistoryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init line editor failed: %v\n", err)
		return exitHardError
	}
	defer func() {
		_ = reader.Close()
	}()

	session := repl.New(w, reader, os.Stdout, repl.Options{
		Dir:         dir,
		CompareMode: cfg.Compare.Mode,
		JSON:        jsonOutput,
		ConfigPath:  configPath,
	})
	if err := session.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cfjudge: %v\n", err)
		return exitHardError
	}
	return exitPassed
}
