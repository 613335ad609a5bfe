// Package service serializes runs per directory and bounds how many run at once.
package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cfjudge/internal/judge/compare"
	"cfjudge/internal/judge/profile"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/worker"
	appErr "cfjudge/pkg/errors"
	"cfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultMaxConcurrentRuns = 4

// RunInput describes one run request from an outer surface.
type RunInput struct {
	Dir         string
	Source      string
	RunTimeout  time.Duration
	CompareMode compare.Mode
	Reporter    worker.StatusReporter
}

// Service fronts the worker for the HTTP layer.
type Service struct {
	worker *worker.Worker
	sem    chan struct{}

	mu     sync.Mutex
	active map[string]struct{}
}

// NewService creates a service; maxConcurrent <= 0 selects the default.
func NewService(w *worker.Worker, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentRuns
	}
	return &Service{
		worker: w,
		sem:    make(chan struct{}, maxConcurrent),
		active: make(map[string]struct{}),
	}
}

// Languages returns the configured language table.
func (s *Service) Languages() []profile.LanguageSpec {
	return s.worker.Languages()
}

// Acquire reserves dir for one run. The returned release must be called once.
func (s *Service) Acquire(dir string) (func(), error) {
	key, err := lockKey(dir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[key]; busy {
		return nil, appErr.Newf(appErr.RunInProgress, "a run is already in progress for %s", dir).WithDetail("dir", dir)
	}
	s.active[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.active, key)
			s.mu.Unlock()
		})
	}, nil
}

// Run reserves the directory and executes one run.
func (s *Service) Run(ctx context.Context, in RunInput) (result.RunReport, error) {
	release, err := s.Acquire(in.Dir)
	if err != nil {
		return result.RunReport{}, err
	}
	defer release()
	return s.Execute(ctx, in)
}

// Execute runs without reserving the directory; callers must hold it via Acquire.
func (s *Service) Execute(ctx context.Context, in RunInput) (result.RunReport, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return result.RunReport{}, appErr.Wrapf(ctx.Err(), appErr.Canceled, "waiting for a run slot")
	}
	defer func() { <-s.sem }()

	report, err := s.worker.Execute(ctx, worker.RunRequest{
		Dir:         in.Dir,
		SourcePath:  in.Source,
		RunTimeout:  in.RunTimeout,
		CompareMode: in.CompareMode,
		Reporter:    in.Reporter,
	})
	if err != nil {
		if ctx.Err() != nil {
			return result.RunReport{}, appErr.Wrapf(err, appErr.Canceled, "run canceled")
		}
		logger.Warn(ctx, "run failed", zap.String("dir", in.Dir), zap.Error(err))
		return result.RunReport{}, err
	}
	return report, nil
}

func lockKey(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", appErr.ValidationError("dir", "required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.FileSystemError, "resolve directory failed")
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
