package worker

import (
	"context"

	"cfjudge/internal/judge/result"
)

// StatusUpdate carries intermediate run progress.
type StatusUpdate struct {
	RunID      string              `json:"run_id"`
	Phase      result.Phase        `json:"phase"`
	Language   string              `json:"language"`
	TotalCases int                 `json:"total_cases"`
	DoneCases  int                 `json:"done_cases"`
	Case       *result.CaseVerdict `json:"case,omitempty"`
}

// StatusReporter receives progress updates while a run is in flight.
type StatusReporter interface {
	ReportStatus(ctx context.Context, update StatusUpdate) error
}

// StatusReporterFunc adapts a function to StatusReporter.
type StatusReporterFunc func(ctx context.Context, update StatusUpdate) error

func (f StatusReporterFunc) ReportStatus(ctx context.Context, update StatusUpdate) error {
	return f(ctx, update)
}
