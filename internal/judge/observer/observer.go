// Package observer defines logging and metrics hooks for build and execution.
package observer

import (
	"context"

	"cfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// MetricsRecorder records build and execution measurements.
type MetricsRecorder interface {
	ObserveBuild(ctx context.Context, languageID string, ok bool, timeMs int64)
	ObserveRun(ctx context.Context, languageID string, outcome string, timeMs int64)
}

// NoopMetricsRecorder discards every observation.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) ObserveBuild(context.Context, string, bool, int64) {}

func (NoopMetricsRecorder) ObserveRun(context.Context, string, string, int64) {}

// LogRecorder writes observations to the debug log.
type LogRecorder struct{}

func (LogRecorder) ObserveBuild(ctx context.Context, languageID string, ok bool, timeMs int64) {
	logger.Debug(ctx, "build observed", zap.String("language", languageID), zap.Bool("ok", ok), zap.Int64("time_ms", timeMs))
}

func (LogRecorder) ObserveRun(ctx context.Context, languageID string, outcome string, timeMs int64) {
	logger.Debug(ctx, "run observed", zap.String("language", languageID), zap.String("outcome", outcome), zap.Int64("time_ms", timeMs))
}
