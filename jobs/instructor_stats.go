package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/skillforge/user-service/internal/instructors"
	jobmetrics "github.com/skillforge/user-service/internal/jobs"
	"github.com/skillforge/user-service/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StatsRefresher recomputes instructor review counters. *instructors.Service
// implements it.
type StatsRefresher interface {
	RefreshReviewStats(ctx context.Context, userID string) (instructors.Instructor, error)
	RefreshAllReviewStats(ctx context.Context) (int, error)
}

// InstructorStatsJob keeps total_reviews and average_rating in step with the
// review tables.
type InstructorStatsJob struct {
	Refresher StatsRefresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewInstructorStatsJob wires dependencies for the stats handler.
func NewInstructorStatsJob(refresher StatsRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *InstructorStatsJob {
	return &InstructorStatsJob{
		Refresher: refresher,
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   2 * time.Minute,
	}
}

// Handle processes instructor stats refresh tasks. Malformed payloads and
// instructors that no longer exist are dropped with asynq.SkipRetry.
func (j *InstructorStatsJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Refresher == nil {
		return errors.New("instructor stats: handler not configured")
	}
	run := j.metrics().Start(TaskInstructorStatsRefresh)

	var payload InstructorStatsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			j.logger().Warn("drop malformed stats payload", slog.Any("error", err))
			run.Skip()
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	payload.InstructorID = strings.TrimSpace(payload.InstructorID)

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	if payload.InstructorID == "" {
		start := time.Now()
		count, err := j.Refresher.RefreshAllReviewStats(ctx)
		j.metrics().InstructorsRefreshed(jobmetrics.ScopeAll, count)
		if err != nil {
			j.logger().Error("refresh all instructor stats", slog.Int("refreshed", count), slog.Any("error", err))
			return run.Done(err)
		}
		j.logger().Info("refreshed all instructor stats", slog.Int("refreshed", count), slog.Duration("duration", time.Since(start)))
		return run.Done(nil)
	}

	logger := j.logger().With(slog.String("instructor_id", payload.InstructorID))
	in, err := j.Refresher.RefreshReviewStats(ctx, payload.InstructorID)
	if errors.Is(err, shared.ErrInstructorNotFound) {
		logger.Warn("instructor vanished before stats refresh")
		run.Skip()
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		logger.Error("refresh instructor stats", slog.Any("error", err))
		return run.Done(err)
	}
	j.metrics().InstructorsRefreshed(jobmetrics.ScopeInstructor, 1)
	logger.Info("refreshed instructor stats",
		slog.Int("total_reviews", in.TotalReviews),
		slog.Float64("average_rating", in.AverageRating))
	return run.Done(nil)
}

func (j *InstructorStatsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInstructorStatsRefresh))
	}
	return slog.Default().With(slog.String("job", TaskInstructorStatsRefresh))
}

func (j *InstructorStatsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
