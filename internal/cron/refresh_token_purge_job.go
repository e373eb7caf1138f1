package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/metrics"
)

const (
	refreshTokenPurgeJobName = "refresh-token-purge"
	defaultRefreshPurgeGrace = 24 * time.Hour
)

// RefreshTokenPurgeJobParams configure the refresh token purge job.
type RefreshTokenPurgeJobParams struct {
	Logger     *logger.Logger
	Repository staleTokenDeleter
	Metrics    *metrics.CronJobMetrics
	Grace      time.Duration
}

type staleTokenDeleter interface {
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewRefreshTokenPurgeJob builds the job that removes refresh tokens that
// expired or were revoked longer ago than the grace period.
func NewRefreshTokenPurgeJob(params RefreshTokenPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("refresh token repository required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultRefreshPurgeGrace
	}
	return &refreshTokenPurgeJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
		grace:   grace,
		now:     time.Now,
	}, nil
}

type refreshTokenPurgeJob struct {
	logg    *logger.Logger
	repo    staleTokenDeleter
	metrics *metrics.CronJobMetrics
	grace   time.Duration
	now     func() time.Time
}

func (j *refreshTokenPurgeJob) Name() string { return refreshTokenPurgeJobName }

func (j *refreshTokenPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	deleted, err := j.repo.DeleteStaleBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}
	j.metrics.ObserveRows(j.Name(), deleted)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "refresh token purge complete")
	return nil
}
