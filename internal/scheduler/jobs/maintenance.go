package jobs

import (
	"context"

	"github.com/wonny/tradegate/pkg/logger"
)

// Sweeper drops expired entries from a process-local cache
type Sweeper interface {
	Sweep() int
}

// CacheSweepJob prunes expired collaborator readings
type CacheSweepJob struct {
	cache    Sweeper
	schedule string
	logger   *logger.Logger
}

// NewCacheSweepJob creates a new cache sweep job. An empty schedule runs every five minutes.
func NewCacheSweepJob(cache Sweeper, schedule string, log *logger.Logger) *CacheSweepJob {
	if schedule == "" {
		schedule = "0 */5 * * * *"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CacheSweepJob{
		cache:    cache,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Schedule returns the cron schedule
func (j *CacheSweepJob) Schedule() string {
	return j.schedule
}

// Run executes the cache sweep
func (j *CacheSweepJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache sweep")

	if count := j.cache.Sweep(); count > 0 {
		j.logger.WithField("removed", count).Info("Cache sweep completed")
	}

	return nil
}
