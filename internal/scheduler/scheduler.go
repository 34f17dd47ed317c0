package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/wonny/tradegate/pkg/logger"
)

// Scheduler manages scheduled jobs
// ⭐ SSOT: every periodic evaluation runs through this scheduler
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	// Retry configuration
	maxRetries int
	retryDelay time.Duration
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRetries sets how often a failed run is retried and the pause between attempts
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// New creates a new scheduler
func New(log *logger.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log.WithComponent("scheduler"),
		jobs:       make(map[string]Job),
		entries:    make(map[string]cron.EntryID),
		history:    make(map[string]*JobHistory),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: 0,
		retryDelay: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()

	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	s.jobs[jobName] = job
	s.entries[jobName] = id
	s.history[jobName] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob unschedules a job. Its history is kept.
func (s *Scheduler) RemoveJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobName]; !exists {
		return fmt.Errorf("job %s not found", jobName)
	}

	s.cron.Remove(s.entries[jobName])
	delete(s.jobs, jobName)
	delete(s.entries, jobName)
	s.logger.WithField("job", jobName).Info("Job removed from scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels in-flight runs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a specific job immediately (outside of schedule)
func (s *Scheduler) RunJob(jobName string) error {
	job, err := s.lookup(jobName)
	if err != nil {
		return err
	}

	go s.runJob(job)
	return nil
}

// RunJobAndWait runs a job immediately and returns its result
func (s *Scheduler) RunJobAndWait(jobName string) (JobResult, error) {
	job, err := s.lookup(jobName)
	if err != nil {
		return JobResult{}, err
	}
	return s.runJob(job), nil
}

func (s *Scheduler) lookup(jobName string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobName]
	if !exists {
		return nil, fmt.Errorf("job %s not found", jobName)
	}
	return job, nil
}

// runJob executes a job with retry logic
func (s *Scheduler) runJob(job Job) JobResult {
	jobName := job.Name()
	runID := uuid.NewString()
	startTime := time.Now()
	log := s.logger.WithFields(map[string]interface{}{
		"job":    jobName,
		"run_id": runID,
	})

	log.Info("Job started")

	var lastErr error
	var success bool
	attempts := 0

	ctx := WithRunID(s.ctx, runID)
retry:
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		err := job.Run(ctx)
		if err == nil {
			success = true
			break
		}

		lastErr = err
		if attempt == s.maxRetries {
			break
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Job execution failed, retrying")

		select {
		case <-ctx.Done():
			lastErr = fmt.Errorf("%w (retry aborted: %v)", lastErr, ctx.Err())
			break retry
		case <-time.After(s.retryDelay):
		}
	}

	endTime := time.Now()
	duration := endTime.Sub(startTime)

	result := JobResult{
		RunID:     runID,
		JobName:   jobName,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  duration,
		Attempts:  attempts,
		Success:   success,
	}

	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if history, exists := s.history[jobName]; exists {
		history.AddResult(result)
	}
	s.mu.Unlock()

	if success {
		log.WithField("duration", duration).Info("Job completed successfully")
	} else {
		log.WithFields(map[string]interface{}{
			"duration": duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}

	return result
}

// GetJobHistory returns a copy of the recorded results for a job, oldest first
func (s *Scheduler) GetJobHistory(jobName string) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[jobName]
	if !exists {
		return nil, fmt.Errorf("job %s not found", jobName)
	}

	out := make([]JobResult, len(history.Results))
	copy(out, history.Results)
	return out, nil
}

// GetAllJobs returns all registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for jobName := range s.jobs {
		jobs = append(jobs, jobName)
	}
	sort.Strings(jobs)

	return jobs
}

// GetJobStats returns statistics for all registered jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))

	for jobName, job := range s.jobs {
		history := s.history[jobName]
		failedResults := history.GetFailedResults()

		st := JobStats{
			JobName:      jobName,
			Schedule:     job.Schedule(),
			TotalRuns:    len(history.Results),
			SuccessCount: len(history.Results) - len(failedResults),
			FailureCount: len(failedResults),
			SuccessRate:  history.GetSuccessRate(),
		}

		if latest := history.GetLatestResults(1); len(latest) > 0 {
			last := latest[0]
			st.LastRun = &last.StartTime
			st.LastRunID = last.RunID
		}
		for i := len(history.Results) - 1; i >= 0; i-- {
			r := history.Results[i]
			if r.Success && st.LastSuccess == nil {
				st.LastSuccess = &r.StartTime
			}
			if !r.Success && st.LastFailure == nil {
				st.LastFailure = &r.StartTime
			}
		}

		stats[jobName] = st
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}
