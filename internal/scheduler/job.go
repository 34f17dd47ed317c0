package scheduler

import (
	"context"
	"time"
)

// historyLimit caps the results kept per job
const historyLimit = 100

// Job represents a scheduled job
// ⭐ SSOT: scheduled work implements this interface
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds first
	// Examples: "0 */5 * * * *" (every five minutes), "@hourly"
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	RunID     string        `json:"run_id"`
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory stores job execution history
type JobHistory struct {
	Results []JobResult
}

// AddResult adds a job result to history
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// GetLatestResults returns the latest N results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}

	if n <= 0 {
		return []JobResult{}
	}

	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.Results {
		if result.Success {
			successCount++
		}
	}

	return float64(successCount) / float64(len(h.Results))
}

type runIDKey struct{}

// WithRunID attaches a run identifier to ctx
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier set by the scheduler, if any
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
