package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/tradegate/internal/scheduler"
)

// Scheduler is the read side of scheduler.Scheduler
type Scheduler interface {
	GetJobStats() map[string]scheduler.JobStats
	GetJobHistory(jobName string) ([]scheduler.JobResult, error)
}

// JobHandler reports watchlist job runs
type JobHandler struct {
	scheduler Scheduler
}

// NewJobHandler creates a new job handler
func NewJobHandler(s Scheduler) *JobHandler {
	return &JobHandler{scheduler: s}
}

// Stats returns per-job statistics
// GET /api/jobs
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// History returns the recorded runs of one job, oldest first
// GET /api/jobs/{name}/history
func (h *JobHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.scheduler.GetJobHistory(mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}
