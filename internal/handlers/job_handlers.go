package handlers

import (
	"errors"
	"net/http"

	"furnistore/internal/common"
	"furnistore/internal/jobs"

	"github.com/labstack/echo/v4"
)

// JobRunner is the part of the scheduler exposed to admins.
type JobRunner interface {
	Status() []jobs.JobStatus
	RunNow(name string) error
}

type JobHandlers struct {
	runner JobRunner
}

func NewJobHandlers(runner JobRunner) *JobHandlers {
	return &JobHandlers{runner: runner}
}

// ListJobs handles GET /v1/admin/jobs
func (h *JobHandlers) ListJobs(c echo.Context) error {
	status := h.runner.Status()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":  status,
		"count": len(status),
	})
}

// RunJob handles POST /v1/admin/jobs/:name/run. The job runs asynchronously.
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")
	if err := h.runner.RunNow(name); err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			return common.SendNotFoundError(c, "job")
		}
		return common.SendServerError(c, "failed to trigger job")
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"job":    name,
		"status": "triggered",
	})
}
