package controllers

import (
	"errors"
	"io"
	"net/http"

	"facility-backend/apperrors"
	"facility-backend/jobs"
	"facility-backend/utils"

	"github.com/gin-gonic/gin"
)

type JobController struct {
	Runner  *jobs.Runner
	History *jobs.History
}

func NewJobController(runner *jobs.Runner, history *jobs.History) *JobController {
	return &JobController{Runner: runner, History: history}
}

type runJobRequest struct {
	Limit        int  `json:"limit"`
	ClearStaging bool `json:"clearStaging"`
}

// RunJob (POST /api/jobs/:kind)
// Runs synchronously; the body is optional.
func (ctrl *JobController) RunJob(c *gin.Context) {
	kind, ok := jobs.ParseKind(c.Param("kind"))
	if !ok {
		utils.JSONFromError(c, apperrors.NewValidationError("kind", "must be materialize, link or discover"))
		return
	}

	var req runJobRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid job payload: "+err.Error())
		return
	}
	if req.Limit < 0 {
		utils.JSONFromError(c, apperrors.NewValidationError("limit", "must not be negative"))
		return
	}

	ctx := c.Request.Context()
	rep := ctrl.Runner.Run(ctx, kind, jobs.Options{Limit: req.Limit, ClearStaging: req.ClearStaging})
	_ = ctrl.History.Record(ctx, rep)

	if rep.Status == jobs.StatusSucceeded {
		utils.JSONSuccess(c, http.StatusOK, rep)
		return
	}
	utils.JSONPartial(c, rep, rep.Err())
}

// GetJobs (GET /api/jobs[?limit=n])
func (ctrl *JobController) GetJobs(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	runs, err := ctrl.History.Recent(c.Request.Context(), limit)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, runs)
}
