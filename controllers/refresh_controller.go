package controllers

import (
	"net/http"

	"screener_backend/services"

	"github.com/gin-gonic/gin"
)

// RefreshController exposes the data refresh job over HTTP
type RefreshController struct {
	jobs *services.RefreshJobService
}

// NewRefreshController creates a new refresh controller
func NewRefreshController(jobs *services.RefreshJobService) *RefreshController {
	return &RefreshController{jobs: jobs}
}

// StartRefresh starts a background data refresh run
// POST /api/v1/refresh/start
func (rc *RefreshController) StartRefresh(c *gin.Context) {
	result := rc.jobs.Start()
	if !result.Success {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

// GetRefreshStatus returns the persisted job state verbatim
// GET /api/v1/refresh/status
func (rc *RefreshController) GetRefreshStatus(c *gin.Context) {
	state, err := rc.jobs.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job status"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// ResetRefresh returns a finished job to idle
// POST /api/v1/refresh/reset
func (rc *RefreshController) ResetRefresh(c *gin.Context) {
	result := rc.jobs.Reset()
	if !result.Success {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
