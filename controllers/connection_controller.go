package controllers

import (
	"net/http"

	"facility-backend/services"
	"facility-backend/utils"

	"github.com/gin-gonic/gin"
)

type ConnectionController struct {
	EngineSvc *services.ReconcileService
}

func NewConnectionController(engine *services.ReconcileService) *ConnectionController {
	return &ConnectionController{EngineSvc: engine}
}

// GetConnections (GET /api/connections)
func (ctrl *ConnectionController) GetConnections(c *gin.Context) {
	conns, err := ctrl.EngineSvc.ListConnections(c.Request.Context())
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, conns)
}

// CreateConnection (POST /api/connections)
// The connection row exists as soon as the response carries it, even when a
// peer update failed (500 with the step outcomes).
func (ctrl *ConnectionController) CreateConnection(c *gin.Context) {
	var req services.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid connection payload: "+err.Error())
		return
	}

	res, err := ctrl.EngineSvc.CreateConnection(c.Request.Context(), req)
	switch {
	case err == nil:
		utils.JSONSuccess(c, http.StatusCreated, res)
	case res == nil:
		utils.JSONFromError(c, err)
	default:
		utils.JSONPartial(c, res, err)
	}
}

// DeleteConnection (DELETE /api/connections/:id)
// An unknown id answers 200 with deleted=false.
func (ctrl *ConnectionController) DeleteConnection(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	res, err := ctrl.EngineSvc.DeleteConnection(c.Request.Context(), id)
	writeResult(c, res, err)
}

// ResetConnections (POST /api/connections/reset)
func (ctrl *ConnectionController) ResetConnections(c *gin.Context) {
	res, err := ctrl.EngineSvc.ResetAll(c.Request.Context())
	writeResult(c, res, err)
}

// VerifyConnections (GET /api/connections/verify)
func (ctrl *ConnectionController) VerifyConnections(c *gin.Context) {
	report, err := ctrl.EngineSvc.VerifyConnections(c.Request.Context())
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, report)
}
