package controllers

import (
	"net/http"
	"strings"

	"facility-backend/apperrors"
	"facility-backend/models"
	"facility-backend/services"
	"facility-backend/utils"

	"github.com/gin-gonic/gin"
)

type InventoryController struct {
	InventorySvc *services.InventoryService
}

func NewInventoryController(svc *services.InventoryService) *InventoryController {
	return &InventoryController{InventorySvc: svc}
}

func sideParam(c *gin.Context) (models.Side, error) {
	side, ok := models.ParseSide(c.Param("side"))
	if !ok {
		return "", apperrors.NewValidationError("side", "must be projector, turar, a or b")
	}
	return side, nil
}

// GetRooms (GET /api/inventory/:side[?department=...])
func (ctrl *InventoryController) GetRooms(c *gin.Context) {
	side, err := sideParam(c)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	rooms, err := ctrl.InventorySvc.Rooms(c.Request.Context(), side, strings.TrimSpace(c.Query("department")))
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rooms)
}

// GetDepartments (GET /api/inventory/:side/departments)
func (ctrl *InventoryController) GetDepartments(c *gin.Context) {
	side, err := sideParam(c)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	depts, err := ctrl.InventorySvc.Departments(c.Request.Context(), side)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, depts)
}
