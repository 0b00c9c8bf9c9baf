package controllers

import (
	"fmt"
	"net/http"

	"facility-backend/services"
	"facility-backend/utils"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MappingController struct {
	MappingSvc *services.MappingService
	StagingSvc *services.StagingService
	EngineSvc  *services.ReconcileService
}

func NewMappingController(
	mappings *services.MappingService,
	staging *services.StagingService,
	engine *services.ReconcileService,
) *MappingController {
	return &MappingController{MappingSvc: mappings, StagingSvc: staging, EngineSvc: engine}
}

type createMappingRequest struct {
	ADepartmentName string `json:"aDepartmentName"`
	BDepartmentName string `json:"bDepartmentName"`
}

// ----------------------------------------------------
// GET /api/mappings
// ----------------------------------------------------

func (ctrl *MappingController) GetMappings(c *gin.Context) {
	mappings, err := ctrl.MappingSvc.List(c.Request.Context())
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, mappings)
}

// ----------------------------------------------------
// POST /api/mappings
// ----------------------------------------------------

func (ctrl *MappingController) CreateMapping(c *gin.Context) {
	var req createMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid mapping payload: "+err.Error())
		return
	}

	m, err := ctrl.MappingSvc.Create(c.Request.Context(), req.ADepartmentName, req.BDepartmentName)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, m)
}

// ----------------------------------------------------
// GET /api/mappings/:id
// ----------------------------------------------------

func (ctrl *MappingController) GetMapping(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	m, err := ctrl.MappingSvc.Get(c.Request.Context(), id)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, m)
}

// ----------------------------------------------------
// DELETE /api/mappings/:id
// ----------------------------------------------------

// DeleteMapping removes the mapping only; staging rows and links it produced stay.
func (ctrl *MappingController) DeleteMapping(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	if err := ctrl.MappingSvc.Delete(c.Request.Context(), id); err != nil {
		utils.JSONFromError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// ----------------------------------------------------
// POST /api/mappings/:id/materialize[?clear=true]
// ----------------------------------------------------

func (ctrl *MappingController) Materialize(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	ctx := c.Request.Context()

	m, err := ctrl.MappingSvc.Get(ctx, id)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	if c.Query("clear") == "true" {
		if res, err := ctrl.StagingSvc.Clear(ctx, id); err != nil {
			writeResult(c, res, err)
			return
		}
	}

	res, err := ctrl.StagingSvc.Materialize(ctx, *m)
	writeResult(c, res, err)
}

// ----------------------------------------------------
// DELETE /api/mappings/:id/staging
// ----------------------------------------------------

func (ctrl *MappingController) ClearStaging(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	res, err := ctrl.StagingSvc.Clear(c.Request.Context(), id)
	writeResult(c, res, err)
}

// ----------------------------------------------------
// GET /api/mappings/:id/staging/export
// ----------------------------------------------------

func (ctrl *MappingController) ExportStaging(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	rows, err := ctrl.StagingSvc.Rows(c.Request.Context(), id)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	data, err := services.StagingWorkbook(rows)
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="staging-mapping-%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ----------------------------------------------------
// POST /api/mappings/:id/link
// ----------------------------------------------------

func (ctrl *MappingController) LinkMapping(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	res, err := ctrl.EngineSvc.LinkDepartments(c.Request.Context(), id)
	writeResult(c, res, err)
}

// ----------------------------------------------------
// DELETE /api/mappings/:id/link
// ----------------------------------------------------

func (ctrl *MappingController) UnlinkMapping(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		utils.JSONFromError(c, err)
		return
	}
	res, err := ctrl.EngineSvc.UnlinkDepartments(c.Request.Context(), id)
	writeResult(c, res, err)
}
