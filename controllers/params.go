package controllers

import (
	"net/http"
	"strconv"

	"facility-backend/apperrors"
	"facility-backend/utils"

	"github.com/gin-gonic/gin"
)

func idParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError(name, "must be a positive integer, got "+strconv.Quote(raw))
	}
	return uint(id), nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

// writeResult answers a best-effort service call: a failure with a partial
// result still carries the result.
func writeResult[T any](c *gin.Context, res *T, err error) {
	switch {
	case err == nil:
		utils.JSONSuccess(c, http.StatusOK, res)
	case res == nil:
		utils.JSONFromError(c, err)
	default:
		utils.JSONPartial(c, res, err)
	}
}
