package utils

import (
	"errors"
	"net/http"

	"facility-backend/apperrors"

	"github.com/gin-gonic/gin"
)

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func JSONError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

// StatusFor maps a service error onto its HTTP status.
func StatusFor(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrBusy):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// JSONFromError writes err with the status StatusFor picks.
func JSONFromError(c *gin.Context, err error) {
	_ = c.Error(err)
	JSONError(c, StatusFor(err), err.Error())
}

// JSONPartial answers a best-effort operation: the body carries what was done
// and the error of the steps that failed.
func JSONPartial(c *gin.Context, data interface{}, err error) {
	_ = c.Error(err)
	c.JSON(StatusFor(err), gin.H{"success": false, "data": data, "error": err.Error()})
}
