package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"facility-backend/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.NewValidationError("aRoomName", "required"), http.StatusBadRequest},
		{apperrors.NewNotFoundError("mapping", 7), http.StatusNotFound},
		{apperrors.ErrBusy, http.StatusConflict},
		{apperrors.NewPersistenceError("list mappings", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestJSONFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSONFromError(c, apperrors.NewNotFoundError("connection", 3))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "connection with ID 3 not found", body["error"])
	assert.Len(t, c.Errors, 1)
}
