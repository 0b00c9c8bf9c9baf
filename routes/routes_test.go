package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"facility-backend/controllers"
	"facility-backend/jobs"
	"facility-backend/models"
	"facility-backend/services"
	"facility-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sp(s string) *string { return &s }

type testAPI struct {
	router *gin.Engine
	store  *store.MemoryStore
	runner *jobs.Runner
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.NewMemoryStore()
	s.SeedProjector(
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 1", EquipmentName: sp("Стол операционный")},
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 1", EquipmentName: sp("Лампа")},
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 2"},
	)
	s.SeedTurar(models.TurarRoom{Department: "Surgery", Room: "OR-1", ItemName: sp("Operating table")})

	log := zap.NewNop()
	mappings := services.NewMappingService(s, log)
	staging := services.NewStagingService(s, log)
	engine := services.NewReconcileService(s, log, services.EngineOptions{})
	reg := prometheus.NewRegistry()
	runner := jobs.NewRunner(mappings, staging, engine, jobs.NewLocalLocker(), jobs.NewMetrics(reg), log, time.Minute)

	r := SetupRouter(Controllers{
		Mappings:    controllers.NewMappingController(mappings, staging, engine),
		Connections: controllers.NewConnectionController(engine),
		Inventory:   controllers.NewInventoryController(services.NewInventoryService(s)),
		Jobs:        controllers.NewJobController(runner, jobs.NewHistory(s, log)),
	}, []string{"http://localhost:5173"}, reg, log)

	return &testAPI{router: r, store: s, runner: runner}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *testAPI) createMapping(t *testing.T) uint {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/mappings", map[string]string{
		"aDepartmentName": " Хирургия ", "bDepartmentName": "Surgery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m models.DepartmentMapping
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, "Хирургия", m.ADepartmentName)
	return m.ID
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMappingsAPI(t *testing.T) {
	a := newTestAPI(t)

	w, env := a.do(t, http.MethodPost, "/api/mappings", map[string]string{"aDepartmentName": "Хирургия"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "bDepartmentName")

	id := a.createMapping(t)

	w, env = a.do(t, http.MethodGet, "/api/mappings", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list []models.DepartmentMapping
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	w, _ = a.do(t, http.MethodGet, "/api/mappings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = a.do(t, http.MethodGet, "/api/mappings/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = a.do(t, http.MethodPost, "/api/mappings/1/materialize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var mat services.MaterializeResult
	require.NoError(t, json.Unmarshal(env.Data, &mat))
	assert.EqualValues(t, 3, mat.ARowsInserted)
	assert.EqualValues(t, 1, mat.BRowsInserted)

	w, _ = a.do(t, http.MethodGet, "/api/mappings/1/staging/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "staging-mapping-1.xlsx")
	assert.NotZero(t, w.Body.Len())

	w, env = a.do(t, http.MethodDelete, "/api/mappings/1/staging", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var cleared services.ClearStagingResult
	require.NoError(t, json.Unmarshal(env.Data, &cleared))
	assert.EqualValues(t, 3, cleared.ARowsDeleted)

	w, _ = a.do(t, http.MethodDelete, "/api/mappings/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(t, http.MethodDelete, "/api/mappings/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.EqualValues(t, 1, id)
}

func TestMaterializeReportsPartialFailure(t *testing.T) {
	a := newTestAPI(t)
	id := a.createMapping(t)
	a.store.InjectFault("turar.InsertStaging", assert.AnError)

	w, env := a.do(t, http.MethodPost, "/api/mappings/1/materialize", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	var mat services.MaterializeResult
	require.NoError(t, json.Unmarshal(env.Data, &mat))
	assert.Equal(t, id, mat.MappingID)
	assert.EqualValues(t, 3, mat.ARowsInserted)
	require.Len(t, mat.Steps, 2)
	assert.Empty(t, mat.Steps[0].Error)
	assert.Equal(t, "insert turar staging rows", mat.Steps[1].Step)
	assert.NotEmpty(t, mat.Steps[1].Error)
}

func TestLinkJobsAndConnections(t *testing.T) {
	a := newTestAPI(t)
	a.createMapping(t)

	w, env := a.do(t, http.MethodPost, "/api/mappings/1/link", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var link services.DepartmentLinkResult
	require.NoError(t, json.Unmarshal(env.Data, &link))
	assert.EqualValues(t, 3, link.RowsA)
	assert.EqualValues(t, 1, link.RowsB)

	w, env = a.do(t, http.MethodPost, "/api/jobs/discover", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep struct {
		Status  string                    `json:"status"`
		Summary services.DiscoverySummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, "succeeded", rep.Status)
	assert.Equal(t, 1, rep.Summary.Created)

	w, env = a.do(t, http.MethodPost, "/api/jobs/discover", map[string]int{"limit": 5})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, 0, rep.Summary.Created)
	assert.Equal(t, 1, rep.Summary.SkippedExisting)

	w, env = a.do(t, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []models.JobRun
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	assert.Len(t, runs, 2)

	w, env = a.do(t, http.MethodGet, "/api/connections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conns []models.RoomConnection
	require.NoError(t, json.Unmarshal(env.Data, &conns))
	require.Len(t, conns, 1)
	assert.Equal(t, models.SourceAuto, conns[0].Source)

	w, env = a.do(t, http.MethodGet, "/api/inventory/projector?department="+url.QueryEscape("хирург"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []services.RoomView
	require.NoError(t, json.Unmarshal(env.Data, &rooms))
	require.Len(t, rooms, 3)
	assert.Equal(t, services.LinkDepartment, rooms[2].Link)

	w, env = a.do(t, http.MethodPost, "/api/connections/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reset services.ResetSummary
	require.NoError(t, json.Unmarshal(env.Data, &reset))
	assert.EqualValues(t, 1, reset.DeletedConnections)
	assert.EqualValues(t, 3, reset.CleanedA)

	w, _ = a.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `facility_job_runs_total{kind="discover",status="succeeded"} 2`)
}

func TestConnectionsAPI(t *testing.T) {
	a := newTestAPI(t)

	w, env := a.do(t, http.MethodPost, "/api/connections", map[string]any{
		"aDepartmentName": "Хирургия", "aRoomName": "Операционная 2", "bDepartmentName": "Surgery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "bRoomName")

	w, env = a.do(t, http.MethodPost, "/api/connections", map[string]any{
		"aDepartmentName": "Хирургия", "aRoomName": "Операционная 2",
		"bDepartmentName": "Surgery", "bRoomName": "OR-1",
		"aRoomId": 3, "bRoomId": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created services.ConnectionResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotZero(t, created.Connection.ID)

	rec, err := a.store.Inventory(models.SideB).Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Операционная 2", *rec.Peer().Room)

	w, env = a.do(t, http.MethodGet, "/api/connections/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report services.VerifyReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.Drifted)

	w, env = a.do(t, http.MethodDelete, "/api/connections/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var del services.DeleteConnectionResult
	require.NoError(t, json.Unmarshal(env.Data, &del))
	assert.True(t, del.Deleted)

	w, env = a.do(t, http.MethodDelete, "/api/connections/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &del))
	assert.False(t, del.Deleted)
}

func TestJobsAPI_Errors(t *testing.T) {
	a := newTestAPI(t)

	w, _ := a.do(t, http.MethodPost, "/api/jobs/compact", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/jobs?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	lease, err := a.runner.Lock.Acquire(context.Background(), jobs.LockKey, time.Minute)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	w, env := a.do(t, http.MethodPost, "/api/jobs/materialize", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"busy"`)
}

func TestInventoryAPI_BadSide(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodGet, "/api/inventory/c", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := a.do(t, http.MethodGet, "/api/inventory/b/departments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Surgery"]`, string(env.Data))
}
