// Package store holds the persistence boundary of the reconciliation core:
// the two inventory tables (owned by the surrounding application, of which
// only the peer columns are written here), the mapping registry, the
// connection ledger, the staging tables and the job history.
package store

import (
	"context"
	"strings"

	"facility-backend/models"

	"golang.org/x/text/cases"
)

// InventoryStore reads one inventory and writes its peer columns.
// Every update is targeted (by id or exact name match) and reports the number
// of rows it touched.
type InventoryStore interface {
	Side() models.Side

	Get(ctx context.Context, id uint) (models.InventoryRecord, error)
	// List returns every row ordered by department, room, id.
	List(ctx context.Context) ([]models.InventoryRecord, error)
	// FindByDepartmentContains matches the department as a case-insensitive substring.
	FindByDepartmentContains(ctx context.Context, fragment string) ([]models.InventoryRecord, error)
	// ListWithPeerDepartment returns rows carrying a peer department whose
	// room no connection names yet, ordered by department, room, id and capped
	// at limit (limit <= 0 means no cap).
	ListWithPeerDepartment(ctx context.Context, limit int) ([]models.InventoryRecord, error)
	// CountConnectedWithPeerDepartment counts the distinct rooms carrying a
	// peer department that some connection already names.
	CountConnectedWithPeerDepartment(ctx context.Context) (int, error)
	ListDepartments(ctx context.Context) ([]string, error)

	SetPeerByID(ctx context.Context, id uint, peer models.PeerRef) (int64, error)
	// ClearPeerByID clears the peer columns of row id if it still points at peerRoomID.
	ClearPeerByID(ctx context.Context, id uint, peerRoomID uint) (int64, error)
	SetPeerByRoom(ctx context.Context, room models.RoomKey, peer models.PeerRef) (int64, error)
	// ClearPeerByRoom clears rows of room whose peer names equal peer.
	ClearPeerByRoom(ctx context.Context, room models.RoomKey, peer models.RoomKey) (int64, error)
	// LinkDepartment sets the peer department on rows of department that carry
	// no room-level link yet.
	LinkDepartment(ctx context.Context, department, peerDepartment string) (int64, error)
	UnlinkDepartment(ctx context.Context, department, peerDepartment string) (int64, error)
	ClearAllPeers(ctx context.Context) (int64, error)
}

type MappingStore interface {
	CreateMapping(ctx context.Context, m *models.DepartmentMapping) error
	// ListMappings orders by A department, B department, id.
	ListMappings(ctx context.Context) ([]models.DepartmentMapping, error)
	GetMapping(ctx context.Context, id uint) (*models.DepartmentMapping, error)
	DeleteMapping(ctx context.Context, id uint) (int64, error)
}

type ConnectionStore interface {
	CreateConnection(ctx context.Context, c *models.RoomConnection) error
	// CreateConnections inserts the whole batch or nothing.
	CreateConnections(ctx context.Context, cs []models.RoomConnection) error
	ListConnections(ctx context.Context) ([]models.RoomConnection, error)
	GetConnection(ctx context.Context, id uint) (*models.RoomConnection, error)
	DeleteConnection(ctx context.Context, id uint) (int64, error)
	DeleteAllConnections(ctx context.Context) (int64, error)
}

type StagingStore interface {
	InsertStaging(ctx context.Context, side models.Side, rows []models.StagingRow) (int64, error)
	ListStaging(ctx context.Context, side models.Side, mappingID uint) ([]models.StagingRow, error)
	ClearStaging(ctx context.Context, side models.Side, mappingID uint) (int64, error)
}

type JobStore interface {
	RecordJob(ctx context.Context, run *models.JobRun) error
	// ListJobs returns the most recent runs first.
	ListJobs(ctx context.Context, limit int) ([]models.JobRun, error)
}

// Store bundles every repository the services need.
type Store interface {
	Inventory(side models.Side) InventoryStore
	MappingStore
	ConnectionStore
	StagingStore
	JobStore
}

// escapeLike escapes LIKE wildcards with '!' which every supported dialect
// accepts in an ESCAPE clause.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// departmentMatcher reports whether a record's department contains fragment
// under Unicode case folding.
func departmentMatcher(fragment string) func(models.InventoryRecord) bool {
	folder := cases.Fold()
	needle := folder.String(fragment)
	return func(rec models.InventoryRecord) bool {
		return strings.Contains(folder.String(rec.Key().Department), needle)
	}
}
