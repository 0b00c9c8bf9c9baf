package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"facility-backend/apperrors"
	"facility-backend/models"
	"facility-backend/store"

	"go.uber.org/zap"
)

const (
	DefaultDiscoveryLimit        = 200
	DefaultDiscoveryBatchCeiling = 500
)

// reconcileStore is what the engine needs from storage.
type reconcileStore interface {
	Inventory(side models.Side) store.InventoryStore
	store.MappingStore
	store.ConnectionStore
}

type EngineOptions struct {
	// DiscoveryLimit caps the connections queued by one discovery run.
	DiscoveryLimit int
	// DiscoveryBatchCeiling caps the linked A rows read by one discovery run.
	DiscoveryBatchCeiling int
}

// ReconcileService is the reconciliation engine. It owns the connection
// ledger and is the only writer of the peer columns of both inventories.
type ReconcileService struct {
	Store reconcileStore
	Log   *zap.Logger
	Opts  EngineOptions
}

func NewReconcileService(s reconcileStore, log *zap.Logger, opts EngineOptions) *ReconcileService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DiscoveryLimit <= 0 {
		opts.DiscoveryLimit = DefaultDiscoveryLimit
	}
	if opts.DiscoveryBatchCeiling <= 0 {
		opts.DiscoveryBatchCeiling = DefaultDiscoveryBatchCeiling
	}
	return &ReconcileService{Store: s, Log: log, Opts: opts}
}

// ---------------- auto discovery ----------------

type DiscoverySummary struct {
	Created               int `json:"created"`
	SkippedExisting       int `json:"skippedExisting"`
	Unmatched             int `json:"unmatched"`
	TotalARoomsConsidered int `json:"totalARoomsConsidered"`
	TotalBRoomsAvailable  int `json:"totalBRoomsAvailable"`
}

// AutoDiscoverConnections turns department-level links on inventory A into
// room-level connections. limit <= 0 uses the configured default. The queued
// connections are inserted in one statement; if that fails nothing is created.
func (s *ReconcileService) AutoDiscoverConnections(ctx context.Context, limit int) (*DiscoverySummary, error) {
	if limit <= 0 {
		limit = s.Opts.DiscoveryLimit
	}

	conns, err := s.Store.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	idx := NewConnectionIndex(conns)

	// connected rooms stay out of the batch so the ceiling always covers
	// rooms that still need a pairing
	aInv := s.Store.Inventory(models.SideA)
	aRecs, err := aInv.ListWithPeerDepartment(ctx, s.Opts.DiscoveryBatchCeiling)
	if err != nil {
		return nil, err
	}
	connected, err := aInv.CountConnectedWithPeerDepartment(ctx)
	if err != nil {
		return nil, err
	}
	bRecs, err := s.Store.Inventory(models.SideB).List(ctx)
	if err != nil {
		return nil, err
	}

	plan := PlanDiscovery(idx, aRecs, bRecs, limit)
	sum := &DiscoverySummary{
		SkippedExisting:       connected + plan.SkippedExisting,
		Unmatched:             plan.Unmatched,
		TotalARoomsConsidered: connected + plan.TotalARoomsConsidered,
		TotalBRoomsAvailable:  plan.TotalBRoomsAvailable,
	}

	if err := s.Store.CreateConnections(ctx, plan.Connections); err != nil {
		s.Log.Error("auto discovery insert failed",
			zap.Int("queued", len(plan.Connections)),
			zap.Error(err))
		return sum, apperrors.NewPersistenceError("auto discover connections", err)
	}
	sum.Created = len(plan.Connections)

	s.Log.Info("auto discovery finished",
		zap.Int("existing", idx.Len()),
		zap.Int("created", sum.Created),
		zap.Int("skipped_existing", sum.SkippedExisting),
		zap.Int("unmatched", sum.Unmatched),
		zap.Int("a_rooms", sum.TotalARoomsConsidered),
		zap.Int("b_rooms", sum.TotalBRoomsAvailable),
		zap.Int("limit", limit))
	return sum, nil
}

// ---------------- manual connections ----------------

type ConnectionRequest struct {
	ADepartmentName string `json:"aDepartmentName"`
	ARoomName       string `json:"aRoomName"`
	BDepartmentName string `json:"bDepartmentName"`
	BRoomName       string `json:"bRoomName"`
	ARoomID         *uint  `json:"aRoomId,omitempty"`
	BRoomID         *uint  `json:"bRoomId,omitempty"`
}

func (r *ConnectionRequest) normalize() {
	r.ADepartmentName = strings.TrimSpace(r.ADepartmentName)
	r.ARoomName = strings.TrimSpace(r.ARoomName)
	r.BDepartmentName = strings.TrimSpace(r.BDepartmentName)
	r.BRoomName = strings.TrimSpace(r.BRoomName)
}

func (r ConnectionRequest) roomOn(side models.Side) models.RoomKey {
	if side == models.SideB {
		return models.RoomKey{Department: r.BDepartmentName, Room: r.BRoomName}
	}
	return models.RoomKey{Department: r.ADepartmentName, Room: r.ARoomName}
}

func (r ConnectionRequest) idOn(side models.Side) *uint {
	if side == models.SideB {
		return r.BRoomID
	}
	return r.ARoomID
}

type ConnectionResult struct {
	Connection models.RoomConnection `json:"connection"`
	Steps      Steps                 `json:"steps"`
}

// validate checks the request before anything is written.
func (s *ReconcileService) validate(ctx context.Context, req ConnectionRequest) error {
	for _, f := range []struct{ name, value string }{
		{"aDepartmentName", req.ADepartmentName},
		{"aRoomName", req.ARoomName},
		{"bDepartmentName", req.BDepartmentName},
		{"bRoomName", req.BRoomName},
	} {
		if f.value == "" {
			return apperrors.NewValidationError(f.name, "is required")
		}
	}

	for _, side := range []models.Side{models.SideA, models.SideB} {
		id := req.idOn(side)
		if id == nil {
			continue
		}
		field := "aRoomId"
		if side == models.SideB {
			field = "bRoomId"
		}
		rec, err := s.Store.Inventory(side).Get(ctx, *id)
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError(field, fmt.Sprintf("no %s room with id %d", side, *id))
		}
		if err != nil {
			return err
		}
		if rec.Key() != req.roomOn(side) {
			return apperrors.NewValidationError(field, fmt.Sprintf(
				"%s room %d is %q / %q", side, *id, rec.Key().Department, rec.Key().Room))
		}
	}
	return nil
}

// CreateConnection records a connection between one A-room and one B-room and
// then mirrors it into the peer columns. With both room ids the two rows are
// updated by id concurrently; otherwise every equipment line of each room is
// updated by name. Peer updates are best effort: a failure is reported with
// the per-step outcome but the connection row stays.
func (s *ReconcileService) CreateConnection(ctx context.Context, req ConnectionRequest) (*ConnectionResult, error) {
	req.normalize()
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	conn := models.RoomConnection{
		ADepartmentName: req.ADepartmentName,
		ARoomName:       req.ARoomName,
		BDepartmentName: req.BDepartmentName,
		BRoomName:       req.BRoomName,
		ARoomID:         req.ARoomID,
		BRoomID:         req.BRoomID,
		Source:          models.SourceManual,
	}
	if err := s.Store.CreateConnection(ctx, &conn); err != nil {
		return nil, err
	}

	res := &ConnectionResult{Connection: conn}
	if conn.HasRoomIDs() {
		res.Steps = s.linkByID(ctx, conn)
	} else {
		res.Steps = s.linkByName(ctx, conn)
	}

	log := s.Log.With(zap.Uint("connection_id", conn.ID))
	if err := res.Steps.Err("create connection side effects"); err != nil {
		log.Warn("connection created with stale peer fields",
			zap.Strings("failed_steps", res.Steps.Failed()),
			zap.Error(err))
		return res, err
	}
	log.Info("connection created",
		zap.String("a_department", conn.ADepartmentName),
		zap.String("a_room", conn.ARoomName),
		zap.String("b_department", conn.BDepartmentName),
		zap.String("b_room", conn.BRoomName),
		zap.Bool("by_id", conn.HasRoomIDs()))
	return res, nil
}

func peerOf(c models.RoomConnection, side models.Side) models.PeerRef {
	other := side.Other()
	key := c.RoomOn(other)
	return models.PeerRef{
		RoomID:     c.RoomIDOn(other),
		Department: &key.Department,
		Room:       &key.Room,
	}
}

func (s *ReconcileService) linkByID(ctx context.Context, c models.RoomConnection) Steps {
	sides := []models.Side{models.SideA, models.SideB}
	rows := make([]int64, len(sides))
	errs := make([]error, len(sides))

	var wg sync.WaitGroup
	for i, side := range sides {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows[i], errs[i] = s.Store.Inventory(side).SetPeerByID(ctx, *c.RoomIDOn(side), peerOf(c, side))
		}()
	}
	wg.Wait()

	var steps Steps
	for i, side := range sides {
		steps.Record("set "+string(side)+" peer by id", rows[i], errs[i])
	}
	return steps
}

func (s *ReconcileService) linkByName(ctx context.Context, c models.RoomConnection) Steps {
	var steps Steps
	for _, side := range []models.Side{models.SideA, models.SideB} {
		n, err := s.Store.Inventory(side).SetPeerByRoom(ctx, c.RoomOn(side), peerOf(c, side))
		steps.Record("set "+string(side)+" peer by name", n, err)
	}
	return steps
}

type DeleteConnectionResult struct {
	Deleted bool  `json:"deleted"`
	Steps   Steps `json:"steps,omitempty"`
}

// DeleteConnection clears the peer columns the connection put in place and
// removes it. Deleting an absent connection succeeds without doing anything.
// The row is removed even when clearing a side fails.
func (s *ReconcileService) DeleteConnection(ctx context.Context, id uint) (*DeleteConnectionResult, error) {
	conn, err := s.Store.GetConnection(ctx, id)
	if apperrors.IsNotFound(err) {
		return &DeleteConnectionResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	res := &DeleteConnectionResult{}
	for _, side := range []models.Side{models.SideA, models.SideB} {
		inv := s.Store.Inventory(side)
		if conn.HasRoomIDs() {
			n, err := inv.ClearPeerByID(ctx, *conn.RoomIDOn(side), *conn.RoomIDOn(side.Other()))
			res.Steps.Record("clear "+string(side)+" peer by id", n, err)
		} else {
			n, err := inv.ClearPeerByRoom(ctx, conn.RoomOn(side), conn.RoomOn(side.Other()))
			res.Steps.Record("clear "+string(side)+" peer by name", n, err)
		}
	}
	n, err := s.Store.DeleteConnection(ctx, id)
	res.Deleted = res.Steps.Record("delete connection", n, err) > 0

	log := s.Log.With(zap.Uint("connection_id", id))
	if err := res.Steps.Err("delete connection"); err != nil {
		log.Warn("connection delete incomplete",
			zap.Bool("deleted", res.Deleted),
			zap.Strings("failed_steps", res.Steps.Failed()),
			zap.Error(err))
		return res, err
	}
	log.Info("connection deleted")
	return res, nil
}

func (s *ReconcileService) ListConnections(ctx context.Context) ([]models.RoomConnection, error) {
	return s.Store.ListConnections(ctx)
}

// ---------------- reset ----------------

type ResetSummary struct {
	DeletedConnections int64 `json:"deletedConnections"`
	CleanedA           int64 `json:"cleanedA"`
	CleanedB           int64 `json:"cleanedB"`
	Steps              Steps `json:"steps,omitempty"`
}

// ResetAll deletes every connection and clears the peer columns of both
// inventories. The three steps run regardless of each other's outcome.
// Running it on a clean state reports zero everywhere.
func (s *ReconcileService) ResetAll(ctx context.Context) (*ResetSummary, error) {
	sum := &ResetSummary{}

	n, err := s.Store.DeleteAllConnections(ctx)
	sum.DeletedConnections = sum.Steps.Record("delete all connections", n, err)
	n, err = s.Store.Inventory(models.SideA).ClearAllPeers(ctx)
	sum.CleanedA = sum.Steps.Record("clear projector peers", n, err)
	n, err = s.Store.Inventory(models.SideB).ClearAllPeers(ctx)
	sum.CleanedB = sum.Steps.Record("clear turar peers", n, err)

	fields := []zap.Field{
		zap.Int64("deleted_connections", sum.DeletedConnections),
		zap.Int64("cleaned_a", sum.CleanedA),
		zap.Int64("cleaned_b", sum.CleanedB),
	}
	if err := sum.Steps.Err("reset all"); err != nil {
		s.Log.Error("reset incomplete", append(fields, zap.Error(err))...)
		return sum, err
	}
	s.Log.Info("reset finished", fields...)
	return sum, nil
}

// ---------------- department links ----------------

type DepartmentLinkResult struct {
	MappingID uint  `json:"mappingId"`
	RowsA     int64 `json:"rowsA"`
	RowsB     int64 `json:"rowsB"`
	Steps     Steps `json:"steps"`
}

// LinkDepartments writes the peer department of a mapping onto every row of
// its departments (exact name) that has no room-level link yet, on both
// sides. This is the coarse link auto discovery starts from.
func (s *ReconcileService) LinkDepartments(ctx context.Context, mappingID uint) (*DepartmentLinkResult, error) {
	m, err := s.Store.GetMapping(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	res := &DepartmentLinkResult{MappingID: m.ID}
	for _, side := range []models.Side{models.SideA, models.SideB} {
		n, err := s.Store.Inventory(side).LinkDepartment(ctx, m.DepartmentFor(side), m.DepartmentFor(side.Other()))
		n = res.Steps.Record("link "+string(side)+" department", n, err)
		res.setRows(side, n)
	}
	return res, s.finishLink(res, "link departments")
}

// UnlinkDepartments undoes LinkDepartments. Rows that gained a room-level
// link since keep their peer fields.
func (s *ReconcileService) UnlinkDepartments(ctx context.Context, mappingID uint) (*DepartmentLinkResult, error) {
	m, err := s.Store.GetMapping(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	res := &DepartmentLinkResult{MappingID: m.ID}
	for _, side := range []models.Side{models.SideA, models.SideB} {
		n, err := s.Store.Inventory(side).UnlinkDepartment(ctx, m.DepartmentFor(side), m.DepartmentFor(side.Other()))
		n = res.Steps.Record("unlink "+string(side)+" department", n, err)
		res.setRows(side, n)
	}
	return res, s.finishLink(res, "unlink departments")
}

func (r *DepartmentLinkResult) setRows(side models.Side, n int64) {
	if side == models.SideB {
		r.RowsB = n
	} else {
		r.RowsA = n
	}
}

func (s *ReconcileService) finishLink(res *DepartmentLinkResult, op string) error {
	log := s.Log.With(
		zap.Uint("mapping_id", res.MappingID),
		zap.Int64("rows_a", res.RowsA),
		zap.Int64("rows_b", res.RowsB))
	if err := res.Steps.Err(op); err != nil {
		log.Warn(op+" incomplete", zap.Error(err))
		return err
	}
	log.Info(op)
	return nil
}

// ---------------- verification ----------------

type ConnectionDrift struct {
	ConnectionID uint            `json:"connectionId"`
	Side         models.Side     `json:"side"`
	RoomID       uint            `json:"roomId"`
	Expected     models.RoomKey  `json:"expected"`
	Actual       *models.RoomKey `json:"actual,omitempty"`
	Reason       string          `json:"reason"`
}

type VerifyReport struct {
	Checked   int               `json:"checked"`
	Unchecked int               `json:"unchecked"`
	Drifted   []ConnectionDrift `json:"drifted"`
}

// VerifyConnections checks that every connection carrying room ids still
// names the rooms those ids point at. Name-only connections are counted as
// unchecked.
func (s *ReconcileService) VerifyConnections(ctx context.Context) (*VerifyReport, error) {
	conns, err := s.Store.ListConnections(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{Drifted: []ConnectionDrift{}}
	for _, c := range conns {
		if !c.HasRoomIDs() {
			report.Unchecked++
			continue
		}
		report.Checked++
		for _, side := range []models.Side{models.SideA, models.SideB} {
			id := *c.RoomIDOn(side)
			drift := ConnectionDrift{ConnectionID: c.ID, Side: side, RoomID: id, Expected: c.RoomOn(side)}

			rec, err := s.Store.Inventory(side).Get(ctx, id)
			if apperrors.IsNotFound(err) {
				drift.Reason = "room no longer exists"
				report.Drifted = append(report.Drifted, drift)
				continue
			}
			if err != nil {
				return nil, err
			}
			if actual := rec.Key(); actual != drift.Expected {
				drift.Actual = &actual
				drift.Reason = "room was renamed"
				report.Drifted = append(report.Drifted, drift)
			}
		}
	}

	if len(report.Drifted) > 0 {
		s.Log.Warn("connections drifted from inventory",
			zap.Int("checked", report.Checked),
			zap.Int("drifted", len(report.Drifted)))
	}
	return report, nil
}
