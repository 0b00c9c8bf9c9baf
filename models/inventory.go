package models

import (
	"strings"
	"time"
)

// Side names one of the two inventories being reconciled.
type Side string

const (
	// SideA is the design-stage ("projector") inventory.
	SideA Side = "projector"
	// SideB is the procurement-stage ("turar") inventory.
	SideB Side = "turar"
)

// Other returns the opposite inventory.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// ParseSide accepts "a"/"b" as well as the inventory names.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a", string(SideA):
		return SideA, true
	case "b", string(SideB):
		return SideB, true
	}
	return "", false
}

// RoomKey identifies a room by name within one inventory.
type RoomKey struct {
	Department string `json:"departmentName"`
	Room       string `json:"roomName"`
}

// PeerRef is the denormalized "connected to" cache carried by an inventory row.
type PeerRef struct {
	RoomID     *uint   `json:"connectedPeerRoomId,omitempty"`
	Department *string `json:"connectedPeerDepartmentName,omitempty"`
	Room       *string `json:"connectedPeerRoomName,omitempty"`
}

func (p PeerRef) IsZero() bool {
	return p.RoomID == nil && p.Department == nil && p.Room == nil
}

// EquipmentLine is the equipment part of an inventory row.
type EquipmentLine struct {
	RoomCode      *string  `json:"roomCode,omitempty"`
	Area          *float64 `json:"area,omitempty"`
	EquipmentCode *string  `json:"equipmentCode,omitempty"`
	EquipmentName *string  `json:"equipmentName,omitempty"`
	Quantity      *float64 `json:"quantity,omitempty"`
	Unit          *string  `json:"unit,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

// InventoryRecord is the accessor set shared by both inventory tables.
// The two tables name their columns differently; reconciliation code is
// written against this interface only.
type InventoryRecord interface {
	Side() Side
	RecordID() uint
	Key() RoomKey
	Peer() PeerRef
	Line() EquipmentLine
}

// InventoryColumns maps the shared concepts onto one table's column names.
type InventoryColumns struct {
	Table          string
	Department     string
	Room           string
	PeerRoomID     string
	PeerDepartment string
	PeerRoom       string
	// room_connections columns naming this inventory's room
	LedgerDepartment string
	LedgerRoom       string
}

var ProjectorColumns = InventoryColumns{
	Table:          "projector_rooms",
	Department:     "department_name",
	Room:           "room_name",
	PeerRoomID:     "connected_turar_room_id",
	PeerDepartment: "connected_turar_department",
	PeerRoom:       "connected_turar_room",

	LedgerDepartment: "projector_department",
	LedgerRoom:       "projector_room",
}

var TurarColumns = InventoryColumns{
	Table:          "turar_rooms",
	Department:     "department",
	Room:           "room",
	PeerRoomID:     "connected_projector_room_id",
	PeerDepartment: "connected_projector_department",
	PeerRoom:       "connected_projector_room",

	LedgerDepartment: "turar_department",
	LedgerRoom:       "turar_room",
}

// ColumnsFor returns the column layout of the given inventory.
func ColumnsFor(side Side) InventoryColumns {
	if side == SideB {
		return TurarColumns
	}
	return ProjectorColumns
}

// ProjectorRoom is one equipment line of the design inventory (A).
// Several rows share a (DepartmentName, RoomName) pair.
type ProjectorRoom struct {
	ID             uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	DepartmentName string   `gorm:"column:department_name;type:varchar(255);index" json:"departmentName"`
	RoomName       string   `gorm:"column:room_name;type:varchar(255);index" json:"roomName"`
	RoomCode       *string  `gorm:"column:room_code;type:varchar(100)" json:"roomCode,omitempty"`
	Area           *float64 `gorm:"column:area" json:"area,omitempty"`
	EquipmentCode  *string  `gorm:"column:equipment_code;type:varchar(100)" json:"equipmentCode,omitempty"`
	EquipmentName  *string  `gorm:"column:equipment_name;type:varchar(500)" json:"equipmentName,omitempty"`
	Quantity       *float64 `gorm:"column:quantity" json:"quantity,omitempty"`
	Unit           *string  `gorm:"column:unit;type:varchar(50)" json:"unit,omitempty"`
	Notes          *string  `gorm:"column:notes;type:text" json:"notes,omitempty"`

	// written only by the reconciliation engine
	ConnectedTurarRoomID     *uint   `gorm:"column:connected_turar_room_id;index" json:"connectedTurarRoomId,omitempty"`
	ConnectedTurarDepartment *string `gorm:"column:connected_turar_department;type:varchar(255)" json:"connectedTurarDepartment,omitempty"`
	ConnectedTurarRoom       *string `gorm:"column:connected_turar_room;type:varchar(255)" json:"connectedTurarRoom,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ProjectorRoom) TableName() string {
	return ProjectorColumns.Table
}

func (r *ProjectorRoom) Side() Side { return SideA }
func (r *ProjectorRoom) RecordID() uint { return r.ID }
func (r *ProjectorRoom) Key() RoomKey { return RoomKey{Department: r.DepartmentName, Room: r.RoomName} }
func (r *ProjectorRoom) Line() EquipmentLine {
	return EquipmentLine{
		RoomCode:      r.RoomCode,
		Area:          r.Area,
		EquipmentCode: r.EquipmentCode,
		EquipmentName: r.EquipmentName,
		Quantity:      r.Quantity,
		Unit:          r.Unit,
		Notes:         r.Notes,
	}
}

func (r *ProjectorRoom) Peer() PeerRef {
	return PeerRef{
		RoomID:     r.ConnectedTurarRoomID,
		Department: r.ConnectedTurarDepartment,
		Room:       r.ConnectedTurarRoom,
	}
}

// TurarRoom is one equipment line of the procurement inventory (B).
type TurarRoom struct {
	ID         uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	Department string   `gorm:"column:department;type:varchar(255);index" json:"department"`
	Room       string   `gorm:"column:room;type:varchar(255);index" json:"room"`
	RoomCode   *string  `gorm:"column:room_code;type:varchar(100)" json:"roomCode,omitempty"`
	Area       *float64 `gorm:"column:area" json:"area,omitempty"`
	ItemCode   *string  `gorm:"column:item_code;type:varchar(100)" json:"itemCode,omitempty"`
	ItemName   *string  `gorm:"column:item_name;type:varchar(500)" json:"itemName,omitempty"`
	Count      *float64 `gorm:"column:count" json:"count,omitempty"`
	Unit       *string  `gorm:"column:unit;type:varchar(50)" json:"unit,omitempty"`
	Comment    *string  `gorm:"column:comment;type:text" json:"comment,omitempty"`

	ConnectedProjectorRoomID     *uint   `gorm:"column:connected_projector_room_id;index" json:"connectedProjectorRoomId,omitempty"`
	ConnectedProjectorDepartment *string `gorm:"column:connected_projector_department;type:varchar(255)" json:"connectedProjectorDepartment,omitempty"`
	ConnectedProjectorRoom       *string `gorm:"column:connected_projector_room;type:varchar(255)" json:"connectedProjectorRoom,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TurarRoom) TableName() string {
	return TurarColumns.Table
}

func (r *TurarRoom) Side() Side { return SideB }
func (r *TurarRoom) RecordID() uint { return r.ID }
func (r *TurarRoom) Key() RoomKey { return RoomKey{Department: r.Department, Room: r.Room} }
func (r *TurarRoom) Line() EquipmentLine {
	return EquipmentLine{
		RoomCode:      r.RoomCode,
		Area:          r.Area,
		EquipmentCode: r.ItemCode,
		EquipmentName: r.ItemName,
		Quantity:      r.Count,
		Unit:          r.Unit,
		Notes:         r.Comment,
	}
}

func (r *TurarRoom) Peer() PeerRef {
	return PeerRef{
		RoomID:     r.ConnectedProjectorRoomID,
		Department: r.ConnectedProjectorDepartment,
		Room:       r.ConnectedProjectorRoom,
	}
}

// RecordView is the JSON shape of an inventory row independent of its table.
type RecordView struct {
	ID   uint `json:"id"`
	Side Side `json:"side"`
	RoomKey
	EquipmentLine
	PeerRef
	Connected bool `json:"connected"`
}

// ViewOf flattens any inventory record into a RecordView.
func ViewOf(rec InventoryRecord) RecordView {
	peer := rec.Peer()
	return RecordView{
		ID:            rec.RecordID(),
		Side:          rec.Side(),
		RoomKey:       rec.Key(),
		EquipmentLine: rec.Line(),
		PeerRef:       peer,
		Connected:     peer.RoomID != nil || peer.Room != nil,
	}
}

// SetPeer overwrites the peer columns of the row.
func (r *ProjectorRoom) SetPeer(p PeerRef) {
	r.ConnectedTurarRoomID = p.RoomID
	r.ConnectedTurarDepartment = p.Department
	r.ConnectedTurarRoom = p.Room
}

// SetPeer overwrites the peer columns of the row.
func (r *TurarRoom) SetPeer(p PeerRef) {
	r.ConnectedProjectorRoomID = p.RoomID
	r.ConnectedProjectorDepartment = p.Department
	r.ConnectedProjectorRoom = p.Room
}
