package models

import "time"

// DepartmentMapping asserts that a department of inventory A is the same
// place as a department of inventory B. Pairs are not unique.
type DepartmentMapping struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ADepartmentName string    `gorm:"column:projector_department;type:varchar(255);not null;index" json:"aDepartmentName"`
	BDepartmentName string    `gorm:"column:turar_department;type:varchar(255);not null;index" json:"bDepartmentName"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (DepartmentMapping) TableName() string {
	return "department_mappings"
}

// DepartmentFor returns the mapping's department name on the given side.
func (m DepartmentMapping) DepartmentFor(side Side) string {
	if side == SideB {
		return m.BDepartmentName
	}
	return m.ADepartmentName
}
