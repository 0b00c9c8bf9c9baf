package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobRun is the recorded outcome of one bulk job execution.
type JobRun struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Kind       string         `gorm:"column:kind;type:varchar(32);index" json:"kind"`
	Status     string         `gorm:"column:status;type:varchar(16)" json:"status"`
	StartedAt  time.Time      `gorm:"column:started_at;index" json:"startedAt"`
	FinishedAt time.Time      `gorm:"column:finished_at" json:"finishedAt"`
	Summary    datatypes.JSON `gorm:"column:summary" json:"summary,omitempty"`
	Error      string         `gorm:"column:error;type:text" json:"error,omitempty"`
}

func (JobRun) TableName() string {
	return "job_runs"
}
