package models

import (
	"time"

	"gorm.io/gorm"
)

// RunStatus represents the state of a recording run in the ledger
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Stage is a step of the recording pipeline
type Stage string

const (
	StageNotifyStart  Stage = "notify_start"
	StageCapture      Stage = "capture"
	StageStitch       Stage = "stitch"
	StageUpload       Stage = "upload"
	StageNotifyFinish Stage = "notify_finish"
	StageEnforce      Stage = "enforce"
	StageDone         Stage = "done"
)

// Run is the ledger row written for every record invocation
type Run struct {
	gorm.Model
	RunID        string     `json:"run_id" gorm:"uniqueIndex;not null"`
	SeriesName   string     `json:"series_name" gorm:"not null;index:idx_runs_series_started"`
	Container    string     `json:"container"`
	FileName     string     `json:"file_name"`
	Status       RunStatus  `json:"status" gorm:"default:'running';index"`
	Stage        Stage      `json:"stage"`
	Fragments    int        `json:"fragments" gorm:"default:0"`
	Bytes        int64      `json:"bytes" gorm:"default:0"`
	EmptyCapture bool       `json:"empty_capture" gorm:"default:false"`
	Deleted      int        `json:"deleted" gorm:"default:0"`
	ErrorCode    string     `json:"error_code,omitempty"`
	Error        string     `json:"error,omitempty" gorm:"type:text"`
	StartedAt    time.Time  `json:"started_at" gorm:"index:idx_runs_series_started"`
	FinishedAt   *time.Time `json:"finished_at"`
}

// IsTerminal reports whether the run has finished, successfully or not
func (r *Run) IsTerminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// Duration returns how long the run took, or has taken so far
func (r *Run) Duration(now time.Time) time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}
