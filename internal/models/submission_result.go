package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionResult captures the outcome of one test case for one submission.
// Rows are created exactly once per processing run and never mutated; a
// resubmission produces a new submission with a new set of results, keeping
// full history.
type SubmissionResult struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID    string    `gorm:"size:36;index;not null" json:"submission_id"`
	TestCaseID      string    `gorm:"size:36;not null" json:"test_case_id"`
	Verdict         string    `gorm:"size:32;not null" json:"verdict"`
	Passed          bool      `gorm:"not null" json:"passed"`
	ExecutionTimeMs int64     `gorm:"default:0" json:"execution_time_ms"`
	MemoryUsedKB    int64     `gorm:"default:0" json:"memory_used_kb"`
	ActualOutput    string    `gorm:"type:text" json:"actual_output"`
	ErrorMessage    string    `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time `json:"created_at"`
}

// BeforeCreate assigns an identifier when none was provided.
func (r *SubmissionResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
