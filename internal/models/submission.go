package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission lifecycle states.
const (
	SubmissionStatusPending    = "PENDING"
	SubmissionStatusInQueue    = "IN_QUEUE"
	SubmissionStatusProcessing = "PROCESSING"
	SubmissionStatusCompleted  = "COMPLETED"
	SubmissionStatusError      = "ERROR"
)

// Source code bounds enforced before a submission is accepted.
const (
	MaxCodeBytes = 64 * 1024
	MaxCodeLines = 10000
)

// Submission represents a student's code submission against a question.
// It is owned by its creating user and mutated only by the processor after
// creation; administrative resubmission clones into a new row instead.
type Submission struct {
	ID              string             `gorm:"primaryKey;size:36" json:"id"`
	UserID          string             `gorm:"size:36;index;not null" json:"user_id"`
	QuestionID      string             `gorm:"size:36;index;not null" json:"question_id"`
	Code            string             `gorm:"type:text;not null" json:"code"`
	Language        string             `gorm:"size:32;not null" json:"language"`
	Status          string             `gorm:"size:16;index;not null" json:"status"`
	Score           float64            `gorm:"default:0" json:"score"`
	TotalTests      int                `gorm:"default:0" json:"total_tests"`
	PassedTests     int                `gorm:"default:0" json:"passed_tests"`
	ExecutionTimeMs int64              `gorm:"default:0" json:"execution_time_ms"`
	MemoryUsedKB    int64              `gorm:"default:0" json:"memory_used_kb"`
	Verdict         string             `gorm:"size:32" json:"verdict"`
	ErrorMessage    string             `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Results         []SubmissionResult `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"results,omitempty"`
}

// BeforeCreate assigns an identifier when none was provided.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal reports whether the submission reached a final state.
func (s Submission) IsTerminal() bool {
	return s.Status == SubmissionStatusCompleted || s.Status == SubmissionStatusError
}
