package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Question is an instructor-authored problem students submit code against.
type Question struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	CPUTimeLimit  float64    `gorm:"default:2" json:"cpu_time_limit"`
	WallTimeLimit float64    `gorm:"default:5" json:"wall_time_limit"`
	MemoryLimitKB int        `gorm:"default:128000" json:"memory_limit_kb"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	TestCases     []TestCase `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
}

// BeforeCreate assigns an identifier when none was provided.
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// TestCase is one input/expected-output pair for a question. Weight controls
// the test's contribution to the 0-100 score and need not be uniform.
type TestCase struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	QuestionID     string    `gorm:"size:36;index;not null" json:"question_id"`
	Input          string    `gorm:"type:text" json:"input"`
	ExpectedOutput string    `gorm:"type:text" json:"expected_output"`
	Weight         float64   `gorm:"default:1" json:"weight"`
	IsSample       bool      `gorm:"default:false" json:"is_sample"`
	Position       int       `gorm:"default:0" json:"position"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns an identifier when none was provided.
func (t *TestCase) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// EffectiveWeight treats non-positive weights as a uniform weight of one.
func (t TestCase) EffectiveWeight() float64 {
	if t.Weight <= 0 {
		return 1
	}
	return t.Weight
}
