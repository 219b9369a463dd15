package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Grade is the single persisted aggregate per (student, question list) pair.
// Recalculation updates the row in place; per-question detail is always
// recomputed from submissions.
type Grade struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	StudentID      string    `gorm:"size:36;not null;uniqueIndex:idx_grades_student_list" json:"student_id"`
	QuestionListID string    `gorm:"size:36;not null;uniqueIndex:idx_grades_student_list" json:"question_list_id"`
	Score          float64   `gorm:"default:0" json:"score"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns an identifier when none was provided.
func (g *Grade) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
