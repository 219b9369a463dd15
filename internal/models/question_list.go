package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scoring modes for a question list.
const (
	ScoringModeSimple = "simple"
	ScoringModeGroups = "groups"
)

// QuestionList is an ordered set of questions graded under one scoring
// policy. MinQuestionsForMaxScore only applies to simple mode.
type QuestionList struct {
	ID                      string             `gorm:"primaryKey;size:36" json:"id"`
	Title                   string             `gorm:"size:255;not null" json:"title"`
	ScoringMode             string             `gorm:"size:16;not null;default:simple" json:"scoring_mode"`
	MaxScore                float64            `gorm:"default:10" json:"max_score"`
	MinQuestionsForMaxScore int                `gorm:"default:0" json:"min_questions_for_max_score"`
	CreatedAt               time.Time          `json:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at"`
	Questions               []QuestionListItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
	Groups                  []QuestionGroup    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"groups,omitempty"`
}

// BeforeCreate assigns an identifier when none was provided.
func (l *QuestionList) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// QuestionListItem binds a question to a list at an explicit position.
type QuestionListItem struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	QuestionListID string `gorm:"size:36;index;not null" json:"question_list_id"`
	QuestionID     string `gorm:"size:36;not null" json:"question_id"`
	Position       int    `gorm:"default:0" json:"position"`
}

// BeforeCreate assigns an identifier when none was provided.
func (i *QuestionListItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// QuestionGroup assigns a weighted share of the list's max score to a subset
// of its questions. A question present in multiple groups is graded by the
// first matching group in position order.
type QuestionGroup struct {
	ID             string                      `gorm:"primaryKey;size:36" json:"id"`
	QuestionListID string                      `gorm:"size:36;index;not null" json:"question_list_id"`
	Name           string                      `gorm:"size:255" json:"name"`
	Percentage     float64                     `gorm:"not null" json:"percentage"`
	Position       int                         `gorm:"default:0" json:"position"`
	QuestionIDs    datatypes.JSONSlice[string] `json:"question_ids"`
}

// BeforeCreate assigns an identifier when none was provided.
func (g *QuestionGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
