package dto

import "github.com/ataljudge/judge-api/internal/models"

// GradeRecomputeRequest asks for a grade recalculation.
type GradeRecomputeRequest struct {
	StudentID      string `json:"student_id" validate:"required,uuid4"`
	QuestionListID string `json:"question_list_id" validate:"required,uuid4"`
}

// GradeResponse represents a persisted grade.
type GradeResponse struct {
	ID             string  `json:"id"`
	StudentID      string  `json:"student_id"`
	QuestionListID string  `json:"question_list_id"`
	Score          float64 `json:"score"`
}

// NewGradeResponse builds a response DTO from a model.
func NewGradeResponse(grade models.Grade) GradeResponse {
	return GradeResponse{
		ID:             grade.ID,
		StudentID:      grade.StudentID,
		QuestionListID: grade.QuestionListID,
		Score:          grade.Score,
	}
}
