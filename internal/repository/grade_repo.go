package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/models"
)

// GradeRepository exposes persistence helpers for grades.
type GradeRepository interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	GetByStudentAndList(ctx context.Context, studentID, questionListID string) (models.Grade, error)
}

// NewGradeRepository constructs a grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

type gradeRepository struct {
	db *gorm.DB
}

// Upsert updates the existing grade row for (student, list) in place, or
// creates it on first calculation. One row per pair, never duplicated.
func (r *gradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	var existing models.Grade
	err := r.db.WithContext(ctx).
		First(&existing, "student_id = ? AND question_list_id = ?", grade.StudentID, grade.QuestionListID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(grade).Error
		}
		return err
	}

	existing.Score = grade.Score
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*grade = existing
	return nil
}

func (r *gradeRepository) GetByStudentAndList(ctx context.Context, studentID, questionListID string) (models.Grade, error) {
	var grade models.Grade
	err := r.db.WithContext(ctx).
		First(&grade, "student_id = ? AND question_list_id = ?", studentID, questionListID).Error
	if err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}
