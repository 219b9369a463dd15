package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/models"
)

// QuestionListRepository exposes persistence helpers for question lists.
type QuestionListRepository interface {
	Create(ctx context.Context, list *models.QuestionList) error
	GetByID(ctx context.Context, id string) (models.QuestionList, error)
}

// NewQuestionListRepository constructs a question list repository.
func NewQuestionListRepository(db *gorm.DB) QuestionListRepository {
	return &questionListRepository{db: db}
}

type questionListRepository struct {
	db *gorm.DB
}

func (r *questionListRepository) Create(ctx context.Context, list *models.QuestionList) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *questionListRepository) GetByID(ctx context.Context, id string) (models.QuestionList, error) {
	var list models.QuestionList
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Groups", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&list, "id = ?", id).Error
	if err != nil {
		return models.QuestionList{}, err
	}
	return list, nil
}
