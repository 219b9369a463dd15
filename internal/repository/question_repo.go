package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/models"
)

// QuestionRepository exposes persistence helpers for questions and their
// test cases.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id string) (models.Question, error)
	ListTestCases(ctx context.Context, questionID string) ([]models.TestCase, error)
	CreateTestCase(ctx context.Context, testCase *models.TestCase) error
	CreateTestCases(ctx context.Context, testCases []models.TestCase) error
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

type questionRepository struct {
	db *gorm.DB
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).
		Preload("TestCases", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		First(&question, "id = ?", id).Error
	if err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) ListTestCases(ctx context.Context, questionID string) ([]models.TestCase, error) {
	var testCases []models.TestCase
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("position ASC, created_at ASC").
		Find(&testCases).Error
	if err != nil {
		return nil, err
	}
	return testCases, nil
}

func (r *questionRepository) CreateTestCase(ctx context.Context, testCase *models.TestCase) error {
	return r.db.WithContext(ctx).Create(testCase).Error
}

func (r *questionRepository) CreateTestCases(ctx context.Context, testCases []models.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&testCases).Error
}
