package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/models"
)

// SubmissionQuery filters submission listings.
type SubmissionQuery struct {
	UserID     string
	QuestionID string
	Limit      int
	Offset     int
}

// SubmissionRepository exposes persistence helpers for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	UpdateStatus(ctx context.Context, id string, status string) error
	GetByID(ctx context.Context, id string) (models.Submission, error)
	List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error)
	SaveResults(ctx context.Context, results []models.SubmissionResult) error
	BestScoresByQuestion(ctx context.Context, userID string, questionIDs []string) (map[string]float64, error)
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Results").
		First(&submission, "id = ?", id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Submission{})
	if query.UserID != "" {
		tx = tx.Where("user_id = ?", query.UserID)
	}
	if query.QuestionID != "" {
		tx = tx.Where("question_id = ?", query.QuestionID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var submissions []models.Submission
	err := tx.Order("created_at DESC").
		Limit(limit).
		Offset(query.Offset).
		Find(&submissions).Error
	if err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (r *submissionRepository) SaveResults(ctx context.Context, results []models.SubmissionResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}

// BestScoresByQuestion returns the best completed score per question for a
// user. Questions without any completed submission are absent from the map.
func (r *submissionRepository) BestScoresByQuestion(ctx context.Context, userID string, questionIDs []string) (map[string]float64, error) {
	if len(questionIDs) == 0 {
		return map[string]float64{}, nil
	}

	type row struct {
		QuestionID string
		Best       float64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("question_id, MAX(score) AS best").
		Where("user_id = ? AND question_id IN ? AND status = ?", userID, questionIDs, models.SubmissionStatusCompleted).
		Group("question_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64, len(rows))
	for _, r := range rows {
		best[r.QuestionID] = r.Best
	}
	return best, nil
}
