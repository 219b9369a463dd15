package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Question{},
		&models.TestCase{},
		&models.Submission{},
		&models.SubmissionResult{},
		&models.QuestionList{},
		&models.QuestionListItem{},
		&models.QuestionGroup{},
		&models.Grade{},
	))
	return db
}

func seedSubmission(t *testing.T, db *gorm.DB, userID, questionID, status string, score float64) models.Submission {
	t.Helper()
	submission := models.Submission{
		UserID:     userID,
		QuestionID: questionID,
		Code:       "print(1)",
		Language:   "python",
		Status:     status,
		Score:      score,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func TestSubmissionRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	submission := models.Submission{
		UserID:     uuid.NewString(),
		QuestionID: uuid.NewString(),
		Code:       "print(1)",
		Language:   "python",
		Status:     models.SubmissionStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), &submission))
	require.NotEmpty(t, submission.ID)

	require.NoError(t, repo.UpdateStatus(context.Background(), submission.ID, models.SubmissionStatusProcessing))

	require.NoError(t, repo.SaveResults(context.Background(), []models.SubmissionResult{
		{SubmissionID: submission.ID, TestCaseID: uuid.NewString(), Verdict: "ACCEPTED", Passed: true},
		{SubmissionID: submission.ID, TestCaseID: uuid.NewString(), Verdict: "WRONG_ANSWER", Passed: false},
	}))

	loaded, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusProcessing, loaded.Status)
	require.Len(t, loaded.Results, 2)
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	user := uuid.NewString()
	other := uuid.NewString()
	question := uuid.NewString()

	seedSubmission(t, db, user, question, models.SubmissionStatusCompleted, 100)
	seedSubmission(t, db, user, uuid.NewString(), models.SubmissionStatusCompleted, 50)
	seedSubmission(t, db, other, question, models.SubmissionStatusCompleted, 75)

	submissions, total, err := repo.List(context.Background(), SubmissionQuery{UserID: user})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, submissions, 2)

	submissions, total, err = repo.List(context.Background(), SubmissionQuery{UserID: user, QuestionID: question})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, question, submissions[0].QuestionID)
}

func TestBestScoresByQuestionIgnoresNonCompleted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	user := uuid.NewString()
	q1 := uuid.NewString()
	q2 := uuid.NewString()
	q3 := uuid.NewString()

	seedSubmission(t, db, user, q1, models.SubmissionStatusCompleted, 40)
	seedSubmission(t, db, user, q1, models.SubmissionStatusCompleted, 80)
	seedSubmission(t, db, user, q2, models.SubmissionStatusError, 100)
	seedSubmission(t, db, uuid.NewString(), q1, models.SubmissionStatusCompleted, 100)

	best, err := repo.BestScoresByQuestion(context.Background(), user, []string{q1, q2, q3})
	require.NoError(t, err)
	require.Equal(t, 80.0, best[q1])

	_, hasQ2 := best[q2]
	require.False(t, hasQ2, "errored submissions must not contribute scores")
	_, hasQ3 := best[q3]
	require.False(t, hasQ3)
}

func TestGradeRepositoryUpsertKeepsOneRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradeRepository(db)

	studentID := uuid.NewString()
	listID := uuid.NewString()

	first := models.Grade{StudentID: studentID, QuestionListID: listID, Score: 5}
	require.NoError(t, repo.Upsert(context.Background(), &first))
	require.NotEmpty(t, first.ID)

	second := models.Grade{StudentID: studentID, QuestionListID: listID, Score: 8}
	require.NoError(t, repo.Upsert(context.Background(), &second))
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Grade{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	loaded, err := repo.GetByStudentAndList(context.Background(), studentID, listID)
	require.NoError(t, err)
	require.Equal(t, 8.0, loaded.Score)
}

func TestQuestionRepositoryOrdersTestCases(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)

	question := models.Question{Title: "sorting"}
	require.NoError(t, repo.Create(context.Background(), &question))

	require.NoError(t, repo.CreateTestCases(context.Background(), []models.TestCase{
		{QuestionID: question.ID, Input: "b", ExpectedOutput: "b", Position: 1},
		{QuestionID: question.ID, Input: "a", ExpectedOutput: "a", Position: 0},
	}))

	loaded, err := repo.GetByID(context.Background(), question.ID)
	require.NoError(t, err)
	require.Len(t, loaded.TestCases, 2)
	require.Equal(t, "a", loaded.TestCases[0].Input)
	require.Equal(t, "b", loaded.TestCases[1].Input)
}

func TestQuestionListRepositoryPreloadsOrdered(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionListRepository(db)

	list := models.QuestionList{
		Title:       "week one",
		ScoringMode: models.ScoringModeSimple,
		MaxScore:    10,
		Questions: []models.QuestionListItem{
			{QuestionID: uuid.NewString(), Position: 1},
			{QuestionID: uuid.NewString(), Position: 0},
		},
		Groups: []models.QuestionGroup{
			{Percentage: 40, Position: 1},
			{Percentage: 60, Position: 0},
		},
	}
	require.NoError(t, repo.Create(context.Background(), &list))

	loaded, err := repo.GetByID(context.Background(), list.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Questions, 2)
	require.Equal(t, 0, loaded.Questions[0].Position)
	require.Len(t, loaded.Groups, 2)
	require.Equal(t, 60.0, loaded.Groups[0].Percentage)
}
