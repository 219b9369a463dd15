package service

import (
	"context"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/dto"
	"github.com/ataljudge/judge-api/internal/models"
	"github.com/ataljudge/judge-api/internal/repository"
)

// ErrQuestionListNotFound indicates the question list does not exist.
var ErrQuestionListNotFound = errors.New("question list not found")

// ErrGradeNotFound indicates no grade has been calculated yet.
var ErrGradeNotFound = errors.New("grade not found")

// GradeService aggregates a student's best per-question results for a
// question list into a single normalized grade.
type GradeService interface {
	Recompute(ctx context.Context, payload dto.GradeRecomputeRequest) (dto.GradeResponse, error)
	Get(ctx context.Context, studentID, questionListID string) (dto.GradeResponse, error)
}

type gradeService struct {
	lists       repository.QuestionListRepository
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradeService constructs a grade service.
func NewGradeService(lists repository.QuestionListRepository, submissions repository.SubmissionRepository, grades repository.GradeRepository, validate *validator.Validate, logger zerolog.Logger) GradeService {
	return &gradeService{
		lists:       lists,
		submissions: submissions,
		grades:      grades,
		validator:   validate,
		logger:      logger.With().Str("component", "grade_service").Logger(),
		tracer:      otel.Tracer("github.com/ataljudge/judge-api/internal/service/grade"),
	}
}

// Recompute recalculates and persists the grade for (student, list). The
// result is deterministic for a given set of submissions and always safe to
// re-run: an existing grade row is updated in place.
func (s *gradeService) Recompute(ctx context.Context, payload dto.GradeRecomputeRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "grade.recompute", trace.WithAttributes(
		attribute.String("grade.student_id", payload.StudentID),
		attribute.String("grade.question_list_id", payload.QuestionListID),
	))
	defer span.End()

	list, err := s.lists.GetByID(ctx, payload.QuestionListID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrQuestionListNotFound
		}
		return dto.GradeResponse{}, err
	}

	questionIDs := make([]string, 0, len(list.Questions))
	for _, item := range list.Questions {
		questionIDs = append(questionIDs, item.QuestionID)
	}

	bestScores, err := s.submissions.BestScoresByQuestion(ctx, payload.StudentID, questionIDs)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	var score float64
	switch list.ScoringMode {
	case models.ScoringModeGroups:
		score = calculateGroupsScore(list, questionIDs, bestScores)
	default:
		score = calculateSimpleScore(list, questionIDs, bestScores)
	}

	grade := models.Grade{
		StudentID:      payload.StudentID,
		QuestionListID: payload.QuestionListID,
		Score:          score,
	}
	if err := s.grades.Upsert(ctx, &grade); err != nil {
		return dto.GradeResponse{}, err
	}

	span.SetAttributes(attribute.Float64("grade.score", grade.Score))
	s.logger.Info().
		Str("student_id", payload.StudentID).
		Str("question_list_id", payload.QuestionListID).
		Float64("score", grade.Score).
		Msg("grade recomputed")

	return dto.NewGradeResponse(grade), nil
}

func (s *gradeService) Get(ctx context.Context, studentID, questionListID string) (dto.GradeResponse, error) {
	grade, err := s.grades.GetByStudentAndList(ctx, studentID, questionListID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}
		return dto.GradeResponse{}, err
	}
	return dto.NewGradeResponse(grade), nil
}

// calculateSimpleScore averages the best N question scores, where N is
// minQuestionsForMaxScore clamped to the number of questions, then scales
// into the list's max score range.
func calculateSimpleScore(list models.QuestionList, questionIDs []string, bestScores map[string]float64) float64 {
	if len(questionIDs) == 0 {
		return 0
	}

	scores := make([]float64, 0, len(questionIDs))
	for _, questionID := range questionIDs {
		scores = append(scores, bestScores[questionID])
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	counted := list.MinQuestionsForMaxScore
	if counted <= 0 || counted > len(scores) {
		counted = len(scores)
	}

	var total float64
	for _, score := range scores[:counted] {
		total += score
	}

	maxPossible := 100 * float64(counted)
	return roundScore(total / maxPossible * list.MaxScore)
}

// calculateGroupsScore takes the best member score per group weighted by the
// group's percentage share of the max score. A question in several groups is
// claimed by the first group in position order; ungrouped questions each
// count individually at full weight, mirroring simple mode.
func calculateGroupsScore(list models.QuestionList, questionIDs []string, bestScores map[string]float64) float64 {
	inList := make(map[string]bool, len(questionIDs))
	for _, questionID := range questionIDs {
		inList[questionID] = true
	}

	claimed := make(map[string]bool, len(questionIDs))
	var total, maxPossible float64

	for _, group := range list.Groups {
		share := group.Percentage / 100
		if share <= 0 {
			continue
		}

		var groupBest float64
		hasMember := false
		for _, questionID := range group.QuestionIDs {
			if !inList[questionID] || claimed[questionID] {
				continue
			}
			claimed[questionID] = true
			hasMember = true
			if best := bestScores[questionID]; best > groupBest {
				groupBest = best
			}
		}
		if !hasMember {
			continue
		}

		total += groupBest * share
		maxPossible += 100 * share
	}

	for _, questionID := range questionIDs {
		if claimed[questionID] {
			continue
		}
		total += bestScores[questionID]
		maxPossible += 100
	}

	if maxPossible == 0 {
		return 0
	}
	return roundScore(total / maxPossible * list.MaxScore)
}
