package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/dto"
	"github.com/ataljudge/judge-api/internal/models"
	"github.com/ataljudge/judge-api/internal/repository"
)

// QuestionService exposes question and test case management operations.
type QuestionService interface {
	Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Get(ctx context.Context, id string) (dto.QuestionResponse, error)
	AddTestCase(ctx context.Context, questionID string, payload dto.TestCaseCreateRequest) (dto.TestCaseResponse, error)
	AddTestCases(ctx context.Context, questionID string, payload dto.TestCaseBulkCreateRequest) ([]dto.TestCaseResponse, error)
}

type questionService struct {
	questions repository.QuestionRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionService constructs a question service.
func NewQuestionService(questions repository.QuestionRepository, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		questions: questions,
		validator: validate,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		Title:         payload.Title,
		Description:   payload.Description,
		CPUTimeLimit:  payload.CPUTimeLimit,
		WallTimeLimit: payload.WallTimeLimit,
		MemoryLimitKB: payload.MemoryLimitKB,
	}
	if question.CPUTimeLimit <= 0 {
		question.CPUTimeLimit = 2
	}
	if question.WallTimeLimit <= 0 {
		question.WallTimeLimit = 5
	}
	if question.MemoryLimitKB <= 0 {
		question.MemoryLimitKB = 128000
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Str("question_id", question.ID).Msg("question created")
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Get(ctx context.Context, id string) (dto.QuestionResponse, error) {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) AddTestCase(ctx context.Context, questionID string, payload dto.TestCaseCreateRequest) (dto.TestCaseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestCaseResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestCaseResponse{}, ErrQuestionNotFound
		}
		return dto.TestCaseResponse{}, err
	}

	testCase := models.TestCase{
		QuestionID:     question.ID,
		Input:          payload.Input,
		ExpectedOutput: payload.ExpectedOutput,
		Weight:         payload.Weight,
		IsSample:       payload.IsSample,
		Position:       len(question.TestCases),
	}

	if err := s.questions.CreateTestCase(ctx, &testCase); err != nil {
		return dto.TestCaseResponse{}, err
	}

	return dto.NewTestCaseResponse(testCase), nil
}

func (s *questionService) AddTestCases(ctx context.Context, questionID string, payload dto.TestCaseBulkCreateRequest) ([]dto.TestCaseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	testCases := make([]models.TestCase, 0, len(payload.TestCases))
	for i, request := range payload.TestCases {
		testCases = append(testCases, models.TestCase{
			QuestionID:     question.ID,
			Input:          request.Input,
			ExpectedOutput: request.ExpectedOutput,
			Weight:         request.Weight,
			IsSample:       request.IsSample,
			Position:       len(question.TestCases) + i,
		})
	}

	if err := s.questions.CreateTestCases(ctx, testCases); err != nil {
		return nil, err
	}

	responses := make([]dto.TestCaseResponse, 0, len(testCases))
	for _, testCase := range testCases {
		responses = append(responses, dto.NewTestCaseResponse(testCase))
	}

	s.logger.Info().Str("question_id", question.ID).Int("count", len(testCases)).Msg("test cases added")
	return responses, nil
}
