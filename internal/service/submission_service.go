package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ataljudge/judge-api/internal/dto"
	"github.com/ataljudge/judge-api/internal/models"
	"github.com/ataljudge/judge-api/internal/queue"
	"github.com/ataljudge/judge-api/internal/repository"
)

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrQuestionNotFound indicates the target question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// ErrUnsupportedLanguage indicates the requested language is not in the
// language table.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrCodeTooLarge indicates the source exceeds the accepted size bounds.
var ErrCodeTooLarge = errors.New("source code exceeds size limits")

// ErrSubmissionForbidden indicates the caller may not access the submission.
var ErrSubmissionForbidden = errors.New("forbidden")

// Dispatcher routes a freshly created submission into processing. The mode is
// selected once at startup: queued when redis is available, inline otherwise.
type Dispatcher interface {
	Dispatch(ctx context.Context, submission *models.Submission) error
}

// NewQueueDispatcher dispatches through the durable submission queue.
func NewQueueDispatcher(q *queue.Queue, submissions repository.SubmissionRepository) Dispatcher {
	return &queueDispatcher{queue: q, submissions: submissions}
}

type queueDispatcher struct {
	queue       *queue.Queue
	submissions repository.SubmissionRepository
}

func (d *queueDispatcher) Dispatch(ctx context.Context, submission *models.Submission) error {
	if err := d.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusInQueue); err != nil {
		return fmt.Errorf("mark submission queued: %w", err)
	}
	submission.Status = models.SubmissionStatusInQueue

	if _, err := d.queue.Enqueue(ctx, submission.ID); err != nil {
		return fmt.Errorf("enqueue submission: %w", err)
	}
	return nil
}

// NewInlineDispatcher processes submissions synchronously on the request
// path. This degraded fallback keeps processor semantics identical, only
// losing the availability benefits of queueing.
func NewInlineDispatcher(processor SubmissionProcessor) Dispatcher {
	return &inlineDispatcher{processor: processor}
}

type inlineDispatcher struct {
	processor SubmissionProcessor
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, submission *models.Submission) error {
	return d.processor.Process(ctx, submission.ID)
}

// SubmissionService exposes submission operations.
type SubmissionService interface {
	Create(ctx context.Context, userID string, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id string, viewerID string, role string) (dto.SubmissionResponse, error)
	List(ctx context.Context, query repository.SubmissionQuery) (dto.SubmissionListResponse, error)
	Resubmit(ctx context.Context, id string) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	dispatcher  Dispatcher
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSubmissionService constructs a submission service.
func NewSubmissionService(submissions repository.SubmissionRepository, questions repository.QuestionRepository, dispatcher Dispatcher, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissions,
		questions:   questions,
		dispatcher:  dispatcher,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) Create(ctx context.Context, userID string, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	language := strings.ToLower(strings.TrimSpace(payload.Language))
	if _, ok := models.LanguageID(language); !ok {
		return dto.SubmissionResponse{}, ErrUnsupportedLanguage
	}

	if err := validateCodeBounds(payload.Code); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if _, err := s.questions.GetByID(ctx, payload.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrQuestionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		UserID:     userID,
		QuestionID: payload.QuestionID,
		Code:       payload.Code,
		Language:   language,
		Status:     models.SubmissionStatusPending,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.dispatch(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission, true), nil
}

func (s *submissionService) dispatch(ctx context.Context, submission *models.Submission) error {
	if err := s.dispatcher.Dispatch(ctx, submission); err != nil {
		// Inline processing already records its own terminal state; report
		// whatever the row ended up as instead of failing the request.
		s.logger.Error().Err(err).Str("submission_id", submission.ID).Msg("dispatch failed")
		refreshed, loadErr := s.submissions.GetByID(ctx, submission.ID)
		if loadErr == nil && refreshed.IsTerminal() {
			*submission = refreshed
			return nil
		}
		return err
	}

	refreshed, err := s.submissions.GetByID(ctx, submission.ID)
	if err == nil {
		*submission = refreshed
	}
	return nil
}

func (s *submissionService) Get(ctx context.Context, id string, viewerID string, role string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission, s.canViewCode(viewerID, role, submission)), nil
}

func (s *submissionService) List(ctx context.Context, query repository.SubmissionQuery) (dto.SubmissionListResponse, error) {
	submissions, total, err := s.submissions.List(ctx, query)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	items := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.NewSubmissionResponse(submission, false))
	}
	return dto.SubmissionListResponse{Items: items, Total: total}, nil
}

// Resubmit clones an existing submission's code, language and user into a new
// submission and dispatches it. The original row is never touched, so both
// remain eligible for grading.
func (s *submissionService) Resubmit(ctx context.Context, id string) (dto.SubmissionResponse, error) {
	original, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	clone := models.Submission{
		UserID:     original.UserID,
		QuestionID: original.QuestionID,
		Code:       original.Code,
		Language:   original.Language,
		Status:     models.SubmissionStatusPending,
	}

	if err := s.submissions.Create(ctx, &clone); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.dispatch(ctx, &clone); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Str("original_id", original.ID).Str("submission_id", clone.ID).Msg("submission cloned for reprocessing")
	return dto.NewSubmissionResponse(clone, true), nil
}

func (s *submissionService) canViewCode(viewerID string, role string, submission models.Submission) bool {
	if viewerID != "" && viewerID == submission.UserID {
		return true
	}
	role = strings.ToLower(role)
	return role == "teacher" || role == "admin"
}

func validateCodeBounds(code string) error {
	if len(code) > models.MaxCodeBytes {
		return ErrCodeTooLarge
	}
	if strings.Count(code, "\n")+1 > models.MaxCodeLines {
		return ErrCodeTooLarge
	}
	return nil
}
