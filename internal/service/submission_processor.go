package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ataljudge/judge-api/internal/models"
	"github.com/ataljudge/judge-api/internal/repository"
	"github.com/ataljudge/judge-api/pkg/judge0"
)

// noTestCasesMessage is recorded on submissions whose question has no test
// cases; these score zero deterministically instead of failing.
const noTestCasesMessage = "no test cases available for this question"

// SubmissionProcessor drives one submission through execution and scoring.
type SubmissionProcessor interface {
	Process(ctx context.Context, submissionID string) error
}

type submissionProcessor struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	executor    judge0.Client
	events      EventPublisher
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewSubmissionProcessor constructs the processor.
func NewSubmissionProcessor(submissions repository.SubmissionRepository, questions repository.QuestionRepository, executor judge0.Client, events EventPublisher, logger zerolog.Logger) SubmissionProcessor {
	return &submissionProcessor{
		submissions: submissions,
		questions:   questions,
		executor:    executor,
		events:      events,
		logger:      logger.With().Str("component", "submission_processor").Logger(),
		tracer:      otel.Tracer("github.com/ataljudge/judge-api/internal/service/processor"),
	}
}

// Process runs a single processing attempt. Any failure is recorded on the
// submission itself before the error is returned for the queue's retry
// policy; a submission is never left in PROCESSING.
func (p *submissionProcessor) Process(ctx context.Context, submissionID string) error {
	ctx, span := p.tracer.Start(ctx, "submission.process", trace.WithAttributes(
		attribute.String("submission.id", submissionID),
	))
	defer span.End()

	submission, err := p.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return fmt.Errorf("load submission %s: %w", submissionID, err)
	}

	if err := p.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusProcessing); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status_update_failed")
		return fmt.Errorf("mark submission %s processing: %w", submission.ID, err)
	}
	submission.Status = models.SubmissionStatusProcessing

	if err := p.run(ctx, &submission); err != nil {
		p.logger.Error().Err(err).Str("submission_id", submission.ID).Msg("submission processing failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing_failed")

		submission.Status = models.SubmissionStatusError
		submission.ErrorMessage = err.Error()
		if saveErr := p.submissions.Update(ctx, &submission); saveErr != nil {
			p.logger.Error().Err(saveErr).Str("submission_id", submission.ID).Msg("failed to record submission error state")
		}
		return err
	}

	span.SetAttributes(
		attribute.Float64("submission.score", submission.Score),
		attribute.String("submission.verdict", submission.Verdict),
	)
	return nil
}

func (p *submissionProcessor) run(ctx context.Context, submission *models.Submission) error {
	languageID, ok := models.LanguageID(submission.Language)
	if !ok {
		return fmt.Errorf("unsupported language %q", submission.Language)
	}

	question, err := p.questions.GetByID(ctx, submission.QuestionID)
	if err != nil {
		return fmt.Errorf("load question %s: %w", submission.QuestionID, err)
	}

	testCases := question.TestCases
	if len(testCases) == 0 {
		// Fail closed: zero test cases score zero, never silently 100.
		submission.Status = models.SubmissionStatusCompleted
		submission.Score = 0
		submission.TotalTests = 0
		submission.PassedTests = 0
		submission.Verdict = ""
		submission.ErrorMessage = noTestCasesMessage
		if err := p.submissions.Update(ctx, submission); err != nil {
			return fmt.Errorf("persist empty-question result: %w", err)
		}
		p.publishCompleted(ctx, *submission)
		return nil
	}

	items := make([]judge0.BatchItem, 0, len(testCases))
	for _, testCase := range testCases {
		items = append(items, judge0.BatchItem{
			SourceCode:     submission.Code,
			LanguageID:     languageID,
			Stdin:          testCase.Input,
			ExpectedOutput: testCase.ExpectedOutput,
			CPUTimeLimit:   question.CPUTimeLimit,
			MemoryLimitKB:  question.MemoryLimitKB,
			WallTimeLimit:  question.WallTimeLimit,
		})
	}

	tokens, err := p.executor.SubmitBatch(ctx, items)
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	if len(tokens) != len(testCases) {
		return fmt.Errorf("execution service returned %d tokens for %d test cases", len(tokens), len(testCases))
	}

	statuses, err := p.executor.PollBatchUntilDone(ctx, tokens, func(progress judge0.Progress) {
		p.logger.Debug().
			Str("submission_id", submission.ID).
			Int("completed", progress.Completed).
			Int("pending", progress.Pending).
			Float64("percent", progress.Percent).
			Msg("execution progress")
	})
	if err != nil {
		return fmt.Errorf("poll batch: %w", err)
	}

	results := make([]models.SubmissionResult, 0, len(testCases))
	var totalWeight, passedWeight float64
	var totalTimeMs, maxMemoryKB int64
	passedTests := 0
	verdict := judge0.VerdictAccepted

	for i, testCase := range testCases {
		expected := testCase.ExpectedOutput
		outcome := judge0.ProcessResult(statuses[i], &expected)

		weight := testCase.EffectiveWeight()
		totalWeight += weight
		if outcome.Passed {
			passedWeight += weight
			passedTests++
		} else if verdict == judge0.VerdictAccepted {
			// The first failing test case in test-case order is the single
			// source of truth for why the submission failed.
			verdict = outcome.Verdict
		}

		totalTimeMs += outcome.TimeMs
		if outcome.MemoryKB > maxMemoryKB {
			maxMemoryKB = outcome.MemoryKB
		}

		results = append(results, models.SubmissionResult{
			SubmissionID:    submission.ID,
			TestCaseID:      testCase.ID,
			Verdict:         string(outcome.Verdict),
			Passed:          outcome.Passed,
			ExecutionTimeMs: outcome.TimeMs,
			MemoryUsedKB:    outcome.MemoryKB,
			ActualOutput:    outcome.Output,
			ErrorMessage:    outcome.ErrorMessage,
		})
	}

	if err := p.submissions.SaveResults(ctx, results); err != nil {
		return fmt.Errorf("persist test results: %w", err)
	}

	submission.Status = models.SubmissionStatusCompleted
	submission.Score = roundScore(100 * passedWeight / totalWeight)
	submission.TotalTests = len(testCases)
	submission.PassedTests = passedTests
	submission.ExecutionTimeMs = totalTimeMs
	submission.MemoryUsedKB = maxMemoryKB
	submission.Verdict = string(verdict)
	submission.ErrorMessage = ""

	if err := p.submissions.Update(ctx, submission); err != nil {
		return fmt.Errorf("persist submission result: %w", err)
	}

	p.logger.Info().
		Str("submission_id", submission.ID).
		Str("verdict", submission.Verdict).
		Float64("score", submission.Score).
		Int("passed", passedTests).
		Int("total", len(testCases)).
		Msg("submission processed")

	p.publishCompleted(ctx, *submission)
	return nil
}

func (p *submissionProcessor) publishCompleted(ctx context.Context, submission models.Submission) {
	if p.events == nil {
		return
	}
	p.events.PublishSubmissionCompleted(ctx, SubmissionEvent{
		SubmissionID: submission.ID,
		QuestionID:   submission.QuestionID,
		UserID:       submission.UserID,
		Status:       submission.Status,
		Verdict:      submission.Verdict,
		Score:        submission.Score,
	})
}

// roundScore keeps scores at two decimal places.
func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
