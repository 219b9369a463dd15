package dto

import "github.com/ataljudge/judge-api/internal/models"

// SubmissionCreateRequest represents the payload for creating a submission.
type SubmissionCreateRequest struct {
	QuestionID string `json:"question_id" validate:"required,uuid4"`
	Language   string `json:"language" validate:"required"`
	Code       string `json:"code" validate:"required,min=1"`
}

// SubmissionResultResponse describes one test case outcome.
type SubmissionResultResponse struct {
	TestCaseID      string `json:"test_case_id"`
	Verdict         string `json:"verdict"`
	Passed          bool   `json:"passed"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	MemoryUsedKB    int64  `json:"memory_used_kb"`
	ActualOutput    string `json:"actual_output,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// SubmissionResponse represents a submission to API consumers.
type SubmissionResponse struct {
	ID              string                     `json:"id"`
	UserID          string                     `json:"user_id"`
	QuestionID      string                     `json:"question_id"`
	Language        string                     `json:"language"`
	Code            string                     `json:"code,omitempty"`
	Status          string                     `json:"status"`
	Score           float64                    `json:"score"`
	TotalTests      int                        `json:"total_tests"`
	PassedTests     int                        `json:"passed_tests"`
	ExecutionTimeMs int64                      `json:"execution_time_ms"`
	MemoryUsedKB    int64                      `json:"memory_used_kb"`
	Verdict         string                     `json:"verdict,omitempty"`
	ErrorMessage    string                     `json:"error_message,omitempty"`
	Results         []SubmissionResultResponse `json:"results,omitempty"`
}

// SubmissionListResponse wraps a paginated submission listing.
type SubmissionListResponse struct {
	Items []SubmissionResponse `json:"items"`
	Total int64                `json:"total"`
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission, includeCode bool) SubmissionResponse {
	response := SubmissionResponse{
		ID:              submission.ID,
		UserID:          submission.UserID,
		QuestionID:      submission.QuestionID,
		Language:        submission.Language,
		Status:          submission.Status,
		Score:           submission.Score,
		TotalTests:      submission.TotalTests,
		PassedTests:     submission.PassedTests,
		ExecutionTimeMs: submission.ExecutionTimeMs,
		MemoryUsedKB:    submission.MemoryUsedKB,
		Verdict:         submission.Verdict,
		ErrorMessage:    submission.ErrorMessage,
	}

	if includeCode {
		response.Code = submission.Code
	}

	if len(submission.Results) > 0 {
		results := make([]SubmissionResultResponse, 0, len(submission.Results))
		for _, result := range submission.Results {
			results = append(results, SubmissionResultResponse{
				TestCaseID:      result.TestCaseID,
				Verdict:         result.Verdict,
				Passed:          result.Passed,
				ExecutionTimeMs: result.ExecutionTimeMs,
				MemoryUsedKB:    result.MemoryUsedKB,
				ActualOutput:    result.ActualOutput,
				ErrorMessage:    result.ErrorMessage,
			})
		}
		response.Results = results
	}

	return response
}
