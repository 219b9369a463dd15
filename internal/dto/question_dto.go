package dto

import "github.com/ataljudge/judge-api/internal/models"

// QuestionCreateRequest represents the payload for creating a question.
type QuestionCreateRequest struct {
	Title         string  `json:"title" validate:"required,min=1,max=255"`
	Description   string  `json:"description"`
	CPUTimeLimit  float64 `json:"cpu_time_limit" validate:"gte=0"`
	WallTimeLimit float64 `json:"wall_time_limit" validate:"gte=0"`
	MemoryLimitKB int     `json:"memory_limit_kb" validate:"gte=0"`
}

// QuestionResponse represents a question to API consumers.
type QuestionResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	CPUTimeLimit  float64            `json:"cpu_time_limit"`
	WallTimeLimit float64            `json:"wall_time_limit"`
	MemoryLimitKB int                `json:"memory_limit_kb"`
	TestCases     []TestCaseResponse `json:"test_cases,omitempty"`
}

// NewQuestionResponse builds a response DTO from a model.
func NewQuestionResponse(question models.Question) QuestionResponse {
	response := QuestionResponse{
		ID:            question.ID,
		Title:         question.Title,
		Description:   question.Description,
		CPUTimeLimit:  question.CPUTimeLimit,
		WallTimeLimit: question.WallTimeLimit,
		MemoryLimitKB: question.MemoryLimitKB,
	}

	if len(question.TestCases) > 0 {
		testCases := make([]TestCaseResponse, 0, len(question.TestCases))
		for _, testCase := range question.TestCases {
			testCases = append(testCases, NewTestCaseResponse(testCase))
		}
		response.TestCases = testCases
	}

	return response
}

// TestCaseCreateRequest represents the payload for creating one test case.
type TestCaseCreateRequest struct {
	Input          string  `json:"input" validate:"required"`
	ExpectedOutput string  `json:"expected_output" validate:"required"`
	Weight         float64 `json:"weight" validate:"gte=0"`
	IsSample       bool    `json:"is_sample"`
}

// TestCaseBulkCreateRequest creates multiple test cases in one call.
type TestCaseBulkCreateRequest struct {
	TestCases []TestCaseCreateRequest `json:"test_cases" validate:"required,min=1,dive"`
}

// TestCaseResponse represents a test case to API consumers.
type TestCaseResponse struct {
	ID         string  `json:"id"`
	QuestionID string  `json:"question_id"`
	Weight     float64 `json:"weight"`
	IsSample   bool    `json:"is_sample"`
	Position   int     `json:"position"`
}

// NewTestCaseResponse builds a response DTO from a model. Inputs and expected
// outputs are deliberately withheld from API consumers.
func NewTestCaseResponse(testCase models.TestCase) TestCaseResponse {
	return TestCaseResponse{
		ID:         testCase.ID,
		QuestionID: testCase.QuestionID,
		Weight:     testCase.Weight,
		IsSample:   testCase.IsSample,
		Position:   testCase.Position,
	}
}
