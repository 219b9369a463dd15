package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ataljudge/judge-api/internal/dto"
	"github.com/ataljudge/judge-api/internal/handler"
	"github.com/ataljudge/judge-api/internal/service"
)

type mockQuestionService struct {
	created      dto.QuestionCreateRequest
	bulkQuestion string
	bulkPayload  dto.TestCaseBulkCreateRequest
	question     dto.QuestionResponse
	err          error
}

func (m *mockQuestionService) Create(_ context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	m.created = payload
	if m.err != nil {
		return dto.QuestionResponse{}, m.err
	}
	return m.question, nil
}

func (m *mockQuestionService) Get(_ context.Context, id string) (dto.QuestionResponse, error) {
	if m.err != nil {
		return dto.QuestionResponse{}, m.err
	}
	return m.question, nil
}

func (m *mockQuestionService) AddTestCase(_ context.Context, questionID string, payload dto.TestCaseCreateRequest) (dto.TestCaseResponse, error) {
	if m.err != nil {
		return dto.TestCaseResponse{}, m.err
	}
	return dto.TestCaseResponse{ID: uuid.NewString(), QuestionID: questionID}, nil
}

func (m *mockQuestionService) AddTestCases(_ context.Context, questionID string, payload dto.TestCaseBulkCreateRequest) ([]dto.TestCaseResponse, error) {
	m.bulkQuestion = questionID
	m.bulkPayload = payload
	if m.err != nil {
		return nil, m.err
	}
	out := make([]dto.TestCaseResponse, len(payload.TestCases))
	for i := range out {
		out[i] = dto.TestCaseResponse{ID: uuid.NewString(), QuestionID: questionID, Position: i}
	}
	return out, nil
}

func newQuestionApp(svc service.QuestionService, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/questions", func(c *fiber.Ctx) error {
		c.Locals("user_id", uuid.NewString())
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	handler.NewQuestionHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestQuestionHandler_CreateRequiresStaff(t *testing.T) {
	svc := &mockQuestionService{question: dto.QuestionResponse{ID: "q-1"}}

	body, err := json.Marshal(dto.QuestionCreateRequest{Title: "two sum"})
	require.NoError(t, err)

	student := newQuestionApp(svc, "student")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := student.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	teacher := newQuestionApp(svc, "teacher")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/questions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = teacher.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "two sum", svc.created.Title)
}

func TestQuestionHandler_BulkTestCases(t *testing.T) {
	svc := &mockQuestionService{}
	app := newQuestionApp(svc, "admin")

	payload := dto.TestCaseBulkCreateRequest{TestCases: []dto.TestCaseCreateRequest{
		{Input: "1 2", ExpectedOutput: "3", Weight: 1},
		{Input: "2 3", ExpectedOutput: "5", Weight: 2},
	}}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions/q-1/test-cases/bulk", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "q-1", svc.bulkQuestion)
	require.Len(t, svc.bulkPayload.TestCases, 2)
}

func TestQuestionHandler_GetNotFound(t *testing.T) {
	svc := &mockQuestionService{err: service.ErrQuestionNotFound}
	app := newQuestionApp(svc, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/questions/"+uuid.NewString(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
