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
	"github.com/ataljudge/judge-api/internal/repository"
	"github.com/ataljudge/judge-api/internal/service"
)

type mockSubmissionService struct {
	createdUserID string
	createPayload dto.SubmissionCreateRequest
	lastQuery     repository.SubmissionQuery
	resubmittedID string
	response      dto.SubmissionResponse
	err           error
}

func (m *mockSubmissionService) Create(_ context.Context, userID string, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	m.createdUserID = userID
	m.createPayload = payload
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockSubmissionService) Get(_ context.Context, id, viewerID, role string) (dto.SubmissionResponse, error) {
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockSubmissionService) List(_ context.Context, query repository.SubmissionQuery) (dto.SubmissionListResponse, error) {
	m.lastQuery = query
	if m.err != nil {
		return dto.SubmissionListResponse{}, m.err
	}
	return dto.SubmissionListResponse{Items: []dto.SubmissionResponse{m.response}, Total: 1}, nil
}

func (m *mockSubmissionService) Resubmit(_ context.Context, id string) (dto.SubmissionResponse, error) {
	m.resubmittedID = id
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.response, nil
}

func newSubmissionApp(svc service.SubmissionService, userID, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/submissions", func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	handler.NewSubmissionHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestSubmissionHandler_CreateSuccess(t *testing.T) {
	userID := uuid.NewString()
	svc := &mockSubmissionService{response: dto.SubmissionResponse{ID: "sub-1", Status: "IN_QUEUE"}}
	app := newSubmissionApp(svc, userID, "student")

	payload := dto.SubmissionCreateRequest{QuestionID: uuid.NewString(), Language: "python", Code: "print(1)"}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "sub-1", response.Data.ID)
	require.Equal(t, userID, svc.createdUserID)
	require.Equal(t, payload.QuestionID, svc.createPayload.QuestionID)
}

func TestSubmissionHandler_CreateWithoutIdentity(t *testing.T) {
	svc := &mockSubmissionService{}
	app := newSubmissionApp(svc, "", "")

	body, err := json.Marshal(dto.SubmissionCreateRequest{QuestionID: uuid.NewString(), Language: "python", Code: "x"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSubmissionHandler_CreateMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrQuestionNotFound, fiber.StatusNotFound},
		{service.ErrUnsupportedLanguage, fiber.StatusBadRequest},
		{service.ErrCodeTooLarge, fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		svc := &mockSubmissionService{err: tc.err}
		app := newSubmissionApp(svc, uuid.NewString(), "student")

		body, err := json.Marshal(dto.SubmissionCreateRequest{QuestionID: uuid.NewString(), Language: "python", Code: "x"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode, "error %v", tc.err)
	}
}

func TestSubmissionHandler_ListScopesStudentsToOwnRows(t *testing.T) {
	userID := uuid.NewString()
	svc := &mockSubmissionService{}
	app := newSubmissionApp(svc, userID, "student")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions?user_id="+uuid.NewString()+"&limit=5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, userID, svc.lastQuery.UserID, "student filter must be overridden with their own id")
	require.Equal(t, 5, svc.lastQuery.Limit)
}

func TestSubmissionHandler_ListLetsStaffFilterByUser(t *testing.T) {
	target := uuid.NewString()
	svc := &mockSubmissionService{}
	app := newSubmissionApp(svc, uuid.NewString(), "teacher")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions?user_id="+target, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, target, svc.lastQuery.UserID)
}

func TestSubmissionHandler_ResubmitRequiresStaffRole(t *testing.T) {
	svc := &mockSubmissionService{response: dto.SubmissionResponse{ID: "sub-2"}}

	student := newSubmissionApp(svc, uuid.NewString(), "student")
	resp, err := student.Test(httptest.NewRequest(http.MethodPost, "/api/v1/submissions/sub-1/resubmit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Empty(t, svc.resubmittedID)

	teacher := newSubmissionApp(svc, uuid.NewString(), "teacher")
	resp, err = teacher.Test(httptest.NewRequest(http.MethodPost, "/api/v1/submissions/sub-1/resubmit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "sub-1", svc.resubmittedID)
}
