package judge0

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func encode(value string) string {
	return base64.StdEncoding.EncodeToString([]byte(value))
}

func statusPayload(token string, statusID int, stdout string) map[string]interface{} {
	return map[string]interface{}{
		"token":  token,
		"status": map[string]interface{}{"id": statusID, "description": "status"},
		"stdout": encode(stdout),
		"time":   "0.051",
		"memory": 2048,
	}
}

func TestSubmitBatchReturnsTokensInOrder(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "false", r.URL.Query().Get("base64_encoded"))
		gotAuth = r.Header.Get("X-Auth-Token")

		var payload struct {
			Submissions []map[string]interface{} `json:"submissions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Submissions, 2)
		require.EqualValues(t, 71, payload.Submissions[0]["language_id"])

		_ = json.NewEncoder(w).Encode([]map[string]string{{"token": "tok-1"}, {"token": "tok-2"}})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, AuthToken: "secret"})
	require.NoError(t, err)

	tokens, err := client.SubmitBatch(context.Background(), []BatchItem{
		{SourceCode: "print(1)", LanguageID: 71, Stdin: "1", ExpectedOutput: "1"},
		{SourceCode: "print(2)", LanguageID: 71, Stdin: "2", ExpectedOutput: "2"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"tok-1", "tok-2"}, tokens)
	require.Equal(t, "secret", gotAuth)
}

func TestSubmitBatchRejectsEmptyBatch(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.SubmitBatch(context.Background(), nil)
	require.Error(t, err)
}

func TestSubmitBatchWrapsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.SubmitBatch(context.Background(), []BatchItem{{SourceCode: "x", LanguageID: 71}})
	require.Error(t, err)

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	require.Equal(t, http.StatusServiceUnavailable, serviceErr.StatusCode)
	require.Contains(t, serviceErr.Body, "queue full")
}

func TestPollBatchUntilDoneResolvesAfterProcessing(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "true", r.URL.Query().Get("base64_encoded"))

		attempt := atomic.AddInt32(&polls, 1)
		tokens := strings.Split(r.URL.Query().Get("tokens"), ",")

		submissions := make([]map[string]interface{}, 0, len(tokens))
		for _, token := range tokens {
			if attempt == 1 {
				submissions = append(submissions, statusPayload(token, StatusProcessing, ""))
				continue
			}
			submissions = append(submissions, statusPayload(token, StatusAccepted, "42"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"submissions": submissions})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, PollInterval: 10 * time.Millisecond, MaxPollAttempts: 20})
	require.NoError(t, err)

	var updates []Progress
	results, err := client.PollBatchUntilDone(context.Background(), []string{"a", "b"}, func(p Progress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].Token)
	require.Equal(t, "b", results[1].Token)
	require.Equal(t, StatusAccepted, results[0].StatusID)
	require.Equal(t, "42", results[0].Stdout)
	require.EqualValues(t, 51, results[0].TimeMs)
	require.EqualValues(t, 2048, results[0].MemoryKB)

	require.NotEmpty(t, updates)
	require.Equal(t, float64(100), updates[len(updates)-1].Percent)
}

func TestPollBatchUntilDoneTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
		submissions := make([]map[string]interface{}, 0, len(tokens))
		for _, token := range tokens {
			submissions = append(submissions, statusPayload(token, StatusProcessing, ""))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"submissions": submissions})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, PollInterval: 5 * time.Millisecond, MaxPollAttempts: 3})
	require.NoError(t, err)

	_, err = client.PollBatchUntilDone(context.Background(), []string{"a"}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPollTimeout))
}

func TestPollBatchUntilDoneHonoursCallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"submissions": []map[string]interface{}{
			statusPayload("a", StatusProcessing, ""),
		}})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, PollInterval: 5 * time.Millisecond, MaxPollAttempts: 1000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = client.PollBatchUntilDone(ctx, []string{"a"}, nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrPollTimeout))
}

func TestProcessResultRecomputesCorrectness(t *testing.T) {
	expected := "42"

	passed := ProcessResult(StatusResult{StatusID: StatusAccepted, Stdout: "42\n"}, &expected)
	require.True(t, passed.Passed)
	require.Equal(t, VerdictAccepted, passed.Verdict)

	// Accepted upstream but output disagrees with the expected output.
	demoted := ProcessResult(StatusResult{StatusID: StatusAccepted, Stdout: "41"}, &expected)
	require.False(t, demoted.Passed)
	require.Equal(t, VerdictWrongAnswer, demoted.Verdict)
}

func TestProcessResultTrustsAcceptedWithoutExpectedOutput(t *testing.T) {
	outcome := ProcessResult(StatusResult{StatusID: StatusAccepted, Stdout: "anything"}, nil)
	require.True(t, outcome.Passed)
	require.Equal(t, VerdictAccepted, outcome.Verdict)
	require.Equal(t, "anything", outcome.Output)
}

func TestProcessResultSurfacesDiagnostics(t *testing.T) {
	expected := "42"

	compile := ProcessResult(StatusResult{StatusID: StatusCompilationError, CompileOutput: "main.c:1 error"}, &expected)
	require.False(t, compile.Passed)
	require.Equal(t, VerdictCompilationError, compile.Verdict)
	require.Equal(t, "main.c:1 error", compile.ErrorMessage)

	runtime := ProcessResult(StatusResult{StatusID: StatusRuntimeErrorMin, Stderr: "segfault"}, &expected)
	require.False(t, runtime.Passed)
	require.Equal(t, VerdictRuntimeError, runtime.Verdict)
	require.Equal(t, "segfault", runtime.ErrorMessage)
}

func TestDecodeBase64FieldFallsBackToPlainText(t *testing.T) {
	plain := "not base64 at all!!!"
	require.Equal(t, plain, decodeBase64Field(&plain))

	encoded := encode("hello")
	require.Equal(t, "hello", decodeBase64Field(&encoded))

	require.Equal(t, "", decodeBase64Field(nil))
}

func TestServiceErrorFormatting(t *testing.T) {
	wrapped := &ServiceError{Operation: "submit_batch", Err: fmt.Errorf("dial refused")}
	require.Contains(t, wrapped.Error(), "submit_batch")
	require.Contains(t, wrapped.Error(), "dial refused")

	upstream := &ServiceError{Operation: "get_batch_status", StatusCode: 500, Body: "boom"}
	require.Contains(t, upstream.Error(), "500")
	require.Contains(t, upstream.Error(), "boom")
}
