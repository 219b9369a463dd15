package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "atal",
		Subsystem: "judge_client",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP calls to the execution service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atal",
		Subsystem: "judge_client",
		Name:      "request_failures_total",
		Help:      "Number of failed HTTP calls to the execution service",
	}, []string{"operation"})

	pollTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "atal",
		Subsystem: "judge_client",
		Name:      "poll_timeouts_total",
		Help:      "Number of batch polls that exceeded the polling deadline",
	})
)

// ErrPollTimeout signals that a batch did not finish within the polling
// deadline. Callers must treat it as a retryable transient failure, not as a
// verdict.
var ErrPollTimeout = errors.New("execution polling timed out")

// ServiceError wraps a failed call to the execution service, carrying the
// upstream payload for diagnostics.
type ServiceError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution service %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("execution service %s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// BatchItem describes one execution request inside a batch.
type BatchItem struct {
	SourceCode     string
	LanguageID     int
	Stdin          string
	ExpectedOutput string
	CPUTimeLimit   float64
	MemoryLimitKB  int
	WallTimeLimit  float64
}

// StatusResult is the decoded state of one batch item. Base64 payloads are
// decoded once here and never propagated encoded past this package.
type StatusResult struct {
	Token         string
	StatusID      int
	Description   string
	Stdout        string
	Stderr        string
	CompileOutput string
	Message       string
	TimeMs        int64
	MemoryKB      int64
}

// Done reports whether the item has left the queued/processing range.
func (r StatusResult) Done() bool { return IsDone(r.StatusID) }

// TestOutcome is the locally reconciled result for one executed test case.
type TestOutcome struct {
	Verdict      Verdict
	Passed       bool
	TimeMs       int64
	MemoryKB     int64
	Output       string
	ErrorMessage string
}

// Progress is reported to the polling callback after every poll.
type Progress struct {
	Completed int
	Pending   int
	Percent   float64
}

// ProgressFunc receives polling progress updates.
type ProgressFunc func(Progress)

// Client talks to the external execution service.
type Client interface {
	SubmitBatch(ctx context.Context, items []BatchItem) ([]string, error)
	GetBatchStatus(ctx context.Context, tokens []string) ([]StatusResult, error)
	PollBatchUntilDone(ctx context.Context, tokens []string, onProgress ProgressFunc) ([]StatusResult, error)
}

// Config groups execution client configuration values.
type Config struct {
	BaseURL         string
	AuthToken       string
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	Logger          zerolog.Logger
}

type httpClient struct {
	base            string
	authToken       string
	http            *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
	logger          zerolog.Logger
}

// NewClient constructs an HTTP execution client.
func NewClient(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("execution service base url is required")
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 60
	}

	return &httpClient{
		base:            strings.TrimRight(cfg.BaseURL, "/"),
		authToken:       cfg.AuthToken,
		http:            &http.Client{Timeout: cfg.RequestTimeout},
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		logger:          cfg.Logger.With().Str("component", "judge0_client").Logger(),
	}, nil
}

type batchSubmission struct {
	SourceCode     string   `json:"source_code"`
	LanguageID     int      `json:"language_id"`
	Stdin          string   `json:"stdin,omitempty"`
	ExpectedOutput string   `json:"expected_output,omitempty"`
	CPUTimeLimit   *float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    *int     `json:"memory_limit,omitempty"`
	WallTimeLimit  *float64 `json:"wall_time_limit,omitempty"`
}

type batchRequest struct {
	Submissions []batchSubmission `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type statusResponse struct {
	Token  string `json:"token"`
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout        *string     `json:"stdout"`
	Stderr        *string     `json:"stderr"`
	CompileOutput *string     `json:"compile_output"`
	Message       *string     `json:"message"`
	Time          *string     `json:"time"`
	Memory        json.Number `json:"memory"`
}

type batchStatusResponse struct {
	Submissions []statusResponse `json:"submissions"`
}

func (c *httpClient) SubmitBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	if len(items) == 0 {
		return nil, errors.New("batch must contain at least one item")
	}

	payload := batchRequest{Submissions: make([]batchSubmission, 0, len(items))}
	for _, item := range items {
		sub := batchSubmission{
			SourceCode:     item.SourceCode,
			LanguageID:     item.LanguageID,
			Stdin:          item.Stdin,
			ExpectedOutput: item.ExpectedOutput,
		}
		if item.CPUTimeLimit > 0 {
			limit := item.CPUTimeLimit
			sub.CPUTimeLimit = &limit
		}
		if item.MemoryLimitKB > 0 {
			limit := item.MemoryLimitKB
			sub.MemoryLimit = &limit
		}
		if item.WallTimeLimit > 0 {
			limit := item.WallTimeLimit
			sub.WallTimeLimit = &limit
		}
		payload.Submissions = append(payload.Submissions, sub)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal batch request: %w", err)
	}

	endpoint := c.base + "/submissions/batch?base64_encoded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	var tokens []tokenResponse
	if err := c.do(req, "submit_batch", &tokens); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Token)
	}

	c.logger.Debug().Int("items", len(items)).Msg("batch submitted")
	return out, nil
}

func (c *httpClient) GetBatchStatus(ctx context.Context, tokens []string) ([]StatusResult, error) {
	if len(tokens) == 0 {
		return nil, errors.New("at least one token is required")
	}

	query := url.Values{}
	query.Set("tokens", strings.Join(tokens, ","))
	query.Set("base64_encoded", "true")
	query.Set("fields", "token,status,stdout,stderr,compile_output,message,time,memory")

	endpoint := c.base + "/submissions/batch?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	c.setAuth(req)

	var decoded batchStatusResponse
	if err := c.do(req, "get_batch_status", &decoded); err != nil {
		return nil, err
	}

	results := make([]StatusResult, 0, len(decoded.Submissions))
	for _, sub := range decoded.Submissions {
		results = append(results, decodeStatus(sub))
	}
	return results, nil
}

func (c *httpClient) PollBatchUntilDone(ctx context.Context, tokens []string, onProgress ProgressFunc) ([]StatusResult, error) {
	deadline := time.Duration(c.maxPollAttempts) * c.pollInterval
	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	resolved := make(map[string]StatusResult, len(tokens))
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		pending := make([]string, 0, len(tokens))
		for _, token := range tokens {
			if _, ok := resolved[token]; !ok {
				pending = append(pending, token)
			}
		}

		statuses, err := c.GetBatchStatus(pollCtx, pending)
		if err != nil {
			if pollCtx.Err() != nil && ctx.Err() == nil {
				pollTimeouts.Inc()
				return nil, fmt.Errorf("%w after %s", ErrPollTimeout, deadline)
			}
			return nil, err
		}

		for _, status := range statuses {
			if status.Done() {
				resolved[status.Token] = status
			}
		}

		if onProgress != nil {
			completed := len(resolved)
			onProgress(Progress{
				Completed: completed,
				Pending:   len(tokens) - completed,
				Percent:   float64(completed) / float64(len(tokens)) * 100,
			})
		}

		if len(resolved) == len(tokens) {
			results := make([]StatusResult, 0, len(tokens))
			for _, token := range tokens {
				results = append(results, resolved[token])
			}
			return results, nil
		}

		select {
		case <-ticker.C:
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			pollTimeouts.Inc()
			return nil, fmt.Errorf("%w after %s", ErrPollTimeout, deadline)
		}
	}
}

// ProcessResult reconciles an execution status into a test outcome. When the
// service reports accepted and an expected output is supplied, correctness is
// recomputed locally by trimmed exact comparison; some language runtimes
// report accepted even when output differs under the service's own
// comparator. A nil expected output treats accepted as passed, which is the
// oracle-generation path.
func ProcessResult(status StatusResult, expectedOutput *string) TestOutcome {
	outcome := TestOutcome{
		Verdict:  StatusToVerdict(status.StatusID),
		TimeMs:   status.TimeMs,
		MemoryKB: status.MemoryKB,
		Output:   status.Stdout,
	}

	switch outcome.Verdict {
	case VerdictAccepted:
		if expectedOutput == nil {
			outcome.Passed = true
			break
		}
		if strings.TrimSpace(status.Stdout) == strings.TrimSpace(*expectedOutput) {
			outcome.Passed = true
		} else {
			outcome.Verdict = VerdictWrongAnswer
		}
	case VerdictCompilationError:
		outcome.ErrorMessage = firstNonEmpty(status.CompileOutput, status.Message)
	default:
		outcome.ErrorMessage = firstNonEmpty(status.Stderr, status.Message)
	}

	return outcome
}

func (c *httpClient) setAuth(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}
}

func (c *httpClient) do(req *http.Request, operation string, out interface{}) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return &ServiceError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return &ServiceError{Operation: operation, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestFailures.WithLabelValues(operation).Inc()
		return &ServiceError{Operation: operation, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return &ServiceError{Operation: operation, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func decodeStatus(sub statusResponse) StatusResult {
	result := StatusResult{
		Token:         sub.Token,
		StatusID:      sub.Status.ID,
		Description:   sub.Status.Description,
		Stdout:        decodeBase64Field(sub.Stdout),
		Stderr:        decodeBase64Field(sub.Stderr),
		CompileOutput: decodeBase64Field(sub.CompileOutput),
		Message:       decodeBase64Field(sub.Message),
	}

	if sub.Time != nil {
		if seconds, err := strconv.ParseFloat(*sub.Time, 64); err == nil {
			result.TimeMs = int64(seconds * 1000)
		}
	}
	if memory, err := sub.Memory.Float64(); err == nil {
		result.MemoryKB = int64(memory)
	}

	return result
}

func decodeBase64Field(value *string) string {
	if value == nil {
		return ""
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		// The service occasionally returns plain text for short fields.
		return trimmed
	}
	return string(decoded)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
