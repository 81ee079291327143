// Package sandbox talks to the external code-execution service. Untrusted
// code is never run in-process; every call is bounded by the caller context.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tournament-session-service/internal/domain"
)

// Runner executes submitted code against hidden test cases.
type Runner interface {
	RunTests(ctx context.Context, code string, tests []domain.TestCase) (passed, total int, err error)
}

type runRequest struct {
	Code  string            `json:"code"`
	Tests []domain.TestCase `json:"tests"`
}

type runResponse struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// HTTPRunner posts the submission to an executor service.
type HTTPRunner struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRunner(baseURL string, timeout time.Duration) *HTTPRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRunner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// RunTests reports how many hidden tests the code passed. Transport errors
// and non-200 replies map to ErrGradingBackendUnavailable so callers can
// tell the user to retry without losing points.
func (r *HTTPRunner) RunTests(ctx context.Context, code string, tests []domain.TestCase) (int, int, error) {
	body, err := json.Marshal(runRequest{Code: code, Tests: tests})
	if err != nil {
		return 0, 0, fmt.Errorf("marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, 0, err
		}
		return 0, 0, domain.ErrGradingBackendUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, domain.ErrGradingBackendUnavailable
	}

	var result runResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, domain.ErrGradingBackendUnavailable
	}
	return result.Passed, result.Total, nil
}
