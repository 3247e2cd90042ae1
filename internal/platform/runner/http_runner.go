package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"codearena/internal/domain/model"
)

// HTTPRunner calls the external sandboxed execution service. A
// submission that the sandbox cannot finish within the timeout comes
// back as an error and is surfaced to the dispatcher as a failure.
type HTTPRunner struct {
	url    string
	client *http.Client
}

func NewHTTPRunner(url string, timeout time.Duration) *HTTPRunner {
	return &HTTPRunner{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type runRequest struct {
	SubmissionID string `json:"submission_id"`
	ProblemID    string `json:"problem_id"`
	Language     string `json:"language"`
	Code         string `json:"code"`
}

type runResponse struct {
	Answer model.Answer `json:"answer"`
	Error  string       `json:"error,omitempty"`
}

func (r *HTTPRunner) Run(ctx context.Context, sub *model.Submission) (model.Answer, error) {
	body, err := json.Marshal(runRequest{
		SubmissionID: sub.ID,
		ProblemID:    sub.ProblemID,
		Language:     sub.Language,
		Code:         sub.Code,
	})
	if err != nil {
		return model.AnswerNone, fmt.Errorf("failed to marshal runner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return model.AnswerNone, fmt.Errorf("failed to build runner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.AnswerNone, fmt.Errorf("runner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.AnswerNone, fmt.Errorf("runner returned status %d", resp.StatusCode)
	}

	var result runResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.AnswerNone, fmt.Errorf("failed to decode runner response: %w", err)
	}
	if result.Error != "" {
		return model.AnswerNone, fmt.Errorf("runner reported error: %s", result.Error)
	}
	if result.Answer == model.AnswerNone || result.Answer == "" {
		return model.AnswerNone, fmt.Errorf("runner returned no verdict")
	}
	return result.Answer, nil
}
