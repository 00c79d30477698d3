package ghost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPRequester asks the backend's completion endpoint for continuations.
type HTTPRequester struct {
	endpoint string
	model    string
	provider string
	httpc    *http.Client
}

// NewHTTPRequester returns a requester for the given completion endpoint.
// Model and provider may be empty to let the backend resolve its defaults.
func NewHTTPRequester(endpoint, model, provider string) *HTTPRequester {
	return &HTTPRequester{
		endpoint: endpoint,
		model:    model,
		provider: provider,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

type completionRequest struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// Complete implements Requester against the HTTP backend.
func (r *HTTPRequester) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{Prompt: prompt, Model: r.model, Provider: r.provider})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("completion backend returned %d", resp.StatusCode)
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	return parsed.Text, nil
}
