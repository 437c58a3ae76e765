package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteScorer is the ML strategy: it calls a transformer-model sidecar
// that returns class probabilities for a text and maps them to
// P(positive) - P(negative). The sidecar owns truncation and batching.
type RemoteScorer struct {
	endpoint   string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scorer API error (%d): %s", e.Status, e.Body)
}

func NewRemoteScorer(httpClient *http.Client, endpoint string) *RemoteScorer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteScorer{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
	}
}

func (c *RemoteScorer) Name() string {
	return StrategyML
}

type remoteScoreRequest struct {
	Text string `json:"text"`
}

type remoteScoreResponse struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

func (c *RemoteScorer) Score(ctx context.Context, text string) (float64, error) {
	if c == nil || c.endpoint == "" {
		return 0, fmt.Errorf("remote scorer not configured")
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("empty text")
	}
	payload, err := json.Marshal(remoteScoreRequest{Text: text})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	var out remoteScoreResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return clamp(out.Positive-out.Negative, -1, 1), nil
}
