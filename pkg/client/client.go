// Package client is a Go SDK for the feed-engine HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a Go SDK for the feed-engine API
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new feed-engine client. sessionID identifies the
// anonymous learner and is sent with every request; it may be empty
// for session-less calls.
func NewClient(baseURL, sessionID string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		sessionID: sessionID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Challenge is a challenge entry in a built queue
type Challenge struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	ConceptArea string                 `json:"concept_area"`
	Title       string                 `json:"title"`
	Brief       string                 `json:"brief,omitempty"`
	Difficulty  int                    `json:"difficulty,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// Queue is an ordered batch of challenges
type Queue struct {
	Challenges []*Challenge `json:"challenges"`
	Total      int          `json:"total"`
}

// QueueRequest asks the server to build a challenge queue
type QueueRequest struct {
	SessionID   string   `json:"sessionId,omitempty"`
	ExcludedIDs []string `json:"excludedIds,omitempty"`
	BatchSize   int      `json:"batchSize,omitempty"`
}

// SubmitRequest records a completed challenge attempt
type SubmitRequest struct {
	SessionID     string                 `json:"sessionId"`
	ChallengeID   string                 `json:"challengeId"`
	ChallengeType string                 `json:"challengeType"`
	ConceptArea   string                 `json:"conceptArea"`
	Submission    map[string]interface{} `json:"submission"`
	TimeMs        *int64                 `json:"timeMs,omitempty"`
	UsedAssist    bool                   `json:"usedAi,omitempty"`
}

// Comparison describes how a submission stacks up against peers
type Comparison struct {
	Percentile       int              `json:"percentile"`
	TotalSubmissions int64            `json:"totalSubmissions"`
	Distribution     map[string]int64 `json:"distribution"`
	Insight          string           `json:"insight"`
}

// Progress is a session's completion record
type Progress struct {
	SessionID      string         `json:"session_id"`
	CompletedIDs   []string       `json:"completed_ids"`
	AreaCounts     map[string]int `json:"concept_area_counts"`
	TotalCompleted int            `json:"total_completed"`
}

// BuildQueue asks the server for a fresh challenge queue
func (c *Client) BuildQueue(ctx context.Context, req QueueRequest) (*Queue, error) {
	if req.SessionID == "" {
		req.SessionID = c.sessionID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/feed/queue", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var queue Queue
	if err := json.Unmarshal(resp, &queue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &queue, nil
}

// Submit records a submission and returns the peer comparison
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Comparison, error) {
	if req.SessionID == "" {
		req.SessionID = c.sessionID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/feed/submit", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result Comparison
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// Compare fetches the peer comparison for a challenge
func (c *Client) Compare(ctx context.Context, challengeID string) (*Comparison, error) {
	path := "/api/v1/feed/compare?challengeId=" + url.QueryEscape(challengeID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result Comparison
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// Progress fetches the session's completion record
func (c *Client) Progress(ctx context.Context) (*Progress, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/feed/progress", nil)
	if err != nil {
		return nil, err
	}

	var result Progress
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// ListChallenges fetches catalog summaries
func (c *Client) ListChallenges(ctx context.Context) ([]*Challenge, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/challenges", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Challenges []*Challenge `json:"challenges"`
		Total      int          `json:"total"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Challenges, nil
}

// Health checks whether the server is up
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// doRequest executes an HTTP request and returns the response body
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set("X-Session-ID", c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
