package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/replyforge/event-relay/internal/model"
	apperrors "github.com/replyforge/event-relay/pkg/errors"
	"github.com/replyforge/event-relay/pkg/metrics"
)

// Provider returns a fresh snapshot of a user's current state. Fetched
// once per delivery attempt, never cached across retries.
type Provider interface {
	Fetch(ctx context.Context, userID string) (model.UserSnapshot, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the app's internal sync-user endpoint.
type Client struct {
	cfg     Config
	client  *http.Client
	metrics *metrics.Metrics
}

func NewClient(cfg Config, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
	}
}

type syncUserRequest struct {
	UserID string `json:"userId"`
}

type syncUserResult struct {
	UserID  string             `json:"userId"`
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	Data    model.UserSnapshot `json:"data"`
}

type syncUserResponse struct {
	Results []syncUserResult `json:"results"`
}

func (c *Client) Fetch(ctx context.Context, userID string) (model.UserSnapshot, error) {
	body, err := json.Marshal(syncUserRequest{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync-user request: %w", err)
	}

	url := c.cfg.BaseURL + "/internal/sync-user"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build sync-user request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.SnapshotRequests.WithLabelValues("error").Inc()
		return nil, apperrors.NewUnavailable("snapshot provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.SnapshotRequests.WithLabelValues("error").Inc()
		return nil, apperrors.NewUnavailable("snapshot provider",
			fmt.Errorf("sync-user returned status %d", resp.StatusCode))
	}

	var out syncUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.SnapshotRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode sync-user response: %w", err)
	}

	if len(out.Results) == 0 {
		c.metrics.SnapshotRequests.WithLabelValues("error").Inc()
		return nil, apperrors.NewNotFound("user "+userID, nil)
	}
	result := out.Results[0]
	if !result.Success {
		c.metrics.SnapshotRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("sync-user failed for user %s: %s", userID, result.Error)
	}

	c.metrics.SnapshotRequests.WithLabelValues("success").Inc()
	return result.Data, nil
}
