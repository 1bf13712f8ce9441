package trialtoken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/replyforge/event-relay/internal/model"
	apperrors "github.com/replyforge/event-relay/pkg/errors"
)

// Issuer mints a single-use trial offer token for a user. Issuance is
// best-effort metadata enrichment: callers must treat failure as
// non-fatal for the underlying event.
type Issuer interface {
	Issue(ctx context.Context, userID, source string) (*model.TrialOffer, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the app's internal trial-token endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type issueRequest struct {
	UserID string `json:"userId"`
	Source string `json:"source"`
}

func (c *Client) Issue(ctx context.Context, userID, source string) (*model.TrialOffer, error) {
	body, err := json.Marshal(issueRequest{UserID: userID, Source: source})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trial-token request: %w", err)
	}

	url := c.cfg.BaseURL + "/internal/trial-token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build trial-token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUnavailable("trial token issuer", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUnavailable("trial token issuer",
			fmt.Errorf("trial-token returned status %d", resp.StatusCode))
	}

	var offer model.TrialOffer
	if err := json.NewDecoder(resp.Body).Decode(&offer); err != nil {
		return nil, fmt.Errorf("failed to decode trial-token response: %w", err)
	}
	if offer.Token == "" {
		return nil, fmt.Errorf("trial-token returned empty token for user %s", userID)
	}

	return &offer, nil
}
