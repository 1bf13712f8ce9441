package trialtoken

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replyforge/event-relay/internal/model"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{BaseURL: baseURL, APIKey: "internal-key", Timeout: 2 * time.Second})
}

func TestIssueReturnsOffer(t *testing.T) {
	var gotBody issueRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/trial-token", r.URL.Path)
		assert.Equal(t, "Bearer internal-key", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(model.TrialOffer{
			Token:     "tok_abc",
			URL:       "https://app.example.com/trial?t=tok_abc",
			ExpiresAt: "2026-09-05T00:00:00Z",
			UserEmail: "u1@example.com",
		})
	}))
	defer srv.Close()

	offer, err := newTestClient(srv.URL).Issue(context.Background(), "u1", "signup")

	require.NoError(t, err)
	assert.Equal(t, "u1", gotBody.UserID)
	assert.Equal(t, "signup", gotBody.Source)
	assert.Equal(t, "tok_abc", offer.Token)
	assert.NotEmpty(t, offer.URL)
}

func TestIssueFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Issue(context.Background(), "u1", "signup")
	assert.Error(t, err)
}

func TestIssueFailsOnEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.TrialOffer{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Issue(context.Background(), "u1", "signup")
	assert.Error(t, err)
}
