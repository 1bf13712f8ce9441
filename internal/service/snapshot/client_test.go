package snapshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replyforge/event-relay/pkg/metrics"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
		APIKey:  "internal-key",
		Timeout: 2 * time.Second,
	}, metrics.NewTestMetrics("snap_test"))
}

func TestFetchReturnsSnapshot(t *testing.T) {
	var gotAuth string
	var gotBody syncUserRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		assert.Equal(t, "/internal/sync-user", r.URL.Path)
		json.NewEncoder(w).Encode(syncUserResponse{
			Results: []syncUserResult{{
				UserID:  "u1",
				Success: true,
				Data:    map[string]interface{}{"plan": "trial", "replies_used": float64(12)},
			}},
		})
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).Fetch(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "Bearer internal-key", gotAuth)
	assert.Equal(t, "u1", gotBody.UserID)
	assert.Equal(t, "trial", snap["plan"])
}

func TestFetchFailsOnUnsuccessfulResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(syncUserResponse{
			Results: []syncUserResult{{UserID: "u1", Success: false, Error: "user not found"}},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user not found")
}

func TestFetchFailsOnEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(syncUserResponse{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "u1")
	assert.Error(t, err)
}

func TestFetchFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "u1")
	assert.Error(t, err)
}

func TestFetchFailsOnUnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "u1")
	assert.Error(t, err)
}
