package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/replyforge/event-relay/internal/model"
	"github.com/replyforge/event-relay/internal/service/snapshot"
	"github.com/replyforge/event-relay/pkg/circuitbreaker"
	"github.com/replyforge/event-relay/pkg/logger"
	"github.com/replyforge/event-relay/pkg/metrics"
)

type Config struct {
	SinkURL    string
	SinkSecret string
	Timeout    time.Duration
}

// Forwarder performs one delivery attempt: fetch a fresh user snapshot,
// build the outbound payload, POST it to the sink. Snapshot failure and
// sink failure are deliberately indistinguishable to the caller; both
// consume one attempt from the same retry budget.
type Forwarder struct {
	snapshots snapshot.Provider
	cfg       Config
	client    *http.Client
	breaker   *circuitbreaker.CircuitBreaker
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func New(snapshots snapshot.Provider, cfg Config, l *logger.Logger, m *metrics.Metrics) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Forwarder{
		snapshots: snapshots,
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "crm-sink",
			MaxFailures: 10,
			Timeout:     30 * time.Second,
		}),
		logger:  l.WithComponent("forwarder"),
		metrics: m,
	}
}

// Configured reports whether a sink URL is set. When it is not, the
// scheduler drops events instead of attempting delivery.
func (f *Forwarder) Configured() bool {
	return f.cfg.SinkURL != ""
}

// Deliver returns true only when the sink acknowledged the event with a
// 2xx status.
func (f *Forwarder) Deliver(ctx context.Context, event *model.Event) bool {
	timer := prometheus.NewTimer(f.metrics.DeliveryLatency)
	defer timer.ObserveDuration()

	snap, err := f.snapshots.Fetch(ctx, event.UserID)
	if err != nil {
		f.logger.Error(err, "failed to fetch user snapshot",
			"user_id", event.UserID,
			"event_type", string(event.Type))
		return false
	}

	payload := model.SinkPayload{
		Event:     event.Type,
		Timestamp: time.Now().UTC(),
		User:      snap,
		Metadata:  event.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		f.logger.Error(err, "failed to marshal sink payload",
			"event_type", string(event.Type))
		return false
	}

	err = f.breaker.Execute(func() error {
		return f.post(ctx, body)
	})
	if err != nil {
		f.metrics.SinkRequests.WithLabelValues("error").Inc()
		f.logger.Error(err, "sink delivery failed",
			"user_id", event.UserID,
			"event_type", string(event.Type))
		return false
	}

	f.metrics.SinkRequests.WithLabelValues("success").Inc()
	return true
}

func (f *Forwarder) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.SinkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.cfg.SinkSecret != "" {
		req.Header.Set("Authorization", "Bearer "+f.cfg.SinkSecret)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}
	return nil
}
