package scheduler

import (
	"context"
	"time"

	"github.com/replyforge/event-relay/internal/model"
	"github.com/replyforge/event-relay/pkg/logger"
	"github.com/replyforge/event-relay/pkg/metrics"
)

// Deliverer performs one delivery attempt for an event.
type Deliverer interface {
	Deliver(ctx context.Context, event *model.Event) bool
	Configured() bool
}

type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Scheduler owns retry state for in-flight events. Submit returns
// immediately; delivery runs on a background goroutine per event, so a
// failure can never affect the HTTP response already sent to the
// caller. Attempts for one event are strictly sequential: the next
// retry is armed only after the previous attempt's outcome is known.
// Different events run fully independently.
type Scheduler struct {
	deliverer Deliverer
	cfg       Config
	store     Store
	logger    *logger.Logger
	metrics   *metrics.Metrics
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(deliverer Deliverer, cfg Config, l *logger.Logger, m *metrics.Metrics) *Scheduler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		deliverer: deliverer,
		cfg:       cfg,
		store:     newMemoryStore(),
		logger:    l.WithComponent("scheduler"),
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit queues an event for asynchronous delivery and returns its id.
// The caller is never blocked on the sink. When no sink is configured
// the event is acknowledged and dropped; that is a deployment
// misconfiguration, so it is logged.
func (s *Scheduler) Submit(event *model.Event) string {
	id := model.NewEventID(event.Type, event.UserID)

	if !s.deliverer.Configured() {
		s.logger.Warn("sink URL not configured, dropping event",
			"event_id", id,
			"event_type", string(event.Type))
		return id
	}

	rec := &Record{Event: event}
	s.store.Put(id, rec)
	s.metrics.QueueSize.Set(float64(s.store.Size()))

	go s.run(id, rec)
	return id
}

// Size reports the number of events in flight or awaiting retry.
func (s *Scheduler) Size() int {
	return s.store.Size()
}

// Shutdown stops all pending retry timers. Queued events are lost;
// the queue is volatile by design.
func (s *Scheduler) Shutdown() {
	s.cancel()
}

func (s *Scheduler) run(id string, rec *Record) {
	for {
		rec.Attempts++

		if s.deliverer.Deliver(s.ctx, rec.Event) {
			s.remove(id)
			s.metrics.DeliveriesSucceeded.WithLabelValues(string(rec.Event.Type)).Inc()
			s.logger.Debug("event delivered",
				"event_id", id,
				"attempts", rec.Attempts)
			return
		}

		s.metrics.DeliveriesFailed.WithLabelValues(string(rec.Event.Type)).Inc()

		if rec.Attempts >= s.cfg.MaxAttempts {
			s.remove(id)
			s.metrics.DeliveriesAbandoned.WithLabelValues(string(rec.Event.Type)).Inc()
			s.logger.Error(nil, "event abandoned after exhausting retries",
				"event_id", id,
				"event_type", string(rec.Event.Type),
				"user_id", rec.Event.UserID,
				"attempts", rec.Attempts)
			return
		}

		// Linear backoff: 5s after the 1st failure, 10s after the 2nd.
		delay := s.cfg.BackoffBase * time.Duration(rec.Attempts)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			s.remove(id)
			return
		}
	}
}

func (s *Scheduler) remove(id string) {
	s.store.Remove(id)
	s.metrics.QueueSize.Set(float64(s.store.Size()))
}
