package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a user lifecycle event forwarded to the CRM sink.
type EventType string

const (
	EventUserCreated          EventType = "user_created"
	EventUserProfileCompleted EventType = "user_profile_completed"
	EventSubscriptionStarted  EventType = "subscription_started"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventPaymentFailed        EventType = "payment_failed"
	EventPaymentRecovered     EventType = "payment_recovered"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventTrialEnding          EventType = "trial_ending"
)

var eventTypes = map[EventType]struct{}{
	EventUserCreated:          {},
	EventUserProfileCompleted: {},
	EventSubscriptionStarted:  {},
	EventSubscriptionUpdated:  {},
	EventPaymentFailed:        {},
	EventPaymentRecovered:     {},
	EventSubscriptionCanceled: {},
	EventTrialEnding:          {},
}

// Valid reports whether t belongs to the closed event type set.
func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

// Event is the unit of work moving through the pipeline. It lives in
// memory only: created at intake, enriched before delivery, dropped on
// terminal success or exhaustion.
type Event struct {
	Type     EventType              `json:"type"`
	UserID   string                 `json:"userId"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewEventID derives the retry-record key for an event. The millisecond
// timestamp plus a short random suffix keeps ids unique across rapid
// submissions of the same (type, user) pair.
func NewEventID(eventType EventType, userID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", eventType, userID, time.Now().UnixMilli(), uuid.NewString()[:8])
}

// UserSnapshot is the flattened user profile (plan, usage, payment
// status, referral info, feature flags) fetched fresh for every
// delivery attempt and passed through to the sink unmodified.
type UserSnapshot map[string]interface{}

// TrialOffer is the result of a trial token issuance.
type TrialOffer struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
	UserEmail string `json:"user_email,omitempty"`
}

// SinkPayload is the body POSTed to the external sink.
type SinkPayload struct {
	Event     EventType              `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	User      UserSnapshot           `json:"user"`
	Metadata  map[string]interface{} `json:"metadata"`
}
