package event

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/replyforge/event-relay/internal/handler"
	"github.com/replyforge/event-relay/internal/model"
	"github.com/replyforge/event-relay/internal/service/dedup"
	"github.com/replyforge/event-relay/internal/service/trialtoken"
	"github.com/replyforge/event-relay/pkg/logger"
	"github.com/replyforge/event-relay/pkg/metrics"
)

// Scheduler is the slice of the retry scheduler the handler needs.
type Scheduler interface {
	Submit(event *model.Event) string
	Size() int
}

type Config struct {
	Enabled        bool
	SinkConfigured bool
	TokenTimeout   time.Duration
}

type Handler struct {
	guard     dedup.Guard
	scheduler Scheduler
	issuer    trialtoken.Issuer
	cfg       Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewHandler(guard dedup.Guard, scheduler Scheduler, issuer trialtoken.Issuer, cfg Config, l *logger.Logger, m *metrics.Metrics) *Handler {
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = 5 * time.Second
	}
	return &Handler{
		guard:     guard,
		scheduler: scheduler,
		issuer:    issuer,
		cfg:       cfg,
		logger:    l.WithComponent("intake"),
		metrics:   m,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	registerEventTypeValidation()

	events := r.Group("/events")
	{
		events.POST("", h.IntakeEvent)
		events.GET("/health", h.HealthCheck)
	}
}

func registerEventTypeValidation() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool {
			return model.EventType(fl.Field().String()).Valid()
		})
	}
}

type intakeRequest struct {
	Event              string                 `json:"event" binding:"required,eventtype"`
	UserID             string                 `json:"userId" binding:"required"`
	Data               map[string]interface{} `json:"data"`
	Metadata           map[string]interface{} `json:"metadata"`
	GenerateTrialToken bool                   `json:"generateTrialToken"`
}

type intakeResponse struct {
	EventID    string            `json:"eventId,omitempty"`
	Accepted   bool              `json:"accepted"`
	Duplicate  bool              `json:"duplicate,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	TrialOffer *model.TrialOffer `json:"trial_offer,omitempty"`
}

// IntakeEvent validates, dedups and queues a lifecycle event. It
// responds as soon as the event is queued; delivery outcome never
// reaches the original caller.
func (h *Handler) IntakeEvent(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.EventsRejected.Inc()
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if !h.cfg.Enabled {
		c.JSON(http.StatusOK, intakeResponse{
			Accepted: false,
			Reason:   "pipeline_disabled",
		})
		return
	}

	if !h.guard.Accept(req.Event, req.UserID) {
		h.metrics.EventsSuppressed.WithLabelValues(req.Event).Inc()
		h.logger.Debug("duplicate event suppressed",
			"event_type", req.Event,
			"user_id", req.UserID)
		c.JSON(http.StatusOK, intakeResponse{
			EventID:   model.NewEventID(model.EventType(req.Event), req.UserID),
			Accepted:  false,
			Duplicate: true,
		})
		return
	}

	evt := &model.Event{
		Type:     model.EventType(req.Event),
		UserID:   req.UserID,
		Payload:  req.Data,
		Metadata: req.Metadata,
	}
	if evt.Metadata == nil {
		evt.Metadata = make(map[string]interface{})
	}

	offer := h.maybeIssueTrialToken(c.Request.Context(), evt, req.GenerateTrialToken)

	eventID := h.scheduler.Submit(evt)
	h.metrics.EventsAccepted.WithLabelValues(req.Event).Inc()

	c.JSON(http.StatusOK, intakeResponse{
		EventID:    eventID,
		Accepted:   true,
		TrialOffer: offer,
	})
}

// maybeIssueTrialToken enriches a user_created event with trial offer
// metadata. Issuance is best-effort: a failure is logged and swallowed,
// the event ships without the trial fields.
func (h *Handler) maybeIssueTrialToken(ctx context.Context, evt *model.Event, wanted bool) *model.TrialOffer {
	if evt.Type != model.EventUserCreated || !wanted || h.issuer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.TokenTimeout)
	defer cancel()

	offer, err := h.issuer.Issue(ctx, evt.UserID, "signup")
	if err != nil {
		h.metrics.TrialTokensFailed.Inc()
		h.logger.Warn("trial token issuance failed, delivering without trial metadata",
			"user_id", evt.UserID,
			"error", err.Error())
		return nil
	}

	h.metrics.TrialTokensIssued.Inc()
	evt.Metadata["trial_offer_token"] = offer.Token
	evt.Metadata["trial_offer_url"] = offer.URL
	evt.Metadata["trial_offer_expires_at"] = offer.ExpiresAt
	return offer
}

// HealthCheck reports pipeline configuration and queue depth.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"configured":  h.cfg.SinkConfigured,
		"syncEnabled": h.cfg.Enabled,
		"queueSize":   h.scheduler.Size(),
	})
}
