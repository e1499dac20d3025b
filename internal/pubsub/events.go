package pubsub

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kidsqa/realtime-gateway/internal/observability"
)

// Application event names.
const (
	EventNameQuestionProcessing = "question.processing"
	EventNameAnswerGenerated    = "answer.generated"
)

// DefaultQuestionStatus is the status reported while an answer is being
// prepared.
const DefaultQuestionStatus = "processing"

// QuestionProcessingEvent announces that a question has been accepted and
// an answer is being prepared.
type QuestionProcessingEvent struct {
	QuestionID string         `json:"question_id"`
	UserID     string         `json:"user_id"`
	Question   string         `json:"question"`
	Status     string         `json:"status"`
	Metadata   map[string]any `json:"metadata"`
}

// AnswerGeneratedEvent announces that an answer is ready.
type AnswerGeneratedEvent struct {
	QuestionID string         `json:"question_id"`
	UserID     string         `json:"user_id"`
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Metadata   map[string]any `json:"metadata"`
}

// questionProcessingPayload is the wire form of a processing notification.
type questionProcessingPayload struct {
	QuestionID string         `json:"question_id"`
	UserID     string         `json:"user_id"`
	Question   string         `json:"question"`
	Status     string         `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  string         `json:"timestamp"`
	Type       string         `json:"type"`
}

// answerGeneratedPayload is the wire form of an answer notification.
type answerGeneratedPayload struct {
	QuestionID string         `json:"question_id"`
	UserID     string         `json:"user_id"`
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  string         `json:"timestamp"`
	Type       string         `json:"type"`
}

// Broadcaster is the producer-side entry point. It turns application
// events into protocol frames and fans them out through the registry.
type Broadcaster struct {
	registry *Registry
	logger   observability.Logger
	tracer   *observability.Tracer
	now      func() time.Time
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets the logger.
func WithBroadcasterLogger(logger observability.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBroadcasterTracer sets the tracer.
func WithBroadcasterTracer(tracer *observability.Tracer) BroadcasterOption {
	return func(b *Broadcaster) {
		b.tracer = tracer
	}
}

// WithBroadcasterClock overrides the timestamp source, for tests.
func WithBroadcasterClock(now func() time.Time) BroadcasterOption {
	return func(b *Broadcaster) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBroadcaster creates a broadcaster over a registry.
func NewBroadcaster(registry *Registry, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		registry: registry,
		logger:   observability.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PublishQuestionProcessing notifies the asking user that their question
// is being processed. Delivery targets only the user's private channel.
// Returns the number of deliveries.
func (b *Broadcaster) PublishQuestionProcessing(ctx context.Context, ev QuestionProcessingEvent) (int, error) {
	if ev.Status == "" {
		ev.Status = DefaultQuestionStatus
	}

	payload := questionProcessingPayload{
		QuestionID: ev.QuestionID,
		UserID:     ev.UserID,
		Question:   ev.Question,
		Status:     ev.Status,
		Metadata:   ev.Metadata,
		Timestamp:  b.now().UTC().Format(time.RFC3339),
		Type:       "question_processing",
	}

	data, err := EncodeFrame(EventNameQuestionProcessing, PrivateUserChannel(ev.UserID), payload)
	if err != nil {
		return 0, err
	}

	if b.tracer != nil {
		_, span := b.tracer.Start(ctx, "pubsub.publish",
			attribute.String("event", EventNameQuestionProcessing),
			attribute.String("user_id", ev.UserID),
		)
		defer span.End()
	}

	delivered := b.registry.Broadcast(PrivateUserChannel(ev.UserID), data)
	b.logger.Info("question processing published",
		observability.String("question_id", ev.QuestionID),
		observability.String("user_id", ev.UserID),
		observability.Int("delivered", delivered),
	)
	return delivered, nil
}

// PublishAnswerGenerated notifies the asking user on their private channel
// and mirrors the answer to the shared chat channel. Returns the total
// number of deliveries across both channels.
func (b *Broadcaster) PublishAnswerGenerated(ctx context.Context, ev AnswerGeneratedEvent) (int, error) {
	payload := answerGeneratedPayload{
		QuestionID: ev.QuestionID,
		UserID:     ev.UserID,
		Question:   ev.Question,
		Answer:     ev.Answer,
		Metadata:   ev.Metadata,
		Timestamp:  b.now().UTC().Format(time.RFC3339),
		Type:       "answer_generated",
	}

	if b.tracer != nil {
		_, span := b.tracer.Start(ctx, "pubsub.publish",
			attribute.String("event", EventNameAnswerGenerated),
			attribute.String("user_id", ev.UserID),
		)
		defer span.End()
	}

	delivered := 0
	for _, channel := range []string{PrivateUserChannel(ev.UserID), ChatChannel} {
		data, err := EncodeFrame(EventNameAnswerGenerated, channel, payload)
		if err != nil {
			return delivered, err
		}
		delivered += b.registry.Broadcast(channel, data)
	}

	b.logger.Info("answer published",
		observability.String("question_id", ev.QuestionID),
		observability.String("user_id", ev.UserID),
		observability.Int("delivered", delivered),
	)
	return delivered, nil
}
