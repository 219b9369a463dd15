package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubmissionEvent announces that a submission reached a terminal state.
// Consumers typically react by triggering a grade recompute; the platform
// itself never pushes grades.
type SubmissionEvent struct {
	SubmissionID string  `json:"submission_id"`
	QuestionID   string  `json:"question_id"`
	UserID       string  `json:"user_id"`
	Status       string  `json:"status"`
	Verdict      string  `json:"verdict"`
	Score        float64 `json:"score"`
}

// EventPublisher publishes submission lifecycle events. Publishing is best
// effort; failures are logged, never propagated into the pipeline.
type EventPublisher interface {
	PublishSubmissionCompleted(ctx context.Context, event SubmissionEvent)
}

// NewNATSEventPublisher constructs a NATS-backed publisher. A nil connection
// yields a publisher that drops events.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if subject == "" {
		subject = "judge.submissions.completed"
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

func (p *natsEventPublisher) PublishSubmissionCompleted(ctx context.Context, event SubmissionEvent) {
	if p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("submission_id", event.SubmissionID).Msg("failed to encode submission event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("submission_id", event.SubmissionID).Msg("failed to publish submission event")
	}
}
