package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Job is the message consumed by the embedding worker.
type Job struct {
	AssessmentID  string    `json:"assessment_id"`
	CorrelationID string    `json:"correlation_id"`
	RequestedAt   time.Time `json:"requested_at"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends embedding jobs to a durable AMQP queue.
type Publisher struct {
	channel channel
	closer  func() error
	queue   string
	logger  *zap.Logger
	now     func() time.Time
}

// Dial connects to url and declares queue.
func Dial(url, queue string, logger *zap.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	p := newPublisher(ch, q.Name, logger)
	p.closer = func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return p, nil
}

func newPublisher(ch channel, queue string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		channel: ch,
		queue:   queue,
		logger:  logger.Named("embedding"),
		now:     time.Now,
	}
}

// Trigger publishes an embedding job for assessmentID.
func (p *Publisher) Trigger(ctx context.Context, assessmentID string) error {
	job := Job{
		AssessmentID:  assessmentID,
		CorrelationID: uuid.NewString(),
		RequestedAt:   p.now().UTC(),
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode embedding job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: job.CorrelationID,
			Timestamp:     job.RequestedAt,
			Body:          body,
		},
	); err != nil {
		return fmt.Errorf("publish embedding job for %s: %w", assessmentID, err)
	}

	p.logger.Info("embedding job published",
		zap.String("assessment_id", assessmentID),
		zap.String("correlation_id", job.CorrelationID),
		zap.String("queue", p.queue),
	)
	return nil
}

func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
