package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	calls    int
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.calls++
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}

func TestPublisherTrigger(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "embeddings", nil)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := p.Trigger(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ch.exchange != "" || ch.key != "embeddings" {
		t.Fatalf("unexpected routing %q/%q", ch.exchange, ch.key)
	}
	if ch.msg.ContentType != "application/json" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing %+v", ch.msg)
	}

	var job Job
	if err := json.Unmarshal(ch.msg.Body, &job); err != nil {
		t.Fatalf("body is not a job: %v", err)
	}
	if job.AssessmentID != "a1" || job.CorrelationID == "" || job.CorrelationID != ch.msg.CorrelationId {
		t.Fatalf("unexpected job %+v", job)
	}
	if !job.RequestedAt.Equal(p.now()) {
		t.Fatalf("unexpected requested_at %v", job.RequestedAt)
	}
}

func TestPublisherTriggerError(t *testing.T) {
	broker := errors.New("channel closed")
	p := newPublisher(&fakeChannel{err: broker}, "embeddings", nil)

	err := p.Trigger(context.Background(), "a1")
	if !errors.Is(err, broker) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestNoopTrigger(t *testing.T) {
	if err := (Noop{}).Trigger(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
