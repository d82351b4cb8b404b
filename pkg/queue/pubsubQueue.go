package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

// PubSubQueueCreator defines a function type for creating Pub/Sub backed queues.
type PubSubQueueCreator func(ctx context.Context, settings *config.QueueSettings, opts ...option.ClientOption) (JobQueue, error)

// NewPubSubQueue is the default implementation of PubSubQueueCreator.
var NewPubSubQueue PubSubQueueCreator = func(ctx context.Context, settings *config.QueueSettings, opts ...option.ClientOption) (JobQueue, error) {
	client, err := pubsub.NewClient(ctx, settings.ProjectID, opts...)
	if err != nil {
		return nil, err
	}
	return &pubSubQueue{client: client, deadCh: make(chan *Job, retention)}, nil
}

type pubSubQueue struct {
	client *pubsub.Client
	deadCh chan *Job
}

const notBeforeAttr = "not_before_unix_ms"

func (p *pubSubQueue) Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (string, error) {
	opts = opts.withDefaults()
	job := &Job{
		ID:          uuid.New().String(),
		Name:        name,
		Payload:     payload,
		Attempt:     0,
		MaxAttempts: opts.MaxAttempts,
		Backoff:     opts.Backoff,
		Headers:     opts.Headers,
		EnqueuedAt:  time.Now(),
	}

	var notBefore time.Time
	if opts.Delay > 0 {
		notBefore = time.Now().Add(opts.Delay)
	}
	if err := p.publish(ctx, name, job, notBefore); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (p *pubSubQueue) publish(ctx context.Context, topic string, job *Job, notBefore time.Time) error {
	tracer := otel.Tracer("go-crosspost")
	ctx, span := tracer.Start(ctx, "Enqueue",
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("pubsub"),
			semconv.MessagingDestinationKindKey.String("topic"),
			semconv.MessagingDestinationKey.String(topic),
		),
	)
	defer span.End()

	body, err := json.Marshal(job)
	if err != nil {
		span.RecordError(err)
		return err
	}

	// Inject the trace context into the message attributes
	propagator := otel.GetTextMapPropagator()
	attributes := make(map[string]string)
	propagator.Inject(ctx, propagation.MapCarrier(attributes))
	for key, value := range job.Headers {
		attributes[key] = value
	}
	if !notBefore.IsZero() {
		attributes[notBeforeAttr] = strconv.FormatInt(notBefore.UnixMilli(), 10)
	}

	message := &pubsub.Message{
		Data:       body,
		Attributes: attributes,
	}

	res := p.client.Topic(topic).Publish(ctx, message)
	if _, err := res.Get(ctx); err != nil { // wait for server ack
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.Int("messaging.message_payload_size_bytes", len(body)),
	)

	return nil
}

func (p *pubSubQueue) ensureTopology(ctx context.Context, name string) (*pubsub.Subscription, error) {
	for _, topic := range []string{name, deadTopic(name)} {
		t := p.client.Topic(topic)
		exists, err := t.Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			if _, err := p.client.CreateTopic(ctx, topic); err != nil {
				return nil, err
			}
		}
	}

	sub := p.client.Subscription(name + "-worker")
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		sub, err = p.client.CreateSubscription(ctx, name+"-worker", pubsub.SubscriptionConfig{
			Topic:       p.client.Topic(name),
			AckDeadline: 60 * time.Second,
		})
		if err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func deadTopic(name string) string { return name + "-dead" }

func (p *pubSubQueue) Consume(ctx context.Context, name string, handler Handler, opts ConsumeOptions) error {
	opts = opts.withDefaults()

	sub, err := p.ensureTopology(ctx, name)
	if err != nil {
		return err
	}
	sub.ReceiveSettings.MaxOutstandingMessages = opts.Concurrency

	go func() {
		err := sub.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			p.process(msgCtx, name, msg, handler, opts)
		})
		if err != nil && ctx.Err() == nil {
			logrus.WithError(err).WithField("job", name).Error("pubsub receive terminated")
		}
	}()
	return nil
}

func (p *pubSubQueue) process(ctx context.Context, name string, msg *pubsub.Message, handler Handler, opts ConsumeOptions) {
	// Pub/Sub has no native per-message delay; messages carry their due time
	// and are nacked back until it passes.
	if raw, ok := msg.Attributes[notBeforeAttr]; ok {
		if dueMs, err := strconv.ParseInt(raw, 10, 64); err == nil && time.Now().UnixMilli() < dueMs {
			msg.Nack()
			return
		}
	}

	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logrus.WithError(err).WithField("job", name).Error("discarding undecodable job")
		dead := Job{ID: uuid.New().String(), Name: name, Payload: msg.Data, LastError: err.Error()}
		_ = p.publish(ctx, deadTopic(name), &dead, time.Time{})
		msg.Ack()
		return
	}
	job.Attempt++

	jobCtx, cancel := context.WithTimeout(ctx, opts.JobTimeout)
	err := handler(jobCtx, &job)
	cancel()

	if err == nil {
		msg.Ack()
		return
	}

	if job.Attempt >= job.MaxAttempts {
		job.LastError = err.Error()
		logrus.WithError(err).WithFields(logrus.Fields{
			"job":     job.Name,
			"jobId":   job.ID,
			"attempt": job.Attempt,
		}).Error("job exhausted attempts, dead-lettering")
		_ = p.publish(ctx, deadTopic(name), &job, time.Time{})
		msg.Ack()
		select {
		case p.deadCh <- &job:
		default:
		}
		return
	}

	delay := backoffDelay(job.Backoff, job.Attempt)
	logrus.WithError(err).WithFields(logrus.Fields{
		"job":     job.Name,
		"jobId":   job.ID,
		"attempt": job.Attempt,
		"delay":   delay,
	}).Warn("job failed, scheduling redelivery")
	// Republish with the incremented attempt, then ack the old delivery.
	if pubErr := p.publish(ctx, name, &job, time.Now().Add(delay)); pubErr != nil {
		logrus.WithError(pubErr).WithField("jobId", job.ID).Error("failed to schedule redelivery, nacking delivery")
		msg.Nack()
		return
	}
	msg.Ack()
}

func (p *pubSubQueue) DeadLetters() <-chan *Job {
	return p.deadCh
}

func (p *pubSubQueue) Close() error {
	return p.client.Close()
}
