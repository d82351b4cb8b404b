package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"maps"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

type RabbitMqQueueCreator func(ctx context.Context, settings *config.QueueSettings) (JobQueue, error)

var NewRabbitMqQueue RabbitMqQueueCreator = func(ctx context.Context, settings *config.QueueSettings) (JobQueue, error) {
	if settings.PoolSize <= 0 {
		return nil, errors.New("poolSize must be greater than 0")
	}

	q := &rabbitMqQueue{
		channelPool:     make(chan *pooledChannel, settings.PoolSize),
		settings:        settings,
		deadCh:          make(chan *Job, retention),
		reconnectTicker: time.NewTicker(5 * time.Second), // Retry every 5 seconds
		stopReconnect:   make(chan struct{}),
	}

	// Initialize the connection and channel pool
	if err := q.connectAndInitialize(); err != nil {
		return nil, err
	}

	// Start connection recovery in a separate goroutine
	go q.recoverConnection()

	return q, nil
}

type rabbitMqQueue struct {
	connection      *amqp.Connection
	channelPool     chan *pooledChannel
	mu              sync.Mutex
	settings        *config.QueueSettings
	deadCh          chan *Job
	reconnectTicker *time.Ticker
	stopReconnect   chan struct{}
}

// Queue topology per job name: the work queue itself, a wait queue whose
// expired messages dead-letter back into the work queue (backoff redelivery),
// and a dead queue holding jobs that exhausted their attempts.
func waitQueue(name string) string { return name + ".wait" }
func deadQueue(name string) string { return name + ".dead" }

func declareTopology(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	if _, err := ch.QueueDeclare(waitQueue(name), true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": name,
	}); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", waitQueue(name), err)
	}
	if _, err := ch.QueueDeclare(deadQueue(name), true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", deadQueue(name), err)
	}
	return nil
}

func (r *rabbitMqQueue) Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (string, error) {
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

	tracer := otel.Tracer("go-crosspost")
	ctx, span := tracer.Start(ctx, "Enqueue",
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("rabbitmq"),
			semconv.MessagingDestinationKey.String(name),
		),
	)
	defer span.End()

	// Inject the trace context into the job headers
	propagator := otel.GetTextMapPropagator()
	traceHeaders := make(map[string]string)
	propagator.Inject(ctx, propagation.MapCarrier(traceHeaders))
	if job.Headers == nil {
		job.Headers = make(map[string]string)
	}
	maps.Copy(job.Headers, traceHeaders)

	target := name
	expiration := ""
	if opts.Delay > 0 {
		target = waitQueue(name)
		expiration = strconv.FormatInt(opts.Delay.Milliseconds(), 10)
	}

	if err := r.publish(ctx, name, target, expiration, job); err != nil {
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(
		attribute.Int("messaging.message_payload_size_bytes", len(payload)),
	)

	return job.ID, nil
}

func (r *rabbitMqQueue) publish(ctx context.Context, name, target, expiration string, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	// Get a channel from the pool
	pooledChan, err := r.getChannel()
	if err != nil {
		return err
	}
	defer r.releaseChannel(pooledChan)

	// QueueDeclare is idempotent and has no effect if the topology is already in place
	if err := declareTopology(pooledChan.channel, name); err != nil {
		return err
	}

	amqpHeaders := make(amqp.Table)
	for k, v := range job.Headers {
		amqpHeaders[k] = v
	}

	return pooledChan.channel.Publish(
		"", target, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Headers:      amqpHeaders,
			Expiration:   expiration,
		},
	)
}

func (r *rabbitMqQueue) Consume(ctx context.Context, name string, handler Handler, opts ConsumeOptions) error {
	opts = opts.withDefaults()

	ch, err := r.connection.Channel()
	if err != nil {
		return err
	}
	if err := declareTopology(ch, name); err != nil {
		return err
	}
	if err := ch.Qos(opts.Concurrency, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for i := 0; i < opts.Concurrency; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					r.process(ctx, name, d, handler, opts)
				}
			}
		}()
	}
	return nil
}

func (r *rabbitMqQueue) process(ctx context.Context, name string, d amqp.Delivery, handler Handler, opts ConsumeOptions) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logrus.WithError(err).WithField("job", name).Error("discarding undecodable job")
		job = Job{ID: uuid.New().String(), Name: name, Payload: d.Body, LastError: err.Error()}
		_ = r.publishDead(ctx, name, &job)
		_ = d.Ack(false)
		return
	}
	job.Attempt++

	jobCtx, cancel := context.WithTimeout(ctx, opts.JobTimeout)
	err := handler(jobCtx, &job)
	cancel()

	if err == nil {
		_ = d.Ack(false)
		return
	}

	if job.Attempt >= job.MaxAttempts {
		job.LastError = err.Error()
		logrus.WithError(err).WithFields(logrus.Fields{
			"job":     job.Name,
			"jobId":   job.ID,
			"attempt": job.Attempt,
		}).Error("job exhausted attempts, dead-lettering")
		_ = r.publishDead(ctx, name, &job)
		_ = d.Ack(false)
		select {
		case r.deadCh <- &job:
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
	expiration := strconv.FormatInt(delay.Milliseconds(), 10)
	if pubErr := r.publish(ctx, name, waitQueue(name), expiration, &job); pubErr != nil {
		logrus.WithError(pubErr).WithField("jobId", job.ID).Error("failed to schedule redelivery, requeueing delivery")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (r *rabbitMqQueue) publishDead(ctx context.Context, name string, job *Job) error {
	return r.publish(ctx, name, deadQueue(name), "", job)
}

func (r *rabbitMqQueue) DeadLetters() <-chan *Job {
	return r.deadCh
}

func (r *rabbitMqQueue) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stop the connection recovery goroutine
	close(r.stopReconnect)
	r.reconnectTicker.Stop()

	// Close all channels in the pool
	close(r.channelPool)
	for pooledChan := range r.channelPool {
		pooledChan.channel.Close()
	}

	// Close the connection
	if r.connection != nil {
		return r.connection.Close()
	}
	return nil
}
