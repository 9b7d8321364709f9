// Package queue moves sync and crawl jobs through RabbitMQ so the API
// can accept work without blocking on it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Job kinds understood by the worker.
const (
	JobMediaSync = "media_sync"
	JobCrawl     = "crawl"
	JobTaskSync  = "task_sync"
)

const attemptHeader = "x-attempt"

// Job is one unit of background work. Platform is set for media sync
// jobs, TaskID for crawl and task sync jobs.
type Job struct {
	Kind     string `json:"kind"`
	Platform string `json:"platform,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
	MaxRetries int
	RetryDelay time.Duration
}

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	queueName  string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		queueName:  q.Name,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}, nil
}

// Publish enqueues a job for the worker.
func (r *RabbitMQ) Publish(ctx context.Context, job *Job) error {
	return r.publish(ctx, job, 1)
}

func (r *RabbitMQ) publish(ctx context.Context, job *Job, attempt int) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      amqp.Table{attemptHeader: int32(attempt)},
		},
	)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}

	r.logger.Debug("published job",
		"kind", job.Kind,
		"platform", job.Platform,
		"task_id", job.TaskID,
		"attempt", attempt,
	)
	return nil
}

// Handler processes one job. A returned error schedules a retry until
// the attempt budget is spent.
type Handler func(ctx context.Context, job *Job) error

// Consume dispatches queued jobs to handle until ctx is cancelled. A
// failed job is re-published with an incremented attempt counter after
// the retry delay; once attempts are exhausted it is dropped with a
// log line. The delivery itself is always acked, redelivery is driven
// by the re-publish.
func (r *RabbitMQ) Consume(ctx context.Context, handle Handler) error {
	deliveries, err := r.channel.ConsumeWithContext(
		ctx,
		r.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			r.handleDelivery(ctx, delivery, handle)
		}
	}
}

func (r *RabbitMQ) handleDelivery(ctx context.Context, delivery amqp.Delivery, handle Handler) {
	var job Job
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		r.logger.Error("dropping undecodable job", "error", err)
		_ = delivery.Ack(false)
		return
	}

	attempt := deliveryAttempt(delivery)

	err := handle(ctx, &job)
	if err == nil {
		_ = delivery.Ack(false)
		return
	}

	if attempt >= r.maxRetries {
		r.logger.Error("job failed, retries exhausted",
			"kind", job.Kind,
			"platform", job.Platform,
			"task_id", job.TaskID,
			"attempt", attempt,
			"error", err,
		)
		_ = delivery.Ack(false)
		return
	}

	r.logger.Warn("job failed, scheduling retry",
		"kind", job.Kind,
		"attempt", attempt,
		"retry_delay", r.retryDelay,
		"error", err,
	)

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retryDelay):
		}
		if err := r.publish(ctx, &job, attempt+1); err != nil {
			r.logger.Error("re-publish failed", "kind", job.Kind, "error", err)
		}
	}()
	_ = delivery.Ack(false)
}

func deliveryAttempt(delivery amqp.Delivery) int {
	if delivery.Headers == nil {
		return 1
	}
	switch v := delivery.Headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 1
	}
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
