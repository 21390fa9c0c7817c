package messaging

import (
	"context"
	"encoding/json"
	"time"

	"chainreact/internal/config"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// Event types published on the events topic.
const (
	EventWorkflowGenerated = "workflow.generated"
	EventGenerationFailed  = "workflow.generation_failed"
)

// GenerationJob is the payload on the jobs topic. One job is one prompt to
// turn into a workflow on behalf of the requesting user.
type GenerationJob struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model,omitempty"`
	Strict      bool      `json:"strict,omitempty"`
	TeamID      string    `json:"team_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// WorkflowEvent is the payload on the events topic, published after a
// generation outcome is persisted.
type WorkflowEvent struct {
	Type         string    `json:"type"`
	GenerationID string    `json:"generation_id"`
	WorkflowID   string    `json:"workflow_id,omitempty"`
	TeamID       string    `json:"team_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Model        string    `json:"model,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	ErrorCount   int       `json:"error_count"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Message is a consumed Kafka record plus the handle needed to commit it.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Topic     string
	Partition int
	Offset    int64

	raw kafka.Message
}

// Producer publishes generation jobs and workflow events. The writer carries
// no fixed topic; each message names its own, so one producer serves both
// topics.
type Producer struct {
	writer  *kafka.Writer
	config  *config.KafkaConfig
	logger  logger.Logger
	metrics *metrics.Metrics
}

// Consumer reads generation jobs from the jobs topic as part of a consumer
// group. Fetch and Commit are split so a job is only committed after its
// outcome is persisted.
type Consumer struct {
	reader  *kafka.Reader
	config  *config.KafkaConfig
	logger  logger.Logger
	metrics *metrics.Metrics
}

// JobHandler processes one generation job. A returned error marks the job
// failed; the message is committed either way.
type JobHandler func(ctx context.Context, job *GenerationJob) error

// NewProducer creates a Kafka producer from the messaging configuration.
func NewProducer(cfg *config.KafkaConfig) (*Producer, error) {
	if cfg == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "kafka config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "at least one kafka broker is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchSize:    100,
		BatchBytes:   1048576,
		BatchTimeout: cfg.BatchTimeout,
		Compression:  kafka.Snappy,
		Transport: &kafka.Transport{
			ClientID: cfg.ClientID,
		},
	}

	return &Producer{
		writer:  writer,
		config:  cfg,
		logger:  logger.New("kafka-producer"),
		metrics: metrics.GetGlobal(),
	}, nil
}

// NewConsumer creates a Kafka consumer bound to the jobs topic.
func NewConsumer(cfg *config.KafkaConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "kafka config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "at least one kafka broker is required")
	}
	if cfg.GroupID == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "kafka consumer group id is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.JobsTopic,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitInterval,
		StartOffset:    kafka.FirstOffset,
		Dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})

	return &Consumer{
		reader:  reader,
		config:  cfg,
		logger:  logger.New("kafka-consumer"),
		metrics: metrics.GetGlobal(),
	}, nil
}

// PublishJob publishes a generation job to the jobs topic, keyed by job id.
func (p *Producer) PublishJob(ctx context.Context, job *GenerationJob) error {
	if job == nil || job.ID == "" {
		return errors.ValidationError(errors.CodeMissingField, "generation job id is required")
	}
	return p.publish(ctx, p.config.JobsTopic, job.ID, job)
}

// PublishEvent publishes a workflow event, keyed by generation id so events
// for the same run land on one partition in order.
func (p *Producer) PublishEvent(ctx context.Context, event *WorkflowEvent) error {
	if event == nil {
		return errors.ValidationError(errors.CodeMissingField, "workflow event is required")
	}
	if event.Type != EventWorkflowGenerated && event.Type != EventGenerationFailed {
		return errors.NewValidationError("unknown workflow event type " + event.Type)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return p.publish(ctx, p.config.EventsTopic, event.GenerationID, event)
}

func (p *Producer) publish(ctx context.Context, topic, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal,
			"failed to serialize message payload")
	}

	message := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   payload,
		Time:    time.Now(),
		Headers: buildHeaders(p.config.ClientID),
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, message)
	duration := time.Since(start)

	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish message",
			"error", err,
			"topic", topic,
			"key", key,
			"duration", duration,
		)
		p.metrics.RecordQueueMessage(topic, "error")
		return errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeExternalService,
			"failed to publish message to kafka")
	}

	p.logger.DebugContext(ctx, "Message published",
		"topic", topic,
		"key", key,
		"size", len(payload),
		"duration", duration,
	)
	p.metrics.RecordQueueMessage(topic, "success")
	return nil
}

// Fetch reads the next message without committing it.
func (c *Consumer) Fetch(ctx context.Context) (*Message, error) {
	kafkaMsg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if err == context.Canceled || err == context.DeadlineExceeded || ctx.Err() != nil {
			return nil, err
		}
		c.logger.Error("Failed to fetch message", "error", err)
		c.metrics.RecordQueueError(c.config.JobsTopic, "fetch")
		return nil, errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeExternalService,
			"failed to fetch message from kafka")
	}

	headers := make(map[string]string, len(kafkaMsg.Headers))
	for _, header := range kafkaMsg.Headers {
		headers[header.Key] = string(header.Value)
	}

	c.metrics.SetQueueDepth(c.config.JobsTopic, float64(c.reader.Lag()))

	return &Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   headers,
		Timestamp: kafkaMsg.Time,
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		raw:       kafkaMsg,
	}, nil
}

// Commit marks the message as processed for the consumer group.
func (c *Consumer) Commit(ctx context.Context, msg *Message) error {
	if msg == nil {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, msg.raw); err != nil {
		c.logger.Error("Failed to commit message",
			"error", err,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeExternalService,
			"failed to commit kafka message")
	}
	return nil
}

// Consume runs a fetch-decode-handle-commit loop until the context ends.
// Undecodable payloads and handler failures are committed so a poison
// message cannot wedge the partition; redelivery happens only when the
// process dies between fetch and commit.
func (c *Consumer) Consume(ctx context.Context, handler JobHandler) error {
	for {
		msg, err := c.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		job, err := DecodeJob(msg.Value)
		if err != nil {
			c.logger.Error("Discarding undecodable job",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			c.metrics.RecordQueueError(msg.Topic, "decode")
		} else {
			if err := handler(ctx, job); err != nil {
				c.logger.ErrorContext(ctx, "Job handler failed",
					"error", err,
					"job_id", job.ID,
				)
				c.metrics.RecordQueueError(msg.Topic, "handler")
			}
		}

		if err := c.Commit(ctx, msg); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// DecodeJob parses a jobs-topic payload.
func DecodeJob(payload []byte) (*GenerationJob, error) {
	var job GenerationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.CodeInvalidInput,
			"failed to decode generation job")
	}
	if job.ID == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "generation job id is required")
	}
	if job.Prompt == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "generation job prompt is required")
	}
	return &job, nil
}

// Stats returns reader statistics for the health endpoint.
func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}

// Close closes the producer writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// Close closes the consumer reader.
func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

// Health dials the first broker and lists partitions to verify connectivity.
func (p *Producer) Health(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.config.Brokers[0])
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeExternalService,
			"failed to connect to kafka broker")
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeExternalService,
			"failed to read kafka partitions")
	}
	return nil
}

func buildHeaders(clientID string) []kafka.Header {
	return []kafka.Header{
		{Key: "content-type", Value: []byte("application/json")},
		{Key: "producer", Value: []byte(clientID)},
		{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	}
}
