package kafka

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"remoteassist/pkg/config"
	"remoteassist/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// messageWriter is the subset of *kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps kafka-go writer with middleware and an optional DLQ
type Producer struct {
	writer     messageWriter
	dlqWriter  messageWriter
	topic      string
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

// PublishFunc writes one message.
type PublishFunc func(ctx context.Context, msg Message) error

// ProducerMiddleware wraps the publish step. The first registered middleware
// runs outermost.
type ProducerMiddleware func(next PublishFunc) PublishFunc

// NewProducer builds a producer for cfg.Topic. When cfg.DLQTopic is set,
// messages that fail to write are copied there with the failure in their
// headers.
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	writerLog := kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
	})
	newWriter := func(topic string, acks kafka.RequiredAcks, attempts int) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: acks,
			Compression:  compressionFor(cfg.Compression),
			MaxAttempts:  attempts,
			BatchTimeout: cfg.BatchTimeout,
			ErrorLogger:  writerLog,
		}
	}

	writer := newWriter(cfg.Topic, requiredAcksFor(cfg.RequiredAcks), cfg.MaxAttempts)
	writer.Async = cfg.Async
	producer := newProducer(writer, cfg.Topic)

	if cfg.DLQTopic != "" {
		producer.dlqWriter = newWriter(cfg.DLQTopic, kafka.RequireAll, 3)
	}

	return producer, nil
}

func newProducer(writer messageWriter, topic string) *Producer {
	return &Producer{
		writer:     writer,
		topic:      topic,
	}
}

var compressionCodecs = map[string]compress.Compression{
	"none":   0,
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

func compressionFor(name string) compress.Compression {
	if codec, ok := compressionCodecs[name]; ok {
		return codec
	}
	return compress.Snappy
}

func requiredAcksFor(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

// Use appends mw to the publish chain. The first registered middleware
// runs outermost.
func (p *Producer) Use(mw ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, mw)
}

func (p *Producer) Topic() string {
	return p.topic
}

// Publish runs msg through the middleware chain and writes it to the
// producer's topic.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}

	p.mu.RLock()
	closed, chain := p.closed, slices.Clone(p.middleware)
	p.mu.RUnlock()
	if closed {
		return ErrProducerClosed
	}

	msg.Topic = p.topic
	publish := PublishFunc(p.write)
	for i := len(chain) - 1; i >= 0; i-- {
		publish = chain[i](publish)
	}
	return publish(ctx, msg)
}

// write sends msg to the main topic and, if that fails and a DLQ is
// configured, parks a copy there. The original error is always returned.
func (p *Producer) write(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, msg.toKafka())
	if err == nil || p.dlqWriter == nil {
		return err
	}

	parked := msg
	parked.Headers = maps.Clone(msg.Headers)
	if parked.Headers == nil {
		parked.Headers = map[string]string{}
	}
	parked.Headers[HeaderOriginalTopic] = p.topic
	parked.Headers[HeaderDLQError] = err.Error()
	parked.Headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	parked.Timestamp = time.Now()

	if dlqErr := p.dlqWriter.WriteMessages(ctx, parked.toKafka()); dlqErr != nil {
		return fmt.Errorf("dead-letter write failed: %v (original error: %w)", dlqErr, err)
	}
	return err
}

// Close flushes and closes the writers. Later calls are no-ops.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, w := range []messageWriter{p.writer, p.dlqWriter} {
		if w != nil {
			errs = append(errs, w.Close())
		}
	}
	return errors.Join(errs...)
}
