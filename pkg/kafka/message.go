package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
	HeaderOriginalTopic = "original-topic"
	HeaderDLQError      = "dlq-error"
	HeaderDLQTimestamp  = "dlq-timestamp"
)

// Message is one record as handed to the producer. Topic is set by Publish.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Topic     string
	Timestamp time.Time
}

// Envelope is the metadata every event carries next to its JSON payload.
// CorrelationID is optional.
type Envelope struct {
	Type          string
	Source        string
	SchemaVersion string
	CorrelationID string
}

// NewEvent encodes payload as JSON under key and stamps the envelope headers
// with a fresh event id.
func NewEvent(key string, env Envelope, payload any) (Message, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", env.Type, err)
	}

	now := time.Now().UTC()
	headers := map[string]string{
		HeaderEventID:       uuid.NewString(),
		HeaderEventType:     env.Type,
		HeaderSource:        env.Source,
		HeaderSchemaVersion: env.SchemaVersion,
		HeaderTimestamp:     now.Format(time.RFC3339),
	}
	if env.CorrelationID != "" {
		headers[HeaderCorrelationID] = env.CorrelationID
	}

	return Message{Key: key, Value: value, Headers: headers, Timestamp: now}, nil
}

func (m Message) EventID() string       { return m.Headers[HeaderEventID] }
func (m Message) EventType() string     { return m.Headers[HeaderEventType] }
func (m Message) CorrelationID() string { return m.Headers[HeaderCorrelationID] }

func (m Message) toKafka() kafka.Message {
	km := kafka.Message{Key: []byte(m.Key), Value: m.Value, Time: m.Timestamp}
	for k, v := range m.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return km
}
