package kafka_middleware

import (
	"context"
	"time"

	"remoteassist/pkg/kafka"
	"remoteassist/pkg/logger"
)

// LoggingProducerMiddleware logs every publish with its outcome and duration.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(next kafka.PublishFunc) kafka.PublishFunc {
		return func(ctx context.Context, msg kafka.Message) error {
			start := time.Now()
			attrs := []any{
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.EventID(),
				"event_type", msg.EventType(),
				"correlation_id", msg.CorrelationID(),
			}

			err := next(ctx, msg)

			attrs = append(attrs, "duration_ms", time.Since(start).Milliseconds())
			if err != nil {
				log.Error("Failed to publish Kafka message", append(attrs, "error", err)...)
				return err
			}
			log.Info("Published Kafka message", attrs...)
			return nil
		}
	}
}
