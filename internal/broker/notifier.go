package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"bakehouse-backend/internal/config"
)

// Notifier publishes fire-and-forget provisioning events. Consumers are
// external; the payload field names and the (exchange, routing key) pair
// are part of the compatibility surface.
type Notifier interface {
	Publish(ctx context.Context, exchange, routingKey string, payload map[string]interface{}) error
}

// KafkaNotifier maps each declared exchange to a Kafka topic and uses the
// routing key as the message key.
type KafkaNotifier struct {
	writers map[string]*kafka.Writer
}

// NewKafkaNotifier declares one writer per exchange from the registry.
func NewKafkaNotifier(cfg config.BrokerConfig) *KafkaNotifier {
	writers := make(map[string]*kafka.Writer, len(cfg.Exchanges))
	for _, exchange := range cfg.Exchanges {
		writers[exchange] = &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    exchange,
			Balancer: &kafka.LeastBytes{},
		}
	}
	return &KafkaNotifier{writers: writers}
}

// Publish sends the payload to the exchange with the given routing key.
func (n *KafkaNotifier) Publish(ctx context.Context, exchange, routingKey string, payload map[string]interface{}) error {
	writer, ok := n.writers[exchange]
	if !ok {
		return fmt.Errorf("unknown exchange %q", exchange)
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(routingKey),
		Value: value,
	})
	if err != nil {
		log.Printf("⚠️  Broker publish failed (%s/%s): %v", exchange, routingKey, err)
		return err
	}
	return nil
}

// Close shuts down all writers.
func (n *KafkaNotifier) Close() error {
	var firstErr error
	for _, writer := range n.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
