package publish

import (
	"context"
	"creatorpulse/internal/logger"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

// DefaultTopic receives draft events when no topic is configured.
const DefaultTopic = "creatorpulse.drafts"

// KafkaOptions configures a Kafka publisher.
type KafkaOptions struct {
	Brokers []string
	Topic   string
}

// Kafka writes draft events to a topic, keyed by draft ID.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka connects a synchronous producer to the brokers.
func NewKafka(opts KafkaOptions) (*Kafka, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(opts.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}
	return NewKafkaWithProducer(producer, opts.Topic), nil
}

// NewKafkaWithProducer wraps an existing producer.
func NewKafkaWithProducer(producer sarama.SyncProducer, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal draft event: %w", err)
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.Draft.ID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send draft event: %w", err)
	}

	logger.Debug("Published draft event", "topic", k.topic, "partition", partition, "offset", offset, "draft_id", event.Draft.ID)
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
