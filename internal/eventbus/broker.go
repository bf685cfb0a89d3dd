// Package eventbus mirrors dex-proxy's typed domain events
// (order_placed/order_cancelled/order_filled) onto an external Kafka
// cluster, for downstream analytics consumers -- the same role
// datasync/chaindatafetcher/kafka.repository plays for chain data in the
// teacher repo (see DESIGN.md). It is optional: a nil Broker is a valid,
// inert no-op.
package eventbus

import (
	"encoding/json"

	"github.com/Shopify/sarama"
)

// Broker publishes a payload to a named topic. The interface matches the
// teacher's kafka.repository.Publish(topic, data) shape.
type Broker interface {
	Publish(topic string, payload interface{}) error
	Close() error
}

type saramaBroker struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

// NewSaramaBroker connects a synchronous Kafka producer to brokers, mirroring
// the teacher's kafka.GetDefaultKafkaConfig() producer settings
// (Producer.Return.Successes = true).
func NewSaramaBroker(brokers []string, topicPrefix string) (Broker, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.MaxVersion

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &saramaBroker{producer: producer, topicPrefix: topicPrefix}, nil
}

func (b *saramaBroker) Publish(topic string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: b.topicPrefix + "-" + topic,
		Value: sarama.ByteEncoder(body),
	}
	_, _, err = b.producer.SendMessage(msg)
	return err
}

func (b *saramaBroker) Close() error {
	return b.producer.Close()
}
