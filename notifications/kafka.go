package notifications

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes each alert as a JSON event keyed by patient.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &KafkaNotifier{writer: writer}
}

func (n *KafkaNotifier) NotifySOS(ctx context.Context, event SOSEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to encode sos event")
	}
	msg := kafka.Message{
		Key:   []byte(event.PatientUniqueID),
		Value: payload,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "failed to publish sos event")
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
