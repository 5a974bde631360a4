package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/qpos/internal/domain/order"
)

// KafkaSink writes events to a topic, keyed by order id so that all events of
// one order land in the same partition.
type KafkaSink struct {
	w *kafka.Writer
}

// NewKafkaSink returns a KafkaSink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.CRC32Balancer{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, e order.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if err := s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventKey(e)),
		Value: body,
		Time:  e.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
			{Key: "id", Value: []byte(eventID(e))},
		},
	}); err != nil {
		return errors.Wrapf(err, "write to %q", s.w.Topic)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}

// eventKey partitions events by order. Purge events have no order and share
// one key.
func eventKey(e order.Event) string {
	if e.OrderID == "" {
		return string(e.Kind)
	}
	return e.OrderID
}

// eventID is unique per committed change.
func eventID(e order.Event) string {
	return string(e.Kind) + "/" + strconv.FormatUint(e.Version, 10)
}
