package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Alturino/storefront/cart/pkg/response"
)

type Publisher interface {
	Publish(c context.Context, confirmation response.Confirmation) error
}

type MessageWriter interface {
	WriteMessages(c context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher emits order confirmations keyed by order number.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) KafkaPublisher {
	return KafkaPublisher{writer: writer}
}

func (p KafkaPublisher) Publish(c context.Context, confirmation response.Confirmation) error {
	value, err := json.Marshal(confirmation)
	if err != nil {
		return fmt.Errorf("failed encoding confirmation with error=%w", err)
	}
	err = p.writer.WriteMessages(c, kafka.Message{
		Key:   []byte(confirmation.OrderNumber),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed writing confirmation with error=%w", err)
	}
	return nil
}
