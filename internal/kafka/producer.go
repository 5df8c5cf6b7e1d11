package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// DeliveryRecord is the audit payload published after each successful
// reminder delivery.
type DeliveryRecord struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	ReminderID  int64     `json:"reminder_id"`
	EventName   string    `json:"event_name"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Producer streams delivery records to Kafka. In mock mode nothing is written
// and every publish succeeds, which keeps local development broker-free.
type Producer struct {
	Writer   *kafka.Writer
	MockMode bool
}

func NewProducer(brokers []string, topic string, mockMode bool) *Producer {
	if mockMode {
		return &Producer{MockMode: true}
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishDelivery streams one delivery record. The dispatcher treats failures
// as non-fatal.
func (p *Producer) PublishDelivery(userID, reminderID int64, eventName string) error {
	record := DeliveryRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		ReminderID:  reminderID,
		EventName:   eventName,
		DeliveredAt: time.Now().UTC(),
	}

	msgBytes, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if p.MockMode {
		return nil
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(record.ID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	if p.Writer != nil {
		return p.Writer.Close()
	}
	return nil
}
