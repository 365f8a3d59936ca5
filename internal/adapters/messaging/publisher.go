package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"credit-approval/internal/core/domain"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes loan events to a Kafka topic. Messages are keyed by
// customer ID so one customer's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// PublishLoanCreated sends a loan.created event
func (p *KafkaPublisher) PublishLoanCreated(ctx context.Context, evt domain.LoanCreatedEvent) error {
	msg, err := loanCreatedMessage(evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.writer.Topic, err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func loanCreatedMessage(evt domain.LoanCreatedEvent) (kafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event %s: %w", evt.Type, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(evt.CustomerID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}, nil
}

// LogPublisher only logs events. It is used when no brokers are configured.
type LogPublisher struct{}

// PublishLoanCreated logs the event
func (LogPublisher) PublishLoanCreated(_ context.Context, evt domain.LoanCreatedEvent) error {
	log.Printf("📣 %s: loan %d for customer %d (%s at %s%%, %d months)",
		evt.Type, evt.LoanID, evt.CustomerID, evt.Principal.StringFixed(2), evt.InterestRate.String(), evt.TenureMonths)
	return nil
}
