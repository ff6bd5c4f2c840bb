package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-settlement/internal/logger"
	"ms-settlement/internal/models"
)

// Settlement event types carried in the message envelope.
const (
	EventTicketPurchased  = "ticket_purchased"
	EventTicketResold     = "ticket_resold"
	EventTicketListed     = "ticket_listed"
	EventListingCancelled = "listing_cancelled"
	EventTicketCheckedIn  = "ticket_checked_in"
)

// Envelope wraps every settlement event so downstream consumers can route on
// the type without guessing at the payload shape.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger

	// MockMode skips the broker entirely and only logs. Used in local
	// development and tests where no Kafka cluster is running.
	MockMode bool
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer, Logger: log}
}

func NewMockProducer(log *logger.Logger) *Producer {
	return &Producer{Logger: log, MockMode: true}
}

func (p *Producer) publish(eventType, key string, payload interface{}) error {
	msgBytes, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", eventType, string(msgBytes))
	}
	if p.MockMode || p.Writer == nil {
		return nil
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishTicketPurchased streams the primary-sale event to Kafka
func (p *Producer) PublishTicketPurchased(ticket models.Ticket) error {
	return p.publish(EventTicketPurchased, ticket.TicketUUID, ticket)
}

// PublishTicketResold streams the resale settlement event to Kafka
func (p *Producer) PublishTicketResold(ticket models.Ticket) error {
	return p.publish(EventTicketResold, ticket.TicketUUID, ticket)
}

// PublishTicketListed streams the listing creation event to Kafka
func (p *Producer) PublishTicketListed(listing models.Listing) error {
	return p.publish(EventTicketListed, listing.TicketUUID, listing)
}

// PublishListingCancelled streams the listing cancellation event to Kafka
func (p *Producer) PublishListingCancelled(listing models.Listing) error {
	return p.publish(EventListingCancelled, listing.TicketUUID, listing)
}

// PublishTicketCheckedIn streams the redemption event to Kafka
func (p *Producer) PublishTicketCheckedIn(ticket models.Ticket) error {
	return p.publish(EventTicketCheckedIn, ticket.TicketUUID, ticket)
}

func (p *Producer) Close() error {
	if p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
