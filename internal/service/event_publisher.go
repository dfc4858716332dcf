package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"rentacar/internal/events"
)

const bookingEventsQueue = "booking.events"

// RabbitPublisher pushes booking domain events to RabbitMQ for the
// notification dispatcher and other downstream consumers. It never
// panics; errors are logged and returned so callers can ignore them
// without interrupting the request flow.
type RabbitPublisher struct {
	URL string
}

func NewRabbitPublisher(url string) *RabbitPublisher {
	return &RabbitPublisher{URL: url}
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev events.BookingEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(bookingEventsQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", bookingEventsQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
