package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Routing keys for booking events.
const (
	EventBookingReserved  = "booking.reserved"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the message handed to notification and reporting consumers.
type BookingEvent struct {
	Type              string    `json:"type"`
	BookingID         uuid.UUID `json:"booking_id"`
	BookingCode       string    `json:"booking_code"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	DispensaryID      uuid.UUID `json:"dispensary_id"`
	AppointmentDate   string    `json:"appointment_date"`
	AppointmentNumber int       `json:"appointment_number"`
	EstimatedTime     string    `json:"estimated_time"`
	Channel           string    `json:"channel"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type amqpEventPublisher struct {
	ch       amqpChannel
	exchange string
	timeout  time.Duration
	log      *logrus.Logger
}

func NewAMQPEventPublisher(ch *amqp.Channel, exchange string, timeout time.Duration, log *logrus.Logger) EventPublisher {
	return newAMQPEventPublisher(ch, exchange, timeout, log)
}

func newAMQPEventPublisher(ch amqpChannel, exchange string, timeout time.Duration, log *logrus.Logger) *amqpEventPublisher {
	return &amqpEventPublisher{
		ch:       ch,
		exchange: exchange,
		timeout:  timeout,
		log:      log,
	}
}

// Publish sends the event to the exchange using its type as routing key.
func (p *amqpEventPublisher) Publish(ctx context.Context, event BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.BookingID.String(),
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		p.log.Warnf("Failed to publish %s for booking %s: %+v", event.Type, event.BookingCode, err)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.Debugf("Published %s for booking %s", event.Type, event.BookingCode)
	return nil
}

type noopEventPublisher struct {
	log *logrus.Logger
}

// NewNoopEventPublisher is used when no broker is configured.
func NewNoopEventPublisher(log *logrus.Logger) EventPublisher {
	return &noopEventPublisher{log: log}
}

func (p *noopEventPublisher) Publish(_ context.Context, event BookingEvent) error {
	p.log.Debugf("Event publishing disabled, dropping %s for booking %s", event.Type, event.BookingCode)
	return nil
}
