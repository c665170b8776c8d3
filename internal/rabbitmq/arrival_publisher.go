package rabbitmq

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"

	"venuelink/internal/model"
)

const (
	exchangeName = "venuelink.events"
	queueName    = "venue_arrivals"

	eventArrived = "arrived"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ArrivalPublisher fans arrival events out to organisers
type ArrivalPublisher struct {
	ch channel
}

// NewArrivalPublisher opens a channel and declares the fanout topology
func NewArrivalPublisher(conn *amqp.Connection) (*ArrivalPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &ArrivalPublisher{ch: ch}, nil
}

type arrivalMessage struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	DeviceID   string          `json:"device_id"`
	VenueID    string          `json:"venue_id"`
	Location   arrivalLocation `json:"location"`
	DistanceKm float64         `json:"distance_km"`
	Timestamp  int64           `json:"timestamp"`
}

type arrivalLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func buildArrivalMessage(a *model.Arrival) arrivalMessage {
	return arrivalMessage{
		ID:       a.ID,
		Event:    eventArrived,
		DeviceID: a.DeviceID,
		VenueID:  a.VenueID,
		Location: arrivalLocation{
			Latitude:  a.Lat,
			Longitude: a.Lon,
		},
		DistanceKm: a.DistanceKm,
		Timestamp:  a.ArrivedAt.Unix(),
	}
}

// PublishArrival sends one arrival event to the exchange
func (p *ArrivalPublisher) PublishArrival(ctx context.Context, a *model.Arrival) error {
	body, err := sonic.Marshal(buildArrivalMessage(a))
	if err != nil {
		return fmt.Errorf("marshal arrival: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    a.ID,
		Timestamp:    a.ArrivedAt,
		Body:         body,
	})
}

// Close releases the publisher's channel
func (p *ArrivalPublisher) Close() error {
	return p.ch.Close()
}
