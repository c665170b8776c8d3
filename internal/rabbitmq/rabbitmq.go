package rabbitmq

import (
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

var conn *amqp.Connection

// Init dials the broker and keeps the connection for the process lifetime
func Init(url string) (*amqp.Connection, error) {
	c, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	conn = c
	log.Println("Connected to RabbitMQ")
	return conn, nil
}

// GetConnection returns the shared connection
func GetConnection() *amqp.Connection {
	return conn
}

// IsConnected reports whether the shared connection is open
func IsConnected() bool {
	return conn != nil && !conn.IsClosed()
}

// Close closes the shared connection
func Close() error {
	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}
