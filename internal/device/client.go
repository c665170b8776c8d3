package device

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewClient builds an auto-reconnecting MQTT client. onConnect runs after
// every successful (re)connect, which is where subscriptions belong.
func NewClient(broker, clientID string, onConnect func()) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		})
	if onConnect != nil {
		opts.SetOnConnectHandler(func(mqtt.Client) { onConnect() })
	}
	return mqtt.NewClient(opts)
}

// Connect connects the client and waits for the broker
func Connect(client mqtt.Client) error {
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}
