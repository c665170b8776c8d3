package device

import (
	"fmt"
	"log"

	"github.com/bytedance/sonic"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"venuelink/internal/model"
	"venuelink/internal/service/storage"
)

const qos = 1

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Hub routes device MQTT traffic to per-device platforms
type Hub struct {
	client    mqttClient
	platforms storage.Storage[string, *Platform]
}

// NewHub creates a hub on a connected MQTT client
func NewHub(client mqttClient) *Hub {
	return &Hub{
		client:    client,
		platforms: storage.NewMemoryStorage[string, *Platform](),
	}
}

// Subscribe registers the location and authorization handlers
func (h *Hub) Subscribe() error {
	if token := h.client.Subscribe(locationTopicPattern, qos, h.handleLocation); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", locationTopicPattern, token.Error())
	}
	if token := h.client.Subscribe(authorizationTopicPattern, qos, h.handleAuthorization); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", authorizationTopicPattern, token.Error())
	}
	log.Printf("Device hub subscribed to %s and %s", locationTopicPattern, authorizationTopicPattern)
	return nil
}

// Platform returns the platform of a device, creating it on first use
func (h *Hub) Platform(deviceID string) *Platform {
	p, _ := h.platforms.GetOrCreate(deviceID, func() *Platform {
		return newPlatform(deviceID, h.client)
	})
	return p
}

// Devices returns the number of devices seen so far
func (h *Hub) Devices() int {
	return h.platforms.Count()
}

func (h *Hub) handleAuthorization(_ mqtt.Client, msg mqtt.Message) {
	deviceID, err := deviceIDFromTopic(msg.Topic())
	if err != nil {
		log.Printf("Device hub: %v", err)
		return
	}

	state, err := model.ParseAuthorizationState(string(msg.Payload()))
	if err != nil {
		log.Printf("Device hub: device %s: %v", deviceID, err)
		return
	}

	h.Platform(deviceID).setAuthorization(state)
}

func (h *Hub) handleLocation(_ mqtt.Client, msg mqtt.Message) {
	deviceID, err := deviceIDFromTopic(msg.Topic())
	if err != nil {
		log.Printf("Device hub: %v", err)
		return
	}

	// nobody has asked for this device yet
	p, ok := h.platforms.Get(deviceID)
	if !ok {
		return
	}

	var raw LocationMessage
	if err := sonic.Unmarshal(msg.Payload(), &raw); err != nil {
		p.fail(fmt.Errorf("%w: invalid location message: %v", model.ErrDataUnavailable, err))
		return
	}

	positions := make([]model.Position, 0, len(raw.Locations))
	for _, fix := range raw.Locations {
		positions = append(positions, fix.Position())
	}
	p.updateLocations(positions)
}
