package device

import (
	"fmt"
	"log"
	"sync"

	"github.com/bytedance/sonic"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"venuelink/internal/location"
	"venuelink/internal/model"
)

var _ location.Platform = (*Platform)(nil)

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Platform is a remote device reached over MQTT. Commands are published
// without waiting for the broker; delivery failures reach the delegate
// through DidFail.
type Platform struct {
	deviceID string
	client   publisher

	mu       sync.Mutex
	status   model.AuthorizationState
	delegate location.Delegate
	updating bool
}

func newPlatform(deviceID string, client publisher) *Platform {
	return &Platform{
		deviceID: deviceID,
		client:   client,
		status:   model.AuthorizationNotDetermined,
	}
}

// DeviceID returns the device this platform talks to
func (p *Platform) DeviceID() string {
	return p.deviceID
}

func (p *Platform) AuthorizationStatus() model.AuthorizationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Platform) RequestAuthorization() error {
	return p.send(CommandRequestAuthorization)
}

func (p *Platform) StartUpdatingLocation() error {
	if err := p.send(CommandStart); err != nil {
		return err
	}
	p.mu.Lock()
	p.updating = true
	p.mu.Unlock()
	return nil
}

func (p *Platform) StopUpdatingLocation() error {
	p.mu.Lock()
	p.updating = false
	p.mu.Unlock()
	return p.send(CommandStop)
}

func (p *Platform) SetDelegate(d location.Delegate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegate = d
}

func (p *Platform) send(command string) error {
	payload, err := sonic.Marshal(ControlMessage{Command: command})
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", command, err)
	}

	topic := ControlTopic(p.deviceID)
	token := p.client.Publish(topic, qos, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("Device %s: publish %s failed: %v", p.deviceID, command, token.Error())
			p.fail(fmt.Errorf("publish %s: %w", command, token.Error()))
		}
	}()
	return nil
}

func (p *Platform) setAuthorization(state model.AuthorizationState) {
	p.mu.Lock()
	changed := p.status != state
	p.status = state
	d := p.delegate
	p.mu.Unlock()

	if changed && d != nil {
		d.DidChangeAuthorization(state)
	}
}

func (p *Platform) updateLocations(positions []model.Position) {
	p.mu.Lock()
	updating := p.updating
	d := p.delegate
	p.mu.Unlock()

	if updating && d != nil {
		d.DidUpdateLocations(positions)
	}
}

func (p *Platform) fail(err error) {
	p.mu.Lock()
	d := p.delegate
	p.mu.Unlock()

	if d != nil {
		d.DidFail(err)
	}
}
