package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"venuelink/internal/device"
	"venuelink/internal/model"
	"venuelink/internal/util"
)

const arrivedWithinMeters = 1.0

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// simulator walks a device toward a destination and answers control commands
type simulator struct {
	client   publisher
	deviceID string
	auth     model.AuthorizationState
	speed    float64 // meters per second
	interval time.Duration
	destLat  float64
	destLon  float64
	now      func() time.Time

	mu      sync.Mutex
	pos     model.Position
	walking bool
}

func (s *simulator) publishAuthorization() error {
	token := s.client.Publish(device.AuthorizationTopic(s.deviceID), 1, true, []byte(s.auth.String()))
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish authorization: %w", token.Error())
	}
	log.Printf("Device %s: authorization %s", s.deviceID, s.auth)
	return nil
}

func (s *simulator) handleControl(_ mqtt.Client, msg mqtt.Message) {
	var cmd device.ControlMessage
	if err := sonic.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("Device %s: invalid control message: %v", s.deviceID, err)
		return
	}

	switch cmd.Command {
	case device.CommandStart:
		s.setWalking(true)
	case device.CommandStop:
		s.setWalking(false)
	case device.CommandRequestAuthorization:
		// the prompt is answered with the configured state
		if err := s.publishAuthorization(); err != nil {
			log.Printf("Device %s: %v", s.deviceID, err)
		}
	default:
		log.Printf("Device %s: unknown command %q", s.deviceID, cmd.Command)
	}
}

func (s *simulator) setWalking(walking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walking = walking
	log.Printf("Device %s: location updates %v", s.deviceID, walking)
}

// step advances one interval toward the destination
func (s *simulator) step() (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := util.MoveToward(s.pos.Lat, s.pos.Lon, s.destLat, s.destLon, s.speed*s.interval.Seconds())
	s.pos = model.Position{
		Lat:       next[0],
		Lon:       next[1],
		Accuracy:  5,
		Timestamp: s.now(),
	}
	remaining := util.HaversineDistance(s.pos.Lat, s.pos.Lon, s.destLat, s.destLon)
	return s.pos, remaining < arrivedWithinMeters
}

func (s *simulator) isWalking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walking
}

// tick publishes the next position while updates are on
func (s *simulator) tick() (bool, error) {
	if !s.isWalking() {
		return false, nil
	}

	pos, arrived := s.step()
	payload, err := sonic.Marshal(device.LocationMessage{
		Locations: []device.LocationFix{device.FixFromPosition(pos)},
	})
	if err != nil {
		return false, err
	}

	token := s.client.Publish(device.LocationTopic(s.deviceID), 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return false, fmt.Errorf("publish location: %w", token.Error())
	}
	log.Printf("Device %s: at %s", s.deviceID, util.FormatLatLng(pos.Lat, pos.Lon))
	return arrived, nil
}

func (s *simulator) run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			arrived, err := s.tick()
			if err != nil {
				log.Printf("Device %s: %v", s.deviceID, err)
				continue
			}
			if arrived {
				log.Printf("Device %s: reached destination", s.deviceID)
				return nil
			}
		}
	}
}
