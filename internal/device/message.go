package device

import (
	"fmt"
	"strings"
	"time"

	"venuelink/internal/model"
)

const (
	topicRoot = "/venuelink/device/"

	locationTopicPattern      = topicRoot + "+/location"
	authorizationTopicPattern = topicRoot + "+/authorization"
)

// Control commands sent to a device
const (
	CommandStart                = "start"
	CommandStop                 = "stop"
	CommandRequestAuthorization = "request_authorization"
)

// LocationTopic is where a device publishes its position fixes
func LocationTopic(deviceID string) string {
	return topicRoot + deviceID + "/location"
}

// AuthorizationTopic is where a device publishes its permission state (retained)
func AuthorizationTopic(deviceID string) string {
	return topicRoot + deviceID + "/authorization"
}

// ControlTopic is where the service sends commands to a device
func ControlTopic(deviceID string) string {
	return topicRoot + deviceID + "/control"
}

// LocationMessage is one location update; it may batch several fixes
type LocationMessage struct {
	Locations []LocationFix `json:"locations"`
}

// LocationFix is a single position fix as sent by a device
type LocationFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

// ControlMessage is a command for a device
type ControlMessage struct {
	Command string `json:"command"`
}

// FixFromPosition converts a position for the wire
func FixFromPosition(p model.Position) LocationFix {
	return LocationFix{
		Latitude:  p.Lat,
		Longitude: p.Lon,
		Accuracy:  p.Accuracy,
		Timestamp: p.Timestamp.Unix(),
	}
}

// Position converts a wire fix. Range checks are left to the location source.
func (f LocationFix) Position() model.Position {
	var ts time.Time
	if f.Timestamp > 0 {
		ts = time.Unix(f.Timestamp, 0)
	}
	return model.Position{
		Lat:       f.Latitude,
		Lon:       f.Longitude,
		Accuracy:  f.Accuracy,
		Timestamp: ts,
	}
}

// deviceIDFromTopic extracts the device ID from /venuelink/device/{id}/{kind}
func deviceIDFromTopic(topic string) (string, error) {
	parts := strings.Split(strings.TrimPrefix(topic, topicRoot), "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	return parts[0], nil
}
