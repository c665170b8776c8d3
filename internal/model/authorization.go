package model

import "fmt"

// AuthorizationState mirrors the platform location permission model
type AuthorizationState int

const (
	AuthorizationNotDetermined AuthorizationState = iota
	AuthorizationRestricted
	AuthorizationDenied
	AuthorizationAuthorized
)

var authorizationNames = map[AuthorizationState]string{
	AuthorizationNotDetermined: "not_determined",
	AuthorizationRestricted:    "restricted",
	AuthorizationDenied:        "denied",
	AuthorizationAuthorized:    "authorized",
}

// Granted reports whether location updates may be produced
func (a AuthorizationState) Granted() bool {
	return a == AuthorizationAuthorized
}

// Refused reports whether the user or the device policy blocked location access
func (a AuthorizationState) Refused() bool {
	return a == AuthorizationDenied || a == AuthorizationRestricted
}

func (a AuthorizationState) String() string {
	if name, ok := authorizationNames[a]; ok {
		return name
	}
	return fmt.Sprintf("AuthorizationState(%d)", int(a))
}

// ParseAuthorizationState converts the wire name back to a state
func ParseAuthorizationState(s string) (AuthorizationState, error) {
	for state, name := range authorizationNames {
		if name == s {
			return state, nil
		}
	}
	return AuthorizationNotDetermined, fmt.Errorf("unknown authorization state %q", s)
}
