package location

import "venuelink/internal/model"

// Platform is the device location subsystem a Source drives.
// Implementations report back through the Delegate, from any goroutine,
// and must not call the Delegate from inside their own methods.
type Platform interface {
	AuthorizationStatus() model.AuthorizationState
	RequestAuthorization() error
	StartUpdatingLocation() error
	StopUpdatingLocation() error
	SetDelegate(d Delegate)
}

// Delegate receives platform callbacks
type Delegate interface {
	DidChangeAuthorization(state model.AuthorizationState)
	DidUpdateLocations(positions []model.Position)
	DidFail(err error)
}
