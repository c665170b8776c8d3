package model

import "errors"

var (
	// ErrPermissionDenied is returned when location access is denied or restricted
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrDataUnavailable is returned for malformed positions and for origins with no route
	ErrDataUnavailable = errors.New("location data unavailable")
)
