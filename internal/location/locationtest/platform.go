// Package locationtest provides an in-memory location.Platform for tests.
package locationtest

import (
	"sync"
	"time"

	"venuelink/internal/location"
	"venuelink/internal/model"
)

// Platform is a scriptable location.Platform. Tests drive the delegate with
// Authorize, Push and Fail, and inspect the calls made by the source.
type Platform struct {
	mu       sync.Mutex
	status   model.AuthorizationState
	delegate location.Delegate

	AuthRequests int
	Starts       int
	Stops        int

	StartErr error
}

// NewPlatform returns a platform reporting the given authorization state
func NewPlatform(status model.AuthorizationState) *Platform {
	return &Platform{status: status}
}

func (p *Platform) AuthorizationStatus() model.AuthorizationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Platform) RequestAuthorization() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AuthRequests++
	return nil
}

func (p *Platform) StartUpdatingLocation() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StartErr != nil {
		return p.StartErr
	}
	p.Starts++
	return nil
}

func (p *Platform) StopUpdatingLocation() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stops++
	return nil
}

func (p *Platform) SetDelegate(d location.Delegate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegate = d
}

// Authorize changes the authorization state and notifies the delegate
func (p *Platform) Authorize(state model.AuthorizationState) {
	p.mu.Lock()
	p.status = state
	d := p.delegate
	p.mu.Unlock()
	d.DidChangeAuthorization(state)
}

// Push delivers a location update to the delegate
func (p *Platform) Push(positions ...model.Position) {
	p.mu.Lock()
	d := p.delegate
	p.mu.Unlock()
	d.DidUpdateLocations(positions)
}

// Fail reports a platform failure to the delegate
func (p *Platform) Fail(err error) {
	p.mu.Lock()
	d := p.delegate
	p.mu.Unlock()
	d.DidFail(err)
}

// Counts returns authorization requests, starts and stops under the lock
func (p *Platform) Counts() (authRequests, starts, stops int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.AuthRequests, p.Starts, p.Stops
}

// At builds a valid position for tests
func At(lat, lon float64) model.Position {
	return model.Position{Lat: lat, Lon: lon, Timestamp: time.Unix(1715003456, 0)}
}
