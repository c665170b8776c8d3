package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"venuelink/internal/model"
	"venuelink/internal/stream"
)

var (
	// ErrSourceBusy is returned by Start while another session is active
	ErrSourceBusy = errors.New("location source already has an active session")

	// ErrSourceClosed is returned once the source has been closed
	ErrSourceClosed = errors.New("location source closed")
)

// Source produces device positions from a Platform.
//
// Authorization state and the active session are confined to a single loop
// goroutine; delegate callbacks and commands are dispatched onto it and return
// once they have been applied.
type Source struct {
	platform Platform
	name     string

	events    chan func()
	quit      chan struct{}
	closeOnce sync.Once

	// loop-confined
	auth    model.AuthorizationState
	session *Session
}

// NewSource starts the source loop and registers it as the platform delegate
func NewSource(name string, platform Platform) *Source {
	s := &Source{
		platform: platform,
		name:     name,
		events:   make(chan func()),
		quit:     make(chan struct{}),
		auth:     platform.AuthorizationStatus(),
	}
	platform.SetDelegate(s)
	go s.run()
	return s
}

func (s *Source) run() {
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-s.quit:
			s.stop()
			return
		}
	}
}

// dispatch runs fn on the loop goroutine and waits for it to finish
func (s *Source) dispatch(fn func()) bool {
	done := make(chan struct{})
	select {
	case s.events <- func() { fn(); close(done) }:
	case <-s.quit:
		return false
	}
	<-done
	return true
}

// Start opens a new session. Positions flow once authorization is granted.
func (s *Source) Start() (*Session, error) {
	var (
		session *Session
		err     error
	)
	if !s.dispatch(func() { session, err = s.start() }) {
		return nil, ErrSourceClosed
	}
	return session, err
}

// Stop halts the active session, if any. It is safe to call repeatedly.
func (s *Source) Stop() {
	s.dispatch(s.stop)
}

// Close ends the source loop. An active session fails with ErrSourceClosed.
func (s *Source) Close() {
	s.closeOnce.Do(func() {
		s.dispatch(func() { s.fail(ErrSourceClosed) })
		close(s.quit)
	})
}

// Authorization returns the last known authorization state
func (s *Source) Authorization() model.AuthorizationState {
	state := model.AuthorizationNotDetermined
	s.dispatch(func() { state = s.auth })
	return state
}

// DidChangeAuthorization implements Delegate
func (s *Source) DidChangeAuthorization(state model.AuthorizationState) {
	s.dispatch(func() { s.handleAuthorization(state) })
}

// DidUpdateLocations implements Delegate
func (s *Source) DidUpdateLocations(positions []model.Position) {
	s.dispatch(func() { s.handleLocations(positions) })
}

// DidFail implements Delegate
func (s *Source) DidFail(err error) {
	s.dispatch(func() { s.fail(err) })
}

func (s *Source) start() (*Session, error) {
	if s.session != nil {
		return nil, ErrSourceBusy
	}

	s.auth = s.platform.AuthorizationStatus()
	if s.auth.Refused() {
		return nil, model.ErrPermissionDenied
	}

	session := &Session{
		source:    s,
		positions: stream.New[model.Position](0),
	}
	s.session = session

	if !s.auth.Granted() {
		log.Printf("Location source %s: requesting authorization", s.name)
		if err := s.platform.RequestAuthorization(); err != nil {
			s.session = nil
			return nil, fmt.Errorf("request authorization: %w", err)
		}
		return session, nil
	}

	if err := s.beginUpdates(); err != nil {
		s.session = nil
		return nil, err
	}
	return session, nil
}

func (s *Source) beginUpdates() error {
	if err := s.platform.StartUpdatingLocation(); err != nil {
		return fmt.Errorf("start updating location: %w", err)
	}
	s.session.updating = true
	log.Printf("Location source %s: updates started", s.name)
	return nil
}

func (s *Source) handleAuthorization(state model.AuthorizationState) {
	s.auth = state
	if s.session == nil {
		return
	}

	switch {
	case state.Granted() && !s.session.updating:
		if err := s.beginUpdates(); err != nil {
			s.fail(err)
		}
	case state.Refused():
		s.fail(model.ErrPermissionDenied)
	}
}

func (s *Source) handleLocations(positions []model.Position) {
	if s.session == nil || !s.session.updating {
		return
	}
	if len(positions) == 0 {
		s.fail(fmt.Errorf("%w: empty location update", model.ErrDataUnavailable))
		return
	}

	for _, p := range positions {
		if err := p.Validate(); err != nil {
			s.fail(fmt.Errorf("%w: %v", model.ErrDataUnavailable, err))
			return
		}
		// the consumer has walked away; its Stop will release the session
		if err := s.session.positions.Send(context.Background(), p); err != nil {
			return
		}
	}
}

// fail ends the active session with a terminal error
func (s *Source) fail(err error) {
	if s.session == nil {
		return
	}
	log.Printf("Location source %s: session failed: %v", s.name, err)
	s.release(err)
}

func (s *Source) stop() {
	if s.session == nil {
		return
	}
	s.release(nil)
	log.Printf("Location source %s: session stopped", s.name)
}

func (s *Source) release(err error) {
	session := s.session
	s.session = nil

	if session.updating {
		if stopErr := s.platform.StopUpdatingLocation(); stopErr != nil {
			log.Printf("Location source %s: stop updating location: %v", s.name, stopErr)
		}
	}
	session.positions.Finish(err)
}

// Session is one subscription to a Source
type Session struct {
	source    *Source
	positions *stream.Stream[model.Position]
	stopOnce  sync.Once

	// loop-confined
	updating bool
}

// Positions returns the position sequence; it is closed when the session ends
func (ss *Session) Positions() <-chan model.Position {
	return ss.positions.Values()
}

// Err returns the terminal failure once Positions is closed, nil for a clean stop
func (ss *Session) Err() error {
	return ss.positions.Err()
}

// Stop ends this session and releases the platform. It is idempotent and
// never affects a later session of the same source.
func (ss *Session) Stop() {
	ss.stopOnce.Do(func() {
		ss.positions.Cancel()
		ss.source.dispatch(func() {
			if ss.source.session == ss {
				ss.source.stop()
			}
		})
	})
}
