package proximity

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"venuelink/internal/location"
	"venuelink/internal/model"
	"venuelink/internal/stream"
)

const (
	DefaultInterval  = 3 * time.Second
	DefaultThreshold = model.Distance(0.5)
)

// Resolver computes the routed distance from a position to a venue
type Resolver interface {
	Distance(ctx context.Context, origin model.Position, venue model.Venue) (model.Distance, error)
}

// Source opens location sessions
type Source interface {
	Start() (*location.Session, error)
}

// Config tunes a Pipeline. Zero values fall back to the defaults.
type Config struct {
	Interval  time.Duration
	Threshold model.Distance

	// OnArrival is called with the suppressed reading that completed the stream
	OnArrival func(venue model.Venue, at model.Position, d model.Distance)
}

// Pipeline composes a location source and a distance resolver
type Pipeline struct {
	source   Source
	resolver Resolver
	cfg      Config

	newTicker func(time.Duration) ticker
}

// New creates a pipeline
func New(source Source, resolver Resolver, cfg Config) *Pipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Pipeline{
		source:    source,
		resolver:  resolver,
		cfg:       cfg,
		newTicker: newTimeTicker,
	}
}

// ObserveDistance starts a location session and returns the distance stream
// toward venue. The caller disposes of the stream with Cancel or by cancelling ctx.
func (p *Pipeline) ObserveDistance(ctx context.Context, venue model.Venue) (*stream.Stream[model.Distance], error) {
	session, err := p.source.Start()
	if err != nil {
		return nil, err
	}

	out := stream.New[model.Distance](0)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		select {
		case <-out.Done():
		case <-ctx.Done():
		}
		cancel()
	}()

	go p.run(ctx, cancel, session, venue, out)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, cancel context.CancelFunc, session *location.Session, venue model.Venue, out *stream.Stream[model.Distance]) {
	defer cancel()

	throttled := make(chan model.Position)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(throttled)
		return p.throttle(gctx, session, throttled)
	})
	g.Go(func() error {
		return p.resolve(gctx, session, throttled, venue, out)
	})

	err := g.Wait()
	session.Stop()
	out.Finish(err)
}

// throttle forwards at most one position per interval. An idle window lets
// the first position through at once; later positions in the window replace
// each other and the latest is released on the tick.
func (p *Pipeline) throttle(ctx context.Context, session *location.Session, out chan<- model.Position) error {
	t := p.newTicker(p.cfg.Interval)
	defer t.Stop()

	var (
		pending *model.Position
		ready   *model.Position
		idle    = true
	)

	in := session.Positions()
	for {
		var (
			send chan<- model.Position
			next model.Position
		)
		if ready != nil {
			send = out
			next = *ready
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case pos, ok := <-in:
			if !ok {
				return session.Err()
			}
			if idle && ready == nil {
				ready = &pos
				idle = false
				t.Reset(p.cfg.Interval)
			} else {
				pending = &pos
			}

		case <-t.C():
			switch {
			case pending != nil:
				ready, pending = pending, nil
				idle = false
			case ready == nil:
				idle = true
			}

		case send <- next:
			ready = nil
		}
	}
}

// resolve turns throttled positions into distances, one call at a time
func (p *Pipeline) resolve(ctx context.Context, session *location.Session, in <-chan model.Position, venue model.Venue, out *stream.Stream[model.Distance]) error {
	state := phaseActive
	for pos := range in {
		if state != phaseActive {
			continue
		}

		d, err := p.resolver.Distance(ctx, pos, venue)
		if err != nil {
			log.Printf("Proximity: resolve distance to %s: %v", venue.ID, err)
			return err
		}

		var act action
		state, act = transition(state, d, p.cfg.Threshold)
		switch act {
		case actionForward:
			if err := out.Send(ctx, d); err != nil {
				return err
			}
		case actionComplete:
			log.Printf("Proximity: %.3f km from %s, within %.2f km, completing", float64(d), venue.ID, float64(p.cfg.Threshold))
			if p.cfg.OnArrival != nil {
				p.cfg.OnArrival(venue, pos, d)
			}
			// ends the position stream, which drains the throttle and this loop
			session.Stop()
			state = phaseStopped
		}
	}
	return nil
}
