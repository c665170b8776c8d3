package proximity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuelink/internal/location"
	"venuelink/internal/location/locationtest"
	"venuelink/internal/model"
	"venuelink/internal/stream"
)

var testVenue = model.Venue{ID: "kofst", Name: "KOFST", Lat: 37.5007029, Lon: 127.0307453}

// fakeResolver maps a position latitude to a scripted distance or error
type fakeResolver struct {
	mu        sync.Mutex
	distances map[float64]model.Distance
	errs      map[float64]error
	gates     map[float64]chan struct{}
	calls     []float64
	called    chan float64
}

func newFakeResolver(distances map[float64]model.Distance) *fakeResolver {
	return &fakeResolver{
		distances: distances,
		errs:      map[float64]error{},
		gates:     map[float64]chan struct{}{},
		called:    make(chan float64, 32),
	}
}

func (f *fakeResolver) Distance(ctx context.Context, origin model.Position, venue model.Venue) (model.Distance, error) {
	f.mu.Lock()
	f.calls = append(f.calls, origin.Lat)
	gate := f.gates[origin.Lat]
	d, err := f.distances[origin.Lat], f.errs[origin.Lat]
	f.mu.Unlock()

	f.called <- origin.Lat
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return d, err
}

func (f *fakeResolver) Calls() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.calls...)
}

type manualTicker struct {
	c chan time.Time
}

func (m *manualTicker) C() <-chan time.Time   { return m.c }
func (m *manualTicker) Reset(d time.Duration) {}
func (m *manualTicker) Stop()                 {}

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.c <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("throttle did not take the tick")
	}
}

type harness struct {
	pipeline *Pipeline
	platform *locationtest.Platform
	source   *location.Source
	resolver *fakeResolver
	ticker   *manualTicker
	arrivals []model.Distance
}

func newHarness(t *testing.T, status model.AuthorizationState, distances map[float64]model.Distance) *harness {
	t.Helper()
	h := &harness{
		platform: locationtest.NewPlatform(status),
		resolver: newFakeResolver(distances),
		ticker:   &manualTicker{c: make(chan time.Time)},
	}
	h.source = location.NewSource("test-device", h.platform)
	t.Cleanup(h.source.Close)

	h.pipeline = New(h.source, h.resolver, Config{
		OnArrival: func(_ model.Venue, _ model.Position, d model.Distance) {
			h.arrivals = append(h.arrivals, d)
		},
	})
	h.pipeline.newTicker = func(time.Duration) ticker { return h.ticker }
	return h
}

func (h *harness) push(lat float64) {
	h.platform.Push(locationtest.At(lat, 127))
}

func (h *harness) stops() int {
	_, _, stops := h.platform.Counts()
	return stops
}

func recv(t *testing.T, out *stream.Stream[model.Distance]) model.Distance {
	t.Helper()
	select {
	case d, ok := <-out.Values():
		require.True(t, ok, "stream ended early: %v", out.Err())
		return d
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a distance")
	}
	return 0
}

func waitEnd(t *testing.T, out *stream.Stream[model.Distance]) error {
	t.Helper()
	select {
	case d, ok := <-out.Values():
		require.False(t, ok, "unexpected distance %v", d)
		return out.Err()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the stream to end")
	}
	return nil
}

func waitCall(t *testing.T, r *fakeResolver) float64 {
	t.Helper()
	select {
	case lat := <-r.called:
		return lat
	case <-time.After(time.Second):
		t.Fatal("resolver was not called")
	}
	return 0
}

func TestObserveDistance_CompletesWithinThreshold(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{
		1: 2.0, 2: 1.2, 3: 0.9, 4: 0.4,
	})

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.push(1)
	assert.Equal(t, model.Distance(2.0), recv(t, out))

	h.push(2)
	h.ticker.tick(t)
	assert.Equal(t, model.Distance(1.2), recv(t, out))

	h.push(3)
	h.ticker.tick(t)
	assert.Equal(t, model.Distance(0.9), recv(t, out))

	h.push(4)
	h.ticker.tick(t)
	assert.NoError(t, waitEnd(t, out), "arrival is a clean completion")

	assert.Equal(t, 1, h.stops())
	assert.Equal(t, []model.Distance{0.4}, h.arrivals)
	assert.Equal(t, []float64{1, 2, 3, 4}, h.resolver.Calls())

	// late disposal and an explicit stop must not stop the platform again
	out.Cancel()
	h.source.Stop()
	assert.Equal(t, 1, h.stops())
}

func TestObserveDistance_ThresholdIsInclusive(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{1: 0.5})

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.push(1)
	values, err := stream.Collect(out)
	assert.NoError(t, err)
	assert.Empty(t, values)
	assert.Equal(t, 1, h.stops())
}

func TestObserveDistance_NeverCompletesAboveThreshold(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{
		1: 3.0, 2: 2.5, 3: 2.9,
	})

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.push(1)
	assert.Equal(t, model.Distance(3.0), recv(t, out))
	h.push(2)
	h.ticker.tick(t)
	assert.Equal(t, model.Distance(2.5), recv(t, out))
	h.push(3)
	h.ticker.tick(t)
	assert.Equal(t, model.Distance(2.9), recv(t, out))

	select {
	case d, ok := <-out.Values():
		t.Fatalf("unexpected stream activity: %v %v", d, ok)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Zero(t, h.stops())

	out.Cancel()
	assert.Error(t, waitEnd(t, out))
	assert.Equal(t, 1, h.stops(), "disposal releases the location session")
}

func TestObserveDistance_LatestWins(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{
		1: 4, 2: 3.5, 3: 3, 4: 2.5, 5: 2,
	})

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	// idle window: the first position goes straight through
	h.push(1)
	assert.Equal(t, model.Distance(4), recv(t, out))

	// inside the window only the most recent survives
	h.push(2)
	h.push(3)
	h.ticker.tick(t)
	assert.Equal(t, model.Distance(3), recv(t, out))

	// an empty window makes the throttle idle again
	h.ticker.tick(t)
	h.push(5)
	assert.Equal(t, model.Distance(2), recv(t, out))

	assert.Equal(t, []float64{1, 3, 5}, h.resolver.Calls())
	out.Cancel()
}

func TestObserveDistance_SerializesResolverCalls(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{
		1: 4, 2: 3.5, 3: 3,
	})
	gate := make(chan struct{})
	h.resolver.gates[1] = gate

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.push(1)
	assert.Equal(t, 1.0, waitCall(t, h.resolver))

	// resolver busy: ticks keep replacing the value waiting for it
	h.push(2)
	h.ticker.tick(t)
	h.push(3)
	h.ticker.tick(t)

	select {
	case lat := <-h.resolver.called:
		t.Fatalf("overlapping resolver call for %v", lat)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	assert.Equal(t, model.Distance(4), recv(t, out))
	assert.Equal(t, 3.0, waitCall(t, h.resolver))
	assert.Equal(t, model.Distance(3), recv(t, out))

	assert.Equal(t, []float64{1, 3}, h.resolver.Calls())
	out.Cancel()
}

func TestObserveDistance_PermissionDenied(t *testing.T) {
	h := newHarness(t, model.AuthorizationDenied, nil)

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Nil(t, out)
	assert.Empty(t, h.resolver.Calls())
}

func TestObserveDistance_WaitsForAuthorization(t *testing.T) {
	h := newHarness(t, model.AuthorizationNotDetermined, map[float64]model.Distance{1: 1.5})

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	requests, starts, _ := h.platform.Counts()
	assert.Equal(t, 1, requests)
	assert.Zero(t, starts)

	h.platform.Authorize(model.AuthorizationAuthorized)
	h.push(1)
	assert.Equal(t, model.Distance(1.5), recv(t, out))
	out.Cancel()
}

func TestObserveDistance_RevokedMidStream(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{1: 1.5})

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.push(1)
	assert.Equal(t, model.Distance(1.5), recv(t, out))

	h.platform.Authorize(model.AuthorizationDenied)
	assert.ErrorIs(t, waitEnd(t, out), model.ErrPermissionDenied)
	assert.Equal(t, 1, h.stops())
}

func TestObserveDistance_NoRoute(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{1: 2.0})
	h.resolver.errs[2] = model.ErrDataUnavailable

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.push(1)
	assert.Equal(t, model.Distance(2.0), recv(t, out))

	h.push(2)
	h.ticker.tick(t)
	assert.ErrorIs(t, waitEnd(t, out), model.ErrDataUnavailable)
	assert.Equal(t, 1, h.stops())

	// the session is gone, later updates are dropped by the source
	h.push(3)
	assert.Equal(t, []float64{1, 2}, h.resolver.Calls())
}

func TestObserveDistance_TransportErrorPropagatesUnchanged(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, nil)
	boom := errors.New("dial tcp: connection refused")
	h.resolver.errs[1] = boom

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.push(1)
	assert.Same(t, boom, waitEnd(t, out))
}

func TestObserveDistance_SourceFailure(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, nil)

	out, err := h.pipeline.ObserveDistance(context.Background(), testVenue)
	require.NoError(t, err)

	h.platform.Push()
	assert.ErrorIs(t, waitEnd(t, out), model.ErrDataUnavailable)
	assert.Empty(t, h.resolver.Calls())
}

func TestObserveDistance_ContextCancel(t *testing.T) {
	h := newHarness(t, model.AuthorizationAuthorized, map[float64]model.Distance{1: 2.0})
	ctx, cancel := context.WithCancel(context.Background())

	out, err := h.pipeline.ObserveDistance(ctx, testVenue)
	require.NoError(t, err)

	h.push(1)
	assert.Equal(t, model.Distance(2.0), recv(t, out))

	cancel()
	assert.ErrorIs(t, waitEnd(t, out), context.Canceled)
	assert.Equal(t, 1, h.stops())
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name      string
		from      phase
		distance  model.Distance
		wantPhase phase
		wantAct   action
	}{
		{"above threshold", phaseActive, 0.9, phaseActive, actionForward},
		{"at threshold", phaseActive, 0.5, phaseCompleting, actionComplete},
		{"below threshold", phaseActive, 0.1, phaseCompleting, actionComplete},
		{"completing ignores", phaseCompleting, 3, phaseCompleting, actionIgnore},
		{"stopped ignores", phaseStopped, 0.1, phaseStopped, actionIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPhase, gotAct := transition(tt.from, tt.distance, DefaultThreshold)
			assert.Equal(t, tt.wantPhase, gotPhase)
			assert.Equal(t, tt.wantAct, gotAct)
		})
	}
}
