package arrival

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuelink/internal/model"
)

var kofst = model.Venue{ID: "kofst", Name: "KOFST", Lat: 37.5007029, Lon: 127.0307453}

type mockRepo struct {
	saveAllFn func(ctx context.Context, arrivals []*model.Arrival) error
	recentFn  func(ctx context.Context, venueID string, limit int) ([]*model.Arrival, error)
}

func (m *mockRepo) SaveAll(ctx context.Context, arrivals []*model.Arrival) error {
	return m.saveAllFn(ctx, arrivals)
}

func (m *mockRepo) Recent(ctx context.Context, venueID string, limit int) ([]*model.Arrival, error) {
	return m.recentFn(ctx, venueID, limit)
}

type mockPublisher struct {
	publishFn func(ctx context.Context, a *model.Arrival) error
}

func (m *mockPublisher) PublishArrival(ctx context.Context, a *model.Arrival) error {
	return m.publishFn(ctx, a)
}

func at(sec int64) model.Position {
	return model.Position{Lat: 37.5005, Lon: 127.0302, Timestamp: time.Unix(sec, 0)}
}

func TestRecord_StoresAndPublishes(t *testing.T) {
	var published *model.Arrival
	pub := &mockPublisher{publishFn: func(ctx context.Context, a *model.Arrival) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		published = a
		return nil
	}}
	s := NewArrivalService(nil, pub)

	a := s.Record(context.Background(), "phone-1", kofst, at(1715003456), 0.4)

	require.NotNil(t, published)
	assert.Same(t, a, published)
	assert.Equal(t, "phone-1", a.DeviceID)
	assert.Equal(t, "kofst", a.VenueID)
	assert.Equal(t, 0.4, a.DistanceKm)
	assert.Equal(t, time.Unix(1715003456, 0), a.ArrivedAt)
	assert.Len(t, a.ID, 22)
	assert.Equal(t, 1, s.Count())
}

func TestRecord_PublishFailureKeepsArrival(t *testing.T) {
	pub := &mockPublisher{publishFn: func(context.Context, *model.Arrival) error {
		return errors.New("channel closed")
	}}
	s := NewArrivalService(nil, pub)

	s.Record(context.Background(), "phone-1", kofst, model.Position{Lat: 37.5, Lon: 127.03}, 0.2)

	recent := s.Recent("kofst", 10)
	require.Len(t, recent, 1)
	assert.False(t, recent[0].ArrivedAt.IsZero())
}

func TestSaveDirtyArrivalsToPG(t *testing.T) {
	var saved [][]*model.Arrival
	repo := &mockRepo{saveAllFn: func(_ context.Context, arrivals []*model.Arrival) error {
		saved = append(saved, arrivals)
		return nil
	}}
	s := NewArrivalService(repo, nil)

	s.Record(context.Background(), "phone-2", kofst, at(200), 0.3)
	s.Record(context.Background(), "phone-1", kofst, at(100), 0.4)

	require.NoError(t, s.SaveDirtyArrivalsToPG(context.Background()))
	require.Len(t, saved, 1)
	require.Len(t, saved[0], 2)
	assert.Equal(t, "phone-1", saved[0][0].DeviceID)
	assert.Equal(t, "phone-2", saved[0][1].DeviceID)

	// nothing new to save
	require.NoError(t, s.SaveDirtyArrivalsToPG(context.Background()))
	assert.Len(t, saved, 1)
}

func TestSaveDirtyArrivalsToPG_KeepsDirtyOnError(t *testing.T) {
	fail := true
	calls := 0
	repo := &mockRepo{saveAllFn: func(_ context.Context, arrivals []*model.Arrival) error {
		calls++
		if fail {
			return errors.New("connection refused")
		}
		assert.Len(t, arrivals, 1)
		return nil
	}}
	s := NewArrivalService(repo, nil)
	s.Record(context.Background(), "phone-1", kofst, at(100), 0.4)

	assert.Error(t, s.SaveDirtyArrivalsToPG(context.Background()))

	fail = false
	require.NoError(t, s.SaveDirtyArrivalsToPG(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestRecent(t *testing.T) {
	s := NewArrivalService(nil, nil)
	s.Record(context.Background(), "phone-1", kofst, at(100), 0.4)
	s.Record(context.Background(), "phone-2", kofst, at(300), 0.1)
	s.Record(context.Background(), "phone-3", kofst, at(200), 0.2)
	s.Record(context.Background(), "phone-4", model.Venue{ID: "coex"}, at(400), 0.2)

	recent := s.Recent("kofst", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "phone-2", recent[0].DeviceID)
	assert.Equal(t, "phone-3", recent[1].DeviceID)

	assert.Len(t, s.Recent("kofst", 0), 3)
	assert.Empty(t, s.Recent("unknown", 10))
}

func TestInitService(t *testing.T) {
	saves := 0
	repo := &mockRepo{
		recentFn: func(_ context.Context, venueID string, limit int) ([]*model.Arrival, error) {
			assert.Equal(t, "kofst", venueID)
			assert.Equal(t, 50, limit)
			return []*model.Arrival{
				{ID: "old1", DeviceID: "phone-1", VenueID: "kofst", ArrivedAt: time.Unix(100, 0)},
			}, nil
		},
		saveAllFn: func(context.Context, []*model.Arrival) error {
			saves++
			return nil
		},
	}
	s := NewArrivalService(repo, nil)

	require.NoError(t, s.InitService(context.Background(), []model.Venue{kofst}, 50))
	require.NoError(t, s.InitService(context.Background(), []model.Venue{kofst}, 50))

	assert.Len(t, s.Recent("kofst", 10), 1)
	// loaded rows are not written back
	require.NoError(t, s.SaveDirtyArrivalsToPG(context.Background()))
	assert.Equal(t, 0, saves)
}

func TestInitService_Error(t *testing.T) {
	repo := &mockRepo{recentFn: func(context.Context, string, int) ([]*model.Arrival, error) {
		return nil, errors.New("relation does not exist")
	}}
	s := NewArrivalService(repo, nil)

	assert.ErrorContains(t, s.InitService(context.Background(), []model.Venue{kofst}, 10), "relation does not exist")
}

func TestPruneBefore(t *testing.T) {
	repo := &mockRepo{saveAllFn: func(context.Context, []*model.Arrival) error { return nil }}
	s := NewArrivalService(repo, nil)

	s.Record(context.Background(), "phone-1", kofst, at(100), 0.4)
	require.NoError(t, s.SaveDirtyArrivalsToPG(context.Background()))
	s.Record(context.Background(), "phone-2", kofst, at(150), 0.4)
	s.Record(context.Background(), "phone-3", kofst, at(500), 0.4)

	// phone-2 is not saved yet and survives
	assert.Equal(t, 1, s.PruneBefore(time.Unix(200, 0)))
	assert.Equal(t, 2, s.Count())
}
