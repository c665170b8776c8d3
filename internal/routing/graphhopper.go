package routing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/paulmach/orb/geo"

	"venuelink/internal/model"
	"venuelink/internal/util"
)

const maxResponseBytes = 1 << 20

// GraphHopper resolves routed distances with the GraphHopper Routing API
type GraphHopper struct {
	baseURL string
	apiKey  string
	profile string
	client  *http.Client
}

// NewGraphHopper creates a client. profile is a GraphHopper vehicle profile such as "foot".
func NewGraphHopper(baseURL, apiKey, profile string, timeout time.Duration) *GraphHopper {
	return &GraphHopper{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		profile: profile,
		client:  &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Paths   []routePath `json:"paths"`
	Message string      `json:"message"`
	Hints   []routeHint `json:"hints"`
}

type routePath struct {
	Distance *float64 `json:"distance"`
	Time     int64    `json:"time"`
	Points   string   `json:"points"`
}

type routeHint struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

// Distance implements the proximity resolver contract. It returns the length of
// the best route from origin to venue in kilometers.
func (g *GraphHopper) Distance(ctx context.Context, origin model.Position, venue model.Venue) (model.Distance, error) {
	if err := origin.Validate(); err != nil {
		return 0, fmt.Errorf("%w: origin: %v", model.ErrDataUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.routeURL(origin, venue), nil)
	if err != nil {
		return 0, fmt.Errorf("graphhopper request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, fmt.Errorf("graphhopper read body: %w", err)
	}

	var route routeResponse
	decodeErr := sonic.Unmarshal(body, &route)

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusBadRequest && decodeErr == nil && route.noRoute() {
			return 0, fmt.Errorf("%w: %s", model.ErrDataUnavailable, route.Message)
		}
		msg := route.Message
		if decodeErr != nil {
			msg = string(body)
		}
		return 0, fmt.Errorf("graphhopper: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("graphhopper decode: %w", decodeErr)
	}

	if len(route.Paths) == 0 {
		return 0, fmt.Errorf("%w: no route to %s", model.ErrDataUnavailable, venue.ID)
	}

	return route.Paths[0].length()
}

func (g *GraphHopper) routeURL(origin model.Position, venue model.Venue) string {
	q := url.Values{}
	q.Add("point", util.FormatLatLng(origin.Lat, origin.Lon))
	q.Add("point", util.FormatLatLng(venue.Lat, venue.Lon))
	q.Set("profile", g.profile)
	q.Set("points_encoded", "true")
	q.Set("instructions", "false")
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	return g.baseURL + "/route?" + q.Encode()
}

// noRoute reports the GraphHopper errors that mean the origin cannot be routed
func (r routeResponse) noRoute() bool {
	for _, h := range r.Hints {
		if strings.Contains(h.Details, "ConnectionNotFound") || strings.Contains(h.Details, "PointNotFound") {
			return true
		}
	}
	return strings.Contains(r.Message, "Connection between locations not found")
}

// length prefers the reported distance and falls back to measuring the route geometry
func (p routePath) length() (model.Distance, error) {
	if p.Distance != nil {
		if *p.Distance < 0 {
			return 0, fmt.Errorf("%w: negative route distance", model.ErrDataUnavailable)
		}
		return model.DistanceFromMeters(*p.Distance), nil
	}

	line := util.DecodePolyline(p.Points, util.PolylinePrecision)
	if len(line) < 2 {
		return 0, fmt.Errorf("%w: route without distance or geometry", model.ErrDataUnavailable)
	}
	return model.DistanceFromMeters(geo.Length(line)), nil
}
