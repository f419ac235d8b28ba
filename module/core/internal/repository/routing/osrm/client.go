// Package osrm talks to an OSRM-compatible road routing HTTP API.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

const DefaultBaseURL = "https://router.project-osrm.org"

// HTTPDoer is the part of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	http    HTTPDoer
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient builds a client allowing perSecond requests with a burst of one.
func NewClient(baseURL string, timeout time.Duration, perSecond float64) *Client {
	return NewClientWithHTTPDoer(baseURL, timeout, perSecond, &http.Client{Timeout: timeout})
}

func NewClientWithHTTPDoer(baseURL string, timeout time.Duration, perSecond float64, doer HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Client{
		baseURL: baseURL,
		http:    doer,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}
}

type routeResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Routes  []route `json:"routes"`
}

type route struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

// Route returns the driving leg between two points. Every failure wraps
// domain.ErrRoutingUnavailable.
func (c *Client) Route(ctx context.Context, from, to domain.Point) (*domain.RouteLeg, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, unavailable("rate limit wait", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.routeURL(from, to), nil)
	if err != nil {
		return nil, unavailable("build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unavailable("request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRoutingUnavailable, resp.StatusCode, string(body))
	}

	var parsed routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, unavailable("decode response", err)
	}
	if parsed.Code != "Ok" {
		return nil, fmt.Errorf("%w: code %q: %s", domain.ErrRoutingUnavailable, parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes in response", domain.ErrRoutingUnavailable)
	}

	r := parsed.Routes[0]
	points := make([]domain.Point, 0, len(r.Geometry.Coordinates))
	for i, c := range r.Geometry.Coordinates {
		if len(c) < 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d values", domain.ErrRoutingUnavailable, i, len(c))
		}
		// GeoJSON order is [lng, lat]
		points = append(points, domain.Point{Lat: c[1], Lng: c[0]})
	}

	return &domain.RouteLeg{
		Polyline:        points,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}, nil
}

func (c *Client) routeURL(from, to domain.Point) string {
	return c.baseURL + "/route/v1/driving/" +
		coord(from) + ";" + coord(to) +
		"?overview=full&geometries=geojson"
}

func coord(p domain.Point) string {
	return strconv.FormatFloat(p.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrRoutingUnavailable, op, err)
}
