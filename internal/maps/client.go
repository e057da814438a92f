// Package maps proxies Google Maps geocoding and distance lookups so the
// API key stays server-side.
package maps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// requestTimeout bounds a single Maps API round trip.
const requestTimeout = 10 * time.Second

// Client calls the Google Maps web services.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// NewClient creates a Maps client. Passing a nil http client uses a default
// with a bounded timeout.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  httpClient,
		logger:  logging.WithFields(logging.String("component", "maps_client")),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Geocode resolves a place id to coordinates and address components.
// The provider's JSON body is passed through untouched.
func (c *Client) Geocode(ctx context.Context, placeID string) (json.RawMessage, error) {
	if placeID == "" {
		return nil, errors.ValidationError("place id is required")
	}

	params := url.Values{
		"place_id": {placeID},
		"key":      {c.apiKey},
	}
	return c.get(ctx, "/geocode/json", params)
}

// Distance looks up travel distance and duration between two locations.
func (c *Client) Distance(ctx context.Context, origin, destination string) (json.RawMessage, error) {
	if origin == "" || destination == "" {
		return nil, errors.ValidationError("origin and destination are required")
	}

	params := url.Values{
		"origins":      {origin},
		"destinations": {destination},
		"key":          {c.apiKey},
	}
	return c.get(ctx, "/distancematrix/json", params)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, errors.ConfigError("maps API key is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.InternalError("failed to build maps request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.TransientProviderError("maps provider unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.TransientProviderError("failed to read maps response", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Maps provider returned an error",
			logging.String("path", path),
			logging.Int("status", resp.StatusCode),
		)
		return nil, errors.TransientProviderError("maps provider returned an error", nil).
			WithContext("status", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}
