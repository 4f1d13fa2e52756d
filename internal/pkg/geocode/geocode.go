// Package geocode resolves coordinates to a human-readable address. Lookups
// never fail the caller: any provider problem yields the formatted
// coordinates instead.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/utils"
)

const DefaultTimeout = 3 * time.Second

type Source string

const (
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

// Result is the outcome of a lookup. Address is always set; Err records why
// the fallback was used.
type Result struct {
	Address string
	Source  Source
	Err     error
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) Result
}

// Fallback returns the coordinate string used when no provider answers.
func Fallback(lat, lng float64, err error) Result {
	return Result{Address: utils.FormatCoordinates(lat, lng), Source: SourceFallback, Err: err}
}

// NominatimClient talks to a Nominatim-compatible /reverse endpoint.
type NominatimClient struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// NewNominatimClient returns a client for baseURL. An empty baseURL yields a
// client that always answers with the fallback.
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lng float64) Result {
	if c.baseURL == "" {
		return Fallback(lat, lng, nil)
	}

	address, err := c.lookup(ctx, lat, lng)
	if err != nil {
		degraded := apperr.Wrap(apperr.KindExternalDegraded, "reverse geocoding unavailable", err)
		slog.WarnContext(ctx, "reverse geocoding failed, using coordinates",
			slog.Float64("lat", lat),
			slog.Float64("lng", lng),
			slog.String("error", err.Error()),
		)
		return Fallback(lat, lng, degraded)
	}

	return Result{Address: address, Source: SourceProvider}
}

func (c *NominatimClient) lookup(ctx context.Context, lat, lng float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("geocoder error: %s", body.Error)
	}
	if strings.TrimSpace(body.DisplayName) == "" {
		return "", fmt.Errorf("geocoder returned no address")
	}

	return body.DisplayName, nil
}
