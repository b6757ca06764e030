// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Google Maps Geocoding API endpoint, without the
// output format suffix.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode"

// DefaultTimeout bounds a single geocoding call.
const DefaultTimeout = 10 * time.Second

// GoogleMapsOptions tunes the Google Maps client. Zero values pick the defaults.
type GoogleMapsOptions struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey string
	client *resty.Client
	logger *zap.Logger
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string, opts GoogleMapsOptions) *GoogleMapsGeocoder {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetLogger(opts.Logger.Sugar()).
		SetHeader("Accept", "application/json")

	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	return &GoogleMapsGeocoder{
		apiKey: apiKey,
		client: client,
		logger: opts.Logger,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	if strings.TrimSpace(address) == "" {
		return nil, &Error{Type: ErrorTypeInvalidRequest, Message: "empty address"}
	}

	start := time.Now()

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"address": address,
			"key":     g.apiKey,
		}).
		Get("/json")
	if err != nil {
		return nil, transportError(err, address)
	}

	g.logger.Debug("geocoding response",
		zap.String("address", address),
		zap.Int("http_status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode() != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode(), address)
	}

	var gmResp googleMapsResponse
	if err := json.Unmarshal(resp.Body(), &gmResp); err != nil {
		return nil, &Error{
			Type:    ErrorTypeDecode,
			Address: address,
			Message: "decoding geocoding response",
			Err:     err,
		}
	}

	if gmResp.Status != "OK" {
		e := statusError(gmResp.Status, address)
		if gmResp.ErrorMessage != "" {
			e.Err = errors.New(gmResp.ErrorMessage)
		}

		return nil, e
	}

	if len(gmResp.Results) == 0 {
		return nil, &Error{
			Type:    ErrorTypeNoResults,
			Status:  gmResp.Status,
			Address: address,
			Message: "no results found for address " + address,
		}
	}

	result := gmResp.Results[0]

	return &Result{
		Latitude:         result.Geometry.Location.Lat,
		Longitude:        result.Geometry.Location.Lng,
		FormattedAddress: result.FormattedAddress,
		LocationType:     result.Geometry.LocationType,
	}, nil
}

func transportError(err error, address string) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Type:    ErrorTypeTimeout,
			Address: address,
			Message: "geocoding request timed out",
			Err:     err,
		}
	}

	return &Error{
		Type:    ErrorTypeNetwork,
		Address: address,
		Message: "geocoding request failed",
		Err:     err,
	}
}
