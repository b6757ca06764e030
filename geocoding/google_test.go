// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bufalari/clientbook/utils/httputils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const torontoResponse = `{
  "results": [
    {
      "formatted_address": "100 Queen St W, Toronto, ON M5H 2N2, Canada",
      "geometry": {
        "location": {"lat": 43.6532, "lng": -79.3832},
        "location_type": "ROOFTOP"
      }
    },
    {
      "formatted_address": "Queen St, Toronto",
      "geometry": {
        "location": {"lat": 1, "lng": 2},
        "location_type": "APPROXIMATE"
      }
    }
  ],
  "status": "OK"
}`

func newTestGeocoder(t *testing.T, handler http.HandlerFunc, opts GoogleMapsOptions) *GoogleMapsGeocoder {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	opts.Logger = zap.NewNop()

	return NewGoogleMapsGeocoder("test-key", opts)
}

func replyWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestGeocodeOK(t *testing.T) {
	var gotPath, gotAddress, gotKey string

	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAddress = r.URL.Query().Get("address")
		gotKey = r.URL.Query().Get("key")
		replyWith(http.StatusOK, torontoResponse)(w, r)
	}, GoogleMapsOptions{})

	res, err := g.Geocode(context.Background(), "100 Queen St W, Toronto, ON, M5H 2N2")
	require.NoError(t, err)

	assert.Equal(t, "/json", gotPath)
	assert.Equal(t, "100 Queen St W, Toronto, ON, M5H 2N2", gotAddress)
	assert.Equal(t, "test-key", gotKey)

	assert.InDelta(t, 43.6532, res.Latitude, 1e-9)
	assert.InDelta(t, -79.3832, res.Longitude, 1e-9)
	assert.Equal(t, "ROOFTOP", res.LocationType)
	assert.Equal(t, "100 Queen St W, Toronto, ON M5H 2N2, Canada", res.FormattedAddress)
}

func TestGeocodeFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType ErrorType
		contains string
	}{
		{
			name:     "zero results",
			handler:  replyWith(http.StatusOK, `{"results": [], "status": "ZERO_RESULTS"}`),
			wantType: ErrorTypeNoResults,
			contains: "ZERO_RESULTS",
		},
		{
			name:     "status is case sensitive",
			handler:  replyWith(http.StatusOK, strings.Replace(torontoResponse, `"OK"`, `"ok"`, 1)),
			wantType: ErrorTypeStatus,
			contains: "ok",
		},
		{
			name:     "request denied",
			handler:  replyWith(http.StatusOK, `{"results": [], "status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`),
			wantType: ErrorTypeInvalidRequest,
			contains: "API key is invalid",
		},
		{
			name:     "over query limit",
			handler:  replyWith(http.StatusOK, `{"results": [], "status": "OVER_QUERY_LIMIT"}`),
			wantType: ErrorTypeQuotaExceeded,
		},
		{
			name:     "ok without results",
			handler:  replyWith(http.StatusOK, `{"results": [], "status": "OK"}`),
			wantType: ErrorTypeNoResults,
		},
		{
			name:     "malformed body",
			handler:  replyWith(http.StatusOK, `{"results": [`),
			wantType: ErrorTypeDecode,
		},
		{
			name:     "service unavailable",
			handler:  replyWith(http.StatusServiceUnavailable, ``),
			wantType: ErrorTypeNetwork,
		},
		{
			name:     "unexpected status",
			handler:  replyWith(http.StatusTeapot, ``),
			wantType: ErrorTypeHTTP,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGeocoder(t, tc.handler, GoogleMapsOptions{})

			res, err := g.Geocode(context.Background(), "1 Nowhere Rd, Nowhere, ON, A1A 1A1")
			require.Error(t, err)
			assert.Nil(t, res)

			var geoErr *Error
			require.True(t, errors.As(err, &geoErr))
			assert.Equal(t, tc.wantType, geoErr.Type, "got %s", geoErr.Type)
			assert.Equal(t, "1 Nowhere Rd, Nowhere, ON, A1A 1A1", geoErr.Address)

			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
		})
	}
}

func TestGeocodeStatusMessageNamesAddress(t *testing.T) {
	g := newTestGeocoder(t, replyWith(http.StatusOK, `{"results": [], "status": "ZERO_RESULTS"}`), GoogleMapsOptions{})

	_, err := g.Geocode(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Equal(t, `geocoding status ZERO_RESULTS for address "Atlantis"`, err.Error())
}

func TestGeocodeTimeoutSingleAttempt(t *testing.T) {
	var calls atomic.Int32

	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		replyWith(http.StatusOK, torontoResponse)(w, r)
	}, GoogleMapsOptions{Timeout: 50 * time.Millisecond})

	_, err := g.Geocode(context.Background(), "Toronto")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, TypeOf(err), "expected timeout, got %v", err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocodeContextDeadline(t *testing.T) {
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		replyWith(http.StatusOK, torontoResponse)(w, r)
	}, GoogleMapsOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := g.Geocode(ctx, "Toronto")
	assert.Equal(t, ErrorTypeTimeout, TypeOf(err), "expected timeout, got %v", err)
}

func TestGeocodeEmptyAddress(t *testing.T) {
	var calls atomic.Int32

	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		replyWith(http.StatusOK, torontoResponse)(w, r)
	}, GoogleMapsOptions{})

	_, err := g.Geocode(context.Background(), "  ")
	assert.Equal(t, ErrorTypeInvalidRequest, TypeOf(err))
	assert.Zero(t, calls.Load())
}

func TestGeocodeTraceRedactsKey(t *testing.T) {
	var trace bytes.Buffer

	g := newTestGeocoder(t, replyWith(http.StatusOK, torontoResponse), GoogleMapsOptions{
		Transport: httputils.NewTransport("clientbook-test", &trace, "key"),
	})

	_, err := g.Geocode(context.Background(), "Toronto")
	require.NoError(t, err)

	assert.Contains(t, trace.String(), "key=REDACTED")
	assert.NotContains(t, trace.String(), "test-key")
	assert.Contains(t, trace.String(), "User-Agent: clientbook-test")
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "no_results", ErrorTypeNoResults.String())
	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}

func TestErrorHelpers(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &Error{Type: ErrorTypeQuotaExceeded, Message: "quota"})

	assert.True(t, IsQuotaExceededError(wrapped))
	assert.Equal(t, ErrorTypeQuotaExceeded, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))

	inner := errors.New("dial tcp: refused")
	e := &Error{Type: ErrorTypeNetwork, Message: "geocoding request failed", Err: inner}
	assert.ErrorIs(t, e, inner)
	assert.Equal(t, "geocoding request failed: dial tcp: refused", e.Error())
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeQuotaExceeded},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusBadGateway, ErrorTypeNetwork},
		{http.StatusInternalServerError, ErrorTypeHTTP},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyHTTPError(tc.code, "x").Type)
		})
	}
}

func TestResolveAPIKeyExplicit(t *testing.T) {
	key, err := ResolveAPIKey(context.Background(), "configured", "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "configured", key)
}
