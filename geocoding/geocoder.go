// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding resolves postal addresses into coordinates.
package geocoding

import (
	"context"

	"github.com/bufalari/clientbook/spatial"
)

// Result is the first match returned by a provider.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	LocationType     string // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
}

// Point returns the coordinates of the result.
func (r *Result) Point() spatial.Point {
	return spatial.Point{Lat: r.Latitude, Lng: r.Longitude}
}

// Geocoder resolves a single free-form address. Implementations make exactly
// one attempt and honor the context deadline.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}
