// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"errors"
	"fmt"

	"github.com/uber/h3-go/v4"
)

// CellResolution is the H3 resolution used to index client locations.
// Resolution 7 cells are roughly 5 km² which keeps a few rings around a
// city block small enough to scan.
const CellResolution = 7

// MaxRings bounds the k-ring size accepted by Neighborhood.
const MaxRings = 10

var ErrInvalidPoint = errors.New("spatial: point out of range")

// Cell returns the H3 cell containing p at CellResolution.
func Cell(p Point) (int64, error) {
	if !p.Valid() {
		return 0, ErrInvalidPoint
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), CellResolution)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", CellResolution, err)
	}

	return int64(cell), nil
}

// Neighborhood returns the cells within rings grid steps of the cell that
// contains p, the origin included.
func Neighborhood(p Point, rings int) ([]int64, error) {
	if rings < 0 || rings > MaxRings {
		return nil, fmt.Errorf("spatial: rings must be between 0 and %d, got %d", MaxRings, rings)
	}

	origin, err := Cell(p)
	if err != nil {
		return nil, err
	}

	disk, err := h3.GridDisk(h3.Cell(origin), rings)
	if err != nil {
		return nil, fmt.Errorf("computing grid disk: %w", err)
	}

	cells := make([]int64, 0, len(disk))
	for _, c := range disk {
		if c == 0 {
			continue
		}

		cells = append(cells, int64(c))
	}

	return cells, nil
}
