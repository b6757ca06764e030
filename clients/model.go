// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

// Package clients manages client records: validation, uniqueness, geocoding
// of the postal address, alternative contacts and soft deletion.
package clients

import (
	"fmt"
	"time"

	"github.com/bufalari/clientbook/spatial"
)

// MainContactNotes marks the contact synthesized from the client's own data.
const MainContactNotes = "Main Contact"

// Client is a persisted client record.
type Client struct {
	ID           int64
	Name         string
	Address      string
	City         string
	Province     string
	PostalCode   string
	Country      string
	DialCode1    string
	PhoneNumber1 string
	DialCode2    string
	PhoneNumber2 string
	Email        string
	SinNumber    string
	Notes        string
	// Point is nil until the address has been geocoded.
	Point *spatial.Point
	// Cell is the H3 cell of Point, 0 when Point is nil.
	Cell      int64
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Contacts  []*AlternativeContact
}

// AlternativeContact is an additional person reachable on behalf of a client.
type AlternativeContact struct {
	ID          int64 // 0 until persisted
	ClientID    int64
	Name        string
	DialCode    string
	PhoneNumber string
	Email       string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SetPoint attaches coordinates and their H3 cell.
func (c *Client) SetPoint(p spatial.Point) error {
	cell, err := spatial.Cell(p)
	if err != nil {
		return fmt.Errorf("indexing client location: %w", err)
	}

	c.Point = &p
	c.Cell = cell

	return nil
}

// FormatAddress joins the address parts the way the geocoder expects them.
func FormatAddress(address, city, province, postalCode string) string {
	return fmt.Sprintf("%s, %s, %s, %s", address, city, province, postalCode)
}

// mainContact builds the contact that mirrors the client's primary data.
func (c *Client) mainContact() *AlternativeContact {
	return &AlternativeContact{
		ClientID:    c.ID,
		Name:        c.Name,
		DialCode:    c.DialCode1,
		PhoneNumber: c.PhoneNumber1,
		Email:       c.Email,
		Notes:       MainContactNotes,
	}
}
