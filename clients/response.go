// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

import (
	"sort"

	"github.com/bufalari/clientbook/spatial"
)

// ClientResponse is the outward view of a client. The SIN is never exposed.
type ClientResponse struct {
	ID                  int64             `json:"id"`
	Name                string            `json:"name"`
	City                string            `json:"city"`
	Country             string            `json:"country"`
	Province            string            `json:"province"`
	PostalCode          string            `json:"postalCode"`
	Address             string            `json:"address"`
	DialCode1           string            `json:"ddI1"`
	PhoneNumber1        string            `json:"phoneNumber1"`
	DialCode2           string            `json:"ddI2"`
	PhoneNumber2        string            `json:"phoneNumber2"`
	Email               string            `json:"email"`
	Notes               string            `json:"notes"`
	AlternativeContacts []ContactResponse `json:"alternativeContacts"`
	MapLink             spatial.Links     `json:"mapLink,omitempty"`
}

// ContactResponse is the outward view of an alternative contact.
type ContactResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DialCode    string `json:"ddI"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
}

// NearbyClient is a client found by a proximity query.
type NearbyClient struct {
	ClientResponse
	DistanceMeters float64 `json:"distanceMeters"`
}

// NewClientResponse assembles the response for c. Contacts are ordered by
// ID and the map links are present only when c has coordinates.
func NewClientResponse(c *Client) *ClientResponse {
	resp := &ClientResponse{
		ID:                  c.ID,
		Name:                c.Name,
		City:                c.City,
		Country:             c.Country,
		Province:            c.Province,
		PostalCode:          c.PostalCode,
		Address:             c.Address,
		DialCode1:           c.DialCode1,
		PhoneNumber1:        c.PhoneNumber1,
		DialCode2:           c.DialCode2,
		PhoneNumber2:        c.PhoneNumber2,
		Email:               c.Email,
		Notes:               c.Notes,
		AlternativeContacts: make([]ContactResponse, 0, len(c.Contacts)),
	}

	for _, ac := range c.Contacts {
		resp.AlternativeContacts = append(resp.AlternativeContacts, ContactResponse{
			ID:          ac.ID,
			Name:        ac.Name,
			DialCode:    ac.DialCode,
			PhoneNumber: ac.PhoneNumber,
			Email:       ac.Email,
			Notes:       ac.Notes,
		})
	}

	sort.SliceStable(resp.AlternativeContacts, func(i, j int) bool {
		return resp.AlternativeContacts[i].ID < resp.AlternativeContacts[j].ID
	})

	if c.Point != nil {
		resp.MapLink = spatial.NavigationLinks(c.Point.Lat, c.Point.Lng)
	}

	return resp
}

func newClientResponses(list []*Client) []*ClientResponse {
	out := make([]*ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, NewClientResponse(c))
	}

	return out
}
