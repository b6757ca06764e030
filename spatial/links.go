// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Navigation providers, in the order links are emitted.
const (
	GoogleMaps = "googleMaps"
	Waze       = "waze"
	AppleMaps  = "appleMaps"
	Sygic      = "sygic"
	HereWeGo   = "hereWeGo"
)

// Link is a deep link into a navigation application.
type Link struct {
	Provider string
	URL      string
}

// Links is an ordered set of navigation links. It serializes as a JSON
// object whose keys keep the slice order.
type Links []Link

var linkTemplates = []struct {
	provider string
	template string
}{
	{GoogleMaps, "https://www.google.com/maps/search/?api=1&query={lat},{lon}"},
	{Waze, "https://waze.com/ul?ll={lat},{lon}&navigate=yes"},
	{AppleMaps, "http://maps.apple.com/?daddr={lat},{lon}"},
	{Sygic, "com.sygic.aura://coordinate|{lat}|{lon}"},
	{HereWeGo, "https://wego.here.com/directions/mix//{lat},{lon}"},
}

// FormatCoordinate renders a coordinate as the shortest plain decimal that
// round-trips, independent of locale and never in exponent form.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NavigationLinks builds the links for every supported provider.
func NavigationLinks(lat, lng float64) Links {
	r := strings.NewReplacer("{lat}", FormatCoordinate(lat), "{lon}", FormatCoordinate(lng))

	links := make(Links, 0, len(linkTemplates))
	for _, t := range linkTemplates {
		links = append(links, Link{Provider: t.provider, URL: r.Replace(t.template)})
	}

	return links
}

// Get returns the URL for provider.
func (l Links) Get(provider string) (string, bool) {
	for _, link := range l {
		if link.Provider == provider {
			return link.URL, true
		}
	}

	return "", false
}

// MarshalJSON implements json.Marshaler.
func (l Links) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, link := range l {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(link.Provider)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(link.URL)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Keys are read in document order.
func (l *Links) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("spatial: links must be a JSON object")
	}

	var out Links

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, _ := tok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}

		out = append(out, Link{Provider: key, URL: value})
	}

	*l = out

	return nil
}
