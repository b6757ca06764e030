// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides utility functions for working with HTTP.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

const redacted = "REDACTED"

/////////////////////////////////////////
/// RountTrippers

// LoggingRoundTripper adds a very primitive logging to a http transaction.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
	// RedactQuery lists query parameters whose values never reach Writer.
	RedactQuery []string
}

// reduce the content the liens.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i < maxLines {
			if strings.HasPrefix(strings.ToLower(line), "authorization:") {
				line = "Authorization: " + redacted
			}

			lines[i] = fmt.Sprintf("%c %s", prefix, line)
		} else {
			break
		}
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

// secrets returns the raw and escaped values of the redacted query parameters.
func (t *LoggingRoundTripper) secrets(u *url.URL) []string {
	if u == nil || len(t.RedactQuery) == 0 {
		return nil
	}

	var out []string

	query := u.Query()
	for _, name := range t.RedactQuery {
		for _, v := range query[name] {
			if v == "" {
				continue
			}

			out = append(out, url.QueryEscape(v), v)
		}
	}

	return out
}

func redact(dump string, secrets []string) string {
	for _, s := range secrets {
		dump = strings.ReplaceAll(dump, s, redacted)
	}

	return dump
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	text := redact(string(dump), t.secrets(req.URL))
	lines := abbreviate(strings.Split(text, "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	var secrets []string
	if resp.Request != nil {
		secrets = t.secrets(resp.Request.URL)
	}

	lines := abbreviate(strings.Split(redact(string(dump), secrets), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.Transport.RoundTrip(req)

	return resp, err
}

// NewTransport stacks the round trippers used by outbound API clients on top
// of http.DefaultTransport. A nil trace writer disables the dump.
func NewTransport(userAgent string, trace io.Writer, redactQuery ...string) http.RoundTripper {
	var rt http.RoundTripper = http.DefaultTransport

	if trace != nil {
		rt = &LoggingRoundTripper{
			Transport:   rt,
			Writer:      trace,
			DumpBody:    true,
			RedactQuery: redactQuery,
		}
	}

	if userAgent != "" {
		rt = &AppendRequestHeadersRoundTripper{
			Transport: rt,
			Headers:   map[string]string{"User-Agent": userAgent},
		}
	}

	return rt
}
