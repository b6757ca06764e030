// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// dummyRoundTripper captures the request and replies with a canned body.
type dummyRoundTripper struct {
	body        string
	lastRequest *http.Request
}

func (d *dummyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

// TestLoggingRoundTripper verifies that the LoggingRoundTripper logs both the request and
// the response (including timing information).
func TestLoggingRoundTripper(t *testing.T) {
	var logBuffer bytes.Buffer

	lt := &LoggingRoundTripper{
		Transport: &dummyRoundTripper{body: `{"status":"OK"}`},
		Writer:    &logBuffer,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/geocode/json?address=Toronto", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err = lt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	logContent := logBuffer.String()
	if !strings.Contains(logContent, "> GET /geocode/json?address=Toronto") {
		t.Errorf("log does not contain request info. Got: %s", logContent)
	}

	if !strings.Contains(logContent, "< RESPONSE: [") {
		t.Errorf("log does not contain response header with timing info. Got: %s", logContent)
	}

	if !strings.Contains(logContent, `{"status":"OK"}`) {
		t.Errorf("log does not contain response body. Got: %s", logContent)
	}
}

func TestLoggingRoundTripperRedactsSecrets(t *testing.T) {
	var logBuffer bytes.Buffer

	lt := &LoggingRoundTripper{
		Transport:   &dummyRoundTripper{},
		Writer:      &logBuffer,
		RedactQuery: []string{"key"},
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/json?address=x&key=s3cr3t%2Fkey", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer token-value")

	if _, err = lt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	logContent := logBuffer.String()
	for _, secret := range []string{"s3cr3t", "token-value"} {
		if strings.Contains(logContent, secret) {
			t.Errorf("log leaks %q. Got: %s", secret, logContent)
		}
	}

	if !strings.Contains(logContent, "key=REDACTED") {
		t.Errorf("log does not show the redacted key. Got: %s", logContent)
	}
}

func TestLoggingRoundTripperWithoutWriter(t *testing.T) {
	dummy := &dummyRoundTripper{}
	lt := &LoggingRoundTripper{Transport: dummy}

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.RequestURI = ""

	if _, err := lt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if dummy.lastRequest != req {
		t.Errorf("request was not forwarded to the transport")
	}
}

func TestAppendRequestHeadersRoundTripper(t *testing.T) {
	dummy := &dummyRoundTripper{}

	atr := &AppendRequestHeadersRoundTripper{
		Transport: dummy,
		Headers:   map[string]string{"X-Test-Header": "TestValue"},
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.org", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if req.Header.Get("X-Test-Header") != "" {
		t.Fatalf("the test header should not be pre-set in the request")
	}

	if _, err = atr.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if dummy.lastRequest == nil {
		t.Fatalf("dummy transport did not receive any request")
	}

	if got := dummy.lastRequest.Header.Get("X-Test-Header"); got != "TestValue" {
		t.Errorf("expected header X-Test-Header to have value 'TestValue', but got '%s'", got)
	}
}

func TestNewTransport(t *testing.T) {
	if rt := NewTransport("", nil); rt != http.DefaultTransport {
		t.Errorf("expected the default transport when nothing is stacked, got %T", rt)
	}

	rt := NewTransport("clientbook/dev", &bytes.Buffer{}, "key")

	headers, ok := rt.(*AppendRequestHeadersRoundTripper)
	if !ok {
		t.Fatalf("expected AppendRequestHeadersRoundTripper on top, got %T", rt)
	}

	if headers.Headers["User-Agent"] != "clientbook/dev" {
		t.Errorf("unexpected user agent %q", headers.Headers["User-Agent"])
	}

	logging, ok := headers.Transport.(*LoggingRoundTripper)
	if !ok {
		t.Fatalf("expected LoggingRoundTripper below the headers, got %T", headers.Transport)
	}

	if len(logging.RedactQuery) != 1 || logging.RedactQuery[0] != "key" {
		t.Errorf("unexpected redacted parameters %v", logging.RedactQuery)
	}
}
