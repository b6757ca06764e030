// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"errors"
	"fmt"
	"net/http"
)

// Error describes a failed geocoding attempt.
type Error struct {
	Type    ErrorType
	Message string
	Address string
	Status  string // provider status, when one was received
	Err     error
}

// ErrorType classifies geocoding failures.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeStatus the provider answered with a non OK status.
	ErrorTypeStatus
	// ErrorTypeNoResults the provider found nothing for the address.
	ErrorTypeNoResults
	// ErrorTypeQuotaExceeded the API key ran out of quota.
	ErrorTypeQuotaExceeded
	// ErrorTypeInvalidRequest the request or the key was rejected.
	ErrorTypeInvalidRequest
	// ErrorTypeTimeout the call did not finish in time.
	ErrorTypeTimeout
	// ErrorTypeNetwork the provider could not be reached.
	ErrorTypeNetwork
	// ErrorTypeHTTP the provider answered with a non 200 HTTP status.
	ErrorTypeHTTP
	// ErrorTypeDecode the response body was not valid JSON.
	ErrorTypeDecode
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeStatus:         "status",
	ErrorTypeNoResults:      "no_results",
	ErrorTypeQuotaExceeded:  "quota_exceeded",
	ErrorTypeInvalidRequest: "invalid_request",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNetwork:        "network",
	ErrorTypeHTTP:           "http",
	ErrorTypeDecode:         "decode",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TypeOf returns the type of a geocoding error, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type
	}

	return ErrorTypeUnknown
}

// IsQuotaExceededError reports whether err is a quota failure.
func IsQuotaExceededError(err error) bool {
	return TypeOf(err) == ErrorTypeQuotaExceeded
}

// statusError maps a provider status other than OK.
func statusError(status, address string) *Error {
	t := ErrorTypeStatus

	switch status {
	case "ZERO_RESULTS":
		t = ErrorTypeNoResults
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		t = ErrorTypeQuotaExceeded
	case "REQUEST_DENIED", "INVALID_REQUEST":
		t = ErrorTypeInvalidRequest
	}

	return &Error{
		Type:    t,
		Status:  status,
		Address: address,
		Message: fmt.Sprintf("geocoding status %s for address %q", status, address),
	}
}

// ClassifyHTTPError maps a non 200 HTTP status into a geocoding error.
func ClassifyHTTPError(statusCode int, address string) *Error {
	e := &Error{Type: ErrorTypeHTTP, Address: address}

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusForbidden:
		e.Type = ErrorTypeQuotaExceeded
		e.Message = fmt.Sprintf("quota exceeded or access denied (HTTP %d)", statusCode)
	case http.StatusBadRequest:
		e.Type = ErrorTypeInvalidRequest
		e.Message = "invalid request (HTTP 400)"
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		e.Type = ErrorTypeNetwork
		e.Message = fmt.Sprintf("service unavailable (HTTP %d)", statusCode)
	default:
		e.Message = fmt.Sprintf("unexpected HTTP status %d", statusCode)
	}

	return e
}
