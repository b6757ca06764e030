// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

import (
	"errors"
	"fmt"
)

// Kind classifies the failures reported by the Manager.
type Kind int

const (
	// KindInternal unexpected failure, usually storage.
	KindInternal Kind = iota
	// KindInvalidData the input broke a validation rule.
	KindInvalidData
	// KindAlreadyExists another active client has the same email and SIN.
	KindAlreadyExists
	// KindNotFound no client matched.
	KindNotFound
	// KindGeocodingFailure the address could not be resolved.
	KindGeocodingFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidData:
		return "InvalidData"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindNotFound:
		return "NotFound"
	case KindGeocodingFailure:
		return "GeocodingFailure"
	default:
		return "Internal"
	}
}

// Error is returned by every Manager operation. TraceID ties it to the log
// lines of the call that produced it.
type Error struct {
	Kind    Kind
	Message string
	TraceID string
	Err     error
}

// Sentinels for errors.Is comparisons on the kind.
var (
	ErrInvalidData      = &Error{Kind: KindInvalidData}
	ErrAlreadyExists    = &Error{Kind: KindAlreadyExists}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrGeocodingFailure = &Error{Kind: KindGeocodingFailure}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, KindInternal when it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// TraceIDOf returns the trace ID carried by err, if any.
func TraceIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.TraceID
	}

	return ""
}
