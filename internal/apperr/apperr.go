/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package apperr defines the failure taxonomy shared by the session, request, editor and
// gallery layers. Every failure surfaced to a caller is an *Error carrying one Kind and a
// message that can be shown to the user as is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this module.
	KindUnknown Kind = iota
	// KindTransport covers network failures and timeouts.
	KindTransport
	// KindValidation is a missing or invalid input detected before any request is sent.
	KindValidation
	// KindServer is a non-2xx response.
	KindServer
	// KindPermission is a device capability the user denied.
	KindPermission
	// KindState is an operation attempted in a state that does not allow it.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindPermission:
		return "permission"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// FallbackMessage is used when neither the server nor the transport supplied one.
const FallbackMessage = "unknown error"

// Error is the uniform failure value.
type Error struct {
	Kind   Kind
	Op     string // operation that failed, e.g. "lineitems.save"
	Msg    string // human-readable message
	Status int    // HTTP status for KindServer, 0 otherwise
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = FallbackMessage
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so callers can write errors.Is(err, &apperr.Error{Kind: apperr.KindState}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Validation reports invalid input caught before the network.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// State reports an operation attempted in an invalid state.
func State(op, msg string) *Error {
	return &Error{Kind: KindState, Op: op, Msg: msg}
}

// Permission reports a denied device capability.
func Permission(op, msg string, err error) *Error {
	return &Error{Kind: KindPermission, Op: op, Msg: msg, Err: err}
}

// Transport wraps a network-level failure.
func Transport(op string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindTransport, Op: op, Msg: msg, Err: err}
}

// Server reports a non-2xx response with the best available message.
func Server(op string, status int, msg string) *Error {
	return &Error{Kind: KindServer, Op: op, Msg: msg, Status: status}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// Message extracts a message suitable for display, without the operation prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		if e.Err != nil && e.Err.Error() != "" {
			return e.Err.Error()
		}
		return FallbackMessage
	}
	if s := err.Error(); s != "" {
		return s
	}
	return FallbackMessage
}
