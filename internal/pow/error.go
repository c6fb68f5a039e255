// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrResourceInit indicates the memory backing a light mode cache or a
	// fast mode dataset could not be acquired.  It is always recoverable and
	// callers are expected to try again later.
	ErrResourceInit = ErrorKind("ErrResourceInit")

	// ErrInvalidParams indicates the proof-of-work parameters are malformed.
	ErrInvalidParams = ErrorKind("ErrInvalidParams")

	// ErrInvalidMode indicates an unknown hashing mode was requested.
	ErrInvalidMode = ErrorKind("ErrInvalidMode")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to the proof-of-work hash function.  It
// has full support for errors.Is and errors.As, so the caller can ascertain
// the specific reason for the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
