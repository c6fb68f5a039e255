// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidConfig indicates the miner was started with invalid
	// parameters such as a non-positive number of workers, an empty payout
	// script or an unknown hashing mode.
	ErrInvalidConfig = ErrorKind("ErrInvalidConfig")

	// ErrAlreadyRunning indicates an attempt to start a miner that is not
	// stopped.
	ErrAlreadyRunning = ErrorKind("ErrAlreadyRunning")

	// ErrTemplateUnavailable indicates a block template could not be obtained
	// from the chain.  It is always recoverable.
	ErrTemplateUnavailable = ErrorKind("ErrTemplateUnavailable")

	// ErrSubmissionRace indicates a solved block was not accepted because
	// another block for the same parent was already processed or the chain
	// moved on before it was submitted.
	ErrSubmissionRace = ErrorKind("ErrSubmissionRace")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a mining-related error.  It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason
// for the error by checking the underlying error.
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
