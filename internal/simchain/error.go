// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package simchain

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same hash was already
	// processed or its parent was already extended by another block.
	ErrDuplicateBlock = ErrorKind("ErrDuplicateBlock")

	// ErrBadPrevBlock indicates the parent of a block is not part of the
	// main chain.
	ErrBadPrevBlock = ErrorKind("ErrBadPrevBlock")

	// ErrBadHeight indicates the height committed to by a block does not
	// follow the height of its parent.
	ErrBadHeight = ErrorKind("ErrBadHeight")

	// ErrHighHash indicates the proof-of-work hash of a block does not
	// satisfy its target difficulty or the difficulty is out of range.
	ErrHighHash = ErrorKind("ErrHighHash")

	// ErrNoTransactions indicates a block does not contain a coinbase.
	ErrNoTransactions = ErrorKind("ErrNoTransactions")

	// ErrBadMerkleRoot indicates the merkle root committed to by a block does
	// not match the transactions it contains.
	ErrBadMerkleRoot = ErrorKind("ErrBadMerkleRoot")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}
