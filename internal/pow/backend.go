// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import "github.com/decred/dcrd/chaincfg/chainhash"

// Hasher computes proof-of-work hashes keyed by a single seed.
//
// Implementations MUST be safe for concurrent access since one hasher is
// shared by every engine that hashes with the same seed and mode.
type Hasher interface {
	// Hash returns the hash of the provided input.
	Hash(input []byte) chainhash.Hash

	// Close releases the memory held by the hasher.  Hash must not be
	// called afterwards.
	Close()
}

// Backend creates the hashers a Provider shares between engines.
type Backend interface {
	// Name returns a human-readable name of the hash function.
	Name() string

	// ResourceSize returns the approximate number of bytes a hasher in the
	// provided mode keeps resident.
	ResourceSize(mode Mode) uint64

	// NewHasher builds a hasher for the provided mode keyed by seed.  The
	// build may take a long time for fast mode and is not interruptible.
	NewHasher(mode Mode, seed *chainhash.Hash) (Hasher, error)
}
