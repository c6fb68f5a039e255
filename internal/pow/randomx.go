// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/opd-ai/go-randomx"
)

const (
	// randomxCacheSize is the size of the RandomX light mode cache.
	randomxCacheSize = 256 << 20

	// randomxDatasetSize is the size of the RandomX fast mode dataset.  The
	// cache is needed while the dataset is built, so fast mode requires
	// both.
	randomxDatasetSize = 2080 << 20
)

// RandomX is the production backend which hashes with RandomX keyed by the
// seed block hash.
var RandomX Backend = randomxBackend{}

// randomxBackend creates RandomX hashers for the light and fast modes.
type randomxBackend struct{}

// Name returns the name of the hash function.
//
// This is part of the Backend interface.
func (randomxBackend) Name() string {
	return "RandomX"
}

// ResourceSize returns the memory a RandomX hasher in the provided mode keeps
// resident.
//
// This is part of the Backend interface.
func (randomxBackend) ResourceSize(mode Mode) uint64 {
	if mode == FastMode {
		return randomxCacheSize + randomxDatasetSize
	}
	return randomxCacheSize
}

// NewHasher initializes a RandomX hasher keyed by seed.  Failures are of kind
// ErrResourceInit.
//
// This is part of the Backend interface.
func (randomxBackend) NewHasher(mode Mode, seed *chainhash.Hash) (Hasher, error) {
	rxMode := randomx.LightMode
	if mode == FastMode {
		rxMode = randomx.FastMode
	}
	hasher, err := randomx.New(randomx.Config{
		Mode:     rxMode,
		CacheKey: append([]byte(nil), seed[:]...),
	})
	if err != nil {
		str := fmt.Sprintf("unable to initialize RandomX %s mode: %v", mode,
			err)
		return nil, makeError(ErrResourceInit, str)
	}
	return &randomxHasher{
		hash: func(input []byte) chainhash.Hash {
			sum := hasher.Hash(input)
			var hash chainhash.Hash
			copy(hash[:], sum[:])
			return hash
		},
		close: func() { hasher.Close() },
	}, nil
}

// randomxHasher adapts a RandomX hasher to the Hasher interface.
type randomxHasher struct {
	hash  func(input []byte) chainhash.Hash
	close func()
}

// Hash returns the RandomX hash of the input.
//
// This is part of the Hasher interface.
func (h *randomxHasher) Hash(input []byte) chainhash.Hash {
	return h.hash(input)
}

// Close releases the cache and dataset of the hasher.
//
// This is part of the Hasher interface.
func (h *randomxHasher) Close() {
	h.close()
}
