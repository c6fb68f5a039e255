// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"lukechampine.com/blake3"
)

// KeyedBlake3 is a backend which hashes with BLAKE3 keyed by the seed.  It is
// neither memory-hard nor compatible with RandomX and holds no resources, so
// it is only suitable for tests and simulation networks.  Both modes produce
// identical hashes.
var KeyedBlake3 Backend = keyedBlake3Backend{}

type keyedBlake3Backend struct{}

func (keyedBlake3Backend) Name() string {
	return "keyed BLAKE3"
}

func (keyedBlake3Backend) ResourceSize(Mode) uint64 {
	return 0
}

func (keyedBlake3Backend) NewHasher(_ Mode, seed *chainhash.Hash) (Hasher, error) {
	return &keyedBlake3Hasher{key: *seed}, nil
}

// keyedBlake3Hasher hashes with a fresh keyed BLAKE3 state per call so it is
// safe for concurrent access.
type keyedBlake3Hasher struct {
	key chainhash.Hash
}

func (h *keyedBlake3Hasher) Hash(input []byte) chainhash.Hash {
	hasher := blake3.New(chainhash.HashSize, h.key[:])
	hasher.Write(input)
	var hash chainhash.Hash
	hasher.Sum(hash[:0])
	return hash
}

func (h *keyedBlake3Hasher) Close() {}
