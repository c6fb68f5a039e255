// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

// SeedHeight returns the height of the block whose hash keys the hash function
// for a block at the provided height.
//
// The seed rotates every EpochLength blocks and trails each epoch boundary by
// EpochLag blocks, so the seed for a given height is the most recent epoch
// boundary at or below height-EpochLag-1.  All heights up to and including
// the lag use the genesis block.
func SeedHeight(params *Params, height int64) int64 {
	if height <= params.EpochLag {
		return 0
	}
	return (height - params.EpochLag - 1) / params.EpochLength *
		params.EpochLength
}

// IsEpochBoundary returns whether or not a block at the provided height is
// the first one hashed with a new seed.
func IsEpochBoundary(params *Params, height int64) bool {
	if height <= params.EpochLag+1 {
		return false
	}
	return SeedHeight(params, height) != SeedHeight(params, height-1)
}
