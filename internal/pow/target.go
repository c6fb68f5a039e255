// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
)

// DiffBitsToUint256 converts the compact representation used to encode
// difficulty targets to an unsigned 256-bit integer.
//
// The most significant 8 bits are the unsigned base 256 exponent, bit 23 is
// the sign bit and the least significant 23 bits are the mantissa, so:
//
//	N = (-1^sign) * mantissa * 256^(exponent-3)
//
// Flags are returned to indicate whether or not the encoding was for a
// negative value and/or overflows a uint256 so callers can reject them.
func DiffBitsToUint256(bits uint32) (n uint256.Uint256, isNegative bool, overflows bool) {
	mantissa := bits & 0x007fffff
	isSignBitSet := bits&0x00800000 != 0
	exponent := bits >> 24

	// Any multiple of a zero mantissa is zero which can neither be negative
	// nor overflow.
	if mantissa == 0 {
		return n, false, false
	}

	if exponent <= 3 {
		n.SetUint64(uint64(mantissa >> (8 * (3 - exponent))))
		return n, isSignBitSet, false
	}

	// Only 256 bits are available, so any encoded exponent of 35 or greater
	// overflows as do exponents of 34 and 33 with mantissas wider than 8 and
	// 16 bits respectively.
	overflows = exponent >= 35 || (exponent >= 34 && mantissa > 0xff) ||
		(exponent >= 33 && mantissa > 0xffff)
	if overflows {
		return n, isSignBitSet, true
	}
	n.SetUint64(uint64(mantissa))
	n.Lsh(8 * (exponent - 3))
	return n, isSignBitSet, false
}

// HashToUint256 converts the provided hash to an unsigned 256-bit integer that
// can be used to perform math comparisons.
func HashToUint256(hash *chainhash.Hash) uint256.Uint256 {
	// Hashes are a stream of bytes that do not have any inherent endianness to
	// them, so they are interpreted as little endian for the purposes of
	// treating them as a uint256.
	return *new(uint256.Uint256).SetBytesLE((*[32]byte)(hash))
}

// CheckHash returns whether or not the provided hash satisfies the target, in
// other words whether it is less than or equal to it when treated as a
// little-endian unsigned 256-bit integer.
func CheckHash(hash *chainhash.Hash, target *uint256.Uint256) bool {
	n := HashToUint256(hash)
	return n.LtEq(target)
}
