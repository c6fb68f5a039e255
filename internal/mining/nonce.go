// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

const (
	// maxNonce is the maximum value a nonce can be in a block header.
	maxNonce = ^uint32(0) // 2^32 - 1
)

// nonceStride iterates the subsequence of the nonce space assigned to a single
// worker.  Worker i of n tries i, i+n, i+2n, ... up to maxNonce, so the
// subsequences of all workers are disjoint and together cover every nonce.
type nonceStride struct {
	next uint64
	step uint64
}

// newNonceStride returns the cursor for the provided worker index out of the
// total number of workers.
func newNonceStride(index, numWorkers uint32) nonceStride {
	if numWorkers == 0 {
		numWorkers = 1
	}
	return nonceStride{next: uint64(index), step: uint64(numWorkers)}
}

// Next returns the next nonce of the subsequence.  False is returned once the
// subsequence is exhausted.
func (s *nonceStride) Next() (uint32, bool) {
	if s.next > uint64(maxNonce) {
		return 0, false
	}
	nonce := uint32(s.next)
	s.next += s.step
	return nonce, true
}
