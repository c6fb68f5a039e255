// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/crypto/rand"
)

// backoff provides capped exponential retry delays with jitter.
//
// It is safe for concurrent access.  The coordinator advances it while
// submissions and tip notifications reset it.
type backoff struct {
	min, max time.Duration
	level    atomic.Int32
}

// newBackoff returns a backoff that starts at min and doubles up to max.
func newBackoff(min, max time.Duration) *backoff {
	if max < min {
		max = min
	}
	return &backoff{min: min, max: max}
}

// base returns the delay without jitter for the provided level.
func (b *backoff) base(level int32) time.Duration {
	d := b.min
	for i := int32(0); i < level && d < b.max; i++ {
		d <<= 1
	}
	if d > b.max || d <= 0 {
		d = b.max
	}
	return d
}

// next returns the delay for the current level with up to 25% of random
// jitter added and advances the level.  The level stops advancing once the
// maximum delay is reached.
func (b *backoff) next() time.Duration {
	level := b.level.Load()
	d := b.base(level)
	if d < b.max {
		b.level.CompareAndSwap(level, level+1)
	}
	if jitter := d / 4; jitter > 0 {
		d += rand.Duration(jitter)
	}
	return d
}

// reset returns the backoff to the minimum delay.
func (b *backoff) reset() {
	b.level.Store(0)
}

// Level returns the current backoff level where 0 is the minimum delay.
func (b *backoff) Level() int32 {
	return b.level.Load()
}
