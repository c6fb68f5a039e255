// Copyright (c) 2022-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package limits

import (
	"fmt"
	"math"
	"runtime/debug"
)

// minHeapLimit is the smallest soft memory limit SetMemoryLimit applies.
const minHeapLimit = 64 << 20

// SetMemoryLimit configures the runtime to use the provided limit as a soft
// memory limit.  A limit of zero or less removes any previously configured
// limit.
//
// Note that the limit only applies to memory managed by the Go runtime.
// Proof-of-work caches and datasets are memory mapped outside of the heap and
// are not counted against it.
func SetMemoryLimit(limit int64) error {
	if limit <= 0 {
		debug.SetMemoryLimit(math.MaxInt64)
		return nil
	}
	if limit < minHeapLimit {
		return fmt.Errorf("memory limit %d is below the minimum of %d bytes",
			limit, minHeapLimit)
	}
	debug.SetMemoryLimit(limit)
	return nil
}
