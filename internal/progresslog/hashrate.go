// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import "fmt"

// hashRateUnits are the units used when formatting hash rates.
var hashRateUnits = []string{"H/s", "kH/s", "MH/s", "GH/s", "TH/s"}

// FormatHashRate returns the provided number of hashes per second in a human
// readable form using the largest unit that keeps the value at or above 1.
func FormatHashRate(hashesPerSec float64) string {
	unit := 0
	for hashesPerSec >= 1000 && unit < len(hashRateUnits)-1 {
		hashesPerSec /= 1000
		unit++
	}
	return fmt.Sprintf("%.2f %s", hashesPerSec, hashRateUnits[unit])
}
