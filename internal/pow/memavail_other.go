// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !linux

package pow

// availableMemory reports the available memory as unknown on operating
// systems that do not expose it cheaply.
func availableMemory() (uint64, bool) {
	return 0, false
}
