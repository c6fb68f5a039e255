// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !linux

package mining

// lowerThreadPriority is a no-op on operating systems without per-thread
// scheduling priorities.
func lowerThreadPriority() error {
	return nil
}
