// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// lowestNice is the nice value of the lowest scheduling priority.
const lowestNice = 19

// lowerThreadPriority locks the calling goroutine to its OS thread and lowers
// the scheduling priority of that thread.
//
// The thread is never unlocked, so it exits along with the goroutine instead
// of returning to the Go scheduler with a lowered priority.
func lowerThreadPriority() error {
	runtime.LockOSThread()
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), lowestNice)
}
