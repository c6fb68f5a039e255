// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"
	"time"
)

// TestBackoff ensures the backoff doubles from its minimum up to its maximum
// with bounded jitter and resets to the minimum.
func TestBackoff(t *testing.T) {
	t.Parallel()

	b := newBackoff(time.Second, 64*time.Second)
	wantBase := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 64 * time.Second,
		64 * time.Second, 64 * time.Second,
	}
	for i, base := range wantBase {
		d := b.next()
		if d < base || d > base+base/4 {
			t.Fatalf("attempt %d: delay %v not in [%v, %v]", i, d, base,
				base+base/4)
		}
	}
	if level := b.Level(); level != 6 {
		t.Fatalf("unexpected level at max -- got %d, want 6", level)
	}

	b.reset()
	if level := b.Level(); level != 0 {
		t.Fatalf("unexpected level after reset -- got %d, want 0", level)
	}
	if d := b.next(); d < time.Second || d > time.Second*5/4 {
		t.Fatalf("unexpected delay after reset: %v", d)
	}
}

// TestBackoffMaxBelowMin ensures a maximum below the minimum is raised to the
// minimum.
func TestBackoffMaxBelowMin(t *testing.T) {
	t.Parallel()

	b := newBackoff(time.Second, time.Millisecond)
	for i := 0; i < 3; i++ {
		if d := b.next(); d < time.Second || d > time.Second*5/4 {
			t.Fatalf("attempt %d: unexpected delay %v", i, d)
		}
	}
	if level := b.Level(); level != 0 {
		t.Fatalf("unexpected level -- got %d, want 0", level)
	}
}
