// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import "fmt"

// Mode identifies which resource tier an Engine hashes with.
type Mode uint8

const (
	// LightMode hashes with only the cache resident in memory and derives
	// every dataset item it touches on demand.  It is the mode used for
	// validation.
	LightMode Mode = iota

	// FastMode hashes with the full dataset precomputed in memory.  It is
	// considerably faster than light mode at the cost of a much larger and
	// slower to build resource.
	FastMode
)

// modeStrings is a map of modes back to their constant names for pretty
// printing.
var modeStrings = map[Mode]string{
	LightMode: "light",
	FastMode:  "fast",
}

// String returns the Mode as a human-readable name.
func (m Mode) String() string {
	if s, ok := modeStrings[m]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Mode (%d)", uint8(m))
}

// IsValid returns whether or not the mode is a known mode.
func (m Mode) IsValid() bool {
	_, ok := modeStrings[m]
	return ok
}

// Params houses the parameters of the hash function.  Every node that
// validates a chain must use identical parameters since they change the
// resulting hashes.
type Params struct {
	// Backend creates the seed keyed hashers.
	Backend Backend

	// EpochLength is the number of blocks between seed rotations.
	EpochLength int64

	// EpochLag is the number of blocks a new seed trails its epoch boundary
	// so miners are able to precompute resources ahead of time.
	EpochLag int64
}

// MainParams returns the production parameters which hash with RandomX and
// require roughly 256 MiB of memory for light mode and 2080 MiB for fast
// mode.
func MainParams() *Params {
	return &Params{
		Backend:     RandomX,
		EpochLength: 2048,
		EpochLag:    64,
	}
}

// TestParams returns parameters that hash with KeyedBlake3 instead of RandomX.
// They are intended for tests and simulation networks and the hashes they
// produce are not compatible with MainParams.
func TestParams() *Params {
	return &Params{
		Backend:     KeyedBlake3,
		EpochLength: 2048,
		EpochLag:    64,
	}
}

// Validate returns an error of kind ErrInvalidParams when any of the
// parameters are out of range.
func (p *Params) Validate() error {
	switch {
	case p.Backend == nil:
		str := "no hash backend is configured"
		return makeError(ErrInvalidParams, str)
	case p.EpochLength <= 0:
		str := fmt.Sprintf("epoch length %d must be positive", p.EpochLength)
		return makeError(ErrInvalidParams, str)
	case p.EpochLag < 0:
		str := fmt.Sprintf("epoch lag %d is negative", p.EpochLag)
		return makeError(ErrInvalidParams, str)
	}
	return nil
}
