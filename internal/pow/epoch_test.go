// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"errors"
	"testing"
)

// TestSeedHeight ensures the seed height rotates every epoch and trails each
// boundary by the epoch lag.
func TestSeedHeight(t *testing.T) {
	t.Parallel()

	params := MainParams()
	tests := []struct {
		height   int64
		want     int64
		boundary bool
	}{
		{height: 0, want: 0},
		{height: 1, want: 0},
		{height: 64, want: 0},
		{height: 65, want: 0},
		{height: 2048, want: 0},
		{height: 2112, want: 0},
		{height: 2113, want: 2048, boundary: true},
		{height: 2114, want: 2048},
		{height: 4160, want: 2048},
		{height: 4161, want: 4096, boundary: true},
		{height: 1000000, want: 999424},
	}

	for _, test := range tests {
		got := SeedHeight(params, test.height)
		if got != test.want {
			t.Errorf("height %d: unexpected seed height -- got %d, want %d",
				test.height, got, test.want)
			continue
		}
		boundary := IsEpochBoundary(params, test.height)
		if boundary != test.boundary {
			t.Errorf("height %d: unexpected boundary -- got %v, want %v",
				test.height, boundary, test.boundary)
		}
	}
}

// TestParamsValidate ensures malformed parameters are rejected with the
// expected kind of error.
func TestParamsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(p *Params)
		valid  bool
	}{
		{"main", func(p *Params) {}, true},
		{"test", func(p *Params) { *p = *TestParams() }, true},
		{"no backend", func(p *Params) { p.Backend = nil }, false},
		{"zero lag", func(p *Params) { p.EpochLag = 0 }, true},
		{"zero epoch", func(p *Params) { p.EpochLength = 0 }, false},
		{"negative lag", func(p *Params) { p.EpochLag = -1 }, false},
	}

	for _, test := range tests {
		params := MainParams()
		test.modify(params)
		err := params.Validate()
		if test.valid {
			if err != nil {
				t.Errorf("%s: unexpected error: %v", test.name, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidParams) {
			t.Errorf("%s: unexpected error -- got %v, want %v", test.name,
				err, ErrInvalidParams)
		}
	}
}
