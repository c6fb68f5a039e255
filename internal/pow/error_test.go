// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"errors"
	"io"
	"testing"
)

// TestErrorKindStringer tests the stringized output for the ErrorKind type.
func TestErrorKindStringer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   ErrorKind
		want string
	}{
		{ErrResourceInit, "ErrResourceInit"},
		{ErrInvalidParams, "ErrInvalidParams"},
		{ErrInvalidMode, "ErrInvalidMode"},
	}

	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("#%d: got: %s want: %s", i, result, test.want)
			continue
		}
	}
}

// TestErrorKindIsAs ensures both ErrorKind and Error can be identified as being
// a specific error kind via errors.Is and unwrapped via errors.As.
func TestErrorKindIsAs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
		wantAs    ErrorKind
	}{{
		name:      "ErrResourceInit == ErrResourceInit",
		err:       ErrResourceInit,
		target:    ErrResourceInit,
		wantMatch: true,
		wantAs:    ErrResourceInit,
	}, {
		name:      "Error.ErrResourceInit == ErrResourceInit",
		err:       makeError(ErrResourceInit, ""),
		target:    ErrResourceInit,
		wantMatch: true,
		wantAs:    ErrResourceInit,
	}, {
		name:      "Error.ErrResourceInit != ErrInvalidParams",
		err:       makeError(ErrResourceInit, ""),
		target:    ErrInvalidParams,
		wantMatch: false,
		wantAs:    ErrResourceInit,
	}, {
		name:      "Error.ErrInvalidMode != io.EOF",
		err:       makeError(ErrInvalidMode, ""),
		target:    io.EOF,
		wantMatch: false,
		wantAs:    ErrInvalidMode,
	}}

	for _, test := range tests {
		result := errors.Is(test.err, test.target)
		if result != test.wantMatch {
			t.Errorf("%s: incorrect error identification -- got %v, want %v",
				test.name, result, test.wantMatch)
			continue
		}

		var kind ErrorKind
		if !errors.As(test.err, &kind) {
			t.Errorf("%s: unable to unwrap to error kind", test.name)
			continue
		}
		if kind != test.wantAs {
			t.Errorf("%s: unexpected unwrapped error kind -- got %v, want %v",
				test.name, kind, test.wantAs)
			continue
		}
	}
}
