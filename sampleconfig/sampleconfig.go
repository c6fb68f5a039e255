// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

import (
	_ "embed"
)

// sampleRxminerdConf is a string containing the commented example config for
// rxminerd.
//
//go:embed sample-rxminerd.conf
var sampleRxminerdConf string

// Rxminerd returns a string containing the commented example config for
// rxminerd.
func Rxminerd() string {
	return sampleRxminerdConf
}
