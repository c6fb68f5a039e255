// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package pow implements the RandomX proof-of-work hash engines along with the
resource management and difficulty target math needed to mine and verify
with them.

# Overview

Hashing is keyed by a seed, which is the hash of a block at an epoch boundary
as returned by SeedHeight.  Every seed has two associated resources:

  - A cache, which is fairly small and fast to build.  Engines in light mode
    only hold the cache and derive each dataset item they read from it.
  - A dataset, which is much larger and derived entirely from the cache.
    Engines in fast mode read precomputed items from it, which is
    considerably faster per hash.

Both modes produce identical hashes for the same seed and header.

The hash function itself is selected by the Backend of the Params.
MainParams use RandomX while TestParams use KeyedBlake3, a cheap keyed hash
for tests and simulation networks.

# Resources

Resources are owned by a Provider which reference counts them so that all
engines of a process that hash with the same seed and mode share a single copy.
The memory a resource requires is checked against the memory available to the
process before it is built so that a shortfall is reported as an error of kind
ErrResourceInit instead of the process being killed.

# Verification

A Verifier keeps a small number of light mode engines loaded and is meant to
be shared by every validation path of a process.

# Errors

Errors returned by this package are of type Error and support errors.Is with
the ErrorKind constants, for example:

	err := engine.Initialize(ctx, seed)
	if errors.Is(err, pow.ErrResourceInit) {
		// Retry later.
	}
*/
package pow
