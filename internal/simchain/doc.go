// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package simchain implements an in-memory chain that provides block templates
to the miner and validates the solutions it submits.

It is intended for simulation and regression test networks where no full node
is available.  The chain starts at the genesis block of the selected network
parameters and only tracks the hashes of the main chain, so there are no
reorganizations.  Blocks submitted by the miner must build on the current tip,
commit to the correct height and merkle root and satisfy their proof of work
as computed by a shared pow.Verifier.  Blocks found by simulated peers advance
the tip without any proof of work so the effects of competing miners can be
observed.

The chain also reports an adjustable number of connected peers and a
configurable initial sync period which allows exercising the conditions the
miner gates on.
*/
package simchain
