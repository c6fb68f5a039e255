// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mining implements a CPU miner that continuously builds candidate blocks,
searches their nonce space for proof-of-work solutions and submits solved
blocks to the chain.

A Miner runs a single coordinator goroutine that obtains block templates from
the Chain and publishes them as immutable mining contexts with strictly
increasing job ids.  Worker goroutines each search a disjoint stride of the
nonce space of the most recent context and abandon it as soon as a newer one
is published.  The coordinator stops producing templates while the chain is
syncing or too few peers are connected and backs off exponentially while
templates are unavailable.

The chain, network and tip notifications are consumed through the Chain,
Network, TipListener and TipNotifier interfaces so the package does not depend
on any particular node implementation.
*/
package mining
