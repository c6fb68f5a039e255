// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"
)

// SubmitResult describes the outcome of submitting a solved block to the
// chain.
type SubmitResult uint8

const (
	// SubmitAccepted indicates the block was accepted and extended the
	// chain.
	SubmitAccepted SubmitResult = iota

	// SubmitDuplicate indicates the chain already knows the block or another
	// block building on the same parent was accepted first.
	SubmitDuplicate

	// SubmitRejected indicates the block failed validation.
	SubmitRejected
)

// submitResultStrings is a map of submission results back to their constant
// names for pretty printing.
var submitResultStrings = map[SubmitResult]string{
	SubmitAccepted:  "accepted",
	SubmitDuplicate: "duplicate",
	SubmitRejected:  "rejected",
}

// String returns the SubmitResult as a human-readable name.
func (r SubmitResult) String() string {
	if s, ok := submitResultStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown SubmitResult (%d)", uint8(r))
}

// Chain provides the miner with access to the validation engine of the node.
//
// The interface contract requires that all of these methods are safe for
// concurrent access and that none of them call back into the miner while
// holding any of their own locks.
type Chain interface {
	// CreateBlockTemplate returns a new candidate block paying the block
	// reward to the provided script that builds on the current best tip.
	// It must honor cancellation of the provided context.
	CreateBlockTemplate(ctx context.Context, payScript []byte) (*wire.MsgBlock, error)

	// SubmitBlock processes a solved block using the same rules as blocks
	// coming from other nodes.  An error is only returned for failures
	// unrelated to the validity of the block.
	SubmitBlock(block *dcrutil.Block) (SubmitResult, error)

	// BestTip returns the hash and height of the current best chain tip.
	BestTip() (chainhash.Hash, int64)

	// BlockHashByHeight returns the hash of the main chain block at the
	// provided height.
	BlockHashByHeight(height int64) (*chainhash.Hash, error)

	// IsSyncing returns whether or not the chain is still catching up to
	// its peers.
	IsSyncing() bool
}

// Network provides the miner with information about the peer-to-peer
// network.
type Network interface {
	// ConnectedCount returns the number of currently connected peers.
	ConnectedCount() int32
}

// TipListener is notified whenever the best chain tip changes.
//
// Implementations must return quickly and must not call back into the
// notifier.
type TipListener interface {
	TipChanged(hash *chainhash.Hash, height int64)
}

// TipNotifier is optionally implemented by a Chain that is able to push tip
// changes to listeners.  The miner falls back to polling BestTip when the
// chain does not implement it.
type TipNotifier interface {
	RegisterTipListener(listener TipListener)
	UnregisterTipListener(listener TipListener)
}

// HashEngine computes proof-of-work hashes for a single seed at a time.  It is
// implemented by *pow.Engine.
//
// Implementations are NOT required to be safe for concurrent access since
// every worker owns its own.
type HashEngine interface {
	// Initialize loads the resources for the provided seed.
	Initialize(ctx context.Context, seed *chainhash.Hash) error

	// HasSeed returns whether or not the provided seed is loaded.
	HasSeed(seed *chainhash.Hash) bool

	// Hash returns the proof-of-work hash of the serialized header.
	Hash(header []byte) chainhash.Hash

	// Close releases the resources held by the engine.
	Close()
}
