// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package simchain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/container/lru"
	"github.com/decred/dcrd/crypto/rand"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4"
	"github.com/decred/dcrd/wire"
	"github.com/decred/rxminer/internal/mining"
	"github.com/decred/rxminer/internal/pow"
)

const (
	// DefaultBits is the difficulty used for templates when none is
	// configured.  It is capped to the proof-of-work limit of the network.
	DefaultBits = 0x1f00ffff

	// DefaultMaxSeenBlocks is the default number of recently processed block
	// hashes remembered for duplicate detection.
	DefaultMaxSeenBlocks = 1024

	// blockVersion is the version of the blocks created by the chain.
	blockVersion = 1

	// coinbaseTxVersion is the version of the coinbase transactions.
	coinbaseTxVersion = 1
)

// Config houses the parameters of a simulated chain.
type Config struct {
	// ChainParams identifies the network.  Its genesis block is the initial
	// tip and its subsidy parameters determine the coinbase values.
	ChainParams *chaincfg.Params

	// PowParams are the parameters of the hash function which determine the
	// seed rotation.
	PowParams *pow.Params

	// Verifier computes the proof-of-work hashes of submitted blocks.
	Verifier *pow.Verifier

	// Bits is the difficulty of new templates.  DefaultBits is used when it
	// is zero.
	Bits uint32

	// SyncDuration is the amount of time the chain reports itself as
	// syncing after it is created.
	SyncDuration time.Duration

	// Peers is the initial number of connected peers.
	Peers int32

	// MaxSeenBlocks limits the number of processed block hashes remembered
	// for duplicate detection.  DefaultMaxSeenBlocks is used when it is
	// zero.
	MaxSeenBlocks uint32
}

// Chain is an in-memory chain that implements the chain and network
// interfaces the miner depends on.
//
// It is safe for concurrent access.
type Chain struct {
	params       *chaincfg.Params
	powParams    *pow.Params
	verifier     *pow.Verifier
	subsidyCache *standalone.SubsidyCache
	bits         uint32
	syncedAt     time.Time
	peers        atomic.Int32

	// mtx protects the fields below.
	mtx       sync.RWMutex
	mainChain []chainhash.Hash
	index     map[chainhash.Hash]int64
	seen      *lru.Set[chainhash.Hash]

	listenerMtx sync.Mutex
	listeners   map[mining.TipListener]struct{}
}

// Ensure the chain implements the interfaces required by the miner.
var (
	_ mining.Chain       = (*Chain)(nil)
	_ mining.Network     = (*Chain)(nil)
	_ mining.TipNotifier = (*Chain)(nil)
)

// New returns a simulated chain with the genesis block of the configured
// network as its tip.
func New(cfg *Config) (*Chain, error) {
	if cfg.ChainParams == nil || cfg.PowParams == nil || cfg.Verifier == nil {
		return nil, errors.New("chain parameters, pow parameters and a " +
			"verifier are required")
	}

	bits := cfg.Bits
	if bits == 0 {
		bits = DefaultBits
	}
	target := standalone.CompactToBig(bits)
	if target.Sign() <= 0 {
		return nil, fmt.Errorf("difficulty bits %08x do not encode a "+
			"positive target", bits)
	}
	if target.Cmp(cfg.ChainParams.PowLimit) > 0 {
		log.Debugf("Capping difficulty bits %08x to the %s proof-of-work "+
			"limit", bits, cfg.ChainParams.Name)
		bits = standalone.BigToCompact(cfg.ChainParams.PowLimit)
	}

	maxSeen := cfg.MaxSeenBlocks
	if maxSeen == 0 {
		maxSeen = DefaultMaxSeenBlocks
	}

	genesis := cfg.ChainParams.GenesisHash
	c := &Chain{
		params:       cfg.ChainParams,
		powParams:    cfg.PowParams,
		verifier:     cfg.Verifier,
		subsidyCache: standalone.NewSubsidyCache(cfg.ChainParams),
		bits:         bits,
		syncedAt:     time.Now().Add(cfg.SyncDuration),
		mainChain:    []chainhash.Hash{genesis},
		index:        map[chainhash.Hash]int64{genesis: 0},
		seen:         lru.NewSet[chainhash.Hash](maxSeen),
		listeners:    make(map[mining.TipListener]struct{}),
	}
	c.peers.Store(cfg.Peers)
	c.seen.Put(genesis)
	return c, nil
}

// Bits returns the difficulty bits of new templates.
func (c *Chain) Bits() uint32 {
	return c.bits
}

// tip returns the hash and height of the current tip.
//
// This function MUST be called with the chain lock held (for reads).
func (c *Chain) tip() (chainhash.Hash, int64) {
	height := int64(len(c.mainChain) - 1)
	return c.mainChain[height], height
}

// BestTip returns the hash and height of the current best chain tip.
//
// This is part of the mining.Chain interface.
func (c *Chain) BestTip() (chainhash.Hash, int64) {
	c.mtx.RLock()
	hash, height := c.tip()
	c.mtx.RUnlock()
	return hash, height
}

// BlockHashByHeight returns the hash of the main chain block at the provided
// height.
//
// This is part of the mining.Chain interface.
func (c *Chain) BlockHashByHeight(height int64) (*chainhash.Hash, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if height < 0 || height >= int64(len(c.mainChain)) {
		return nil, fmt.Errorf("no main chain block at height %d", height)
	}
	hash := c.mainChain[height]
	return &hash, nil
}

// IsSyncing returns true until the configured sync duration has elapsed.
//
// This is part of the mining.Chain interface.
func (c *Chain) IsSyncing() bool {
	return time.Now().Before(c.syncedAt)
}

// ConnectedCount returns the number of simulated peers.
//
// This is part of the mining.Network interface.
func (c *Chain) ConnectedCount() int32 {
	return c.peers.Load()
}

// SetConnectedCount sets the number of simulated peers.
func (c *Chain) SetConnectedCount(peers int32) {
	c.peers.Store(peers)
}

// RegisterTipListener registers a listener that is notified of every tip
// change.
//
// This is part of the mining.TipNotifier interface.
func (c *Chain) RegisterTipListener(listener mining.TipListener) {
	c.listenerMtx.Lock()
	c.listeners[listener] = struct{}{}
	c.listenerMtx.Unlock()
}

// UnregisterTipListener removes a previously registered listener.
//
// This is part of the mining.TipNotifier interface.
func (c *Chain) UnregisterTipListener(listener mining.TipListener) {
	c.listenerMtx.Lock()
	delete(c.listeners, listener)
	c.listenerMtx.Unlock()
}

// notifyTipChanged notifies all registered listeners of a new tip from a
// separate goroutine so listeners never run while the caller holds locks.
func (c *Chain) notifyTipChanged(hash chainhash.Hash, height int64) {
	c.listenerMtx.Lock()
	listeners := make([]mining.TipListener, 0, len(c.listeners))
	for l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenerMtx.Unlock()
	if len(listeners) == 0 {
		return
	}

	go func() {
		for _, l := range listeners {
			l.TipChanged(&hash, height)
		}
	}()
}

// standardCoinbaseOpReturn creates a standard OP_RETURN output to insert into
// a coinbase to commit to the height and an extra nonce which ensures
// templates for the same height and payout script are unique.
func standardCoinbaseOpReturn(height uint32) ([]byte, error) {
	enData := make([]byte, 12)
	binary.LittleEndian.PutUint32(enData[0:4], height)
	binary.LittleEndian.PutUint64(enData[4:12], rand.Uint64())
	return txscript.GenerateProvablyPruneableOut(enData)
}

// createCoinbaseTx returns a coinbase transaction paying the subsidy of the
// provided height to the pay script.
func (c *Chain) createCoinbaseTx(payScript []byte, height int64) (*wire.MsgTx, error) {
	opReturnPkScript, err := standardCoinbaseOpReturn(uint32(height))
	if err != nil {
		return nil, err
	}

	subsidy := c.subsidyCache.CalcBlockSubsidy(height)
	tx := wire.NewMsgTx()
	tx.Version = coinbaseTxVersion
	tx.AddTxIn(&wire.TxIn{
		// Coinbase transactions have no inputs, so previous outpoint is
		// zero hash and max index.
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{},
			wire.MaxPrevOutIndex, wire.TxTreeRegular),
		Sequence:        wire.MaxTxInSequenceNum,
		ValueIn:         subsidy,
		BlockHeight:     wire.NullBlockHeight,
		BlockIndex:      wire.NullBlockIndex,
		SignatureScript: []byte{0x00, 0x00},
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    0,
		PkScript: opReturnPkScript,
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    subsidy,
		PkScript: payScript,
	})
	return tx, nil
}

// CreateBlockTemplate returns a new block that pays the block subsidy to the
// provided script and builds on the current tip.
//
// This is part of the mining.Chain interface.
func (c *Chain) CreateBlockTemplate(ctx context.Context, payScript []byte) (*wire.MsgBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(payScript) == 0 {
		return nil, errors.New("a payout script is required")
	}

	prevHash, prevHeight := c.BestTip()
	height := prevHeight + 1
	coinbase, err := c.createCoinbaseTx(payScript, height)
	if err != nil {
		return nil, err
	}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    blockVersion,
			PrevBlock:  prevHash,
			MerkleRoot: standalone.CalcTxTreeMerkleRoot([]*wire.MsgTx{coinbase}),
			Bits:       c.bits,
			Height:     uint32(height),
			Timestamp:  time.Unix(time.Now().Unix(), 0),
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
	block.Header.Size = uint32(block.SerializeSize())
	return block, nil
}

// connectBlock makes the block with the provided hash the new tip and
// notifies listeners.
//
// This function MUST be called with the chain lock held (for writes).
func (c *Chain) connectBlock(hash chainhash.Hash, height int64) {
	c.mainChain = append(c.mainChain, hash)
	c.index[hash] = height
	c.seen.Put(hash)
	c.notifyTipChanged(hash, height)
}

// checkConnect ensures the provided header extends the current tip and
// returns the seed its proof of work must be computed with.
//
// This function MUST be called with the chain lock held (for reads).
func (c *Chain) checkConnect(hash *chainhash.Hash, header *wire.BlockHeader) (chainhash.Hash, error) {
	if c.seen.Contains(*hash) {
		str := fmt.Sprintf("already have block %v", hash)
		return chainhash.Hash{}, ruleError(ErrDuplicateBlock, str)
	}

	parentHeight, ok := c.index[header.PrevBlock]
	if !ok {
		str := fmt.Sprintf("previous block %v of block %v is unknown",
			header.PrevBlock, hash)
		return chainhash.Hash{}, ruleError(ErrBadPrevBlock, str)
	}
	tipHash, tipHeight := c.tip()
	if parentHeight != tipHeight {
		str := fmt.Sprintf("previous block %v of block %v was already "+
			"extended by block %v", header.PrevBlock, hash,
			c.mainChain[parentHeight+1])
		return chainhash.Hash{}, ruleError(ErrDuplicateBlock, str)
	}
	if int64(header.Height) != tipHeight+1 {
		str := fmt.Sprintf("block %v has height %d instead of %d which is "+
			"expected for a child of %v", hash, header.Height, tipHeight+1,
			tipHash)
		return chainhash.Hash{}, ruleError(ErrBadHeight, str)
	}

	return c.mainChain[pow.SeedHeight(c.powParams, tipHeight+1)], nil
}

// processBlock validates the provided block and connects it to the main
// chain.  A RuleError is returned when the block violates a rule while any
// other error indicates the proof of work could not be computed.
func (c *Chain) processBlock(ctx context.Context, block *dcrutil.Block) error {
	hash := block.Hash()
	msgBlock := block.MsgBlock()
	header := &msgBlock.Header

	c.mtx.RLock()
	seed, err := c.checkConnect(hash, header)
	c.mtx.RUnlock()
	if err != nil {
		return err
	}

	if len(msgBlock.Transactions) == 0 {
		str := fmt.Sprintf("block %v does not contain any transactions", hash)
		return ruleError(ErrNoTransactions, str)
	}
	merkleRoot := standalone.CalcTxTreeMerkleRoot(msgBlock.Transactions)
	if header.MerkleRoot != merkleRoot {
		str := fmt.Sprintf("block %v merkle root is invalid - block header "+
			"indicates %v, but calculated value is %v", hash,
			header.MerkleRoot, merkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	// The proof of work is checked without holding the chain lock since it
	// is comparatively slow.
	err = c.verifier.VerifyHeader(ctx, &seed, header, c.params.PowLimit)
	if err != nil {
		var rerr standalone.RuleError
		if errors.As(err, &rerr) {
			str := fmt.Sprintf("block %v has invalid proof of work: %v", hash,
				rerr)
			return ruleError(ErrHighHash, str)
		}
		return err
	}

	// The tip might have changed while the proof of work was checked.
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if _, err := c.checkConnect(hash, header); err != nil {
		return err
	}
	c.connectBlock(*hash, int64(header.Height))
	return nil
}

// SubmitBlock processes a solved block.  Blocks that were already seen or
// whose parent was already extended are duplicates while blocks that violate
// any other rule are rejected.
//
// This is part of the mining.Chain interface.
func (c *Chain) SubmitBlock(block *dcrutil.Block) (mining.SubmitResult, error) {
	err := c.processBlock(context.Background(), block)
	var rerr RuleError
	switch {
	case err == nil:
		log.Infof("Connected block %v (height %d)", block.Hash(),
			block.Height())
		return mining.SubmitAccepted, nil

	case errors.Is(err, ErrDuplicateBlock):
		log.Debugf("Duplicate block: %v", err)
		return mining.SubmitDuplicate, nil

	case errors.As(err, &rerr):
		log.Infof("Rejected block: %v", err)
		return mining.SubmitRejected, nil
	}
	return mining.SubmitRejected, err
}

// ExtendTip connects a block from a simulated peer to the tip without any
// proof of work and returns its hash.
func (c *Chain) ExtendTip() chainhash.Hash {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	tipHash, tipHeight := c.tip()
	header := wire.BlockHeader{
		Version:   blockVersion,
		PrevBlock: tipHash,
		Bits:      c.bits,
		Height:    uint32(tipHeight + 1),
		Timestamp: time.Unix(time.Now().Unix(), 0),
		Nonce:     rand.Uint32(),
	}
	rand.Read(header.ExtraData[:])
	hash := header.BlockHash()
	c.connectBlock(hash, tipHeight+1)
	log.Debugf("Simulated peer block %v (height %d)", hash, tipHeight+1)
	return hash
}

// SimulatePeers extends the tip with blocks from simulated peers at random
// intervals averaging the provided interval until the context is canceled.
//
// It must be run as a goroutine.
func (c *Chain) SimulatePeers(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	for {
		delay := interval/2 + rand.Duration(interval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		c.ExtendTip()
	}
}
