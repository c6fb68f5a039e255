// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"
	"github.com/decred/rxminer/internal/pow"
)

const (
	// easyBits is a difficulty that every hash except the maximum satisfies
	// in practice.
	easyBits = 0x207fffff

	// heightSerOffset is the offset of the height in a serialized header.
	heightSerOffset = 128
)

// testPayScript is a dummy payout script used by the tests.
var testPayScript = []byte{0x76, 0xa9, 0x14}

// heightHash returns a deterministic block hash for the provided height.
func heightHash(height int64) chainhash.Hash {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(height))
	return chainhash.HashH(b[:])
}

// fakeChain provides a chain that creates templates on top of its tip and
// accepts any block that builds on it.
type fakeChain struct {
	syncing atomic.Bool

	mtx         sync.Mutex
	tip         chainhash.Hash
	height      int64
	hashes      map[int64]chainhash.Hash
	seen        map[chainhash.Hash]struct{}
	templateErr error
	templates   []int64
	results     []SubmitResult
	submitted   []*wire.MsgBlock
}

// newFakeChain returns a fake chain with a tip at the provided height.
func newFakeChain(height int64) *fakeChain {
	c := &fakeChain{
		hashes: make(map[int64]chainhash.Hash),
		seen:   make(map[chainhash.Hash]struct{}),
	}
	for h := int64(0); h <= height; h++ {
		c.hashes[h] = heightHash(h)
	}
	c.tip = c.hashes[height]
	c.height = height
	return c
}

func (c *fakeChain) CreateBlockTemplate(ctx context.Context, payScript []byte) (*wire.MsgBlock, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.templateErr != nil {
		return nil, c.templateErr
	}
	coinbase := wire.NewMsgTx()
	coinbase.AddTxOut(wire.NewTxOut(0, payScript))
	height := c.height + 1
	c.templates = append(c.templates, height)
	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: c.tip,
			Bits:      easyBits,
			Height:    uint32(height),
			Timestamp: time.Unix(1700000000+height, 0),
		},
		Transactions: []*wire.MsgTx{coinbase},
	}, nil
}

func (c *fakeChain) SubmitBlock(block *dcrutil.Block) (SubmitResult, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	result := SubmitAccepted
	hash := *block.Hash()
	if _, ok := c.seen[hash]; ok || block.MsgBlock().Header.PrevBlock != c.tip {
		result = SubmitDuplicate
	} else {
		c.seen[hash] = struct{}{}
		c.height++
		c.tip = hash
		c.hashes[c.height] = hash
	}
	c.results = append(c.results, result)
	c.submitted = append(c.submitted, block.MsgBlock())
	return result, nil
}

func (c *fakeChain) BestTip() (chainhash.Hash, int64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.tip, c.height
}

func (c *fakeChain) BlockHashByHeight(height int64) (*chainhash.Hash, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	hash, ok := c.hashes[height]
	if !ok {
		return nil, errors.New("no block at height")
	}
	return &hash, nil
}

func (c *fakeChain) IsSyncing() bool {
	return c.syncing.Load()
}

// extendTip simulates a block from another miner.
func (c *fakeChain) extendTip() {
	c.mtx.Lock()
	c.height++
	c.tip = heightHash(c.height)
	c.hashes[c.height] = c.tip
	c.mtx.Unlock()
}

// setTemplateErr sets the error returned when creating templates.
func (c *fakeChain) setTemplateErr(err error) {
	c.mtx.Lock()
	c.templateErr = err
	c.mtx.Unlock()
}

// submitResults returns a copy of the results of all submitted blocks.
func (c *fakeChain) submitResults() []SubmitResult {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]SubmitResult(nil), c.results...)
}

// submittedBlocks returns a copy of all submitted blocks.
func (c *fakeChain) submittedBlocks() []*wire.MsgBlock {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]*wire.MsgBlock(nil), c.submitted...)
}

// stalledChain is a fake chain whose CreateBlockTemplate ignores its context
// and blocks until release is closed.
type stalledChain struct {
	*fakeChain
	release chan struct{}
	calls   atomic.Int32
}

func (c *stalledChain) CreateBlockTemplate(ctx context.Context, payScript []byte) (*wire.MsgBlock, error) {
	c.calls.Add(1)
	<-c.release
	return c.fakeChain.CreateBlockTemplate(context.Background(), payScript)
}

// notifyingChain is a fake chain that also supports tip listeners.
type notifyingChain struct {
	*fakeChain

	listenerMtx  sync.Mutex
	listeners    map[TipListener]struct{}
	registered   int
	unregistered int
}

func (c *notifyingChain) RegisterTipListener(listener TipListener) {
	c.listenerMtx.Lock()
	c.listeners[listener] = struct{}{}
	c.registered++
	c.listenerMtx.Unlock()
}

func (c *notifyingChain) UnregisterTipListener(listener TipListener) {
	c.listenerMtx.Lock()
	delete(c.listeners, listener)
	c.unregistered++
	c.listenerMtx.Unlock()
}

// fakeNetwork provides an adjustable number of connected peers.
type fakeNetwork struct {
	peers atomic.Int32
}

func (n *fakeNetwork) ConnectedCount() int32 {
	return n.peers.Load()
}

// fakeEngine is a hash engine whose hashes either trivially satisfy any target
// or never do.
type fakeEngine struct {
	seed    *chainhash.Hash
	onInit  func(seed chainhash.Hash)
	initErr func() error
	solve   func(header []byte) bool
	onHash  func()
	hashes  atomic.Uint64
	closed  atomic.Bool
}

func (e *fakeEngine) Initialize(ctx context.Context, seed *chainhash.Hash) error {
	e.seed = nil
	if e.onInit != nil {
		e.onInit(*seed)
	}
	if e.initErr != nil {
		if err := e.initErr(); err != nil {
			return err
		}
	}
	s := *seed
	e.seed = &s
	return nil
}

func (e *fakeEngine) HasSeed(seed *chainhash.Hash) bool {
	return e.seed != nil && *e.seed == *seed
}

func (e *fakeEngine) Hash(header []byte) chainhash.Hash {
	e.hashes.Add(1)
	if e.onHash != nil {
		e.onHash()
	}
	if e.solve != nil && e.solve(header) {
		return chainhash.Hash{}
	}
	var hash chainhash.Hash
	for i := range hash {
		hash[i] = 0xff
	}
	return hash
}

func (e *fakeEngine) Close() {
	e.closed.Store(true)
}

// headerHeight returns the height of a serialized header.
func headerHeight(header []byte) int64 {
	return int64(binary.LittleEndian.Uint32(header[heightSerOffset:]))
}

// solveAtHeight returns a solve func that solves every header at the provided
// height.
func solveAtHeight(height int64) func([]byte) bool {
	return func(header []byte) bool {
		return headerHeight(header) == height
	}
}

// testConfig returns a miner configuration with short intervals suitable for
// tests.
func testConfig(chain Chain, network Network) *Config {
	return &Config{
		Chain:                  chain,
		Network:                network,
		PowParams:              pow.TestParams(),
		RefreshInterval:        time.Minute,
		PollInterval:           5 * time.Millisecond,
		MinBackoff:             time.Millisecond,
		MaxBackoff:             16 * time.Millisecond,
		TemplateTimeout:        time.Second,
		FirstTemplateTimeout:   time.Second,
		ResourceRetryInterval:  time.Millisecond,
		StalenessCheckInterval: 10,
		StatsFlushInterval:     10,
		NewHashEngine: func(*pow.Provider, pow.Mode) (HashEngine, error) {
			return &fakeEngine{}, nil
		},
	}
}

// waitFor polls the provided condition until it is true or fails the test
// after a timeout.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// startMiner starts the miner or fails the test and ensures it is stopped when
// the test finishes.
func startMiner(t *testing.T, m *Miner, numWorkers int, mode pow.Mode) {
	t.Helper()

	if err := m.Start(numWorkers, testPayScript, mode, false); err != nil {
		t.Fatalf("unexpected error starting miner: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Stop(); err != nil {
			t.Errorf("unexpected error stopping miner: %v", err)
		}
	})
}

// dumpStatus returns a human readable representation of the miner status for
// use in failure messages.
func dumpStatus(m *Miner) string {
	return spew.Sdump(m.Status())
}
