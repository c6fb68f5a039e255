// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"testing"
	"time"

	"github.com/decred/rxminer/internal/pow"
)

// newTestContext creates a template from the chain and wraps it in a mining
// context with an easy target.
func newTestContext(t *testing.T, chain *fakeChain) *MiningContext {
	t.Helper()

	block, err := chain.CreateBlockTemplate(context.Background(), testPayScript)
	if err != nil {
		t.Fatalf("unexpected error creating template: %v", err)
	}
	target, _, _ := pow.DiffBitsToUint256(block.Header.Bits)
	return &MiningContext{
		Block:     block,
		Target:    target,
		Height:    int64(block.Header.Height),
		PrevBlock: block.Header.PrevBlock,
		Created:   time.Now(),
	}
}

// TestWorkerAbandonsStaleTemplate ensures a worker stops searching a template
// within the staleness check interval of a newer context being published and
// flushes its hash count when it does.
func TestWorkerAbandonsStaleTemplate(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(10)
	cfg := testConfig(chain, nil)
	cfg.StalenessCheckInterval = 50
	cfg.StatsFlushInterval = 1000
	m := New(cfg)

	mc := newTestContext(t, chain)
	m.slot.publish(mc)

	const publishAt = 75
	engine := &fakeEngine{}
	engine.onHash = func() {
		if engine.hashes.Load() == publishAt {
			m.slot.publish(newTestContext(t, chain))
		}
	}
	w := &worker{m: m, id: 0, numWorkers: 1, engine: engine}
	if result := w.grind(context.Background(), mc); result != grindStale {
		t.Fatalf("unexpected grind result -- got %d, want %d", result,
			grindStale)
	}

	total := engine.hashes.Load()
	if extra := total - publishAt; extra > uint64(cfg.StalenessCheckInterval) {
		t.Fatalf("worker performed %d hashes on a stale template (max %d)",
			extra, cfg.StalenessCheckInterval)
	}
	if got := m.TotalHashes(); got != total {
		t.Fatalf("unexpected flushed hashes -- got %d, want %d", got, total)
	}
}

// TestWorkerSubmitsShallowCopy ensures a solution is submitted as a copy of the
// template with the solved nonce while the shared template is not modified.
func TestWorkerSubmitsShallowCopy(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(99)
	m := New(testConfig(chain, nil))
	mc := newTestContext(t, chain)
	m.slot.publish(mc)

	engine := &fakeEngine{
		solve: func(header []byte) bool {
			return littleEndian.Uint32(header[nonceSerOffset:]) == 6
		},
	}
	w := &worker{m: m, id: 2, numWorkers: 4, engine: engine}
	if result := w.grind(context.Background(), mc); result != grindSolved {
		t.Fatalf("unexpected grind result -- got %d, want %d", result,
			grindSolved)
	}

	blocks := chain.submittedBlocks()
	if len(blocks) != 1 {
		t.Fatalf("unexpected number of submitted blocks -- got %d, want 1",
			len(blocks))
	}
	if blocks[0].Header.Nonce != 6 {
		t.Fatalf("unexpected submitted nonce -- got %d, want 6",
			blocks[0].Header.Nonce)
	}
	if mc.Block.Header.Nonce != 0 {
		t.Fatalf("shared template nonce modified to %d", mc.Block.Header.Nonce)
	}
	if engine.hashes.Load() != 2 {
		t.Fatalf("unexpected number of hashes -- got %d, want 2",
			engine.hashes.Load())
	}
	if m.BlocksFound() != 1 || m.StaleBlocks() != 0 {
		t.Fatalf("unexpected stats: %s", dumpStatus(m))
	}
}

// TestWorkerDropsSolutionAfterStop ensures solutions found after the miner was
// asked to stop are not submitted.
func TestWorkerDropsSolutionAfterStop(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(5)
	m := New(testConfig(chain, nil))
	mc := newTestContext(t, chain)
	m.slot.publish(mc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &fakeEngine{solve: func([]byte) bool { return true }}
	w := &worker{m: m, id: 0, numWorkers: 1, engine: engine}
	w.grind(ctx, mc)

	if results := chain.submitResults(); len(results) != 0 {
		t.Fatalf("unexpected submissions: %v", results)
	}
	if m.BlocksFound() != 0 {
		t.Fatalf("unexpected blocks found: %d", m.BlocksFound())
	}
}
