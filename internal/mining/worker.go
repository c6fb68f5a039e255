// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/rxminer/internal/pow"
)

const (
	// nonceSerOffset is the offset of the nonce in a serialized header.
	nonceSerOffset = 140
)

// littleEndian is a convenience variable since binary.LittleEndian is quite
// long.
var littleEndian = binary.LittleEndian

// grindResult describes why a worker stopped searching a template.
type grindResult uint8

const (
	// grindCanceled indicates the miner is stopping.
	grindCanceled grindResult = iota

	// grindStale indicates a newer context was published.
	grindStale

	// grindSolved indicates a solution was found and submitted.
	grindSolved

	// grindExhausted indicates the nonce subsequence of the worker was
	// searched without finding a solution.
	grindExhausted

	// grindFailed indicates the template could not be searched.
	grindFailed
)

// worker searches the nonce subsequence assigned to it for solutions to the
// most recent mining context.
type worker struct {
	m          *Miner
	id         uint32
	numWorkers uint32
	provider   *pow.Provider
	mode       pow.Mode
	engine     HashEngine

	// pending is the number of hashes performed that were not yet added to
	// the shared statistics.
	pending uint64
}

// flushHashes adds the pending hashes to the shared statistics.
func (w *worker) flushHashes() {
	if w.pending > 0 {
		w.m.stats.totalHashes.Add(w.pending)
		w.pending = 0
	}
}

// prepare ensures the hash engine of the worker is loaded with the seed of the
// provided context.  A fast mode engine that fails to acquire its resources is
// replaced by a light mode engine when light fallback is allowed.
func (w *worker) prepare(ctx context.Context, mc *MiningContext) error {
	if w.engine.HasSeed(&mc.Seed) {
		return nil
	}

	start := time.Now()
	err := w.engine.Initialize(ctx, &mc.Seed)
	if err == nil {
		log.Debugf("Worker %d loaded seed %v in %s mode (%v)", w.id,
			&mc.Seed, w.mode, time.Since(start).Round(time.Millisecond))
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	w.m.stats.initFailures.Add(1)

	if w.mode == pow.FastMode && w.m.cfg.AllowLightFallback &&
		errors.Is(err, pow.ErrResourceInit) {

		engine, lerr := w.m.cfg.NewHashEngine(w.provider, pow.LightMode)
		if lerr == nil {
			log.Warnf("Worker %d unable to initialize fast mode: %v -- "+
				"falling back to light mode", w.id, err)
			w.engine.Close()
			w.engine = engine
			w.mode = pow.LightMode
			w.m.lightFallback.Store(true)
			return w.prepare(ctx, mc)
		}
		log.Errorf("Worker %d unable to create light mode engine: %v", w.id,
			lerr)
	}

	log.Errorf("Worker %d unable to initialize hash engine: %v", w.id, err)
	return err
}

// grind searches the nonce subsequence of the worker for a header hash that
// satisfies the target of the provided context.  The published job id and
// the context are checked every StalenessCheckInterval hashes.
func (w *worker) grind(ctx context.Context, mc *MiningContext) grindResult {
	// Serialize the header once so only the nonce needs to be updated in the
	// main loop below.
	hdrBytes, err := mc.Block.Header.Bytes()
	if err != nil {
		log.Errorf("Unexpected error while serializing header: %v", err)
		return grindFailed
	}
	defer w.flushHashes()

	checkInterval := w.m.cfg.StalenessCheckInterval
	flushInterval := uint64(w.m.cfg.StatsFlushInterval)
	cursor := newNonceStride(w.id, w.numWorkers)
	for {
		for i := uint32(0); i < checkInterval; i++ {
			nonce, ok := cursor.Next()
			if !ok {
				return grindExhausted
			}

			// Update the nonce in the serialized header bytes directly and
			// compute the proof-of-work hash.
			littleEndian.PutUint32(hdrBytes[nonceSerOffset:], nonce)
			hash := w.engine.Hash(hdrBytes)
			w.pending++
			if w.pending >= flushInterval {
				w.flushHashes()
			}

			// The block is solved when the hash is less than or equal to the
			// target difficulty.
			if pow.CheckHash(&hash, &mc.Target) {
				w.flushHashes()
				w.submitSolution(ctx, mc, nonce, &hash)
				return grindSolved
			}
		}

		if ctx.Err() != nil {
			return grindCanceled
		}
		if w.m.slot.currentJobID() != mc.JobID {
			return grindStale
		}
	}
}

// submitSolution submits a shallow copy of the template block with the solved
// nonce.  The block in the context is never modified since it is shared by
// all workers.
func (w *worker) submitSolution(ctx context.Context, mc *MiningContext, nonce uint32, hash *chainhash.Hash) {
	// Avoid submitting any solutions that might have been found in between
	// the time the worker was signalled to stop and it actually stopping.
	if ctx.Err() != nil {
		return
	}

	log.Debugf("Worker %d solved job %d with nonce %d (pow hash %v)", w.id,
		mc.JobID, nonce, hash)
	shallowBlockCopy := *mc.Block
	shallowBlockCopy.Header.Nonce = nonce
	w.m.submitBlock(ctx, &shallowBlockCopy, mc)
}

// run is the main loop of a worker.  It waits for contexts newer than the one
// most recently worked on, prepares the hash engine for them and searches for
// solutions until the miner is stopped.
//
// It must be run as a goroutine.
func (w *worker) run(ctx context.Context, lowPriority bool) {
	defer w.m.workerWg.Done()
	defer w.engine.Close()
	log.Tracef("Worker %d started", w.id)

	if lowPriority {
		if err := lowerThreadPriority(); err != nil {
			log.Warnf("Worker %d unable to lower thread priority: %v", w.id,
				err)
		}
	}

	var lastJob uint64
	for {
		mc := w.m.slot.waitNewer(ctx, lastJob)
		if mc == nil {
			break
		}

		if err := w.prepare(ctx, mc); err != nil {
			if ctx.Err() != nil {
				break
			}
			timer := time.NewTimer(w.m.cfg.ResourceRetryInterval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}

			// Retrying with the same job id picks up the latest context.
			continue
		}

		result := w.grind(ctx, mc)
		lastJob = mc.JobID
		if result == grindCanceled {
			break
		}

		// Never continue grinding the same template after solving or
		// exhausting it.  Ask for a new one and wait for it instead.
		if result != grindStale {
			w.m.requestRefresh(mc.JobID)
		}
	}

	log.Tracef("Worker %d done", w.id)
}
