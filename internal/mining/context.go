// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
	"github.com/decred/dcrd/wire"
)

// MiningContext houses everything a worker needs to search for a solution to a
// block template.  It is immutable once published, so workers may continue to
// read a context after it has been superseded.
type MiningContext struct {
	// Block is the candidate block.  Workers only ever modify the nonce in
	// their own serialized copy of the header and in shallow copies of the
	// block made for submission.
	Block *wire.MsgBlock

	// Seed is the seed the hash engine must be loaded with.
	Seed chainhash.Hash

	// Target is the difficulty target decoded from the header bits.
	Target uint256.Uint256

	// JobID uniquely identifies the context.  It is strictly increasing
	// within a single run of the miner and starts at 1.
	JobID uint64

	// Height is the height of the candidate block.
	Height int64

	// PrevBlock is the chain tip the candidate block builds on.
	PrevBlock chainhash.Hash

	// Created is when the context was created.
	Created time.Time
}

// contextSlot holds the most recently published mining context.
//
// The coordinator is the only writer.  Workers poll the atomic job id to
// cheaply detect staleness and only take the mutex to read the pointer.
type contextSlot struct {
	jobID atomic.Uint64

	mtx     sync.Mutex
	current *MiningContext
	nextID  uint64
	notify  chan struct{}
}

// newContextSlot returns an empty slot.
func newContextSlot() *contextSlot {
	return &contextSlot{notify: make(chan struct{})}
}

// publish assigns the next job id to the provided context, makes it the
// current one and wakes every goroutine waiting for a newer context.
func (s *contextSlot) publish(mc *MiningContext) uint64 {
	s.mtx.Lock()
	s.nextID++
	mc.JobID = s.nextID
	s.current = mc
	s.jobID.Store(mc.JobID)
	close(s.notify)
	s.notify = make(chan struct{})
	s.mtx.Unlock()
	return mc.JobID
}

// load returns the current context along with a channel that is closed when a
// newer one is published.  The context is nil when nothing was published yet.
func (s *contextSlot) load() (*MiningContext, <-chan struct{}) {
	s.mtx.Lock()
	mc, notify := s.current, s.notify
	s.mtx.Unlock()
	return mc, notify
}

// currentJobID returns the job id of the current context or 0 when nothing
// was published.
func (s *contextSlot) currentJobID() uint64 {
	return s.jobID.Load()
}

// waitNewer blocks until a context with a job id greater than the provided one
// is published or the context is canceled, in which case nil is returned.
func (s *contextSlot) waitNewer(ctx context.Context, jobID uint64) *MiningContext {
	for {
		mc, notify := s.load()
		if mc != nil && mc.JobID > jobID {
			return mc
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return nil
		}
	}
}

// reset clears the slot and restarts job ids at 1.
func (s *contextSlot) reset() {
	s.mtx.Lock()
	s.current = nil
	s.nextID = 0
	s.jobID.Store(0)
	s.mtx.Unlock()
}
