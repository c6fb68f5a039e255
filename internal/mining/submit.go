// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"fmt"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"
)

// submitBlock submits the passed solved block to the chain and updates the
// statistics according to the result.  Submissions are serialized so that the
// chain processes solutions from multiple workers one at a time.
func (m *Miner) submitBlock(ctx context.Context, msgBlock *wire.MsgBlock, mc *MiningContext) SubmitResult {
	m.submitBlockLock.Lock()
	defer m.submitBlockLock.Unlock()

	block := dcrutil.NewBlock(msgBlock)
	if ctx.Err() != nil {
		log.Debugf("Dropping solved block %v found while stopping",
			block.Hash())
		return SubmitRejected
	}

	// Process this block using the same rules as blocks coming from other
	// nodes.
	result, err := m.cfg.Chain.SubmitBlock(block)
	if err != nil {
		log.Errorf("Unexpected error while processing block submitted via "+
			"miner: %v", err)
		result = SubmitRejected
	}

	switch result {
	case SubmitAccepted:
		m.stats.blocksFound.Add(1)
		m.backoff.reset()
		m.signalTip()
		log.Infof("Block submitted via miner accepted (hash %s, height %d, "+
			"job %d)", block.Hash(), block.Height(), mc.JobID)

	default:
		m.stats.staleBlocks.Add(1)
		str := fmt.Sprintf("block %v for job %d was not accepted: %v",
			block.Hash(), mc.JobID, result)
		log.Infof("Block submitted via miner lost a race: %v",
			makeError(ErrSubmissionRace, str))
	}
	return result
}

// signalTip notifies the coordinator that the chain tip changed without
// blocking.
func (m *Miner) signalTip() {
	select {
	case m.tipSignal <- struct{}{}:
	default:
	}
}

// requestRefresh asks the coordinator for a template newer than the provided
// job without blocking.
func (m *Miner) requestRefresh(jobID uint64) {
	for {
		cur := m.refreshJob.Load()
		if jobID <= cur || m.refreshJob.CompareAndSwap(cur, jobID) {
			break
		}
	}
	select {
	case m.refreshSignal <- struct{}{}:
	default:
	}
}
