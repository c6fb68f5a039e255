// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/dcrd/wire"
	"github.com/decred/rxminer/internal/pow"
)

// GateReason describes why the coordinator is or is not producing block
// templates.
type GateReason int32

const (
	// GateOpen indicates templates are being produced.
	GateOpen GateReason = iota

	// GateSyncing indicates the chain is still syncing.
	GateSyncing

	// GateNotEnoughPeers indicates fewer peers than required are connected.
	GateNotEnoughPeers
)

// gateReasonStrings is a map of gate reasons back to their constant names for
// pretty printing.
var gateReasonStrings = map[GateReason]string{
	GateOpen:           "open",
	GateSyncing:        "chain syncing",
	GateNotEnoughPeers: "not enough peers",
}

// String returns the GateReason as a human-readable name.
func (r GateReason) String() string {
	if s, ok := gateReasonStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown GateReason (%d)", int32(r))
}

// gateReason returns whether or not mining should currently proceed.
func (m *Miner) gateReason() GateReason {
	if m.cfg.Chain.IsSyncing() {
		return GateSyncing
	}
	if m.cfg.Network != nil && m.cfg.MinPeers > 0 &&
		m.cfg.Network.ConnectedCount() < m.cfg.MinPeers {

		return GateNotEnoughPeers
	}
	return GateOpen
}

// needTemplate returns whether or not a new template must be created given
// the most recently published context.
func (m *Miner) needTemplate(last *MiningContext) bool {
	if last == nil {
		return true
	}
	if tip, _ := m.cfg.Chain.BestTip(); tip != last.PrevBlock {
		return true
	}
	if time.Since(last.Created) >= m.cfg.RefreshInterval {
		return true
	}
	return m.refreshJob.Load() >= last.JobID
}

// templateResult houses the outcome of a call to CreateBlockTemplate.
type templateResult struct {
	block *wire.MsgBlock
	err   error
}

// fetchTemplate requests a block template from the chain and waits at most
// TemplateTimeout for it.  The request runs in its own goroutine so a chain
// that ignores the context can't stall the coordinator.  A template that
// arrives after the wait is abandoned.
func (m *Miner) fetchTemplate(ctx context.Context) (*wire.MsgBlock, error) {
	tmplCtx, cancel := context.WithTimeout(ctx, m.cfg.TemplateTimeout)
	defer cancel()

	result := make(chan templateResult, 1)
	payScript := m.payScript
	go func() {
		block, err := m.cfg.Chain.CreateBlockTemplate(tmplCtx, payScript)
		result <- templateResult{block: block, err: err}
	}()

	select {
	case r := <-result:
		return r.block, r.err
	case <-tmplCtx.Done():
		return nil, tmplCtx.Err()
	}
}

// buildContext obtains a new block template from the chain and derives the
// mining context for it.  All failures are of kind ErrTemplateUnavailable.
func (m *Miner) buildContext(ctx context.Context) (*MiningContext, error) {
	block, err := m.fetchTemplate(ctx)
	if err != nil {
		str := fmt.Sprintf("unable to create block template: %v", err)
		return nil, makeError(ErrTemplateUnavailable, str)
	}
	if block == nil {
		str := "chain did not provide a block template"
		return nil, makeError(ErrTemplateUnavailable, str)
	}

	header := &block.Header
	target, isNeg, overflows := pow.DiffBitsToUint256(header.Bits)
	if isNeg || overflows || target.IsZero() {
		str := fmt.Sprintf("block template has invalid difficulty bits %08x",
			header.Bits)
		return nil, makeError(ErrTemplateUnavailable, str)
	}

	height := int64(header.Height)
	seedHeight := pow.SeedHeight(m.cfg.PowParams, height)
	seed, err := m.cfg.Chain.BlockHashByHeight(seedHeight)
	if err != nil {
		str := fmt.Sprintf("unable to obtain seed block at height %d: %v",
			seedHeight, err)
		return nil, makeError(ErrTemplateUnavailable, str)
	}

	return &MiningContext{
		Block:     block,
		Seed:      *seed,
		Target:    target,
		Height:    height,
		PrevBlock: header.PrevBlock,
		Created:   time.Now(),
	}, nil
}

// waitEvent blocks until the provided duration elapses, the chain tip changes
// or the context is canceled.  The refresh channel is also waited on when it
// is not nil.  False is returned when the context is canceled.
func (m *Miner) waitEvent(ctx context.Context, d time.Duration, refresh <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-m.tipSignal:
	case <-refresh:
	case <-timer.C:
	case <-ctx.Done():
		return false
	}
	return true
}

// coordinator produces mining contexts for the workers.  It gates mining on
// the state of the chain and network, creates templates when the tip changes,
// the refresh interval elapses or a worker requests one, and backs off when
// templates can't be created.
//
// It must be run as a goroutine.
func (m *Miner) coordinator(ctx context.Context) {
	defer m.wg.Done()
	log.Trace("Mining coordinator started")

	var last *MiningContext
	for ctx.Err() == nil {
		reason := m.gateReason()
		prevReason := GateReason(m.gate.Swap(int32(reason)))
		if reason != GateOpen {
			if prevReason != reason {
				log.Infof("Mining paused: %v", reason)
			}
			delay := m.backoff.next()
			log.Debugf("Rechecking mining conditions in %v (backoff level %d)",
				delay.Round(time.Millisecond), m.backoff.Level())
			if !m.waitEvent(ctx, delay, nil) {
				break
			}
			continue
		}
		if prevReason != GateOpen {
			log.Infof("Mining resumed")
		}

		if m.needTemplate(last) {
			mc, err := m.buildContext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				delay := m.backoff.next()
				log.Warnf("%v (retrying in %v)", err,
					delay.Round(time.Millisecond))
				if !m.waitEvent(ctx, delay, nil) {
					break
				}
				continue
			}

			m.height.Store(mc.Height)
			m.stats.templates.Add(1)
			m.backoff.reset()
			jobID := m.slot.publish(mc)
			last = mc
			log.Debugf("Published job %d (height %d, prev %v, seed %v)",
				jobID, mc.Height, &mc.PrevBlock, &mc.Seed)
		}

		if !m.waitEvent(ctx, m.cfg.PollInterval, m.refreshSignal) {
			break
		}
	}

	log.Trace("Mining coordinator done")
}
