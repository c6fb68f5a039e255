// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/decred/rxminer/internal/progresslog"
)

const (
	// hpsUpdateInterval is the amount of time to wait in between each update
	// to the hashes per second monitor.
	hpsUpdateInterval = 10 * time.Second
)

// statistics houses the counters for a single run of the miner.  Every field
// is updated atomically and there is no atomicity across fields.
type statistics struct {
	totalHashes  atomic.Uint64
	blocksFound  atomic.Uint64
	staleBlocks  atomic.Uint64
	templates    atomic.Uint64
	initFailures atomic.Uint64

	// startTime is the unix nano time the run started.
	startTime atomic.Int64

	// hashesPerSec holds the bits of the most recent float64 hash rate.
	hashesPerSec atomic.Uint64
}

// reset zeroes every counter and sets the start time to now.
func (s *statistics) reset() {
	s.totalHashes.Store(0)
	s.blocksFound.Store(0)
	s.staleBlocks.Store(0)
	s.templates.Store(0)
	s.initFailures.Store(0)
	s.hashesPerSec.Store(0)
	s.startTime.Store(time.Now().UnixNano())
}

// rate returns the most recently computed hashes per second.
func (s *statistics) rate() float64 {
	return math.Float64frombits(s.hashesPerSec.Load())
}

// setRate stores the provided hashes per second.
func (s *statistics) setRate(hashesPerSec float64) {
	s.hashesPerSec.Store(math.Float64bits(hashesPerSec))
}

// uptime returns how long the current run has been going.
func (s *statistics) uptime() time.Duration {
	start := s.startTime.Load()
	if start == 0 {
		return 0
	}
	return time.Since(time.Unix(0, start))
}

// speedMonitor handles tracking the number of hashes per second the mining
// process is performing along with periodically logging progress.  It must be
// run as a goroutine.
func (m *Miner) speedMonitor(ctx context.Context, stats *statistics) {
	defer m.wg.Done()
	log.Trace("Miner speed monitor started")

	progress := progresslog.New("Computed", log)
	ticker := time.NewTicker(hpsUpdateInterval)
	defer ticker.Stop()

	var lastHashes, lastTemplates, lastFound, lastStale uint64
	lastUpdate := time.Now()
	update := func() {
		now := time.Now()
		hashes := stats.totalHashes.Load()
		templates := stats.templates.Load()
		found := stats.blocksFound.Load()
		stale := stats.staleBlocks.Load()

		// Smooth the rate by averaging it with the previous one.
		elapsed := now.Sub(lastUpdate).Seconds()
		if elapsed > 0 {
			curHashesPerSec := float64(hashes-lastHashes) / elapsed
			hashesPerSec := stats.rate()
			if hashesPerSec == 0 {
				hashesPerSec = curHashesPerSec
			}
			stats.setRate((hashesPerSec + curHashesPerSec) / 2)
		}

		_, height := m.cfg.Chain.BestTip()
		progress.LogProgress(hashes-lastHashes, templates-lastTemplates,
			found-lastFound, stale-lastStale, height, false)
		lastHashes, lastTemplates = hashes, templates
		lastFound, lastStale = found, stale
		lastUpdate = now
	}

out:
	for {
		select {
		case <-ticker.C:
			update()

		case <-ctx.Done():
			break out
		}
	}

	log.Trace("Miner speed monitor done")
}
