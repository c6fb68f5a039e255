// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/rxminer/internal/mining"
	"github.com/decred/rxminer/internal/progresslog"
)

// statusSource provides the mining status that is periodically logged.
type statusSource interface {
	Status() mining.Status
}

// formatStatus returns a single line summary of the provided status.
func formatStatus(s *mining.Status) string {
	mode := s.Mode.String()
	if s.LightFallback {
		mode += " (light fallback)"
	}
	line := fmt.Sprintf("%s, mode %s, workers %d, height %d, found %d, "+
		"stale %d, templates %d, uptime %v",
		progresslog.FormatHashRate(s.HashesPerSecond), mode, s.NumWorkers,
		s.Height, s.BlocksFound, s.StaleBlocks, s.Templates,
		s.Uptime.Round(time.Second))
	if s.GateReason != mining.GateOpen {
		line += ", paused: " + s.GateReason.String()
	}
	return line
}

// logMinerStatus logs the status of the miner at the provided interval until
// the context is canceled.
//
// It must be run as a goroutine.
func logMinerStatus(ctx context.Context, miner statusSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := miner.Status()
			if !status.Running {
				continue
			}
			rxmdLog.Infof("Mining status: %s", formatStatus(&status))
		}
	}
}
