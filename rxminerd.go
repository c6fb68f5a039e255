// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/decred/rxminer/internal/limits"
	"github.com/decred/rxminer/internal/mining"
	"github.com/decred/rxminer/internal/pow"
	"github.com/decred/rxminer/internal/simchain"
	"github.com/decred/rxminer/internal/version"
)

// memLimitBase is the soft memory limit of the Go heap.  Proof-of-work
// resources are memory mapped outside of the heap and do not count against
// it.
const memLimitBase = 1 << 30 // 1 GiB

var cfg *config

// humanizeBytes returns the provided number of bytes in humanized form with IEC
// units (aka binary prefixes such as KiB and MiB).
func humanizeBytes(numBytes int64) string {
	const unit = 1024
	if numBytes < unit {
		return fmt.Sprintf("%d B", numBytes)
	}
	div, exp := int64(unit), 0
	for n := numBytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(numBytes)/float64(div),
		"KMGTPE"[exp])
}

// rxminerdMain is the real main function for rxminerd.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func rxminerdMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	tcfg, _, err := loadConfig(appName, os.Args[1:])
	if err != nil {
		usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered from an OS signal such as SIGINT (Ctrl+C).
	ctx := shutdownListener()
	defer rxmdLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	rxmdLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	rxmdLog.Infof("Home dir: %s", cfg.HomeDir)
	if cfg.NoFileLogging {
		rxmdLog.Info("File logging disabled")
	}

	if err := limits.SetMemoryLimit(memLimitBase); err != nil {
		rxmdLog.Errorf("Unable to set soft memory limit: %v", err)
		return err
	}
	rxmdLog.Infof("Soft memory limit: %s", humanizeBytes(memLimitBase))

	// Enable http profile server if requested.  The stop call is always
	// deferred to ensure it is stopped during process shutdown.
	var profiler profileServer
	defer profiler.Stop()
	if cfg.Profile != "" {
		const allowNonLoopback = true
		if err := profiler.Start(cfg.Profile, allowNonLoopback); err != nil {
			rxmdLog.Warnf("unable to start profile server: %v", err)
			return err
		}
	}

	// Write cpu profile if requested.
	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			rxmdLog.Errorf("Unable to create cpu profile: %v", err.Error())
			return err
		}
		pprof.StartCPUProfile(f)
		defer f.Close()
		defer pprof.StopCPUProfile()
	}

	// Write mem profile if requested.
	if cfg.MemProfile != "" {
		f, err := os.Create(cfg.MemProfile)
		if err != nil {
			rxmdLog.Errorf("Unable to create mem profile: %v", err)
			return err
		}
		defer f.Close()
		defer pprof.WriteHeapProfile(f)
	}

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	// Create the simulated chain along with the verifier it uses to check
	// the proof of work of submitted blocks.
	provider, err := pow.NewProvider(cfg.powParams)
	if err != nil {
		rxmdLog.Errorf("Invalid proof-of-work parameters: %v", err)
		return err
	}
	verifier := pow.NewVerifier(provider, pow.DefaultVerifierSeeds)
	defer verifier.Close()
	chain, err := simchain.New(&simchain.Config{
		ChainParams:  cfg.params,
		PowParams:    cfg.powParams,
		Verifier:     verifier,
		Bits:         cfg.simBits,
		SyncDuration: cfg.SimSyncDuration,
		Peers:        cfg.SimPeers,
	})
	if err != nil {
		rxmdLog.Errorf("Unable to create simulated chain: %v", err)
		return err
	}
	tipHash, tipHeight := chain.BestTip()
	rxmdLog.Infof("Simulated %s chain at %v (height %d, bits %08x)",
		cfg.params.Name, &tipHash, tipHeight, chain.Bits())
	if cfg.SimPeerInterval > 0 {
		go chain.SimulatePeers(ctx, cfg.SimPeerInterval)
	}

	if cfg.Generate {
		miner := mining.New(&mining.Config{
			Chain:              chain,
			Network:            chain,
			Provider:           provider,
			MinPeers:           cfg.MinPeers,
			RefreshInterval:    cfg.TemplateRefresh,
			PollInterval:       cfg.PollInterval,
			MinBackoff:         cfg.MinBackoff,
			MaxBackoff:         cfg.MaxBackoff,
			TemplateTimeout:    cfg.TemplateTimeout,
			AllowLightFallback: !cfg.NoLightFallback,
		})
		err := miner.Start(cfg.MineThreads, cfg.payScript, cfg.miningMode,
			cfg.LowPriority)
		if err != nil {
			rxmdLog.Errorf("Unable to start miner: %v", err)
			return err
		}
		defer miner.Stop()

		if cfg.StatusInterval > 0 {
			go logMinerStatus(ctx, miner, cfg.StatusInterval)
		}
	}

	// Wait until the interrupt signal is received from an OS signal.
	<-ctx.Done()
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := rxminerdMain(); err != nil {
		os.Exit(1)
	}
}
