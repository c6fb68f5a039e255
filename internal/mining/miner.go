// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/rxminer/internal/pow"
)

const (
	// DefaultRefreshInterval is the default maximum age of a block template
	// before a new one is created even though the tip did not change.
	DefaultRefreshInterval = 30 * time.Second

	// DefaultPollInterval is the default amount of time the coordinator
	// waits for events before checking the chain tip again.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultMinBackoff and DefaultMaxBackoff bound the delay in between
	// attempts while mining is gated or templates are unavailable.
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = 64 * time.Second

	// DefaultTemplateTimeout is the default maximum amount of time to wait
	// for the chain to create a block template.
	DefaultTemplateTimeout = 10 * time.Second

	// DefaultFirstTemplateTimeout is the default maximum amount of time
	// Start waits for the first mining context before starting the workers
	// anyway.
	DefaultFirstTemplateTimeout = 30 * time.Second

	// DefaultResourceRetryInterval is the default amount of time a worker
	// pauses after failing to initialize its hash engine.
	DefaultResourceRetryInterval = 5 * time.Second

	// DefaultStalenessCheckInterval is the default number of hashes in
	// between checks for a newer mining context.
	DefaultStalenessCheckInterval = 100

	// DefaultStatsFlushInterval is the default number of hashes a worker
	// performs before adding them to the shared statistics.
	DefaultStatsFlushInterval = 10000
)

var (
	// MaxNumWorkers is the maximum number of workers that will be allowed for
	// mining and is based on the number of processor cores.  This helps ensure
	// system stays reasonably responsive under heavy load.
	MaxNumWorkers = runtime.NumCPU() * 2
)

// MinerState identifies the lifecycle state of a Miner.
type MinerState int32

const (
	// StateStopped indicates the miner is idle.
	StateStopped MinerState = iota

	// StateStarting indicates the miner is launching its goroutines.
	StateStarting

	// StateRunning indicates the miner is mining.
	StateRunning

	// StateStopping indicates the miner is waiting for its goroutines to
	// exit.
	StateStopping
)

// minerStateStrings is a map of miner states back to their constant names for
// pretty printing.
var minerStateStrings = map[MinerState]string{
	StateStopped:  "stopped",
	StateStarting: "starting",
	StateRunning:  "running",
	StateStopping: "stopping",
}

// String returns the MinerState as a human-readable name.
func (s MinerState) String() string {
	if str, ok := minerStateStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown MinerState (%d)", int32(s))
}

// Config is a descriptor containing the miner configuration.
type Config struct {
	// Chain provides block templates and processes solved blocks.  It is
	// required.
	Chain Chain

	// Network provides the number of connected peers.  Mining is not gated
	// on peers when it is nil.
	Network Network

	// PowParams are the proof-of-work hash parameters.  The production
	// parameters are used when it is nil.  The parameters of Provider
	// take precedence when it is set.
	PowParams *pow.Params

	// Provider supplies the hash resources of the workers.  Sharing the
	// provider of a verifier lets light mode workers reuse its caches.  A
	// provider owned by each run is created when it is nil.
	Provider *pow.Provider

	// MinPeers is the minimum number of connected peers required to mine.
	MinPeers int32

	// RefreshInterval is the maximum age of a block template before a new
	// one is created even though the tip did not change.
	RefreshInterval time.Duration

	// PollInterval is how long the coordinator waits for events before
	// checking the chain tip again.
	PollInterval time.Duration

	// MinBackoff and MaxBackoff bound the exponential delay used while
	// mining is gated or templates are unavailable.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// TemplateTimeout bounds each call to CreateBlockTemplate.
	TemplateTimeout time.Duration

	// FirstTemplateTimeout is how long Start waits for the first mining
	// context before starting the workers anyway.
	FirstTemplateTimeout time.Duration

	// ResourceRetryInterval is how long a worker pauses after failing to
	// initialize its hash engine.
	ResourceRetryInterval time.Duration

	// StalenessCheckInterval is the number of hashes in between checks for
	// a newer mining context or a stop request.
	StalenessCheckInterval uint32

	// StatsFlushInterval is the number of hashes a worker performs before
	// adding them to the shared statistics.
	StatsFlushInterval uint32

	// AllowLightFallback permits a worker to switch to light mode when the
	// fast mode dataset can't be allocated.
	AllowLightFallback bool

	// NewHashEngine creates the hash engine of a worker.  Engines backed by
	// the provided resource provider are created when it is nil.
	NewHashEngine func(provider *pow.Provider, mode pow.Mode) (HashEngine, error)
}

// newPowEngine creates a hash engine backed by the provided resource provider.
func newPowEngine(provider *pow.Provider, mode pow.Mode) (HashEngine, error) {
	return pow.NewEngine(provider, mode)
}

// withDefaults returns a copy of the config with defaults applied to any unset
// fields.
func (cfg *Config) withDefaults() Config {
	c := *cfg
	switch {
	case c.Provider != nil:
		c.PowParams = c.Provider.Params()
	case c.PowParams == nil:
		c.PowParams = pow.MainParams()
	}
	setDuration := func(d *time.Duration, def time.Duration) {
		if *d <= 0 {
			*d = def
		}
	}
	setDuration(&c.RefreshInterval, DefaultRefreshInterval)
	setDuration(&c.PollInterval, DefaultPollInterval)
	setDuration(&c.MinBackoff, DefaultMinBackoff)
	setDuration(&c.MaxBackoff, DefaultMaxBackoff)
	setDuration(&c.TemplateTimeout, DefaultTemplateTimeout)
	setDuration(&c.FirstTemplateTimeout, DefaultFirstTemplateTimeout)
	setDuration(&c.ResourceRetryInterval, DefaultResourceRetryInterval)
	if c.StalenessCheckInterval == 0 {
		c.StalenessCheckInterval = DefaultStalenessCheckInterval
	}
	if c.StatsFlushInterval == 0 {
		c.StatsFlushInterval = DefaultStatsFlushInterval
	}
	if c.NewHashEngine == nil {
		c.NewHashEngine = newPowEngine
	}
	return c
}

// Status is a snapshot of the state and statistics of a Miner.
type Status struct {
	Running         bool
	State           MinerState
	NumWorkers      int
	HashesPerSecond float64
	TotalHashes     uint64
	BlocksFound     uint64
	StaleBlocks     uint64
	Templates       uint64
	InitFailures    uint64
	Uptime          time.Duration
	Mode            pow.Mode
	LightFallback   bool
	BackoffLevel    int32
	GateReason      GateReason
	JobID           uint64
	Height          int64
}

// Miner provides facilities for solving blocks (mining) using the CPU in a
// concurrency-safe manner.  It consists of a coordinator goroutine that
// produces mining contexts, a speed monitor, and a pool of worker goroutines
// that search disjoint parts of the nonce space of the current context.
//
// All accessors are lock free and safe for concurrent access.
type Miner struct {
	cfg Config

	state         atomic.Int32
	numWorkers    atomic.Int32
	mode          atomic.Uint32
	lightFallback atomic.Bool
	gate          atomic.Int32
	height        atomic.Int64
	refreshJob    atomic.Uint64

	stats         statistics
	backoff       *backoff
	slot          *contextSlot
	tipSignal     chan struct{}
	refreshSignal chan struct{}

	submitBlockLock sync.Mutex
	wg              sync.WaitGroup
	workerWg        sync.WaitGroup

	// lifecycleMtx serializes Start and Stop and protects the fields below.
	lifecycleMtx sync.Mutex
	payScript    []byte
	notifier     TipNotifier
	cancel       context.CancelFunc
}

// New returns a new instance of a miner for the provided configuration.  Use
// Start to begin the mining process.
func New(cfg *Config) *Miner {
	c := cfg.withDefaults()
	return &Miner{
		cfg:           c,
		backoff:       newBackoff(c.MinBackoff, c.MaxBackoff),
		slot:          newContextSlot(),
		tipSignal:     make(chan struct{}, 1),
		refreshSignal: make(chan struct{}, 1),
	}
}

// drainSignals discards any pending signals left over from a previous run.
func (m *Miner) drainSignals() {
	for _, c := range []chan struct{}{m.tipSignal, m.refreshSignal} {
		select {
		case <-c:
		default:
		}
	}
}

// Start begins the mining process with the provided number of workers, each
// of which hashes in the provided mode and pays block rewards to payScript.
// Values larger than MaxNumWorkers are limited to the max.
//
// An error of kind ErrAlreadyRunning is returned when the miner is not
// stopped and an error of kind ErrInvalidConfig is returned for invalid
// parameters.  The state of the miner is unchanged in both cases.
//
// Start waits up to the configured first template timeout for the first
// mining context so the workers do not race the coordinator.
//
// This function is safe for concurrent access.
func (m *Miner) Start(numWorkers int, payScript []byte, mode pow.Mode, lowPriority bool) error {
	m.lifecycleMtx.Lock()
	defer m.lifecycleMtx.Unlock()

	if !m.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		str := fmt.Sprintf("miner is already %v", m.State())
		return makeError(ErrAlreadyRunning, str)
	}
	invalid := func(str string) error {
		m.state.Store(int32(StateStopped))
		return makeError(ErrInvalidConfig, str)
	}
	switch {
	case m.cfg.Chain == nil:
		return invalid("no chain is configured")
	case numWorkers <= 0:
		return invalid(fmt.Sprintf("number of workers must be positive "+
			"(got %d)", numWorkers))
	case len(payScript) == 0:
		return invalid("a payout script is required")
	case !mode.IsValid():
		return invalid(fmt.Sprintf("unknown hashing mode %v", mode))
	}
	if numWorkers > MaxNumWorkers {
		log.Infof("Limiting %d requested workers to the maximum of %d",
			numWorkers, MaxNumWorkers)
		numWorkers = MaxNumWorkers
	}
	provider := m.cfg.Provider
	if provider == nil {
		var err error
		provider, err = pow.NewProvider(m.cfg.PowParams)
		if err != nil {
			return invalid(err.Error())
		}
	}

	// Create the hash engines up front so that failures leave the miner
	// stopped without launching anything.
	workers := make([]*worker, 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		engine, err := m.cfg.NewHashEngine(provider, mode)
		if err != nil {
			for _, w := range workers {
				w.engine.Close()
			}
			return invalid(fmt.Sprintf("unable to create hash engine: %v",
				err))
		}
		workers = append(workers, &worker{
			m:          m,
			id:         uint32(i),
			numWorkers: uint32(numWorkers),
			provider:   provider,
			mode:       mode,
			engine:     engine,
		})
	}

	// Reset all state from any previous run.
	m.stats.reset()
	m.backoff.reset()
	m.slot.reset()
	m.refreshJob.Store(0)
	m.height.Store(0)
	m.gate.Store(int32(GateOpen))
	m.lightFallback.Store(false)
	m.drainSignals()
	m.payScript = append([]byte(nil), payScript...)
	m.mode.Store(uint32(mode))

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	if notifier, ok := m.cfg.Chain.(TipNotifier); ok {
		notifier.RegisterTipListener(m)
		m.notifier = notifier
	}

	m.wg.Add(2)
	go m.coordinator(ctx)
	go m.speedMonitor(ctx, &m.stats)

	waitCtx, waitCancel := context.WithTimeout(ctx, m.cfg.FirstTemplateTimeout)
	if m.slot.waitNewer(waitCtx, 0) == nil {
		log.Warnf("No block template available after %v -- starting "+
			"workers anyway", m.cfg.FirstTemplateTimeout)
	}
	waitCancel()

	m.workerWg.Add(len(workers))
	for _, w := range workers {
		go w.run(ctx, lowPriority)
	}
	m.numWorkers.Store(int32(numWorkers))
	m.state.Store(int32(StateRunning))
	log.Infof("Miner started with %d %s in %s mode", numWorkers,
		pickNoun(uint64(numWorkers), "worker", "workers"), mode)
	return nil
}

// Stop gracefully stops the mining process by signalling the workers, the
// coordinator and the speed monitor to quit and waiting for them to exit.
// Calling this function when the miner is not running has no effect.  It
// always returns nil.
//
// This function is safe for concurrent access.
func (m *Miner) Stop() error {
	m.lifecycleMtx.Lock()
	defer m.lifecycleMtx.Unlock()

	if !m.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}

	if m.notifier != nil {
		m.notifier.UnregisterTipListener(m)
		m.notifier = nil
	}
	m.cancel()
	m.cancel = nil

	// Workers first since they depend on the contexts published by the
	// coordinator.
	m.workerWg.Wait()
	m.wg.Wait()
	m.slot.reset()

	stats := &m.stats
	log.Infof("Miner stopped after %v (%d hashes, %d %s found, %d stale, %d "+
		"%s)", stats.uptime().Round(time.Second), stats.totalHashes.Load(),
		stats.blocksFound.Load(),
		pickNoun(stats.blocksFound.Load(), "block", "blocks"),
		stats.staleBlocks.Load(), stats.templates.Load(),
		pickNoun(stats.templates.Load(), "template", "templates"))

	m.numWorkers.Store(0)
	m.state.Store(int32(StateStopped))
	return nil
}

// TipChanged notifies the miner that the best chain tip changed.  It never
// blocks.
//
// This is part of the TipListener interface.
func (m *Miner) TipChanged(hash *chainhash.Hash, height int64) {
	log.Tracef("Chain tip changed to %v (height %d)", hash, height)
	m.backoff.reset()
	m.signalTip()
}

// State returns the lifecycle state of the miner.
func (m *Miner) State() MinerState {
	return MinerState(m.state.Load())
}

// IsRunning returns whether or not the miner is running.
func (m *Miner) IsRunning() bool {
	return m.State() == StateRunning
}

// NumWorkers returns the number of workers of the current run.
func (m *Miner) NumWorkers() int {
	return int(m.numWorkers.Load())
}

// HashesPerSecond returns the number of hashes per second the mining process
// is performing.  0 is returned if the miner is not currently running.
func (m *Miner) HashesPerSecond() float64 {
	if !m.IsRunning() {
		return 0
	}
	return m.stats.rate()
}

// TotalHashes returns the number of hashes performed during the current or
// most recent run.
func (m *Miner) TotalHashes() uint64 {
	return m.stats.totalHashes.Load()
}

// BlocksFound returns the number of solved blocks accepted by the chain during
// the current or most recent run.
func (m *Miner) BlocksFound() uint64 {
	return m.stats.blocksFound.Load()
}

// StaleBlocks returns the number of solved blocks that were not accepted by
// the chain during the current or most recent run.
func (m *Miner) StaleBlocks() uint64 {
	return m.stats.staleBlocks.Load()
}

// TemplatesIssued returns the number of mining contexts published during the
// current or most recent run.
func (m *Miner) TemplatesIssued() uint64 {
	return m.stats.templates.Load()
}

// JobID returns the job id of the current mining context or 0 when there is
// none.
func (m *Miner) JobID() uint64 {
	return m.slot.currentJobID()
}

// Status returns a snapshot of the state and statistics of the miner.
func (m *Miner) Status() Status {
	running := m.IsRunning()
	var uptime time.Duration
	if running {
		uptime = m.stats.uptime()
	}
	return Status{
		Running:         running,
		State:           m.State(),
		NumWorkers:      m.NumWorkers(),
		HashesPerSecond: m.HashesPerSecond(),
		TotalHashes:     m.TotalHashes(),
		BlocksFound:     m.BlocksFound(),
		StaleBlocks:     m.StaleBlocks(),
		Templates:       m.TemplatesIssued(),
		InitFailures:    m.stats.initFailures.Load(),
		Uptime:          uptime,
		Mode:            pow.Mode(m.mode.Load()),
		LightFallback:   m.lightFallback.Load(),
		BackoffLevel:    m.backoff.Level(),
		GateReason:      GateReason(m.gate.Load()),
		JobID:           m.JobID(),
		Height:          m.height.Load(),
	}
}
