// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// countingBackend wraps KeyedBlake3 and counts the hashers it creates and
// closes.  Builds optionally fail or block until the gate channel is closed.
type countingBackend struct {
	size   uint64
	builds atomic.Int32
	closes atomic.Int32
	fail   atomic.Bool

	mtx  sync.Mutex
	gate chan struct{}
}

func (b *countingBackend) Name() string {
	return "counting"
}

func (b *countingBackend) ResourceSize(Mode) uint64 {
	return b.size
}

func (b *countingBackend) NewHasher(mode Mode, seed *chainhash.Hash) (Hasher, error) {
	b.mtx.Lock()
	gate := b.gate
	b.mtx.Unlock()
	if gate != nil {
		<-gate
	}

	b.builds.Add(1)
	if b.fail.Load() {
		return nil, makeError(ErrResourceInit, "out of memory")
	}
	hasher, err := KeyedBlake3.NewHasher(mode, seed)
	if err != nil {
		return nil, err
	}
	return &countingHasher{Hasher: hasher, closes: &b.closes}, nil
}

// setGate makes subsequent builds block until the returned channel is closed.
func (b *countingBackend) setGate() chan struct{} {
	gate := make(chan struct{})
	b.mtx.Lock()
	b.gate = gate
	b.mtx.Unlock()
	return gate
}

// countingHasher counts calls to Close.
type countingHasher struct {
	Hasher
	closes *atomic.Int32
}

func (h *countingHasher) Close() {
	h.closes.Add(1)
	h.Hasher.Close()
}

// testParams returns parameters that hash with the provided backend.
func testParams(backend Backend) *Params {
	params := TestParams()
	params.Backend = backend
	return params
}

// newTestProvider returns a provider for the parameters or fails the test.
func newTestProvider(t *testing.T, params *Params) *Provider {
	t.Helper()

	p, err := NewProvider(params)
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}
	return p
}

// newTestEngine returns an engine initialized with the provided seed or fails
// the test.
func newTestEngine(t *testing.T, p *Provider, mode Mode, seed *chainhash.Hash) *Engine {
	t.Helper()

	e, err := NewEngine(p, mode)
	if err != nil {
		t.Fatalf("unexpected error creating %s engine: %v", mode, err)
	}
	if err := e.Initialize(context.Background(), seed); err != nil {
		t.Fatalf("unexpected error initializing %s engine: %v", mode, err)
	}
	return e
}

// testHeader returns a header sized byte slice with a recognizable pattern.
func testHeader(nonce byte) []byte {
	hdr := make([]byte, 180)
	for i := range hdr {
		hdr[i] = byte(i)
	}
	hdr[140] = nonce
	return hdr
}
