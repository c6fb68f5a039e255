// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"context"
	"math/big"
	"sync"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/lru"
	"github.com/decred/dcrd/wire"
)

// DefaultVerifierSeeds is the default number of seeds the verifier keeps a
// light mode engine loaded for.  Two covers both sides of an epoch boundary.
const DefaultVerifierSeeds = 2

// Verifier computes and checks proof-of-work hashes in light mode for any
// seed.  It is intended to be shared by every validation path of a process so
// there is only ever a single set of light mode caches in memory regardless
// of how many callers verify headers.
//
// It is safe for concurrent access.
type Verifier struct {
	provider *Provider

	// mtx protects the fields below and serializes hashing since engines
	// are not safe for concurrent access.
	mtx     sync.Mutex
	engines *lru.Map[chainhash.Hash, *Engine]
	loaded  map[chainhash.Hash]*Engine
}

// NewVerifier returns a verifier that obtains light mode caches from the
// provider and keeps at most maxSeeds of them loaded at once.
func NewVerifier(provider *Provider, maxSeeds uint32) *Verifier {
	if maxSeeds == 0 {
		maxSeeds = DefaultVerifierSeeds
	}
	return &Verifier{
		provider: provider,
		engines:  lru.NewMap[chainhash.Hash, *Engine](maxSeeds),
		loaded:   make(map[chainhash.Hash]*Engine, maxSeeds),
	}
}

// engine returns a light mode engine initialized with the provided seed.
//
// This function MUST be called with the verifier mutex held (for writes).
func (v *Verifier) engine(ctx context.Context, seed *chainhash.Hash) (*Engine, error) {
	if e, ok := v.engines.Get(*seed); ok {
		return e, nil
	}

	e, err := NewEngine(v.provider, LightMode)
	if err != nil {
		return nil, err
	}
	if err := e.Initialize(ctx, seed); err != nil {
		return nil, err
	}
	if v.engines.Put(*seed, e) > 0 {
		for s, old := range v.loaded {
			if !v.engines.Exists(s) {
				old.Close()
				delete(v.loaded, s)
			}
		}
	}
	v.loaded[*seed] = e
	return e, nil
}

// Hash returns the proof-of-work hash of the serialized header for the
// provided seed.
func (v *Verifier) Hash(ctx context.Context, seed *chainhash.Hash, header []byte) (chainhash.Hash, error) {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	e, err := v.engine(ctx, seed)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return e.Hash(header), nil
}

// VerifyHeader ensures the proof-of-work hash of the header for the provided
// seed satisfies the target difficulty encoded in its bits and that the
// target is in the range permitted by the proof-of-work limit.
func (v *Verifier) VerifyHeader(ctx context.Context, seed *chainhash.Hash, header *wire.BlockHeader, powLimit *big.Int) error {
	hdrBytes, err := header.Bytes()
	if err != nil {
		return err
	}
	hash, err := v.Hash(ctx, seed, hdrBytes)
	if err != nil {
		return err
	}
	return standalone.CheckProofOfWork(&hash, header.Bits, powLimit)
}

// Close releases every engine loaded by the verifier.
func (v *Verifier) Close() {
	v.mtx.Lock()
	for s, e := range v.loaded {
		e.Close()
		delete(v.loaded, s)
	}
	v.engines.Clear()
	v.mtx.Unlock()
}
