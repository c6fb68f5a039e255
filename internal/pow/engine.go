// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"context"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// Engine computes proof-of-work hashes for a single seed at a time in either
// light or fast mode.
//
// An Engine is NOT safe for concurrent access.  Each mining worker owns its
// own engine while the hashers behind them are shared through the Provider.
type Engine struct {
	provider *Provider
	mode     Mode

	res    *resource
	hasher Hasher
}

// NewEngine returns an engine that hashes in the provided mode with resources
// obtained from the provider.  The engine has no seed loaded until Initialize
// succeeds.
func NewEngine(provider *Provider, mode Mode) (*Engine, error) {
	if !mode.IsValid() {
		str := fmt.Sprintf("unknown hashing mode %v", mode)
		return nil, makeError(ErrInvalidMode, str)
	}
	return &Engine{provider: provider, mode: mode}, nil
}

// Mode returns the mode the engine hashes in.
func (e *Engine) Mode() Mode {
	return e.mode
}

// HasSeed returns whether or not the engine is initialized with the provided
// seed.
func (e *Engine) HasSeed(seed *chainhash.Hash) bool {
	return e.res != nil && e.res.key.seed == *seed
}

// Initialize loads the resource for the provided seed into the engine.  Any
// previously loaded resource is released first so that the memory of an old
// epoch can be freed while the new one is built.
//
// An error of kind ErrResourceInit is returned when the resource could not be
// built, and the context error is returned when ctx is canceled first.  The
// engine is left without a seed in both cases.
func (e *Engine) Initialize(ctx context.Context, seed *chainhash.Hash) error {
	if e.HasSeed(seed) {
		return nil
	}
	e.releaseResource()

	res, err := e.provider.acquire(ctx, seed, e.mode)
	if err != nil {
		return err
	}
	e.res, e.hasher = res, res.hasher
	return nil
}

// Hash returns the proof-of-work hash of the serialized header.
//
// This function MUST only be called after a successful Initialize.
func (e *Engine) Hash(header []byte) chainhash.Hash {
	if e.hasher == nil {
		panic("pow: Hash called on an uninitialized engine")
	}
	return e.hasher.Hash(header)
}

// Close releases the resource held by the engine.  The engine may be
// initialized again afterwards.
func (e *Engine) Close() {
	e.releaseResource()
}

func (e *Engine) releaseResource() {
	if e.res == nil {
		return
	}
	res := e.res
	e.res, e.hasher = nil, nil
	e.provider.release(res)
}
