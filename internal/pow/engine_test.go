// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"context"
	"errors"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// checkModesAgree ensures light and fast mode engines of the provider produce
// identical, deterministic and distinct hashes for numHeaders headers.
func checkModesAgree(t *testing.T, p *Provider, numHeaders int) {
	t.Helper()

	seed := chainhash.HashH([]byte("seed"))
	light := newTestEngine(t, p, LightMode, &seed)
	defer light.Close()
	fast := newTestEngine(t, p, FastMode, &seed)
	defer fast.Close()

	seen := make(map[chainhash.Hash]struct{})
	for nonce := 0; nonce < numHeaders; nonce++ {
		hdr := testHeader(byte(nonce))
		lightHash := light.Hash(hdr)
		fastHash := fast.Hash(hdr)
		if lightHash != fastHash {
			t.Fatalf("nonce %d: mismatched hashes -- light %v, fast %v",
				nonce, lightHash, fastHash)
		}
		if again := light.Hash(hdr); again != lightHash {
			t.Fatalf("nonce %d: nondeterministic hash -- got %v, want %v",
				nonce, again, lightHash)
		}
		seen[lightHash] = struct{}{}
	}
	if len(seen) != numHeaders {
		t.Fatalf("unexpected number of distinct hashes -- got %d, want %d",
			len(seen), numHeaders)
	}
}

// TestEngineModesAgree ensures RandomX light and fast mode engines produce
// identical hashes and that hashing is deterministic.
func TestEngineModesAgree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping RandomX dataset build in short mode")
	}
	need := RandomX.ResourceSize(FastMode) + RandomX.ResourceSize(LightMode) +
		resourceMemoryMargin
	if avail, ok := availableMemory(); ok && avail < need {
		t.Skipf("skipping RandomX fast mode with %d MiB available", avail>>20)
	}

	checkModesAgree(t, newTestProvider(t, MainParams()), 4)
}

// TestKeyedBlake3ModesAgree ensures the test backend produces identical hashes
// in both modes.
func TestKeyedBlake3ModesAgree(t *testing.T) {
	t.Parallel()

	checkModesAgree(t, newTestProvider(t, TestParams()), 32)
}

// TestEngineSeedChange ensures reinitializing an engine with another seed
// changes its output, releases the old resource and that returning to the
// original seed reproduces the original hashes.
func TestEngineSeedChange(t *testing.T) {
	t.Parallel()

	backend := new(countingBackend)
	p := newTestProvider(t, testParams(backend))
	seed1 := chainhash.HashH([]byte("seed 1"))
	seed2 := chainhash.HashH([]byte("seed 2"))
	hdr := testHeader(7)

	e := newTestEngine(t, p, LightMode, &seed1)
	defer e.Close()
	hash1 := e.Hash(hdr)
	if !e.HasSeed(&seed1) || e.HasSeed(&seed2) {
		t.Fatal("engine does not report the loaded seed")
	}

	// Initializing with the loaded seed is a no-op.
	if err := e.Initialize(context.Background(), &seed1); err != nil {
		t.Fatalf("unexpected error reinitializing engine: %v", err)
	}
	if n := backend.builds.Load(); n != 1 {
		t.Fatalf("unexpected number of builds -- got %d, want 1", n)
	}

	if err := e.Initialize(context.Background(), &seed2); err != nil {
		t.Fatalf("unexpected error reinitializing engine: %v", err)
	}
	if n := p.NumResources(); n != 1 {
		t.Fatalf("unexpected number of resources -- got %d, want 1", n)
	}
	if n := backend.closes.Load(); n != 1 {
		t.Fatalf("old resource not freed -- got %d closes, want 1", n)
	}
	hash2 := e.Hash(hdr)
	if hash1 == hash2 {
		t.Fatalf("hashes for different seeds match: %v", hash1)
	}

	if err := e.Initialize(context.Background(), &seed1); err != nil {
		t.Fatalf("unexpected error reinitializing engine: %v", err)
	}
	if got := e.Hash(hdr); got != hash1 {
		t.Fatalf("unexpected hash after seed round trip -- got %v, want %v",
			got, hash1)
	}
}

// TestEngineReproducible ensures resources built independently by separate
// providers produce the same hashes.
func TestEngineReproducible(t *testing.T) {
	t.Parallel()

	seed := chainhash.Hash{}
	e1 := newTestEngine(t, newTestProvider(t, TestParams()), LightMode, &seed)
	defer e1.Close()
	e2 := newTestEngine(t, newTestProvider(t, TestParams()), FastMode, &seed)
	defer e2.Close()

	hdr := testHeader(0)
	if got, want := e2.Hash(hdr), e1.Hash(hdr); got != want {
		t.Fatalf("independently built resources disagree -- got %v, want %v",
			got, want)
	}
}

// TestEngineInvalidMode ensures unknown modes are rejected.
func TestEngineInvalidMode(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(newTestProvider(t, TestParams()), Mode(9))
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrInvalidMode)
	}
}

// TestEngineUninitializedHash ensures hashing without a loaded seed panics.
func TestEngineUninitializedHash(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(newTestProvider(t, TestParams()), LightMode)
	if err != nil {
		t.Fatalf("unexpected error creating engine: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("hash on uninitialized engine did not panic")
		}
	}()
	e.Hash(testHeader(0))
}
