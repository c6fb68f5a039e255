// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// resourceMemoryMargin is the amount of available memory that must remain
// after a resource is built.  Requests that would leave less are refused so
// the operating system never has to reclaim memory from the process.
const resourceMemoryMargin = 128 << 20

// resourceKey uniquely identifies a resource.
type resourceKey struct {
	seed chainhash.Hash
	mode Mode
}

// resource is a hasher shared by every engine hashing with the same seed and
// mode.
type resource struct {
	key resourceKey

	// done is closed once the build completes.  The hasher and err fields
	// must not be accessed before then.
	done   chan struct{}
	hasher Hasher
	err    error

	// refs is protected by the provider mutex.
	refs int
}

// Provider hands out reference counted hashers so that all engines that hash
// with the same seed and mode share a single copy of the memory behind them.
// Concurrent requests for a hasher that is still being built wait for that
// build instead of starting another one.
//
// It is safe for concurrent access.
type Provider struct {
	params *Params

	// memAvailable reports the memory available to new resources and
	// whether it is known.  It is only replaced by tests.
	memAvailable func() (uint64, bool)

	mtx       sync.Mutex
	resources map[resourceKey]*resource
}

// NewProvider returns a resource provider for the given parameters.  An error
// of kind ErrInvalidParams is returned when the parameters are malformed.
func NewProvider(params *Params) (*Provider, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		params:       params,
		memAvailable: availableMemory,
		resources:    make(map[resourceKey]*resource),
	}, nil
}

// Params returns the parameters the provider builds resources with.
func (p *Provider) Params() *Params {
	return p.params
}

// NumResources returns the number of resources that are currently built or
// being built.
func (p *Provider) NumResources() int {
	p.mtx.Lock()
	n := len(p.resources)
	p.mtx.Unlock()
	return n
}

// checkMemory returns an error of kind ErrResourceInit when building a
// resource in the provided mode would exhaust the available memory.
// Overcommitted allocations otherwise appear to succeed and the process is
// killed once the memory is touched.
func (p *Provider) checkMemory(mode Mode) error {
	size := p.params.Backend.ResourceSize(mode)
	if size == 0 {
		return nil
	}
	avail, ok := p.memAvailable()
	if !ok {
		return nil
	}
	if size+resourceMemoryMargin > avail {
		str := fmt.Sprintf("%s mode requires %d MiB but only %d MiB of "+
			"memory is available", mode, size>>20, avail>>20)
		return makeError(ErrResourceInit, str)
	}
	return nil
}

// acquire returns the resource for the given seed and mode with its reference
// count incremented, building it when it does not already exist.  Every
// successful call must be paired with a call to release.
//
// Builds are not interruptible, so a canceled context only stops the wait.
// The resource is freed once its build completes when nothing references it
// by then.
func (p *Provider) acquire(ctx context.Context, seed *chainhash.Hash, mode Mode) (*resource, error) {
	key := resourceKey{seed: *seed, mode: mode}

	p.mtx.Lock()
	r, ok := p.resources[key]
	if !ok {
		if err := p.checkMemory(mode); err != nil {
			p.mtx.Unlock()
			log.Warnf("Unable to build %s mode resource for seed %v: %v",
				mode, seed, err)
			return nil, err
		}
		r = &resource{key: key, done: make(chan struct{})}
		p.resources[key] = r
		go p.build(r)
	}
	r.refs++
	p.mtx.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		p.release(r)
		return nil, ctx.Err()
	}
	if r.err != nil {
		p.release(r)
		return nil, r.err
	}
	return r, nil
}

// build creates the hasher of the resource and wakes everything waiting on
// it.
//
// It must be run as a goroutine.
func (p *Provider) build(r *resource) {
	start := time.Now()
	log.Debugf("Building %s %s mode resource for seed %v",
		p.params.Backend.Name(), r.key.mode, &r.key.seed)
	hasher, err := p.params.Backend.NewHasher(r.key.mode, &r.key.seed)
	if err != nil && !errors.Is(err, ErrResourceInit) {
		str := fmt.Sprintf("unable to build %s mode resource: %v", r.key.mode,
			err)
		err = makeError(ErrResourceInit, str)
	}

	p.mtx.Lock()
	r.hasher, r.err = hasher, err
	orphaned := r.refs == 0
	if (err != nil || orphaned) && p.resources[r.key] == r {
		delete(p.resources, r.key)
	}
	close(r.done)
	p.mtx.Unlock()

	if err != nil {
		log.Warnf("Unable to build %s mode resource for seed %v: %v",
			r.key.mode, &r.key.seed, err)
		return
	}
	log.Infof("Built %s %s mode resource for seed %v in %v",
		p.params.Backend.Name(), r.key.mode, &r.key.seed,
		time.Since(start).Round(time.Millisecond))
	if orphaned {
		log.Debugf("Freeing unreferenced %s mode resource for seed %v",
			r.key.mode, &r.key.seed)
		hasher.Close()
	}
}

// release decrements the reference count of the resource and frees it once
// it is no longer referenced.  Resources still being built are freed by the
// build instead.
func (p *Provider) release(r *resource) {
	p.mtx.Lock()
	r.refs--
	if r.refs > 0 {
		p.mtx.Unlock()
		return
	}
	select {
	case <-r.done:
	default:
		p.mtx.Unlock()
		return
	}
	if p.resources[r.key] == r {
		delete(p.resources, r.key)
	}
	hasher := r.hasher
	r.hasher = nil
	p.mtx.Unlock()

	if hasher != nil {
		log.Debugf("Freeing %s mode resource for seed %v", r.key.mode,
			&r.key.seed)
		hasher.Close()
	}
}
