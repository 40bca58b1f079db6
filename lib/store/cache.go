// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntries is the default LRU capacity (blob count, not
// bytes) used when a CachingClient is constructed with size <= 0.
const DefaultCacheEntries = 256

// CachingClient wraps a Client with an LRU blob cache. Content
// addressing makes every blob immutable, so a cached entry is valid
// forever and eviction is purely a capacity concern.
//
// Cached slices are returned without copying. Callers must treat
// every Cat result as read-only, per the [Client] contract.
type CachingClient struct {
	inner Client
	cache *lru.Cache[string, []byte]
}

// NewCachingClient wraps inner with an LRU cache holding up to
// entries blobs.
func NewCachingClient(inner Client, entries int) (*CachingClient, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	cache, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("store: creating blob cache: %w", err)
	}
	return &CachingClient{inner: inner, cache: cache}, nil
}

// Cat returns the cached blob for hash, or fetches and caches it.
// Fetch failures are never cached: a transient timeout must not
// poison future requests for the same hash.
func (c *CachingClient) Cat(ctx context.Context, hash string) ([]byte, error) {
	if blob, ok := c.cache.Get(hash); ok {
		return blob, nil
	}
	blob, err := c.inner.Cat(ctx, hash)
	if err != nil {
		return nil, err
	}
	c.cache.Add(hash, blob)
	return blob, nil
}

// IsAlive delegates to the wrapped client. Liveness is never cached.
func (c *CachingClient) IsAlive(ctx context.Context) bool {
	return c.inner.IsAlive(ctx)
}

// Len returns the number of cached blobs.
func (c *CachingClient) Len() int {
	return c.cache.Len()
}
