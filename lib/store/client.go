// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
)

// Sentinel errors for the closed fetch-failure taxonomy. Implementations
// wrap these with contextual detail; callers match with errors.Is.
var (
	// ErrTimeout means the fetch deadline elapsed before the backend
	// produced the blob.
	ErrTimeout = errors.New("store: fetch timed out")

	// ErrNotFound means the backend answered but has no blob for the
	// requested hash.
	ErrNotFound = errors.New("store: hash not found")

	// ErrBackend covers every other backend failure, including an
	// unreachable daemon.
	ErrBackend = errors.New("store: backend error")
)

// Client fetches immutable blobs from a content-addressed backend.
//
// Cat returns the complete blob for a content hash. The returned
// slice may be shared (see [CachingClient]); callers must treat it as
// read-only. IsAlive reports whether the backend daemon is reachable,
// bounded by the same fetch timeout as Cat.
type Client interface {
	Cat(ctx context.Context, hash string) ([]byte, error)
	IsAlive(ctx context.Context) bool
}
