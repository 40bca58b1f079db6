// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Package store provides the content-store client used to fetch
// immutable blobs by content hash.
//
// [Client] is the interface the rest of the replay system consumes:
// Cat fetches a blob, IsAlive reports backend daemon liveness.
// [DaemonClient] implements it against the IPFS daemon HTTP API.
// [CachingClient] wraps any Client with an LRU blob cache; blobs are
// content addressed and immutable, so cached entries never go stale.
//
// Fetch failures form a closed taxonomy matched with errors.Is:
// [ErrTimeout] (the bounded fetch deadline elapsed), [ErrNotFound]
// (the backend has no blob for the hash), and [ErrBackend] (any other
// backend failure, including an unreachable daemon). Callers decide
// per-error how to degrade; nothing in this package retries.
package store
