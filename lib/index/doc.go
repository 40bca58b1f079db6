// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Package index loads and searches the sorted CDXJ capture index.
//
// [Load] reads the index text from a local file (plain or gzip) or,
// when the location is itself a content hash, from the content store.
// The result is an [Index]: the contiguous block of leading '!'
// metadata lines plus the ordered data lines. The metadata count
// matters because search operates on zero-based data positions that
// must be offset by it to recover absolute line numbers.
//
// [Search] is a leftmost binary search over the data lines projected
// to either their key or their "key timestamp" prefix. It locates
// position only: absence of exact equality is a miss, never a
// nearest match. [AllForKey] extends one hit into the full contiguous
// run of records sharing the key, which binary search alone cannot
// enumerate.
//
// Correctness of every search depends on the global sort invariant of
// the index (ascending by key+timestamp). The package does not detect
// violations; results over an unsorted index are undefined.
//
// The index is read fresh per request and never mutated here; an
// external indexing process is the only writer, and it appends.
package index
