// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Package memento implements Memento protocol (RFC 7089) negotiation
// over the capture index: nearest-datetime resolution and TimeMap
// construction.
//
// [Resolve] finds the capture of a URI closest in time to a target
// datetime. Ties break toward the first record encountered in index
// order (strict less-than comparison), so the earliest-sorted
// timestamp wins. The result records
// whether the hit was exact; an inexact hit must be answered with a
// redirect to the canonical URI-M, never with the body itself.
//
// The TimeMap builders emit the two wire formats: [BuildLink]
// (application/link-format) and [BuildCDXJ] (application/cdxj+ors).
// Both mark relations identically: a sole record is "first last
// memento", otherwise the first record is "first memento", the last
// "last memento", and interior records plain "memento".
//
// [AbbreviatedLinkHeader] produces the compact single-line TimeMap
// attached as the Link header of a resolved Memento response: the
// pivot record's neighbors gain "prev"/"next", every entry carrying
// none of first/last/prev/next that is not the pivot is dropped, and
// the remainder is flattened onto one line.
package memento
