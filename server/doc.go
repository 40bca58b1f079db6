// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Package server provides the Memento replay HTTP server.
//
// [Server] binds the route table to the index, store, and
// reconstruction layers:
//
//   - /memento/{datetime}/{urir}: resolve the capture of urir
//     closest to datetime; an inexact match redirects to the
//     canonical URI-M, an exact one serves the reconstructed
//     response.
//   - /memento/*/{urir}: every capture of urir: a sole capture
//     redirects to its URI-M, several render a listing.
//   - /timegate/{urir}: datetime negotiation per Accept-Datetime,
//     answered with a redirect to the chosen URI-M.
//   - /timemap/{format}/{urir}: the full TimeMap in the link or
//     cdxj wire format.
//   - /health, /metrics: daemon liveness plus index summary, and
//     Prometheus instruments.
//
// The index is re-read per request: it is append-mostly and owned by
// an external indexer, so each request resolves against whatever
// snapshot is on disk. The store daemon's liveness is verified before
// any resolution work; an unreachable daemon answers 503 with an
// instructive body rather than timing out mid-reconstruction.
//
// Every resolved memento response carries an abbreviated TimeMap in
// its Link header. A fetch timeout after successful resolution maps
// to 504, any other fetch failure to 502, both distinct from the
// 404 of a URI-R the index has never seen.
package server
