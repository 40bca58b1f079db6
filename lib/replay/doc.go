// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Package replay reconstructs replayable HTTP responses from archived
// captures.
//
// A capture's locator names two independently addressed blobs in the
// content store: the recorded HTTP header block and the recorded
// body. [Reconstructor.Reconstruct] fetches both, optionally decrypts
// them, undoes chunked transfer encoding, rewrites headers and
// redirect targets so the replayed response stays inside the replay
// namespace, and assembles the result.
//
// Original headers are renamed with the X-Archive-Orig- provenance
// prefix so replayed metadata never collides with the replay server's
// own headers; only Content-Type, Content-Encoding, and Location pass
// through unprefixed.
//
// Failure severity varies by stage. A store timeout or missing
// payload fails the request ([ErrContentTimeout],
// [ErrContentUnavailable]); a missing header blob degrades to a
// synthesized empty header set marked with X-Headers-Generated-By; a
// malformed chunk stream is tolerated by serving the undecoded
// payload; an encrypted record without a usable key fails that one
// request ([ErrMissingDecryptionKey]); nothing here is interactive.
package replay
