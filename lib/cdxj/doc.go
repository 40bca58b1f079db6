// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Package cdxj parses CDXJ web-archive index records and provides the
// key and datetime canonicalization they depend on.
//
// A CDXJ index is a UTF-8 text file with one record per line:
//
//	<surt-key> <timestamp14> <json-metadata>
//
// sorted ascending by the string concatenation of key and timestamp.
// Lines beginning with '!' are index-level metadata lines and appear
// only as a contiguous block before the first data line.
//
// Keys are SURT (Sort-friendly URI Reordering Transform) strings:
// host components reversed and comma-joined so that lexical order
// groups captures of one site together ("com,example)/path" for
// "http://example.com/path"). [Surt] and [Unsurt] convert between the
// two forms.
//
// Timestamps are fixed-width 14-digit strings (YYYYMMDDhhmmss, UTC),
// lexically sortable by construction. [PadTimestamp] extends the
// partial 4-14 digit timestamps accepted from clients, [ToHTTPDate]
// and [FromHTTPDate] convert to and from the RFC 1123 wire form the
// Memento protocol uses.
package cdxj
