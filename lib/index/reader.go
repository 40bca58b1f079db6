// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/edverillo/ipwb/lib/cdxj"
	"github.com/edverillo/ipwb/lib/store"
)

// Index is one loaded snapshot of the capture index: the contiguous
// leading metadata lines and the ordered data lines. Immutable for
// the duration of a resolution operation.
type Index struct {
	// Meta holds the leading '!' metadata lines, in order.
	Meta []string

	// Lines holds the raw data lines, in index (sorted) order.
	Lines []string
}

// MetaCount returns the number of leading metadata lines. Data-line
// positions offset by this count give absolute line numbers.
func (ix *Index) MetaCount() int {
	return len(ix.Meta)
}

// Line returns the raw line at the given absolute index (metadata
// lines first, then data lines).
func (ix *Index) Line(absolute int) string {
	if absolute < len(ix.Meta) {
		return ix.Meta[absolute]
	}
	return ix.Lines[absolute-len(ix.Meta)]
}

// Load reads the index at location into an Index. Three forms of
// location are understood:
//
//   - a content hash (no path separator): fetched via st
//   - a local path ending in .gz: read and gunzipped
//   - any other local path: read as-is
//
// The text is split on newlines; blank lines are dropped. Metadata
// lines are collected only from the contiguous prefix block; the
// sort invariant guarantees none appear later.
func Load(ctx context.Context, location string, st store.Client) (*Index, error) {
	text, err := readIndexText(ctx, location, st)
	if err != nil {
		return nil, err
	}
	return Parse(text), nil
}

// Parse splits raw index text into an Index. Exported so tests and
// in-memory callers can build an Index without touching the
// filesystem.
func Parse(text string) *Index {
	ix := &Index{}
	inPrefix := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if inPrefix && cdxj.IsMetadataLine(line) {
			ix.Meta = append(ix.Meta, line)
			continue
		}
		inPrefix = false
		ix.Lines = append(ix.Lines, line)
	}
	return ix
}

func readIndexText(ctx context.Context, location string, st store.Client) (string, error) {
	if isContentHash(location) {
		if st == nil {
			return "", fmt.Errorf("index: location %q is a content hash but no store client was provided", location)
		}
		blob, err := st.Cat(ctx, location)
		if err != nil {
			return "", fmt.Errorf("index: fetching %s from content store: %w", location, err)
		}
		return string(blob), nil
	}

	file, err := os.Open(location)
	if err != nil {
		return "", fmt.Errorf("index: opening %s: %w", location, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(location, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return "", fmt.Errorf("index: opening gzip stream of %s: %w", location, err)
		}
		defer gz.Close()
		reader = gz
	}

	text, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("index: reading %s: %w", location, err)
	}
	return string(text), nil
}

// isContentHash reports whether location names a store-hosted index
// rather than a local file: no path separators and the shape of a
// content hash (CIDv0 "Qm..." or CIDv1 "baf...").
func isContentHash(location string) bool {
	if strings.ContainsAny(location, "/\\") {
		return false
	}
	return strings.HasPrefix(location, "Qm") || strings.HasPrefix(location, "baf")
}
