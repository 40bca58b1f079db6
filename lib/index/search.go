// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"sort"
	"strings"
)

// keyField returns the SURT key of a raw data line.
func keyField(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}

// keyTimestampFields returns the "key timestamp" prefix of a raw
// data line.
func keyTimestampFields(line string) string {
	first := strings.IndexByte(line, ' ')
	if first < 0 {
		return line
	}
	second := strings.IndexByte(line[first+1:], ' ')
	if second < 0 {
		return line
	}
	return line[:first+1+second]
}

// Search performs a leftmost binary search for needle over the data
// lines of ix. When keyOnly is true each line is projected to its key
// field (used to collect all timestamps of a key); otherwise to its
// "key timestamp" prefix. A hit requires exact equality at the found
// insertion point: the search locates position, it never substitutes
// an approximate record.
//
// On a hit, returns the original unsplit line and its absolute line
// index (data position plus metadata-line count). On a miss, ok is
// false.
func Search(ix *Index, needle string, keyOnly bool) (line string, absolute int, ok bool) {
	project := keyTimestampFields
	if keyOnly {
		project = keyField
	}

	position := sort.Search(len(ix.Lines), func(i int) bool {
		return project(ix.Lines[i]) >= needle
	})
	if position == len(ix.Lines) || project(ix.Lines[position]) != needle {
		return "", 0, false
	}
	return ix.Lines[position], position + ix.MetaCount(), true
}

// AllForKey returns every data line whose key equals key, in index
// (timestamp) order. One binary search locates a position inside the
// contiguous same-key run; linear adjacency walks backward and
// forward collect the rest. The result is empty when the key is
// absent.
func AllForKey(ix *Index, key string) []string {
	_, absolute, ok := Search(ix, key, true)
	if !ok {
		return nil
	}
	pivot := absolute - ix.MetaCount()

	start := pivot
	for start > 0 && keyField(ix.Lines[start-1]) == key {
		start--
	}
	end := pivot + 1
	for end < len(ix.Lines) && keyField(ix.Lines[end]) == key {
		end++
	}

	lines := make([]string, end-start)
	copy(lines, ix.Lines[start:end])
	return lines
}
