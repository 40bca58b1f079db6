// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package memento

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/edverillo/ipwb/lib/cdxj"
	"github.com/edverillo/ipwb/lib/index"
)

// ErrNoCaptures means the index holds no record for the requested
// URI's key.
var ErrNoCaptures = errors.New("memento: no captures for URI")

// Resolved is the outcome of nearest-datetime resolution: the winning
// record, the originally requested timestamp, and whether they match.
// An inexact hit requires a redirect to the canonical URI-M before
// the body is served.
type Resolved struct {
	Record    *cdxj.Record
	Requested string
	Exact     bool
}

// Resolve finds the capture of uri closest to the full 14-digit
// target timestamp. All records sharing the URI's SURT key are
// scanned linearly for the minimum absolute timestamp difference
// under integer comparison; strict less-than means the first record
// among ties wins (index order, earliest timestamp).
func Resolve(ix *index.Index, uri, target string) (*Resolved, error) {
	targetValue, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("memento: target timestamp %q is not numeric: %w", target, err)
	}

	key := cdxj.Surt(uri)
	lines := index.AllForKey(ix, key)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCaptures, uri)
	}

	var best *cdxj.Record
	var bestDiff int64
	for _, line := range lines {
		record, err := cdxj.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("memento: resolving %s: %w", uri, err)
		}
		value, err := strconv.ParseInt(record.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("memento: record timestamp %q is not numeric: %w", record.Timestamp, err)
		}

		diff := value - targetValue
		if diff < 0 {
			diff = -diff
		}
		if best == nil || diff < bestDiff {
			best = record
			bestDiff = diff
		}
	}

	return &Resolved{
		Record:    best,
		Requested: target,
		Exact:     best.Timestamp == target,
	}, nil
}
