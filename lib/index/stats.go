// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"strings"

	"github.com/edverillo/ipwb/lib/cdxj"
)

// Summary describes the contents of one index snapshot. Served by
// the health endpoint.
type Summary struct {
	// MementoCount is the number of valid data lines.
	MementoCount int `json:"memento_count"`

	// UniqueKeys is the number of distinct SURT keys.
	UniqueKeys int `json:"unique_keys"`

	// HTMLCount is the number of non-redirect text/html captures.
	HTMLCount int `json:"html_count"`

	// Oldest and Newest are the extreme capture timestamps, empty
	// when the index has no data lines.
	Oldest string `json:"oldest,omitempty"`
	Newest string `json:"newest,omitempty"`
}

// Summarize walks every data line of ix and tallies a Summary.
// Unparseable lines are skipped rather than failing the whole walk;
// a torn append must not take down the health endpoint.
func Summarize(ix *Index) Summary {
	var summary Summary
	keys := make(map[string]struct{})

	for _, line := range ix.Lines {
		record, err := cdxj.ParseLine(line)
		if err != nil {
			continue
		}
		summary.MementoCount++
		keys[record.Key] = struct{}{}

		mime := strings.ToLower(record.Metadata.MimeType)
		redirect := strings.HasPrefix(record.Metadata.StatusCode, "3")
		if strings.HasPrefix(mime, "text/html") && !redirect {
			summary.HTMLCount++
		}

		if summary.Oldest == "" || record.Timestamp < summary.Oldest {
			summary.Oldest = record.Timestamp
		}
		if summary.Newest == "" || record.Timestamp > summary.Newest {
			summary.Newest = record.Timestamp
		}
	}

	summary.UniqueKeys = len(keys)
	return summary
}
