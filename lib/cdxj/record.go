// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package cdxj

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MetadataMarker is the first byte of an index-level metadata line.
// Metadata lines are opaque to record parsing; the index layer only
// counts them so that search positions can be mapped back to absolute
// line numbers.
const MetadataMarker = '!'

// Metadata is the JSON payload of a CDXJ data line. Locator is a
// path-like reference whose last two segments are the content-store
// hashes of the stored HTTP header block and the stored HTTP body.
type Metadata struct {
	MimeType   string `json:"mime_type"`
	StatusCode string `json:"status_code"`
	Locator    string `json:"locator"`
	Title      string `json:"title,omitempty"`

	// Optional symmetric-encryption fields. When EncryptionMethod is
	// set, the header and body blobs are stored encrypted and must be
	// decrypted with the key and nonce recorded here.
	EncryptionMethod string `json:"encryption_method,omitempty"`
	EncryptionKey    string `json:"encryption_key,omitempty"`
	EncryptionNonce  string `json:"encryption_nonce,omitempty"`
}

// Record is one parsed CDXJ data line: a single capture of a single
// URI at a single datetime.
type Record struct {
	// Key is the SURT form of the captured URI.
	Key string

	// Timestamp is the 14-digit capture datetime.
	Timestamp string

	// Metadata is the parsed JSON block.
	Metadata Metadata

	// Raw is the original unsplit line.
	Raw string
}

// IsMetadataLine reports whether line is an index-level metadata line.
func IsMetadataLine(line string) bool {
	return len(line) > 0 && line[0] == MetadataMarker
}

// ParseLine parses one CDXJ data line. Metadata lines and lines that
// do not have the three space-separated fields are rejected.
func ParseLine(line string) (*Record, error) {
	if IsMetadataLine(line) {
		return nil, fmt.Errorf("cdxj: metadata line is not a record: %q", line)
	}
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return nil, fmt.Errorf("cdxj: malformed line (want 3 fields, got %d): %q", len(fields), line)
	}

	record := &Record{
		Key:       fields[0],
		Timestamp: fields[1],
		Raw:       line,
	}
	if err := json.Unmarshal([]byte(fields[2]), &record.Metadata); err != nil {
		return nil, fmt.Errorf("cdxj: parsing metadata of %q: %w", fields[0], err)
	}
	return record, nil
}

// IsValidLine reports whether line is either a metadata line or a
// parseable data line. Blank lines are invalid.
func IsValidLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if IsMetadataLine(line) {
		return true
	}
	_, err := ParseLine(line)
	return err == nil
}

// URI returns the original (unsurted) URI of the record, with the
// http scheme prepended, since SURT keys never carry a scheme.
func (r *Record) URI() string {
	return "http://" + Unsurt(r.Key)
}
