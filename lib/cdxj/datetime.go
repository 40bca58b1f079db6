// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package cdxj

import (
	"fmt"
	"net/http"
	"time"
)

// TimestampLength is the width of a full CDXJ timestamp.
const TimestampLength = 14

// timestampLayout is the Go reference-time layout for a 14-digit
// CDXJ timestamp (YYYYMMDDhhmmss, always UTC).
const timestampLayout = "20060102150405"

// padTemplate supplies calendar defaults for short timestamps: a bare
// year extends to January 1st at midnight, a year-month to the 1st of
// that month, and so on. Zero-padding would produce month and day 00,
// which no valid datetime contains.
const padTemplate = "00000101000000"

// PadTimestamp extends a partial 4-14 digit timestamp to the full
// 14-digit form and validates it as a real UTC datetime. Clients may
// request "2020", "202006", or any longer prefix; anything shorter
// than a year, longer than a full timestamp, non-numeric, or not a
// valid calendar datetime is an error.
func PadTimestamp(digits string) (string, error) {
	if len(digits) < 4 || len(digits) > TimestampLength {
		return "", fmt.Errorf("cdxj: timestamp %q must be 4-14 digits", digits)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("cdxj: timestamp %q contains non-digit", digits)
		}
	}

	padded := digits + padTemplate[len(digits):]
	if _, err := time.Parse(timestampLayout, padded); err != nil {
		return "", fmt.Errorf("cdxj: timestamp %q is not a valid datetime: %w", digits, err)
	}
	return padded, nil
}

// ToHTTPDate converts a full 14-digit timestamp to the RFC 1123 wire
// format used by Memento-Datetime and Link datetime attributes.
func ToHTTPDate(timestamp string) (string, error) {
	t, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return "", fmt.Errorf("cdxj: timestamp %q is not a valid datetime: %w", timestamp, err)
	}
	return t.UTC().Format(http.TimeFormat), nil
}

// FromHTTPDate converts an RFC 1123 datetime (the Accept-Datetime
// request form) to a full 14-digit timestamp. Only the strict GMT
// rendering is accepted.
func FromHTTPDate(value string) (string, error) {
	t, err := time.Parse(http.TimeFormat, value)
	if err != nil {
		return "", fmt.Errorf("cdxj: %q is not an RFC 1123 datetime: %w", value, err)
	}
	return t.UTC().Format(timestampLayout), nil
}

// NowTimestamp returns the current UTC time as a 14-digit timestamp.
func NowTimestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}
