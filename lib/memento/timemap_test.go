// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package memento

import (
	"fmt"
	"strings"
	"testing"
)

const (
	testKey      = "com,example)/"
	testSelfLink = "http://replay.test:2016/timemap/link/example.com/"
	testSelfCDXJ = "http://replay.test:2016/timemap/cdxj/example.com/"
	testTimegate = "http://replay.test:2016/timegate/example.com/"
)

// timemapLines builds raw CDXJ lines for one key at the given
// timestamps.
func timemapLines(timestamps ...string) []string {
	var lines []string
	for i, ts := range timestamps {
		lines = append(lines, fmt.Sprintf(
			`%s %s {"locator": "urn:ipfs/QmH%d/QmP%d", "mime_type": "text/html", "status_code": "200"}`,
			testKey, ts, i, i))
	}
	return lines
}

// mementoEntries filters a link-format TimeMap down to its memento
// relation entries.
func mementoEntries(tm string) []string {
	var entries []string
	for _, line := range strings.Split(tm, "\n") {
		if isMementoEntry(line) {
			entries = append(entries, line)
		}
	}
	return entries
}

func TestBuildLinkSingleRecord(t *testing.T) {
	tm, err := BuildLink(timemapLines("20190101000000"), testKey, testSelfLink, testTimegate, "")
	if err != nil {
		t.Fatalf("BuildLink: %v", err)
	}

	for _, want := range []string{
		`<http://example.com/>; rel="original",`,
		`<` + testSelfLink + `>; rel="self timemap"; type="application/link-format",`,
		`<` + testSelfCDXJ + `>; rel="timemap"; type="application/cdxj+ors",`,
		`<` + testTimegate + `>; rel="timegate"`,
		`<http://replay.test:2016/memento/20190101000000/example.com/>; rel="first last memento"; datetime="Tue, 01 Jan 2019 00:00:00 GMT"`,
	} {
		if !strings.Contains(tm, want) {
			t.Errorf("TimeMap missing %q:\n%s", want, tm)
		}
	}
}

func TestBuildLinkRelationMarking(t *testing.T) {
	tm, err := BuildLink(timemapLines("20180101000000", "20190101000000", "20200101000000"),
		testKey, testSelfLink, testTimegate, "")
	if err != nil {
		t.Fatalf("BuildLink: %v", err)
	}

	entries := mementoEntries(tm)
	if len(entries) != 3 {
		t.Fatalf("got %d memento entries, want 3", len(entries))
	}
	if rel := relationOf(entries[0]); rel != "first memento" {
		t.Errorf("first entry rel = %q", rel)
	}
	if rel := relationOf(entries[1]); rel != "memento" {
		t.Errorf("interior entry rel = %q", rel)
	}
	if rel := relationOf(entries[2]); rel != "last memento" {
		t.Errorf("last entry rel = %q", rel)
	}
}

func TestBuildCDXJ(t *testing.T) {
	tm, err := BuildCDXJ(timemapLines("20180101000000", "20190101000000"),
		testKey, testSelfCDXJ, testTimegate, "")
	if err != nil {
		t.Fatalf("BuildCDXJ: %v", err)
	}

	for _, want := range []string{
		`!context ["http://tools.ietf.org/html/rfc7089"]`,
		`!id {"uri": "` + testSelfCDXJ + `"}`,
		`!keys ["memento_datetime_YYYYMMDDhhmmss"]`,
		`!meta {"original_uri": "http://example.com/"}`,
		`!meta {"timegate_uri": "` + testTimegate + `"}`,
		`!meta {"timemap_uri": {"link_format": "` + testSelfLink + `", "cdxj_format": "` + testSelfCDXJ + `"}}`,
		`20180101000000 {"uri": "http://replay.test:2016/memento/20180101000000/com,example)/", "rel": "first memento"`,
		`"rel": "last memento"`,
	} {
		if !strings.Contains(tm, want) {
			t.Errorf("CDXJ TimeMap missing %q:\n%s", want, tm)
		}
	}
}

func TestFormatsAgreeOnRelations(t *testing.T) {
	lines := timemapLines("20180101000000", "20190101000000", "20200101000000")
	link, err := BuildLink(lines, testKey, testSelfLink, testTimegate, "")
	if err != nil {
		t.Fatalf("BuildLink: %v", err)
	}
	cdxjTM, err := BuildCDXJ(lines, testKey, testSelfCDXJ, testTimegate, "")
	if err != nil {
		t.Fatalf("BuildCDXJ: %v", err)
	}

	for _, probe := range []struct {
		ts, rel string
	}{
		{"20180101000000", "first memento"},
		{"20190101000000", "memento"},
		{"20200101000000", "last memento"},
	} {
		if !strings.Contains(link, fmt.Sprintf("/memento/%s/example.com/>; rel=%q", probe.ts, probe.rel)) {
			t.Errorf("link format: %s not marked %q", probe.ts, probe.rel)
		}
		if !strings.Contains(cdxjTM, fmt.Sprintf(`"rel": %q, `, probe.rel)) {
			t.Errorf("cdxj format: no record marked %q", probe.rel)
		}
	}
}

func TestProxyRewrite(t *testing.T) {
	tests := []struct {
		raw, proxy, want string
	}{
		{"http://replay.test:2016/timemap/link/x", "", "http://replay.test:2016/timemap/link/x"},
		{"http://replay.test:2016/timemap/link/x", "archive.example.org", "http://archive.example.org/timemap/link/x"},
		{"http://replay.test:2016/timemap/link/x", "https://archive.example.org:8443", "https://archive.example.org:8443/timemap/link/x"},
	}
	for _, test := range tests {
		if got := ProxyRewrite(test.raw, test.proxy); got != test.want {
			t.Errorf("ProxyRewrite(%q, %q) = %q, want %q", test.raw, test.proxy, got, test.want)
		}
	}
}

func TestBuildLinkProxied(t *testing.T) {
	tm, err := BuildLink(timemapLines("20190101000000"), testKey, testSelfLink, testTimegate,
		"https://archive.example.org")
	if err != nil {
		t.Fatalf("BuildLink: %v", err)
	}
	if strings.Contains(tm, "replay.test") {
		t.Errorf("proxied TimeMap still references the internal host:\n%s", tm)
	}
	for _, want := range []string{
		`<https://archive.example.org/timemap/link/example.com/>; rel="self timemap"`,
		`<https://archive.example.org/timegate/example.com/>; rel="timegate"`,
		`<https://archive.example.org/memento/20190101000000/example.com/>`,
	} {
		if !strings.Contains(tm, want) {
			t.Errorf("proxied TimeMap missing %q:\n%s", want, tm)
		}
	}
}

func TestAbbreviatedLinkHeaderSingleRecord(t *testing.T) {
	header, err := AbbreviatedLinkHeader(timemapLines("20190101000000"), testKey,
		testSelfLink, testTimegate, "", "20190101000000")
	if err != nil {
		t.Fatalf("AbbreviatedLinkHeader: %v", err)
	}
	if strings.Contains(header, "\n") {
		t.Error("header contains a newline")
	}
	if !strings.Contains(header, `rel="first last memento"`) {
		t.Errorf("header missing first last memento: %s", header)
	}
	if strings.Contains(header, `rel="self timemap"`) {
		t.Error("self timemap relation was not demoted")
	}
}

func TestAbbreviatedLinkHeaderNoRecords(t *testing.T) {
	// A key without captures still yields a header: the preamble
	// relations alone, so not-found responses can carry it.
	header, err := AbbreviatedLinkHeader(nil, testKey,
		testSelfLink, testTimegate, "", "")
	if err != nil {
		t.Fatalf("AbbreviatedLinkHeader: %v", err)
	}
	if strings.Contains(header, "\n") {
		t.Error("header contains a newline")
	}
	for _, rel := range []string{`rel="original"`, `rel="timemap"`, `rel="timegate"`} {
		if !strings.Contains(header, rel) {
			t.Errorf("header missing %s: %s", rel, header)
		}
	}
	if strings.Contains(header, `memento"`) {
		t.Errorf("header lists mementos for an empty record set: %s", header)
	}
}

// abbreviationTimestamps maps 1-indexed positions to timestamps for
// the pivot/neighbor tests.
func abbreviationTimestamps(n int) []string {
	var timestamps []string
	for i := 1; i <= n; i++ {
		timestamps = append(timestamps, fmt.Sprintf("201%d0101000000", i))
	}
	return timestamps
}

func TestAbbreviatedLinkHeaderFiveRecordsPivotThree(t *testing.T) {
	timestamps := abbreviationTimestamps(5)
	header, err := AbbreviatedLinkHeader(timemapLines(timestamps...), testKey,
		testSelfLink, testTimegate, "", timestamps[2])
	if err != nil {
		t.Fatalf("AbbreviatedLinkHeader: %v", err)
	}

	// With five records and the pivot in the middle, every record is
	// boundary-adjacent: all five survive.
	for i, ts := range timestamps {
		if !strings.Contains(header, "/"+ts+"/") {
			t.Errorf("record %d (%s) missing from header: %s", i+1, ts, header)
		}
	}
	if !strings.Contains(header, `rel="prev memento"`) {
		t.Errorf("no prev marker: %s", header)
	}
	if !strings.Contains(header, `rel="next memento"`) {
		t.Errorf("no next marker: %s", header)
	}
}

func TestAbbreviatedLinkHeaderSevenRecordsPivotFour(t *testing.T) {
	timestamps := abbreviationTimestamps(7)
	header, err := AbbreviatedLinkHeader(timemapLines(timestamps...), testKey,
		testSelfLink, testTimegate, "", timestamps[3])
	if err != nil {
		t.Fatalf("AbbreviatedLinkHeader: %v", err)
	}

	// Positions 1 (first), 3 (prev), 4 (pivot), 5 (next), 7 (last)
	// survive; 2 and 6 are dropped.
	wantPresent := []int{1, 3, 4, 5, 7}
	wantAbsent := []int{2, 6}
	for _, position := range wantPresent {
		if !strings.Contains(header, "/"+timestamps[position-1]+"/") {
			t.Errorf("position %d missing from header: %s", position, header)
		}
	}
	for _, position := range wantAbsent {
		if strings.Contains(header, "/"+timestamps[position-1]+"/") {
			t.Errorf("position %d should be dropped: %s", position, header)
		}
	}
}

func TestAbbreviatedLinkHeaderPivotAtBoundary(t *testing.T) {
	timestamps := abbreviationTimestamps(4)

	// Pivot first: no prev marker, successor gains next.
	header, err := AbbreviatedLinkHeader(timemapLines(timestamps...), testKey,
		testSelfLink, testTimegate, "", timestamps[0])
	if err != nil {
		t.Fatalf("AbbreviatedLinkHeader: %v", err)
	}
	if strings.Contains(header, `rel="prev memento"`) {
		t.Errorf("pivot-first header has a prev marker: %s", header)
	}
	if !strings.Contains(header, `rel="next memento"`) {
		t.Errorf("pivot-first header lacks a next marker: %s", header)
	}

	// Pivot last: no next marker, predecessor gains prev.
	header, err = AbbreviatedLinkHeader(timemapLines(timestamps...), testKey,
		testSelfLink, testTimegate, "", timestamps[3])
	if err != nil {
		t.Fatalf("AbbreviatedLinkHeader: %v", err)
	}
	if strings.Contains(header, `rel="next memento"`) {
		t.Errorf("pivot-last header has a next marker: %s", header)
	}
	if !strings.Contains(header, `rel="prev memento"`) {
		t.Errorf("pivot-last header lacks a prev marker: %s", header)
	}
}
