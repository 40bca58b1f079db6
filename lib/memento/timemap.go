// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package memento

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/edverillo/ipwb/lib/cdxj"
)

// TimeMap wire formats and their media types.
const (
	FormatLink = "link"
	FormatCDXJ = "cdxj"

	ContentTypeLink = "application/link-format"
	ContentTypeCDXJ = "application/cdxj+ors"
)

// rfc7089Context is the protocol context URI of the CDXJ preamble.
const rfc7089Context = "http://tools.ietf.org/html/rfc7089"

// relationFor returns the relation marker for record i of total:
// a sole record is "first last memento", otherwise the boundary
// records gain "first "/"last " and interior records are plain.
func relationFor(i, total int) string {
	switch {
	case total == 1:
		return "first last memento"
	case i == 0:
		return "first memento"
	case i == total-1:
		return "last memento"
	default:
		return "memento"
	}
}

// ProxyRewrite substitutes the host (and scheme, when the proxy
// target carries one) of raw with the configured upstream proxy
// target. With an empty proxy, raw passes through untouched. Every
// generated self, timegate, and companion URI goes through this one
// helper so the substitution is uniform.
func ProxyRewrite(raw, proxy string) string {
	if proxy == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.Contains(proxy, "://") {
		p, err := url.Parse(proxy)
		if err != nil {
			return raw
		}
		u.Scheme = p.Scheme
		u.Host = p.Host
	} else {
		u.Host = proxy
	}
	return u.String()
}

// replayRoot reduces a TimeMap URI to its scheme://host/ prefix;
// memento URIs in the output are rooted there.
func replayRoot(timemapURI string) (string, error) {
	u, err := url.Parse(timemapURI)
	if err != nil {
		return "", fmt.Errorf("memento: parsing timemap URI %q: %w", timemapURI, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String() + "/", nil
}

// BuildLink emits the full application/link-format TimeMap for the
// records in lines (all captures of one key, in index order). The
// relation entries are: original, self timemap, the companion cdxj
// timemap, timegate, and one memento entry per record.
func BuildLink(lines []string, key, selfURI, timegateURI, proxy string) (string, error) {
	selfURI = ProxyRewrite(selfURI, proxy)
	timegateURI = ProxyRewrite(timegateURI, proxy)

	root, err := replayRoot(selfURI)
	if err != nil {
		return "", err
	}

	// SURT keys never carry a scheme; the original relation needs one.
	originalURI := "http://" + cdxj.Unsurt(key)
	companionURI := strings.Replace(selfURI, "/timemap/link/", "/timemap/cdxj/", 1)

	var b strings.Builder
	fmt.Fprintf(&b, "<%s>; rel=\"original\",\n", originalURI)
	fmt.Fprintf(&b, "<%s>; rel=\"self timemap\"; type=%q,\n", selfURI, ContentTypeLink)
	fmt.Fprintf(&b, "<%s>; rel=\"timemap\"; type=%q,\n", companionURI, ContentTypeCDXJ)
	fmt.Fprintf(&b, "<%s>; rel=\"timegate\"", timegateURI)

	for i, line := range lines {
		record, err := cdxj.ParseLine(line)
		if err != nil {
			return "", fmt.Errorf("memento: building timemap: %w", err)
		}
		httpDate, err := cdxj.ToHTTPDate(record.Timestamp)
		if err != nil {
			return "", fmt.Errorf("memento: building timemap: %w", err)
		}
		fmt.Fprintf(&b, ",\n<%smemento/%s/%s>; rel=%q; datetime=%q",
			root, record.Timestamp, cdxj.Unsurt(record.Key), relationFor(i, len(lines)), httpDate)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// BuildCDXJ emits the application/cdxj+ors TimeMap: a fixed preamble
// (protocol context, self identifier, key schema, original/timegate/
// timemap cross-references) followed by one keyed-object line per
// record. Memento URIs here keep the SURT key form.
func BuildCDXJ(lines []string, key, selfURI, timegateURI, proxy string) (string, error) {
	selfURI = ProxyRewrite(selfURI, proxy)
	timegateURI = ProxyRewrite(timegateURI, proxy)

	originalURI := "http://" + cdxj.Unsurt(key)
	companionURI := strings.Replace(selfURI, "/timemap/cdxj/", "/timemap/link/", 1)

	// Memento URIs are rooted at the prefix of the self URI up
	// through the /timemap/ segment.
	root := selfURI
	if i := strings.Index(selfURI, "timemap/"); i >= 0 {
		root = selfURI[:i]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "!context [%q]\n", rfc7089Context)
	fmt.Fprintf(&b, "!id {\"uri\": %q}\n", selfURI)
	b.WriteString("!keys [\"memento_datetime_YYYYMMDDhhmmss\"]\n")
	fmt.Fprintf(&b, "!meta {\"original_uri\": %q}\n", originalURI)
	fmt.Fprintf(&b, "!meta {\"timegate_uri\": %q}\n", timegateURI)
	fmt.Fprintf(&b, "!meta {\"timemap_uri\": {\"link_format\": %q, \"cdxj_format\": %q}}\n",
		companionURI, selfURI)

	for i, line := range lines {
		record, err := cdxj.ParseLine(line)
		if err != nil {
			return "", fmt.Errorf("memento: building timemap: %w", err)
		}
		httpDate, err := cdxj.ToHTTPDate(record.Timestamp)
		if err != nil {
			return "", fmt.Errorf("memento: building timemap: %w", err)
		}
		fmt.Fprintf(&b, "%s {\"uri\": \"%smemento/%s/%s\", \"rel\": %q, \"datetime\": %q}\n",
			record.Timestamp, root, record.Timestamp, record.Key, relationFor(i, len(lines)), httpDate)
	}
	return b.String(), nil
}

// relationOf extracts the rel attribute value of one link-format
// entry, or "" when the entry has none.
func relationOf(entry string) string {
	_, rest, found := strings.Cut(entry, `rel="`)
	if !found {
		return ""
	}
	rel, _, found := strings.Cut(rest, `"`)
	if !found {
		return ""
	}
	return rel
}

// isMementoEntry reports whether a link-format entry is a memento
// relation (as opposed to the original/timemap/timegate preamble).
func isMementoEntry(entry string) bool {
	return strings.Contains(relationOf(entry), "memento")
}

// AbbreviatedLinkHeader builds the compact one-line TimeMap used as
// the Link response header of a resolved Memento. The pivot timestamp
// identifies one record of the full TimeMap; its immediate
// predecessor gains "prev" and its immediate successor "next", every
// memento entry carrying none of first/last/next/prev that is not
// the pivot is dropped, and the survivors are flattened onto one
// line. The self-reference is demoted from "self timemap" to plain
// "timemap" since the header describes the response, not the TimeMap
// endpoint.
func AbbreviatedLinkHeader(lines []string, key, timemapURI, timegateURI, proxy, pivot string) (string, error) {
	tm, err := BuildLink(lines, key, timemapURI, timegateURI, proxy)
	if err != nil {
		return "", err
	}
	tm = strings.Replace(tm, `rel="self timemap"`, `rel="timemap"`, 1)

	// A single-record TimeMap has no prev/next logic at all.
	if strings.Contains(tm, `rel="first last memento"`) {
		return strings.TrimSpace(strings.ReplaceAll(tm, "\n", " ")), nil
	}

	entries := strings.Split(tm, "\n")
	pivotSegment := "/" + pivot + "/"

	for i, entry := range entries {
		if !isMementoEntry(entry) || !strings.Contains(entry, pivotSegment) {
			continue
		}
		// Neighbor marking. The predecessor of the first memento is
		// the timegate entry and the successor of the last is the
		// trailing empty split element; the replacement is a no-op
		// on both, which is exactly the not-first/not-last rule.
		if i+1 < len(entries) {
			entries[i+1] = strings.Replace(entries[i+1], `memento"`, `next memento"`, 1)
		}
		if i > 0 {
			entries[i-1] = strings.Replace(entries[i-1], `memento"`, `prev memento"`, 1)
		}
		break
	}

	kept := entries[:0]
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if isMementoEntry(entry) && !strings.Contains(entry, pivotSegment) {
			rel := relationOf(entry)
			if !strings.Contains(rel, "first") && !strings.Contains(rel, "last") &&
				!strings.Contains(rel, "next") && !strings.Contains(rel, "prev") {
				continue
			}
		}
		kept = append(kept, entry)
	}
	return strings.Join(kept, " "), nil
}
