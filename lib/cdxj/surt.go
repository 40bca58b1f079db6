// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package cdxj

import (
	"regexp"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`)

// Surt converts a URI to its SURT key form: scheme stripped, host
// lowercased and its dot-separated components reversed and joined
// with commas, then ")/" and the path. The path, query, and any
// trailing slash are preserved so that distinct captures keep
// distinct keys.
//
//	Surt("http://www.Example.com/a/b?q=1") == "com,example,www)/a/b?q=1"
//
// IPv4 hosts are not reordered; dotted quads sort usefully as-is.
func Surt(uri string) string {
	uri = strings.TrimSpace(uri)

	// Strip the scheme. Protocol-relative URIs ("//host/path") lose
	// their leading slashes the same way.
	if i := strings.Index(uri, "://"); i >= 0 {
		uri = uri[i+3:]
	} else {
		uri = strings.TrimPrefix(uri, "//")
	}

	host := uri
	path := ""
	if i := strings.IndexAny(uri, "/?"); i >= 0 {
		host = uri[:i]
		path = uri[i:]
		// A bare query ("host?q=1") keys as "host)/?q=1".
		if path[0] == '?' {
			path = "/" + path
		}
	} else {
		path = "/"
	}

	host = strings.ToLower(host)
	if !ipv4Pattern.MatchString(host) {
		// Reorder "sub.example.com" to "com,example,sub". A port
		// stays attached to its host component.
		var port string
		if i := strings.LastIndex(host, ":"); i >= 0 {
			port = host[i:]
			host = host[:i]
		}
		parts := strings.Split(host, ".")
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		host = strings.Join(parts, ",") + port
	}

	return host + ")" + path
}

// Unsurt is the inverse of [Surt]: it recovers the original host
// order from a SURT key. The result has no scheme. Keys with IPv4
// hosts pass through with only the ")/" separator removed.
func Unsurt(key string) string {
	if ipv4Pattern.MatchString(key) {
		return strings.Replace(key, ")/", "/", 1)
	}

	host, path, found := strings.Cut(key, ")/")
	if !found {
		return key
	}

	var port string
	if i := strings.LastIndex(host, ":"); i >= 0 {
		port = host[i:]
		host = host[:i]
	}
	parts := strings.Split(host, ",")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}

	return strings.Join(parts, ".") + port + "/" + path
}
