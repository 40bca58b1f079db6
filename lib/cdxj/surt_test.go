// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package cdxj

import "testing"

func TestSurt(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"http://example.com/", "com,example)/"},
		{"http://example.com", "com,example)/"},
		{"https://www.Example.com/a/b", "com,example,www)/a/b"},
		{"http://sub.example.com/path/", "com,example,sub)/path/"},
		{"http://example.com/page?q=1&r=2", "com,example)/page?q=1&r=2"},
		{"http://example.com?q=1", "com,example)/?q=1"},
		{"http://example.com:8080/x", "com,example:8080)/x"},
		{"example.com/x", "com,example)/x"},
		{"//example.com/x", "com,example)/x"},
		{"http://10.0.0.1/x", "10.0.0.1)/x"},
	}
	for _, test := range tests {
		if got := Surt(test.uri); got != test.want {
			t.Errorf("Surt(%q) = %q, want %q", test.uri, got, test.want)
		}
	}
}

func TestUnsurt(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"com,example)/", "example.com/"},
		{"com,example,www)/a/b", "www.example.com/a/b"},
		{"com,example:8080)/x", "example.com:8080/x"},
		{"com,example)/page?q=1", "example.com/page?q=1"},
		{"10.0.0.1)/x", "10.0.0.1/x"},
	}
	for _, test := range tests {
		if got := Unsurt(test.key); got != test.want {
			t.Errorf("Unsurt(%q) = %q, want %q", test.key, got, test.want)
		}
	}
}

func TestSurtUnsurtRoundTrip(t *testing.T) {
	uris := []string{
		"example.com/",
		"www.example.com/a/b",
		"example.com:8080/x",
		"sub.deep.example.org/path/?q=1",
	}
	for _, uri := range uris {
		if got := Unsurt(Surt("http://" + uri)); got != uri {
			t.Errorf("Unsurt(Surt(%q)) = %q", uri, got)
		}
	}
}
