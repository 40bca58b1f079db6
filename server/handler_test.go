// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edverillo/ipwb/lib/config"
	"github.com/edverillo/ipwb/lib/memento"
	"github.com/edverillo/ipwb/lib/store"
)

const testIndexText = `!context ["https://oduwsdl.github.io/contexts/cdxj"]
!meta {"name": "test collection"}
com,example)/ 20190101000000 {"locator": "urn:ipfs/QmHeader/QmPayload", "mime_type": "text/plain", "status_code": "200"}
com,example)/about 20180101000000 {"locator": "urn:ipfs/QmHeader/QmPayload", "mime_type": "text/plain", "status_code": "200"}
com,example)/about 20190601000000 {"locator": "urn:ipfs/QmHeader/QmPayload", "mime_type": "text/plain", "status_code": "200"}
com,example)/about 20200101000000 {"locator": "urn:ipfs/QmHeader/QmPayload", "mime_type": "text/plain", "status_code": "200"}
org,archive)/ 20150101000000 {"locator": "urn:ipfs/QmHeader/QmPayload", "mime_type": "text/plain", "status_code": "200"}
`

// fakeStore serves blobs from a map; alive and failWith steer the
// failure paths.
type fakeStore struct {
	blobs    map[string][]byte
	failWith map[string]error
	alive    bool
}

func (s *fakeStore) Cat(ctx context.Context, hash string) ([]byte, error) {
	if err, ok := s.failWith[hash]; ok {
		return nil, err
	}
	blob, ok := s.blobs[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, hash)
	}
	return blob, nil
}

func (s *fakeStore) IsAlive(ctx context.Context) bool { return s.alive }

func healthyStore() *fakeStore {
	return &fakeStore{
		alive: true,
		blobs: map[string][]byte{
			"QmHeader":  []byte("HTTP/1.1 200 OK\r\nServer: Apache\r\nContent-Type: text/plain\r\n"),
			"QmPayload": []byte("archived body"),
		},
	}
}

func testServer(t *testing.T, st store.Client) *Server {
	t.Helper()

	indexPath := filepath.Join(t.TempDir(), "test.cdxj")
	if err := os.WriteFile(indexPath, []byte(testIndexText), 0644); err != nil {
		t.Fatalf("writing index: %v", err)
	}

	cfg := config.Default()
	cfg.Index.Location = indexPath

	return New(Config{
		Replay: cfg,
		Store:  st,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func get(t *testing.T, handler http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("GET", target, nil)
	for name, values := range header {
		for _, value := range values {
			r.Header.Add(name, value)
		}
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestMementoInexactRedirects(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/memento/20200101000000/example.com/", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body: %s", w.Code, w.Body)
	}
	if got := w.Header().Get("Location"); got != "/memento/20190101000000/example.com/" {
		t.Errorf("Location = %q", got)
	}
	if w.Header().Get("Link") == "" {
		t.Error("no Link header on redirect")
	}
}

func TestMementoExactServes(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/memento/20190101000000/example.com/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body)
	}
	if got := w.Body.String(); got != "archived body" {
		t.Errorf("body = %q", got)
	}
	if got := w.Header().Get("Memento-Datetime"); got != "Tue, 01 Jan 2019 00:00:00 GMT" {
		t.Errorf("Memento-Datetime = %q", got)
	}
	if got := w.Header().Get("X-Archive-Orig-Server"); got != "Apache" {
		t.Errorf("X-Archive-Orig-Server = %q", got)
	}
	if got := w.Header().Get("Server"); !strings.HasPrefix(got, "InterPlanetary Wayback Replay/") {
		t.Errorf("Server = %q", got)
	}

	link := w.Header().Get("Link")
	if link == "" {
		t.Fatal("no Link header")
	}
	if strings.Contains(link, `rel="self timemap"`) {
		t.Error("Link header kept the self timemap relation")
	}
	if !strings.Contains(link, `rel="first last memento"`) {
		t.Errorf("Link header = %q", link)
	}
}

func TestMementoShortDatetimePads(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	// 2020 pads to 20200101000000, inexact against the sole 2019
	// capture.
	w := get(t, handler, "/memento/2020/example.com/", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/memento/20190101000000/example.com/" {
		t.Errorf("Location = %q", got)
	}
}

func TestMementoMalformedDatetime(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	for _, datetime := range []string{"20xx", "123", "20190101000000123"} {
		w := get(t, handler, "/memento/"+datetime+"/example.com/", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("datetime %q: status = %d, want 400", datetime, w.Code)
		}
	}
}

func TestMementoNotFound(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/memento/20190101000000/unknown.example/", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "not in the archive") {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(body, "/timemap/link/") || !strings.Contains(body, "/timemap/cdxj/") {
		t.Error("not-found page is missing the timemap links")
	}

	// Even a miss carries the abbreviated TimeMap header, with the
	// self-reference demoted and no memento entries to list.
	link := w.Header().Get("Link")
	if link == "" {
		t.Fatal("not-found response has no Link header")
	}
	for _, rel := range []string{`rel="original"`, `rel="timemap"`, `rel="timegate"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("Link header %q is missing %s", link, rel)
		}
	}
	if strings.Contains(link, `rel="self timemap"`) {
		t.Errorf("Link header %q kept the self timemap relation", link)
	}
	if strings.Contains(link, `memento"`) {
		t.Errorf("Link header %q lists mementos for a URI with no captures", link)
	}
	if !strings.Contains(link, "/timemap/link/unknown.example/") ||
		!strings.Contains(link, "/timegate/unknown.example/") {
		t.Errorf("Link header %q does not reference the queried URI-R", link)
	}
}

func TestMementoFetchTimeout(t *testing.T) {
	st := healthyStore()
	st.failWith = map[string]error{
		"QmPayload": fmt.Errorf("%w: test", store.ErrTimeout),
	}
	handler := testServer(t, st).Handler()

	w := get(t, handler, "/memento/20190101000000/example.com/", nil)
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
}

func TestMementoFetchUnavailable(t *testing.T) {
	st := healthyStore()
	delete(st.blobs, "QmPayload")
	handler := testServer(t, st).Handler()

	w := get(t, handler, "/memento/20190101000000/example.com/", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestBackendUnavailable(t *testing.T) {
	st := healthyStore()
	st.alive = false
	handler := testServer(t, st).Handler()

	for _, target := range []string{
		"/memento/20190101000000/example.com/",
		"/timegate/example.com/",
		"/timemap/link/example.com/",
	} {
		w := get(t, handler, target, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", target, w.Code)
		}
	}
}

func TestCapturesListing(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/memento/*/example.com/about", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body)
	}
	body := w.Body.String()
	if !strings.Contains(body, "3 captures") {
		t.Errorf("body = %q", body)
	}
	for _, timestamp := range []string{"20180101000000", "20190601000000", "20200101000000"} {
		if !strings.Contains(body, "/memento/"+timestamp+"/example.com/about") {
			t.Errorf("listing is missing timestamp %s", timestamp)
		}
	}
}

func TestCapturesSoleRedirects(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/memento/*/archive.org/", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/memento/20150101000000/archive.org/" {
		t.Errorf("Location = %q", got)
	}
}

func TestCapturesQueryForm(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/memento/*/?url=example.com/about", nil)
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/memento/*/example.com/about" {
		t.Errorf("Location = %q", got)
	}

	w = get(t, handler, "/memento/*/", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d, want 400", w.Code)
	}
}

func TestTimegate(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	header := http.Header{}
	header.Set("Accept-Datetime", "Wed, 01 Jan 2020 00:00:00 GMT")
	w := get(t, handler, "/timegate/example.com/about", header)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body: %s", w.Code, w.Body)
	}
	if got := w.Header().Get("Location"); got != "/memento/20200101000000/example.com/about" {
		t.Errorf("Location = %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Accept-Datetime" {
		t.Errorf("Vary = %q", got)
	}
	if w.Header().Get("Link") == "" {
		t.Error("no Link header")
	}
}

func TestTimegateDefaultsToNow(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/timegate/example.com/about", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	// Now is later than every capture, so the newest wins.
	if got := w.Header().Get("Location"); got != "/memento/20200101000000/example.com/about" {
		t.Errorf("Location = %q", got)
	}
}

func TestTimegateMalformedAcceptDatetime(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	header := http.Header{}
	header.Set("Accept-Datetime", "not a date")
	w := get(t, handler, "/timegate/example.com/about", header)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTimemapFormats(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/timemap/link/example.com/about", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("link: status = %d; body: %s", w.Code, w.Body)
	}
	if got := w.Header().Get("Content-Type"); got != memento.ContentTypeLink {
		t.Errorf("link Content-Type = %q", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, `rel="original"`) || !strings.Contains(body, `rel="self timemap"`) {
		t.Errorf("link timemap = %q", body)
	}
	if !strings.Contains(body, `rel="first memento"`) || !strings.Contains(body, `rel="last memento"`) {
		t.Errorf("link timemap relation marking: %q", body)
	}

	w = get(t, handler, "/timemap/cdxj/example.com/about", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cdxj: status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != memento.ContentTypeCDXJ {
		t.Errorf("cdxj Content-Type = %q", got)
	}
	if !strings.HasPrefix(w.Body.String(), "!context") {
		t.Errorf("cdxj timemap = %q", w.Body)
	}
}

func TestTimemapUnknownFormat(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/timemap/rdf/example.com/about", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTimemapUnknownURI(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/timemap/link/unknown.example/", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHealth(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	w := get(t, handler, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body)
	}

	var response healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if !response.DaemonAlive {
		t.Error("daemon_alive = false")
	}
	if response.Index == nil || response.Index.MementoCount != 5 {
		t.Errorf("index summary = %+v", response.Index)
	}
}

func TestHealthDaemonDown(t *testing.T) {
	st := healthyStore()
	st.alive = false
	handler := testServer(t, st).Handler()

	w := get(t, handler, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := testServer(t, healthyStore()).Handler()

	// Drive one replay request so the counters have samples.
	get(t, handler, "/memento/20190101000000/example.com/", nil)

	w := get(t, handler, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "ipwb_replay_requests_total") {
		t.Error("metrics are missing the request counter")
	}
	if !strings.Contains(body, "ipwb_replay_store_fetch_seconds") {
		t.Error("metrics are missing the fetch histogram")
	}
}

func TestRepairScheme(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http:/example.com/", "http://example.com/"},
		{"https:/example.com/x", "https://example.com/x"},
		{"http://example.com/", "http://example.com/"},
		{"example.com/", "example.com/"},
	}
	for _, test := range tests {
		if got := repairScheme(test.in); got != test.want {
			t.Errorf("repairScheme(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
