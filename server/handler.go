// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/edverillo/ipwb/lib/cdxj"
	"github.com/edverillo/ipwb/lib/index"
	"github.com/edverillo/ipwb/lib/memento"
	"github.com/edverillo/ipwb/lib/replay"
)

// maxAlternateCaptures bounds the related-capture listing on the
// not-found page.
const maxAlternateCaptures = 10

// repairScheme undoes the path cleaning the mux applies to embedded
// absolute URIs: "http://host" arrives as "http:/host".
func repairScheme(urir string) string {
	for _, scheme := range []string{"http", "https"} {
		prefix := scheme + ":/"
		if strings.HasPrefix(urir, prefix) && !strings.HasPrefix(urir, prefix+"/") {
			return scheme + "://" + urir[len(prefix):]
		}
	}
	return urir
}

// targetURI folds the request's query string back into the URI-R so
// captures of query-bearing URIs resolve.
func targetURI(urir string, r *http.Request) string {
	if r.URL.RawQuery != "" {
		return urir + "?" + r.URL.RawQuery
	}
	return urir
}

// baseURL reconstructs the externally visible scheme://host prefix
// of the request.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// linkHeader builds the abbreviated TimeMap Link header for a
// resolved memento. A URI-R with no captures still gets the header,
// carrying only the original/timemap/timegate relations.
func (s *Server) linkHeader(r *http.Request, ix *index.Index, urir, pivot string) string {
	key := cdxj.Surt(urir)
	lines := index.AllForKey(ix, key)
	base := baseURL(r)
	header, err := memento.AbbreviatedLinkHeader(lines, key,
		base+"/timemap/link/"+urir,
		base+"/timegate/"+urir,
		s.config.Replay.Proxy, pivot)
	if err != nil {
		s.logger.Warn("building link header", "urir", urir, "error", err)
		return ""
	}
	return header
}

// backendUnavailable writes the 503 for an unreachable store
// daemon. Checked before any resolution work.
func (s *Server) backendUnavailable(w http.ResponseWriter) {
	s.logger.Error("content store daemon unreachable",
		"endpoint", s.config.Store.Endpoint)
	http.Error(w, fmt.Sprintf(
		"the content store daemon at %s is not responding; start it and retry",
		s.config.Store.Endpoint), http.StatusServiceUnavailable)
}

// handleMemento serves GET /memento/{datetime}/{urir...}: resolve
// the capture closest to datetime, redirect to its canonical URI-M
// when inexact, reconstruct and serve when exact.
func (s *Server) handleMemento(w http.ResponseWriter, r *http.Request) {
	if !s.store.IsAlive(r.Context()) {
		s.backendUnavailable(w)
		return
	}

	urir := repairScheme(r.PathValue("urir"))
	if urir == "" {
		http.Error(w, "no target URI given", http.StatusBadRequest)
		return
	}
	urir = targetURI(urir, r)

	target, err := cdxj.PadTimestamp(r.PathValue("datetime"))
	if err != nil {
		http.Error(w, fmt.Sprintf("malformed datetime %q: expected 4 to 14 digits",
			r.PathValue("datetime")), http.StatusBadRequest)
		return
	}

	ix, err := s.loadIndex(r.Context())
	if err != nil {
		s.logger.Error("loading index", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resolved, err := memento.Resolve(ix, urir, target)
	if errors.Is(err, memento.ErrNoCaptures) {
		s.metrics.countResolution("miss")
		s.notFoundPage(w, r, ix, urir)
		return
	}
	if err != nil {
		s.logger.Error("resolving memento", "urir", urir, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if link := s.linkHeader(r, ix, urir, resolved.Record.Timestamp); link != "" {
		w.Header().Set("Link", link)
	}

	if !resolved.Exact {
		s.metrics.countResolution("redirect")
		http.Redirect(w, r, "/memento/"+resolved.Record.Timestamp+"/"+urir,
			http.StatusFound)
		return
	}
	s.metrics.countResolution("exact")

	result, err := s.recon.Reconstruct(r.Context(), resolved.Record,
		baseURL(r)+r.URL.Path)
	switch {
	case errors.Is(err, replay.ErrContentTimeout):
		http.Error(w, "content store fetch timed out", http.StatusGatewayTimeout)
		return
	case errors.Is(err, replay.ErrMissingDecryptionKey):
		http.Error(w, "capture is encrypted and carries no decryption key",
			http.StatusInternalServerError)
		return
	case err != nil:
		s.logger.Error("reconstructing response", "urir", urir, "error", err)
		http.Error(w, "archived content could not be retrieved", http.StatusBadGateway)
		return
	}

	for name, values := range result.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(result.StatusCode)
	w.Write(result.Body)
}

// handleCaptures serves GET /memento/*/{urir...}: every capture of
// the URI-R. A sole capture redirects straight to its URI-M.
func (s *Server) handleCaptures(w http.ResponseWriter, r *http.Request) {
	if !s.store.IsAlive(r.Context()) {
		s.backendUnavailable(w)
		return
	}

	urir := targetURI(repairScheme(r.PathValue("urir")), r)
	ix, err := s.loadIndex(r.Context())
	if err != nil {
		s.logger.Error("loading index", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	lines := index.AllForKey(ix, cdxj.Surt(urir))
	if len(lines) == 0 {
		s.notFoundPage(w, r, ix, urir)
		return
	}

	if len(lines) == 1 {
		record, err := cdxj.ParseLine(lines[0])
		if err != nil {
			s.logger.Error("parsing index line", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/memento/"+record.Timestamp+"/"+urir, http.StatusFound)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>Captures of %s</title></head><body>\n",
		html.EscapeString(urir))
	fmt.Fprintf(&b, "<h1>%d captures of %s</h1>\n<ul>\n",
		len(lines), html.EscapeString(urir))
	for _, line := range lines {
		record, err := cdxj.ParseLine(line)
		if err != nil {
			continue
		}
		httpDate, err := cdxj.ToHTTPDate(record.Timestamp)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "<li><a href=\"/memento/%s/%s\">%s</a></li>\n",
			record.Timestamp, html.EscapeString(urir), httpDate)
	}
	b.WriteString("</ul>\n")
	s.writeTimemapFooter(&b, urir)
	b.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(b.String()))
}

// handleCaptureQuery serves GET /memento/*/?url=...: the query form
// of the captures listing, redirected to the canonical path form.
func (s *Server) handleCaptureQuery(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "no URL given: use /memento/*/?url=<uri>",
			http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/memento/*/"+target, http.StatusMovedPermanently)
}

// handleTimegate serves GET /timegate/{urir...}: datetime
// negotiation per the Accept-Datetime request header, defaulting to
// now. Always answers with a redirect to the chosen URI-M.
func (s *Server) handleTimegate(w http.ResponseWriter, r *http.Request) {
	if !s.store.IsAlive(r.Context()) {
		s.backendUnavailable(w)
		return
	}

	urir := targetURI(repairScheme(r.PathValue("urir")), r)

	target := cdxj.NowTimestamp()
	if accept := r.Header.Get("Accept-Datetime"); accept != "" {
		var err error
		target, err = cdxj.FromHTTPDate(accept)
		if err != nil {
			http.Error(w, fmt.Sprintf("malformed Accept-Datetime %q: expected an RFC 1123 date", accept),
				http.StatusBadRequest)
			return
		}
	}

	ix, err := s.loadIndex(r.Context())
	if err != nil {
		s.logger.Error("loading index", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resolved, err := memento.Resolve(ix, urir, target)
	if errors.Is(err, memento.ErrNoCaptures) {
		s.metrics.countResolution("miss")
		s.notFoundPage(w, r, ix, urir)
		return
	}
	if err != nil {
		s.logger.Error("resolving memento", "urir", urir, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.metrics.countResolution("redirect")

	w.Header().Set("Vary", "Accept-Datetime")
	if link := s.linkHeader(r, ix, urir, resolved.Record.Timestamp); link != "" {
		w.Header().Set("Link", link)
	}
	http.Redirect(w, r, "/memento/"+resolved.Record.Timestamp+"/"+urir,
		http.StatusFound)
}

// handleTimemap serves GET /timemap/{format}/{urir...} in the link
// or cdxj wire format.
func (s *Server) handleTimemap(w http.ResponseWriter, r *http.Request) {
	if !s.store.IsAlive(r.Context()) {
		s.backendUnavailable(w)
		return
	}

	format := r.PathValue("format")
	if format != memento.FormatLink && format != memento.FormatCDXJ {
		http.NotFound(w, r)
		return
	}

	urir := targetURI(repairScheme(r.PathValue("urir")), r)
	ix, err := s.loadIndex(r.Context())
	if err != nil {
		s.logger.Error("loading index", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	key := cdxj.Surt(urir)
	lines := index.AllForKey(ix, key)
	if len(lines) == 0 {
		http.Error(w, fmt.Sprintf("no captures of %s", urir), http.StatusNotFound)
		return
	}

	base := baseURL(r)
	selfURI := base + "/timemap/" + format + "/" + urir
	timegateURI := base + "/timegate/" + urir

	var body, contentType string
	switch format {
	case memento.FormatLink:
		contentType = memento.ContentTypeLink
		body, err = memento.BuildLink(lines, key, selfURI, timegateURI, s.config.Replay.Proxy)
	case memento.FormatCDXJ:
		contentType = memento.ContentTypeCDXJ
		body, err = memento.BuildCDXJ(lines, key, selfURI, timegateURI, s.config.Replay.Proxy)
	}
	if err != nil {
		s.logger.Error("building timemap", "urir", urir, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write([]byte(body))
}

// healthResponse is the /health JSON body.
type healthResponse struct {
	DaemonAlive bool           `json:"daemon_alive"`
	Index       *index.Summary `json:"index,omitempty"`
	IndexError  string         `json:"index_error,omitempty"`
}

// handleHealth reports daemon liveness and an index summary.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		DaemonAlive: s.store.IsAlive(r.Context()),
	}

	ix, err := s.loadIndex(r.Context())
	if err != nil {
		response.IndexError = err.Error()
	} else {
		summary := index.Summarize(ix)
		response.Index = &summary
	}

	w.Header().Set("Content-Type", "application/json")
	if !response.DaemonAlive {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

// notFoundPage writes the 404 for a URI-R with no captures: any
// related captures sharing the key prefix, plus TimeMap links so
// archive-aware clients can keep navigating.
func (s *Server) notFoundPage(w http.ResponseWriter, r *http.Request, ix *index.Index, urir string) {
	key := cdxj.Surt(urir)

	// Related keys: bounded prefix scan. 404s are rare enough that
	// a linear pass over the data lines is acceptable.
	var alternates []*cdxj.Record
	for _, line := range ix.Lines {
		if len(alternates) == maxAlternateCaptures {
			break
		}
		record, err := cdxj.ParseLine(line)
		if err != nil {
			continue
		}
		if strings.HasPrefix(record.Key, key) {
			alternates = append(alternates, record)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>Not in archive</title></head><body>\n")
	fmt.Fprintf(&b, "<h1>%s is not in the archive</h1>\n", html.EscapeString(urir))
	if len(alternates) > 0 {
		b.WriteString("<p>Related captures:</p>\n<ul>\n")
		for _, record := range alternates {
			uri := record.URI()
			fmt.Fprintf(&b, "<li><a href=\"/memento/%s/%s\">%s at %s</a></li>\n",
				record.Timestamp, html.EscapeString(uri),
				html.EscapeString(uri), record.Timestamp)
		}
		b.WriteString("</ul>\n")
	}
	s.writeTimemapFooter(&b, urir)
	b.WriteString("</body></html>\n")

	if link := s.linkHeader(r, ix, urir, ""); link != "" {
		w.Header().Set("Link", link)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(b.String()))
}

// writeTimemapFooter appends the TimeMap cross-references shared by
// the listing and not-found pages.
func (s *Server) writeTimemapFooter(b *strings.Builder, urir string) {
	fmt.Fprintf(b, "<p>TimeMap: <a href=\"/timemap/link/%s\">link</a> | <a href=\"/timemap/cdxj/%s\">cdxj</a></p>\n",
		html.EscapeString(urir), html.EscapeString(urir))
}
