// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/edverillo/ipwb/lib/cdxj"
	"github.com/edverillo/ipwb/lib/store"
)

// Reconstruction failures, matched with errors.Is at the request
// boundary.
var (
	// ErrContentTimeout means a blob fetch exceeded the store's
	// bounded deadline after resolution had already succeeded.
	ErrContentTimeout = errors.New("replay: content fetch timed out")

	// ErrContentUnavailable means the index pointed at a blob the
	// store could not produce, for any reason other than a timeout.
	ErrContentUnavailable = errors.New("replay: content unavailable")

	// ErrMissingDecryptionKey means an encrypted record carries no
	// usable key. Fatal for the one request; the key must come from
	// record metadata, never interactive input.
	ErrMissingDecryptionKey = errors.New("replay: encrypted record has no decryption key")
)

// OrigHeaderPrefix is prepended to replayed original header names so
// they never collide with the replay server's own headers.
const OrigHeaderPrefix = "X-Archive-Orig-"

// SyntheticHeaderMarker is the value of the X-Headers-Generated-By
// header on responses whose header blob could not be retrieved.
const SyntheticHeaderMarker = "InterPlanetary Wayback"

// scriptInjection is appended before the closing document tag of
// HTML captures so the service worker can rewrite in-page links.
const scriptInjection = `<script src="/ipwbassets/webui.js"></script><script>injectIPWBJS()</script>`

// passthroughHeaders are the original header names served unprefixed;
// everything else gains OrigHeaderPrefix.
var passthroughHeaders = map[string]bool{
	"content-type":     true,
	"content-encoding": true,
	"location":         true,
}

var (
	timestampSegment = regexp.MustCompile(`/\d{14}/`)
	absoluteHTTP     = regexp.MustCompile(`(?i)^https?://`)
	chunkedToken     = regexp.MustCompile(`(?i)\bchunked\b`)
)

// Result is a reconstructed, replayable HTTP response.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// HeaderSynthesized records the degraded-success case where only
	// the payload blob resolved and the header set was fabricated.
	HeaderSynthesized bool
}

// Reconstructor rebuilds archived HTTP responses from content-store
// blobs.
type Reconstructor struct {
	store  store.Client
	logger *slog.Logger
}

// NewReconstructor creates a Reconstructor fetching through st.
func NewReconstructor(st store.Client, logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{store: st, logger: logger}
}

// SplitLocator parses a record locator into its header and payload
// content hashes: the last two segments of the path-like reference.
func SplitLocator(locator string) (headerHash, payloadHash string, err error) {
	segments := strings.Split(locator, "/")
	if len(segments) < 2 {
		return "", "", fmt.Errorf("replay: locator %q does not hold two hashes", locator)
	}
	headerHash = segments[len(segments)-2]
	payloadHash = segments[len(segments)-1]
	if headerHash == "" || payloadHash == "" {
		return "", "", fmt.Errorf("replay: locator %q has an empty hash segment", locator)
	}
	return headerHash, payloadHash, nil
}

// Reconstruct rebuilds the response for record. requestURL is the
// URI-M being served; redirect targets are rewritten relative to its
// prefix up through the 14-digit timestamp segment.
func (r *Reconstructor) Reconstruct(ctx context.Context, record *cdxj.Record, requestURL string) (*Result, error) {
	headerHash, payloadHash, err := SplitLocator(record.Metadata.Locator)
	if err != nil {
		return nil, err
	}

	payload, err := r.store.Cat(ctx, payloadHash)
	if err != nil {
		return nil, classifyFetchError(err, payloadHash)
	}

	headerBlob, err := r.store.Cat(ctx, headerHash)
	synthesized := false
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, classifyFetchError(err, headerHash)
		}
		// Payload resolved but the header blob is gone: fabricate an
		// empty header set and mark the response.
		r.logger.Warn("header blob not found, synthesizing headers",
			"key", record.Key, "hash", headerHash)
		synthesized = true
		headerBlob = nil
	}

	if method := record.Metadata.EncryptionMethod; method != "" {
		headerBlob, payload, err = r.decrypt(record, headerBlob, payload, synthesized)
		if err != nil {
			return nil, err
		}
	}

	result := &Result{
		StatusCode:        statusFrom(record),
		Header:            http.Header{},
		Body:              payload,
		HeaderSynthesized: synthesized,
	}

	for _, line := range headerLines(headerBlob) {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		lower := strings.ToLower(name)

		if lower == "transfer-encoding" && chunkedToken.MatchString(value) {
			decoded, err := DecodeChunked(result.Body)
			if err != nil {
				// Header/payload chunkedness can disagree in old
				// captures; serve the payload as stored.
				r.logger.Debug("chunk decode failed, serving raw payload",
					"key", record.Key, "error", err)
			} else {
				result.Body = decoded
			}
		}

		if !passthroughHeaders[lower] {
			name = OrigHeaderPrefix + name
		}
		result.Header.Add(name, value)
	}

	if result.StatusCode/100 == 3 {
		rewriteRedirect(result, requestURL)
	}

	if strings.Contains(strings.ToLower(record.Metadata.MimeType), "text/html") {
		result.Body = injectScript(result.Body)
	}

	httpDate, err := cdxj.ToHTTPDate(record.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("replay: record timestamp: %w", err)
	}
	result.Header.Set("Memento-Datetime", httpDate)
	if synthesized {
		result.Header.Set("X-Headers-Generated-By", SyntheticHeaderMarker)
	}

	digest := blake3.Sum256(result.Body)
	result.Header.Set("ETag", `"`+hex.EncodeToString(digest[:16])+`"`)

	return result, nil
}

// decrypt handles the optional symmetric encryption of both blobs.
func (r *Reconstructor) decrypt(record *cdxj.Record, headerBlob, payload []byte, synthesized bool) ([]byte, []byte, error) {
	meta := record.Metadata
	if meta.EncryptionKey == "" {
		return nil, nil, fmt.Errorf("%w: %s@%s", ErrMissingDecryptionKey, record.Key, record.Timestamp)
	}
	key, err := deriveKey(meta.EncryptionMethod, meta.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := base64.StdEncoding.DecodeString(meta.EncryptionNonce)
	if err != nil {
		return nil, nil, fmt.Errorf("replay: encryption nonce is not base64: %w", err)
	}

	payload, err = decryptBlob(meta.EncryptionMethod, key, nonce, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("replay: decrypting payload: %w", err)
	}
	if !synthesized {
		headerBlob, err = decryptBlob(meta.EncryptionMethod, key, nonce, headerBlob)
		if err != nil {
			return nil, nil, fmt.Errorf("replay: decrypting header block: %w", err)
		}
	}
	return headerBlob, payload, nil
}

// headerLines normalizes a recorded header block into "Name: Value"
// lines: carriage returns dropped, continuation lines unfolded, and
// the leading status line discarded.
func headerLines(blob []byte) []string {
	if len(blob) == 0 {
		return nil
	}
	text := string(blob)
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n\t", "\t")
	text = strings.ReplaceAll(text, "\n ", " ")
	lines := strings.Split(text, "\n")
	return lines[1:]
}

// statusFrom reads the recorded status code, defaulting to 200.
func statusFrom(record *cdxj.Record) int {
	if code, err := strconv.Atoi(record.Metadata.StatusCode); err == nil && code > 0 {
		return code
	}
	return http.StatusOK
}

// rewriteRedirect makes an absolute redirect target relative to the
// replay namespace: the request URL up through its /<timestamp>/
// segment, with the original absolute target appended. Following the
// rewritten Location stays inside the replay system.
func rewriteRedirect(result *Result, requestURL string) {
	location := result.Header.Get("Location")
	if location == "" || !absoluteHTTP.MatchString(location) {
		return
	}
	segment := timestampSegment.FindStringIndex(requestURL)
	if segment == nil {
		return
	}
	result.Header.Set("Location", requestURL[:segment[1]]+location)
}

// injectScript inserts the replay script reference before the final
// closing html tag. Bodies without one are served untouched.
func injectScript(body []byte) []byte {
	text := string(body)
	at := strings.LastIndex(strings.ToLower(text), "</html>")
	if at < 0 {
		return body
	}
	return []byte(text[:at] + scriptInjection + text[at:])
}

// classifyFetchError maps store errors onto the reconstruction
// failure taxonomy.
func classifyFetchError(err error, hash string) error {
	if errors.Is(err, store.ErrTimeout) {
		return fmt.Errorf("%w: %s: %v", ErrContentTimeout, hash, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrContentUnavailable, hash, err)
}
