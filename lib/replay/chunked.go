// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DecodeChunked decodes an HTTP chunked transfer encoded payload:
// repeatedly a hex chunk-size line (any ";"-delimited chunk
// extensions ignored), exactly that many data bytes, and a line
// terminator, until a chunk size of zero. Trailer lines after the
// terminal chunk are ignored.
//
// A structurally invalid stream returns an error and no data; the
// caller keeps the original payload in that case.
func DecodeChunked(data []byte) ([]byte, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	var decoded bytes.Buffer

	for {
		sizeLine, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && sizeLine != "") {
			return nil, fmt.Errorf("replay: reading chunk size: %w", err)
		}
		sizeField, _, _ := strings.Cut(sizeLine, ";")
		sizeField = strings.TrimSpace(sizeField)
		if sizeField == "" {
			return nil, errors.New("replay: empty chunk size line")
		}

		size, err := strconv.ParseUint(sizeField, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("replay: chunk size %q is not hex: %w", sizeField, err)
		}
		if size == 0 {
			return decoded.Bytes(), nil
		}
		// A chunk cannot be longer than the whole undecoded
		// payload; reject before allocating the chunk buffer.
		if size > uint64(len(data)) {
			return nil, fmt.Errorf("replay: chunk size %d exceeds payload length %d",
				size, len(data))
		}

		chunk := make([]byte, size)
		if _, err := io.ReadFull(reader, chunk); err != nil {
			return nil, fmt.Errorf("replay: chunk data truncated: %w", err)
		}
		decoded.Write(chunk)

		// Consume the terminator between chunk data and the next
		// size line.
		if _, err := reader.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("replay: missing chunk terminator: %w", err)
		}
	}
}

// EncodeChunked encodes data as a chunked transfer stream with the
// given chunk size, terminated by a zero-size chunk. Used by the
// round-trip tests and by tooling that fabricates captures.
func EncodeChunked(data []byte, chunkSize int) []byte {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	var encoded bytes.Buffer
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		fmt.Fprintf(&encoded, "%x\r\n", n)
		encoded.Write(data[:n])
		encoded.WriteString("\r\n")
		data = data[n:]
	}
	encoded.WriteString("0\r\n\r\n")
	return encoded.Bytes()
}
