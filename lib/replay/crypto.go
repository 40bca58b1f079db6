// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// Supported encryption_method values.
const (
	// MethodAESCTR is AES in counter mode. The recorded nonce is
	// zero-extended to the 16-byte initial counter block.
	MethodAESCTR = "aes-ctr"

	// MethodXChaCha20 is the XChaCha20 stream cipher with a 24-byte
	// nonce. A 12-byte nonce selects plain ChaCha20.
	MethodXChaCha20 = "xchacha20"
)

// deriveKey turns the key string recorded in capture metadata into
// cipher key material: padded to the cipher's block size (PKCS#7 for
// AES, zero-extension to 32 bytes for XChaCha20). Keys longer than
// the largest valid key size are rejected rather than truncated.
func deriveKey(method, keyString string) ([]byte, error) {
	raw := []byte(keyString)
	switch method {
	case MethodAESCTR:
		if len(raw) >= 32 {
			return nil, fmt.Errorf("replay: %s key is %d bytes, must be under 32", method, len(raw))
		}
		padding := aes.BlockSize - len(raw)%aes.BlockSize
		key := make([]byte, len(raw)+padding)
		copy(key, raw)
		for i := len(raw); i < len(key); i++ {
			key[i] = byte(padding)
		}
		return key, nil
	case MethodXChaCha20:
		if len(raw) > chacha20.KeySize {
			return nil, fmt.Errorf("replay: %s key is %d bytes, max %d", method, len(raw), chacha20.KeySize)
		}
		key := make([]byte, chacha20.KeySize)
		copy(key, raw)
		return key, nil
	default:
		return nil, fmt.Errorf("replay: unsupported encryption method %q", method)
	}
}

// decryptBlob base64-decodes one stored blob and decrypts it with the
// stream cipher selected by method.
func decryptBlob(method string, key, nonce, blob []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(blob))
	if err != nil {
		return nil, fmt.Errorf("replay: blob is not base64: %w", err)
	}

	var stream cipher.Stream
	switch method {
	case MethodAESCTR:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("replay: creating AES cipher: %w", err)
		}
		if len(nonce) > block.BlockSize() {
			return nil, fmt.Errorf("replay: nonce is %d bytes, max %d", len(nonce), block.BlockSize())
		}
		counter := make([]byte, block.BlockSize())
		copy(counter, nonce)
		stream = cipher.NewCTR(block, counter)
	case MethodXChaCha20:
		stream, err = chacha20.NewUnauthenticatedCipher(key, nonce)
		if err != nil {
			return nil, fmt.Errorf("replay: creating ChaCha20 cipher: %w", err)
		}
	default:
		return nil, fmt.Errorf("replay: unsupported encryption method %q", method)
	}

	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// EncryptBlob is the inverse of the decrypt path: it encrypts plain
// bytes and base64-encodes the result, producing a blob in the stored
// form. Used by tests and capture tooling.
func EncryptBlob(method, keyString string, nonce, plain []byte) ([]byte, error) {
	key, err := deriveKey(method, keyString)
	if err != nil {
		return nil, err
	}

	var stream cipher.Stream
	switch method {
	case MethodAESCTR:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("replay: creating AES cipher: %w", err)
		}
		counter := make([]byte, block.BlockSize())
		copy(counter, nonce)
		stream = cipher.NewCTR(block, counter)
	case MethodXChaCha20:
		stream, err = chacha20.NewUnauthenticatedCipher(key, nonce)
		if err != nil {
			return nil, fmt.Errorf("replay: creating ChaCha20 cipher: %w", err)
		}
	}

	ciphertext := make([]byte, len(plain))
	stream.XORKeyStream(ciphertext, plain)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}
