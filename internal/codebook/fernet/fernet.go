// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fernet implements the Fernet symmetric token format: version
// byte 0x80, big-endian creation time, AES-128-CBC with PKCS7 padding, and
// an HMAC-SHA256 trailer, all urlsafe-base64 encoded. Codebook files written
// by earlier releases of this tool use these tokens, so the format is fixed.
package fernet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version = 0x80

	// KeySize is the raw key length: 16 signing bytes + 16 encryption bytes.
	KeySize = 32

	headerSize  = 1 + 8 + aes.BlockSize // version + timestamp + IV
	trailerSize = sha256.Size
	// A well-formed token carries at least one ciphertext block.
	minTokenSize = headerSize + aes.BlockSize + trailerSize
)

// ErrInvalidToken covers every decryption failure: wrong key, tampered
// payload, or malformed encoding. Callers get no finer-grained detail,
// which keeps padding and MAC failures indistinguishable.
var ErrInvalidToken = errors.New("invalid fernet token")

// Key is a raw 32-byte Fernet key. The first half signs, the second half
// encrypts.
type Key [KeySize]byte

// NewKey returns a key built from raw bytes.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, errors.New("fernet key must be 32 bytes")
	}
	var k Key
	copy(k[:], raw)
	return &k, nil
}

func (k *Key) signingKey() []byte    { return k[:16] }
func (k *Key) encryptionKey() []byte { return k[16:] }

// Encrypt produces a token for the plaintext, stamped with the current time.
func (k *Key) Encrypt(plaintext []byte) ([]byte, error) {
	return k.encryptAt(plaintext, time.Now())
}

func (k *Key) encryptAt(plaintext []byte, now time.Time) ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(k.encryptionKey())
	if err != nil {
		return nil, err
	}

	padded := pad(plaintext)
	token := make([]byte, headerSize+len(padded)+trailerSize)
	token[0] = version
	binary.BigEndian.PutUint64(token[1:9], uint64(now.Unix()))
	copy(token[9:headerSize], iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(token[headerSize:headerSize+len(padded)], padded)

	mac := hmac.New(sha256.New, k.signingKey())
	mac.Write(token[:headerSize+len(padded)])
	mac.Sum(token[headerSize+len(padded):headerSize+len(padded)])

	out := make([]byte, base64.URLEncoding.EncodedLen(len(token)))
	base64.URLEncoding.Encode(out, token)
	return out, nil
}

// Decrypt verifies and opens a token. The creation timestamp is not
// enforced: codebooks stay valid indefinitely.
func (k *Key) Decrypt(token []byte) ([]byte, error) {
	raw := make([]byte, base64.URLEncoding.DecodedLen(len(token)))
	n, err := base64.URLEncoding.Decode(raw, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	raw = raw[:n]

	if len(raw) < minTokenSize || raw[0] != version {
		return nil, ErrInvalidToken
	}
	body, trailer := raw[:len(raw)-trailerSize], raw[len(raw)-trailerSize:]

	mac := hmac.New(sha256.New, k.signingKey())
	mac.Write(body)
	if subtle.ConstantTimeCompare(mac.Sum(nil), trailer) != 1 {
		return nil, ErrInvalidToken
	}

	ciphertext := body[headerSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidToken
	}

	block, err := aes.NewCipher(k.encryptionKey())
	if err != nil {
		return nil, ErrInvalidToken
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, body[9:headerSize]).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext)
}

// pad applies PKCS7 padding to a full AES block multiple.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidToken
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrInvalidToken
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrInvalidToken
		}
	}
	return b[:len(b)-n], nil
}
