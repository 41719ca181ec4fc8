// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fernet

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func testKey(t *testing.T) *Key {
	t.Helper()
	raw := make([]byte, KeySize)
	for i := range raw {
		raw[i] = byte(i)
	}
	k, err := NewKey(raw)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func TestNewKey_WrongSize(t *testing.T) {
	if _, err := NewKey(make([]byte, 16)); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestRoundTrip(t *testing.T) {
	k := testKey(t)
	for _, plaintext := range [][]byte{
		[]byte("hello"),
		[]byte(""),
		[]byte(`{"students":{"STU_00042":"alice@example.edu"}}`),
		bytes.Repeat([]byte("x"), 1<<16),
	} {
		token, err := k.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := k.Decrypt(token)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(plaintext))
		}
	}
}

func TestTokenStructure(t *testing.T) {
	k := testKey(t)
	at := time.Unix(1735689600, 0) // 2025-01-01 00:00:00 UTC
	token, err := k.encryptAt([]byte("payload"), at)
	if err != nil {
		t.Fatalf("encryptAt: %v", err)
	}

	raw, err := base64.URLEncoding.DecodeString(string(token))
	if err != nil {
		t.Fatalf("token is not urlsafe base64: %v", err)
	}
	if raw[0] != 0x80 {
		t.Errorf("version byte = %#x, want 0x80", raw[0])
	}
	if len(raw) < minTokenSize {
		t.Errorf("token too short: %d bytes", len(raw))
	}

	// The trailer must be HMAC-SHA256 over everything before it, keyed
	// with the first half of the key.
	mac := hmac.New(sha256.New, k[:16])
	mac.Write(raw[:len(raw)-sha256.Size])
	if !hmac.Equal(mac.Sum(nil), raw[len(raw)-sha256.Size:]) {
		t.Errorf("trailer is not a valid HMAC over the token body")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	k := testKey(t)
	token, err := k.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	other, _ := NewKey(bytes.Repeat([]byte{0xAB}, KeySize))
	if _, err := other.Decrypt(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key: err = %v, want ErrInvalidToken", err)
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	k := testKey(t)
	token, err := k.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, _ := base64.URLEncoding.DecodeString(string(token))
	raw[len(raw)/2] ^= 0x01
	tampered := []byte(base64.URLEncoding.EncodeToString(raw))

	if _, err := k.Decrypt(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token: err = %v, want ErrInvalidToken", err)
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	k := testKey(t)
	for name, token := range map[string][]byte{
		"not base64":  []byte("!!!not base64!!!"),
		"empty":       {},
		"too short":   []byte(base64.URLEncoding.EncodeToString([]byte{0x80, 1, 2, 3})),
		"bad version": []byte(base64.URLEncoding.EncodeToString(bytes.Repeat([]byte{0x7F}, minTokenSize))),
	} {
		if _, err := k.Decrypt(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestPadUnpad(t *testing.T) {
	for n := 0; n <= 33; n++ {
		in := bytes.Repeat([]byte{0x42}, n)
		padded := pad(in)
		if len(padded)%16 != 0 {
			t.Fatalf("pad(%d) not block aligned: %d", n, len(padded))
		}
		out, err := unpad(padded)
		if err != nil {
			t.Fatalf("unpad after pad(%d): %v", n, err)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("pad/unpad mismatch at length %d", n)
		}
	}

	if _, err := unpad([]byte{1, 2, 3, 0}); err == nil {
		t.Errorf("zero padding byte must be rejected")
	}
	if _, err := unpad(bytes.Repeat([]byte{17}, 16)); err == nil {
		t.Errorf("padding byte over block size must be rejected")
	}
}
