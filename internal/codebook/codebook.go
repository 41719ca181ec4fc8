// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package codebook stores the anon-ID-to-identity maps produced by
// anonymization in a password-encrypted file, and resolves IDs back to
// identities for authorized supervisors.
//
// Two on-disk formats exist. Current files start with the "WSACB1" magic
// followed by a random 16-byte KDF salt and a fernet token. Legacy files
// are a bare fernet token whose key was derived with a fixed salt; Open
// falls back to that format so old codebooks keep working.
package codebook

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"studio-analytics/internal/codebook/fernet"
)

const (
	magic         = "WSACB1"
	saltSize      = 16
	kdfIterations = 100000
)

// legacySalt is the fixed KDF salt used before per-file salts were
// introduced. Required to open codebooks written by earlier releases.
var legacySalt = []byte("writing_studio_analytics_2025")

var (
	// ErrDecrypt deliberately does not distinguish a wrong password from
	// a corrupted file.
	ErrDecrypt = errors.New("wrong password or corrupted codebook file")

	// ErrNotFound reports a missing codebook file, kept apart from
	// ErrDecrypt so callers can suggest the right fix.
	ErrNotFound = errors.New("codebook file not found")

	ErrStudentNotFound = errors.New("student ID not found in codebook")
	ErrTutorNotFound   = errors.New("tutor ID not found in codebook")
	ErrBadIDFormat     = errors.New(`anonymous ID must start with "STU_" or "TUT_"`)
)

// Metadata describes the dataset a codebook was generated from.
type Metadata struct {
	Created          string `json:"created"`
	SessionType      string `json:"session_type"`
	TotalStudents    int    `json:"total_students"`
	TotalTutors      int    `json:"total_tutors"`
	DatasetDateRange string `json:"dataset_date_range"`
}

// Codebook maps anonymous IDs back to the identities they replaced.
type Codebook struct {
	Students map[string]string `json:"students"`
	Tutors   map[string]string `json:"tutors"`
	Metadata Metadata          `json:"metadata"`
}

// New builds a codebook from anonymization output.
func New(students, tutors map[string]string, sessionType, dateRange string) *Codebook {
	if students == nil {
		students = map[string]string{}
	}
	if tutors == nil {
		tutors = map[string]string{}
	}
	return &Codebook{
		Students: students,
		Tutors:   tutors,
		Metadata: Metadata{
			Created:          time.Now().Format(time.RFC3339),
			SessionType:      sessionType,
			TotalStudents:    len(students),
			TotalTutors:      len(tutors),
			DatasetDateRange: dateRange,
		},
	}
}

// Info returns the codebook metadata with the student and tutor counts
// recomputed from the live maps, so the numbers are right even for
// files written before the metadata block existed. Identities are not
// included.
func (cb *Codebook) Info() Metadata {
	md := cb.Metadata
	md.TotalStudents = len(cb.Students)
	md.TotalTutors = len(cb.Tutors)
	return md
}

// Lookup resolves an anonymous ID to the original identity. Matching is
// case-insensitive on both the prefix and the stored key.
func (cb *Codebook) Lookup(anonID string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(anonID))
	switch {
	case strings.HasPrefix(id, "STU_"):
		if identity, ok := cb.Students[id]; ok {
			return identity, nil
		}
		return "", fmt.Errorf("%q: %w", anonID, ErrStudentNotFound)
	case strings.HasPrefix(id, "TUT_"):
		if identity, ok := cb.Tutors[id]; ok {
			return identity, nil
		}
		return "", fmt.Errorf("%q: %w", anonID, ErrTutorNotFound)
	default:
		return "", fmt.Errorf("%q: %w", anonID, ErrBadIDFormat)
	}
}

// deriveKey stretches a password into a fernet key with PBKDF2-HMAC-SHA256.
func deriveKey(password, salt []byte) (*fernet.Key, error) {
	raw := pbkdf2.Key(password, salt, kdfIterations, fernet.KeySize, sha256.New)
	return fernet.NewKey(raw)
}

// Save encrypts the codebook to path in the current format. The file is
// written with owner-only permissions.
func Save(path string, cb *Codebook, password []byte) error {
	payload, err := json.MarshalIndent(cb, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode codebook: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return err
	}
	token, err := key.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("failed to encrypt codebook: %w", err)
	}

	out := make([]byte, 0, len(magic)+saltSize+len(token))
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, token...)

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write codebook: %w", err)
	}
	return nil
}

// Open reads and decrypts a codebook, trying the current format first and
// the legacy fixed-salt format second.
func Open(path string, password []byte) (*Codebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read codebook: %w", err)
	}

	if bytes.HasPrefix(data, []byte(magic)) && len(data) > len(magic)+saltSize {
		salt := data[len(magic) : len(magic)+saltSize]
		token := data[len(magic)+saltSize:]
		if key, err := deriveKey(password, salt); err == nil {
			if payload, err := key.Decrypt(token); err == nil {
				return parse(payload)
			}
		}
	}

	key, err := deriveKey(password, legacySalt)
	if err != nil {
		return nil, err
	}
	payload, err := key.Decrypt(data)
	if err != nil {
		return nil, ErrDecrypt
	}
	return parse(payload)
}

func parse(payload []byte) (*Codebook, error) {
	var cb Codebook
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, ErrDecrypt
	}
	if cb.Students == nil {
		cb.Students = map[string]string{}
	}
	if cb.Tutors == nil {
		cb.Tutors = map[string]string{}
	}
	return &cb, nil
}

// DefaultFileName names a new codebook file after its session type and
// creation time.
func DefaultFileName(sessionType string) string {
	return fmt.Sprintf("codebook_%s_%s.enc", sessionType, time.Now().Format("20060102_150405"))
}
