// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// MinPasswordLength is the minimum accepted codebook password length.
const MinPasswordLength = 12

var (
	// ErrPasswordTooShort is returned when a new password fails the length policy.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

	// ErrPasswordMismatch is returned when the confirmation prompt does not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// PromptPassword reads a password without echo from the terminal. When stdin
// is not a terminal (tests, pipes) it falls back to a buffered line read.
func PromptPassword(label string) (*SecureString, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		return NewSecureBytes(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return NewSecureString(strings.TrimRight(line, "\r\n")), nil
}

// PromptNewPassword prompts for a password twice and enforces the length
// policy. Used when creating a codebook; both reads are scrubbed on error.
func PromptNewPassword() (*SecureString, error) {
	first, err := PromptPassword("Codebook password (min 12 chars)")
	if err != nil {
		return nil, err
	}
	if first.Len() < MinPasswordLength {
		first.Clear()
		return nil, ErrPasswordTooShort
	}

	second, err := PromptPassword("Confirm password")
	if err != nil {
		first.Clear()
		return nil, err
	}
	defer second.Clear()

	if first.String() != second.String() {
		first.Clear()
		return nil, ErrPasswordMismatch
	}
	return first, nil
}

// PasswordFromEnv resolves a password from the named environment variable,
// for scripted runs where prompting is not possible. Empty name or unset
// variable yields nil without error so callers can fall through to a prompt.
func PasswordFromEnv(name string) *SecureString {
	if name == "" {
		return nil
	}
	val, ok := os.LookupEnv(name)
	if !ok || val == "" {
		return nil
	}
	return NewSecureString(val)
}
