// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pii

import "regexp"

// Shared patterns for personally identifying values. The email and anon-ID
// patterns are also used by the response filter and the artifact scanner so
// every layer agrees on what counts as a leak.
var (
	// EmailPattern matches email addresses inside larger text.
	EmailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

	// AnonIDPattern matches generated anonymous identifiers.
	AnonIDPattern = regexp.MustCompile(`\b(STU|TUT)_\d+\b`)

	// ssoPattern matches institutional single-sign-on IDs: short alphanumeric
	// tokens with no separators.
	ssoPattern = regexp.MustCompile(`^[A-Za-z0-9]{6,12}$`)

	// numericIDPattern matches university ID numbers.
	numericIDPattern = regexp.MustCompile(`^\d{7,10}$`)

	// namePattern matches two-word capitalized personal names.
	namePattern = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+`)
)
