// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command studio-codebook works with encrypted identity codebooks:
// inspect metadata, verify a password, and resolve individual anonymous
// IDs. It never prints the full mapping and never writes decrypted data
// to disk.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"studio-analytics/internal/audit"
	"studio-analytics/internal/codebook"
	"studio-analytics/internal/security"
	"studio-analytics/internal/version"
)

func main() {
	var (
		file        = flag.String("file", "", "Path to the encrypted codebook")
		info        = flag.Bool("info", false, "Show codebook metadata (counts and dates, never identities)")
		verify      = flag.Bool("verify", false, "Check that the password opens the codebook")
		lookup      = flag.String("lookup", "", "Anonymous ID to resolve (STU_xxxxx or TUT_xxxx)")
		passwordEnv = flag.String("password-env", "", "Environment variable holding the password (otherwise prompted)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		usage()
		os.Exit(1)
	}

	actions := 0
	for _, selected := range []bool{*info, *verify, *lookup != ""} {
		if selected {
			actions++
		}
	}
	if actions == 0 {
		fmt.Fprintln(os.Stderr, "Error: pick one of --info, --verify, or --lookup")
		usage()
		os.Exit(1)
	}
	if actions > 1 {
		fmt.Fprintln(os.Stderr, "Error: --info, --verify, and --lookup are mutually exclusive")
		os.Exit(1)
	}

	password := security.PasswordFromEnv(*passwordEnv)
	if password == nil {
		var err error
		password, err = security.PromptPassword("Codebook password")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	defer password.Clear()

	cb, err := codebook.Open(*file, password.Bytes())
	if err != nil {
		switch {
		case errors.Is(err, codebook.ErrNotFound):
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintln(os.Stderr, "Codebooks are written during anonymization; check the path.")
		case errors.Is(err, codebook.ErrDecrypt):
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *file, err)
		}
		os.Exit(1)
	}
	password.Clear()

	// Codebook access lands in the audit trail. A broken audit file
	// warns instead of blocking re-identification; the nil logger
	// drops events.
	auditLogger, auditErr := audit.OpenDefault()
	if auditErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit log unavailable: %v\n", auditErr)
	}
	defer auditLogger.Close()
	auditLogger.CodebookOpened(*file)

	switch {
	case *verify:
		fmt.Println("Password OK; codebook opened successfully.")
		fmt.Printf("Contains %d students and %d tutors.\n", len(cb.Students), len(cb.Tutors))
	case *info:
		showInfo(cb)
	default:
		resolveID(cb, auditLogger, *lookup)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: studio-codebook --file <codebook.enc> [--info | --verify | --lookup <ID>]")
}

// showInfo prints the codebook metadata. Identities stay in memory only.
func showInfo(cb *codebook.Codebook) {
	meta := cb.Info()
	fmt.Println("Codebook metadata:")
	if meta.Created != "" {
		fmt.Printf("  Created: %s\n", meta.Created)
	}
	if meta.SessionType != "" {
		fmt.Printf("  Session type: %s\n", meta.SessionType)
	}
	fmt.Printf("  Students: %d\n", meta.TotalStudents)
	fmt.Printf("  Tutors: %d\n", meta.TotalTutors)
	if meta.DatasetDateRange != "" {
		fmt.Printf("  Dataset date range: %s\n", meta.DatasetDateRange)
	}
}

// resolveID looks up one anonymous ID. Hits and misses both land in the
// audit trail; only a hit prints an identity.
func resolveID(cb *codebook.Codebook, auditLogger *audit.Logger, anonID string) {
	identity, err := cb.Lookup(anonID)
	if err != nil {
		auditLogger.CodebookLookup(anonID, false)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	auditLogger.CodebookLookup(anonID, true)
	fmt.Printf("%s -> %s\n", strings.ToUpper(strings.TrimSpace(anonID)), identity)
}
