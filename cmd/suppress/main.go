// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command studio-suppress manages leak-scan suppression rules: the
// acknowledgments a supervisor records for reviewed findings so repeat
// scans stay quiet about them.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"studio-analytics/internal/suppressions"
)

func main() {
	var (
		suppressionsFile = flag.String("suppressions", "", "Path to suppression rules file (default: platform config dir)")
		action           = flag.String("action", "", "Action to perform: list, add, remove, disable, cleanup")
		id               = flag.String("id", "", "Suppression rule ID (for remove and disable)")
		hash             = flag.String("hash", "", "Finding hash from scan output (for add)")
		reason           = flag.String("reason", "", "Why the finding is safe (for add)")
		createdBy        = flag.String("created-by", "", "Reviewer name recorded on the rule (for add)")
		expiresDays      = flag.Int("expires-days", 0, "Days until the rule expires (for add; default: 7)")
	)
	flag.Parse()

	if *action == "" {
		fmt.Println("Error: --action is required")
		fmt.Println("Usage: studio-suppress --action <list|add|remove|disable|cleanup> [options]")
		os.Exit(1)
	}

	manager := suppressions.NewManager(*suppressionsFile)

	switch *action {
	case "list":
		listRules(manager)
	case "add":
		if *hash == "" {
			fmt.Println("Error: --hash is required for the add action")
			os.Exit(1)
		}
		addRule(manager, *hash, *reason, *createdBy, *expiresDays)
	case "remove":
		if *id == "" {
			fmt.Println("Error: --id is required for the remove action")
			os.Exit(1)
		}
		removeRule(manager, *id)
	case "disable":
		if *id == "" {
			fmt.Println("Error: --id is required for the disable action")
			os.Exit(1)
		}
		disableRule(manager, *id)
	case "cleanup":
		cleanupExpired(manager)
	default:
		fmt.Printf("Error: Unknown action '%s'\n", *action)
		fmt.Println("Valid actions: list, add, remove, disable, cleanup")
		os.Exit(1)
	}
}

func listRules(manager *suppressions.Manager) {
	rules := manager.List()
	if len(rules) == 0 {
		fmt.Printf("No suppression rules in %s\n", manager.Path())
		return
	}

	fmt.Printf("%d suppression rules in %s:\n\n", len(rules), manager.Path())
	for _, rule := range rules {
		fmt.Printf("ID: %s\n", rule.ID)
		fmt.Printf("Hash: %s\n", rule.Hash)
		fmt.Printf("Reason: %s\n", rule.Reason)
		fmt.Printf("Enabled: %v\n", rule.Enabled)
		if rule.CreatedBy != "" {
			fmt.Printf("Created By: %s\n", rule.CreatedBy)
		}
		fmt.Printf("Created At: %s\n", rule.CreatedAt.Format("2006-01-02 15:04:05"))
		if rule.ExpiresAt != nil {
			expired := ""
			if time.Now().After(*rule.ExpiresAt) {
				expired = " (expired)"
			}
			fmt.Printf("Expires At: %s%s\n", rule.ExpiresAt.Format("2006-01-02 15:04:05"), expired)
		}
		fmt.Println("---")
	}
}

func addRule(manager *suppressions.Manager, hash, reason, createdBy string, expiresDays int) {
	var expiresAt *time.Time
	if expiresDays > 0 {
		d := time.Now().AddDate(0, 0, expiresDays)
		expiresAt = &d
	}
	if err := manager.Add(hash, reason, createdBy, expiresAt); err != nil {
		fmt.Printf("Error adding suppression: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Suppression rule added for hash %s\n", shortHash(hash))
}

func removeRule(manager *suppressions.Manager, id string) {
	if err := manager.Remove(id); err != nil {
		fmt.Printf("Error removing suppression: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed suppression rule %s\n", id)
}

func disableRule(manager *suppressions.Manager, id string) {
	if err := manager.Disable(id); err != nil {
		fmt.Printf("Error disabling suppression: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Disabled suppression rule %s\n", id)
}

func cleanupExpired(manager *suppressions.Manager) {
	removed := manager.CleanupExpired()
	fmt.Printf("Cleaned up %d expired suppression rules\n", removed)
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
