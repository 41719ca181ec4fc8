// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// TopicInfo contains standardized information about a help topic
type TopicInfo struct {
	Name                string   // Name of the topic (e.g., "anonymize")
	ShortDescription    string   // Short description for the topics list
	DetailedDescription string   // Detailed description of what the operation does
	Notes               []string // Privacy and operational notes
	Examples            []string // Usage examples
}

// System manages help content for the application
type System struct {
	topics  map[string]TopicInfo
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a new help system with the built-in topics registered
func NewSystem(noColor bool) *System {
	// Disable colors if requested
	if noColor {
		color.NoColor = true
	}

	s := &System{
		topics:  make(map[string]TopicInfo),
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"subtitle": color.New(color.FgCyan, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"positive": color.New(color.FgGreen),
			"negative": color.New(color.FgRed),
			"warning":  color.New(color.FgYellow),
			"example":  color.New(color.FgMagenta),
		},
	}
	for _, topic := range builtinTopics() {
		s.RegisterTopic(topic)
	}
	return s
}

// RegisterTopic adds a help topic to the system
func (h *System) RegisterTopic(info TopicInfo) {
	h.topics[strings.ToLower(info.Name)] = info
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Println("Studio Analytics - Privacy-Preserving Tutoring Session Analysis")
	fmt.Println("===============================================================")
	fmt.Println()
	h.colors["header"].Println("USAGE:")
	fmt.Println("  studio-analytics --input <export.csv> [options]       # Anonymize a session export")
	fmt.Println("  studio-analytics --scan <report-dir> [options]        # Scan a report bundle for leaks")
	fmt.Println("  studio-analytics --input <anonymized.csv> --chat      # Chat about an anonymized dataset")
	fmt.Println("  studio-analytics --input <anonymized.csv> --report    # Print the metrics report")
	fmt.Println()

	h.colors["header"].Println("OPTIONS:")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --input\t<path>\tSession export to process (CSV)")
	fmt.Fprintln(w, "  --out\t<path>\tPath for the anonymized CSV (default: <input>_anonymized.csv)")
	fmt.Fprintln(w, "  --session-type\t<type>\tExport layout: scheduled or walkin (default: auto-detect)")
	fmt.Fprintln(w, "  --extra-columns\t<cols>\tComma-separated columns to keep beyond the essential set")
	fmt.Fprintln(w, "  --codebook-out\t<path>\tEncrypted codebook location (default: platform data dir)")
	fmt.Fprintln(w, "  --no-codebook\t\tSkip codebook creation; the mapping becomes unrecoverable")
	fmt.Fprintln(w, "  --password-env\t<var>\tEnvironment variable holding the codebook password (otherwise prompted)")
	fmt.Fprintln(w, "  --no-audit\t\tSkip writing the anonymization audit record")
	fmt.Fprintln(w, "  --scan\t<path>\tScan a report file or directory for leaked identifiers")
	fmt.Fprintln(w, "  --min-confidence\t<0-100>\tDrop leak findings below this confidence")
	fmt.Fprintln(w, "  --suppressions\t<path>\tSuppression rules file for the leak scanner")
	fmt.Fprintln(w, "  --chat\t\tInteractive questions about an anonymized dataset (local model only)")
	fmt.Fprintln(w, "  --report\t\tPrint the aggregate metrics report and exit")
	fmt.Fprintln(w, "  --ollama-url\t<url>\tInference server address (default: http://localhost:11434)")
	fmt.Fprintln(w, "  --model\t<name>\tModel name for chat (default: gemma3:4b)")
	fmt.Fprintln(w, "  --format\t<format>\tOutput format: text, json, csv, yaml (default: text)")
	fmt.Fprintln(w, "  --confidence\t<levels>\tConfidence levels to display: high,medium,low,all (default: all)")
	fmt.Fprintln(w, "  --output\t<path>\tWrite formatted output to a file instead of stdout")
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  --list-profiles\t\tList available profiles in config file")
	fmt.Fprintln(w, "  --verbose\t\tDisplay detailed information for each finding")
	fmt.Fprintln(w, "  --debug\t\tEnable step-by-step logging of the processing pipeline")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	fmt.Fprintln(w, "  --help topics\t\tList all help topics")
	fmt.Fprintln(w, "  --help <topic>\t\tShow detailed help for a specific topic")
	w.Flush()

	fmt.Println()
	h.colors["header"].Println("EXAMPLES:")
	fmt.Println("  Anonymize an export:")
	h.colors["example"].Println("    studio-analytics --input spring_sessions.csv")
	h.colors["example"].Println("    studio-analytics --input walkins.csv --session-type walkin --out clean.csv")
	fmt.Println("  Check a report bundle before sharing:")
	h.colors["example"].Println("    studio-analytics --scan ./semester-report --min-confidence 60")
	fmt.Println("  Explore anonymized data:")
	h.colors["example"].Println("    studio-analytics --input clean.csv --chat")
	h.colors["example"].Println("    studio-analytics --input clean.csv --report --format json")

	fmt.Println()
	h.colors["header"].Println("CONFIGURATION:")
	fmt.Println("  Project config: studio-analytics.yaml (in current directory)")
	fmt.Println("  User config: <config dir>/config.yaml")
	fmt.Println("  Environment: STUDIO_ANALYTICS_CONFIG_DIR - Override config directory")
	fmt.Println("               STUDIO_ANALYTICS_DATA_DIR - Override codebook/audit directory")
}

// ShowTopicsHelp displays information about all available help topics
func (h *System) ShowTopicsHelp() {
	h.colors["title"].Println("Available Help Topics")
	fmt.Println("=====================")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(w, "  TOPIC\tDESCRIPTION")
	h.colors["header"].Fprintln(w, "  -----\t-----------")

	var names []string
	for name := range h.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := h.topics[name]
		fmt.Fprintf(w, "  ")
		h.colors["emphasis"].Fprintf(w, "%s", info.Name)
		fmt.Fprintf(w, "\t%s\n", info.ShortDescription)
	}
	w.Flush()

	fmt.Println()
	fmt.Println("For detailed information about a specific topic, use:")
	h.colors["example"].Println("  studio-analytics --help <topic>")
	fmt.Println()
	fmt.Println("Example:")
	h.colors["example"].Println("  studio-analytics --help anonymize")
}

// ShowTopicHelp displays detailed help for a specific topic
func (h *System) ShowTopicHelp(name string) bool {
	info, exists := h.topics[strings.ToLower(name)]
	if !exists {
		h.colors["negative"].Printf("Error: Topic '%s' not found.\n", name)
		fmt.Println("Use 'studio-analytics --help topics' to see a list of available topics.")
		return false
	}

	h.colors["title"].Printf("%s\n", strings.ToUpper(info.Name[:1])+info.Name[1:])
	fmt.Println(strings.Repeat("=", len(info.Name)))
	fmt.Println()
	fmt.Println(info.DetailedDescription)
	fmt.Println()

	if len(info.Notes) > 0 {
		h.colors["header"].Println("NOTES:")
		for _, note := range info.Notes {
			fmt.Print("  - ")
			h.colors["item"].Println(note)
		}
		fmt.Println()
	}

	if len(info.Examples) > 0 {
		h.colors["header"].Println("EXAMPLES:")
		for _, example := range info.Examples {
			fmt.Print("  ")
			h.colors["example"].Println(example)
		}
	}

	return true
}

func builtinTopics() []TopicInfo {
	return []TopicInfo{
		{
			Name:             "anonymize",
			ShortDescription: "Replace student and tutor identities with stable anonymous IDs",
			DetailedDescription: "Reads a scheduling-system export (CSV), detects the session type,\n" +
				"drops columns that carry personal information, and replaces each student\n" +
				"and tutor with a stable anonymous ID (STU_xxxxx / TUT_xxxx). The\n" +
				"same person keeps the same ID across the file, so attendance patterns\n" +
				"survive anonymization. An encrypted codebook preserves the mapping for\n" +
				"authorized re-identification.",
			Notes: []string{
				"Tutors are mapped by name; tutors sharing the exact same name collapse into one ID",
				"Columns outside the essential set are dropped even when they carry no PII",
				"The anonymized file never contains the codebook password or raw identities",
			},
			Examples: []string{
				"studio-analytics --input spring_sessions.csv",
				"studio-analytics --input walkins.csv --session-type walkin",
				"studio-analytics --input export.csv --extra-columns \"Course,Campus\" --out clean.csv",
				"STUDIO_PW_VAR=... studio-analytics --input export.csv --password-env STUDIO_PW_VAR",
			},
		},
		{
			Name:             "codebook",
			ShortDescription: "Manage the encrypted identity mapping",
			DetailedDescription: "The codebook stores the anonymous-ID-to-identity mapping, encrypted with\n" +
				"a password-derived key. It is the only way back from anonymous IDs to\n" +
				"real people, so treat it like the sensitive record it is. The codebook\n" +
				"utility inspects metadata, verifies a password, and looks up individual\n" +
				"IDs without ever printing the full mapping.",
			Notes: []string{
				"Every view requires the password; the info view prints counts and dates, never identities",
				"Lookups decrypt in memory only; nothing decrypted is written to disk",
				"A lost password means the mapping is unrecoverable",
			},
			Examples: []string{
				"studio-codebook --file codebook.enc --info",
				"studio-codebook --file codebook.enc --verify",
				"studio-codebook --file codebook.enc --lookup STU_00042",
			},
		},
		{
			Name:             "scan",
			ShortDescription: "Scan report bundles for identifiers that escaped anonymization",
			DetailedDescription: "Walks a report directory (or single file) looking for email addresses,\n" +
				"personal names next to identity labels, raw numeric IDs, anonymous IDs\n" +
				"that leak linkage, and author metadata inside PDFs and images. Findings\n" +
				"carry a confidence percentage and a suppression hash; matched values are\n" +
				"masked in every output format.",
			Notes: []string{
				"Hidden directories and unsupported binary types are skipped, not scanned",
				"GPS coordinates in image metadata are reported as present, never echoed",
				"Suppression rules accept a reviewed finding by hash, with an expiry date",
			},
			Examples: []string{
				"studio-analytics --scan ./semester-report",
				"studio-analytics --scan summary.pdf --verbose",
				"studio-analytics --scan ./report --min-confidence 60 --format csv --output findings.csv",
			},
		},
		{
			Name:             "chat",
			ShortDescription: "Ask questions about an anonymized dataset through a local model",
			DetailedDescription: "Starts an interactive session against a local Ollama-compatible server.\n" +
				"Questions are screened before any model call: off-topic, harmful, and\n" +
				"prompt-injection attempts are refused without network traffic. Counting\n" +
				"and aggregation questions run real computations in a sandboxed\n" +
				"interpreter so answers come from the data, not model guesses. Responses\n" +
				"are filtered for identity leakage before display.",
			Notes: []string{
				"The dataset never leaves the machine; only the local inference server sees it",
				"Chat requires an anonymized dataset; raw exports are refused",
				"Every accepted and refused turn can be recorded in the audit log",
			},
			Examples: []string{
				"studio-analytics --input clean.csv --chat",
				"studio-analytics --input clean.csv --chat --model llama3:8b",
				"studio-analytics --input clean.csv --chat --ollama-url http://10.0.0.5:11434",
			},
		},
		{
			Name:             "report",
			ShortDescription: "Print aggregate metrics for an anonymized dataset",
			DetailedDescription: "Computes the metrics block the chat assistant is grounded on: session\n" +
				"counts, date range, busiest days and hours, attendance and no-show\n" +
				"rates, and per-session-type extras. Useful for a quick look or for\n" +
				"feeding dashboards without starting a chat.",
			Examples: []string{
				"studio-analytics --input clean.csv --report",
				"studio-analytics --input clean.csv --report --format json",
			},
		},
		{
			Name:             "config",
			ShortDescription: "Configuration file format and search order",
			DetailedDescription: "Configuration is YAML with sections: defaults (format, session_type,\n" +
				"verbose, no_color), anonymization (extra_columns, codebook_out, audit),\n" +
				"rules (inline or file-referenced pii and guard tables), chat\n" +
				"(ollama_url, model, max_tokens, temperature, history), sandbox\n" +
				"(timeout_seconds, max_rows, max_code_bytes), leakscan (min_confidence,\n" +
				"suppressions_file), and profiles. Profiles overlay the defaults;\n" +
				"explicit flags always win.",
			Notes: []string{
				"Search order: --config flag, ./studio-analytics.yaml, then the platform config dir",
				"A config file that exists but fails to load stops the run",
				"Rule tables are validated at startup; a bad pattern fails fast",
			},
			Examples: []string{
				"studio-analytics --input export.csv --config dept-config.yaml",
				"studio-analytics --scan ./report --profile report",
				"studio-analytics --list-profiles --config dept-config.yaml",
			},
		},
	}
}
