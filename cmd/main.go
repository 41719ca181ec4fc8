// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command studio-analytics turns writing-center session exports into
// anonymized datasets, scans report bundles for identifiers that
// escaped anonymization, and answers questions about anonymized data
// through a local model. One binary, four modes: anonymize (the default
// when --input is given), --scan, --chat, and --report.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"studio-analytics/internal/anonymizer"
	"studio-analytics/internal/audit"
	"studio-analytics/internal/chat"
	"studio-analytics/internal/codebook"
	"studio-analytics/internal/config"
	"studio-analytics/internal/dataset"
	"studio-analytics/internal/formatters"
	"studio-analytics/internal/help"
	"studio-analytics/internal/ingest"
	"studio-analytics/internal/leakscan"
	"studio-analytics/internal/llm"
	"studio-analytics/internal/metrics"
	"studio-analytics/internal/observability"
	"studio-analytics/internal/paths"
	"studio-analytics/internal/pii"
	"studio-analytics/internal/query"
	"studio-analytics/internal/sandbox"
	"studio-analytics/internal/security"
	"studio-analytics/internal/suppressions"
	"studio-analytics/internal/version"

	// Import formatters to register them
	_ "studio-analytics/internal/formatters/csv"
	_ "studio-analytics/internal/formatters/json"
	_ "studio-analytics/internal/formatters/text"
	_ "studio-analytics/internal/formatters/yaml"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// loadConfiguration loads the configuration the run will use. A config
// file that exists but fails to load stops the run; silently falling
// back to defaults could anonymize with the wrong rule tables.
func loadConfiguration(configFile string) *config.Config {
	cfg, path, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config file %s: %v\n", path, err)
		os.Exit(1)
	}
	return cfg
}

// configFlags holds the flag values that participate in configuration
// resolution.
type configFlags struct {
	outputFormat     string
	confidenceLevels string
	sessionType      string
	extraColumns     string
	codebookOut      string
	suppressionsFile string
	ollamaURL        string
	model            string
	minConfidence    int
	verbose          bool
	debug            bool
	noColor          bool
	noAudit          bool
}

// finalConfiguration holds the resolved settings after defaults, config
// file, profile, and explicit flags are applied in that order.
type finalConfiguration struct {
	format           string
	confidenceLevels string
	sessionType      string
	extraColumns     []string
	codebookOut      string
	suppressionsFile string
	ollamaURL        string
	model            string
	minConfidence    int
	verbose          bool
	debug            bool
	noColor          bool
	audit            bool
}

// resolveConfiguration merges settings by precedence: built-in default,
// then config file (with any selected profile already overlaid onto it),
// then explicit flags. isFlagSet distinguishes an explicit flag from an
// untouched default.
func resolveConfiguration(cfg *config.Config, flags *configFlags) *finalConfiguration {
	final := &finalConfiguration{}

	// Output format (default: text)
	final.format = "text"
	if cfg != nil && cfg.Defaults.Format != "" {
		final.format = cfg.Defaults.Format
	}
	if isFlagSet("format") && flags.outputFormat != "" {
		final.format = flags.outputFormat
	}

	// Confidence levels (default: all)
	final.confidenceLevels = "all"
	if cfg != nil && cfg.Defaults.ConfidenceLevels != "" {
		final.confidenceLevels = cfg.Defaults.ConfidenceLevels
	}
	if isFlagSet("confidence") && flags.confidenceLevels != "" {
		final.confidenceLevels = flags.confidenceLevels
	}

	// Session type (default: empty, meaning auto-detect)
	if cfg != nil {
		final.sessionType = cfg.Defaults.SessionType
	}
	if isFlagSet("session-type") {
		final.sessionType = flags.sessionType
	}

	// Columns kept beyond the essential set
	if cfg != nil {
		final.extraColumns = cfg.Anonymization.ExtraColumns
	}
	if isFlagSet("extra-columns") {
		final.extraColumns = splitColumns(flags.extraColumns)
	}

	// Codebook location (default: empty, meaning the platform data dir)
	if cfg != nil {
		final.codebookOut = cfg.Anonymization.CodebookOut
	}
	if isFlagSet("codebook-out") {
		final.codebookOut = flags.codebookOut
	}

	// Leak scan confidence floor
	if cfg != nil {
		final.minConfidence = cfg.Leakscan.MinConfidence
	}
	if isFlagSet("min-confidence") {
		final.minConfidence = flags.minConfidence
	}

	// Suppression rules file (default: empty, meaning the config dir)
	if cfg != nil {
		final.suppressionsFile = cfg.Leakscan.SuppressionsFile
	}
	if isFlagSet("suppressions") {
		final.suppressionsFile = flags.suppressionsFile
	}

	// Inference server address and model
	if cfg != nil && cfg.Chat.OllamaURL != "" {
		final.ollamaURL = cfg.Chat.OllamaURL
	}
	if isFlagSet("ollama-url") && flags.ollamaURL != "" {
		final.ollamaURL = flags.ollamaURL
	}
	if cfg != nil && cfg.Chat.Model != "" {
		final.model = cfg.Chat.Model
	}
	if isFlagSet("model") && flags.model != "" {
		final.model = flags.model
	}

	// Booleans: config can switch them on, flags can only add
	if cfg != nil {
		final.verbose = cfg.Defaults.Verbose
		final.debug = cfg.Defaults.Debug
		final.noColor = cfg.Defaults.NoColor
	}
	if flags.verbose {
		final.verbose = true
	}
	if flags.debug {
		final.debug = true
	}
	if flags.noColor {
		final.noColor = true
	}

	// Audit trail: on unless the config or the flag turns it off
	final.audit = true
	if cfg != nil {
		final.audit = cfg.Anonymization.Audit
	}
	if flags.noAudit {
		final.audit = false
	}

	return final
}

// handleProfiles lists or applies config profiles. Listing prints and
// exits; applying overlays the profile onto the config defaults so
// resolveConfiguration sees the profiled values. Flags still win.
func handleProfiles(cfg *config.Config, listProfiles bool, profileName string) {
	if listProfiles {
		names := cfg.ListProfiles()
		if len(names) == 0 {
			fmt.Println("No profiles defined")
			os.Exit(0)
		}
		fmt.Println("Available profiles:")
		for _, name := range names {
			profile := cfg.GetProfile(name)
			if profile.Description != "" {
				fmt.Printf("  %s - %s\n", name, profile.Description)
			} else {
				fmt.Printf("  %s\n", name)
			}
		}
		os.Exit(0)
	}

	if profileName == "" {
		return
	}
	if err := cfg.ApplyProfile(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getBoolFlag safely dereferences a bool flag pointer
func getBoolFlag(f *bool) bool {
	return f != nil && *f
}

// getStringFlag safely dereferences a string flag pointer
func getStringFlag(f *string) string {
	if f == nil {
		return ""
	}
	return *f
}

// getIntFlag safely dereferences an int flag pointer
func getIntFlag(f *int) int {
	if f == nil {
		return 0
	}
	return *f
}

// setBoolFlag safely sets a bool flag value
func setBoolFlag(f *bool, value bool) {
	if f != nil {
		*f = value
	}
}

// extractedFlags holds all flag values after safe extraction
type extractedFlags struct {
	// Boolean flags
	noCodebook   bool
	noAudit      bool
	chatMode     bool
	reportMode   bool
	listProfiles bool
	verbose      bool
	debug        bool
	noColor      bool
	showVersion  bool
	showHelp     bool

	// String flags
	input            string
	out              string
	sessionType      string
	extraColumns     string
	codebookOut      string
	passwordEnv      string
	scanPath         string
	suppressionsFile string
	ollamaURL        string
	model            string
	outputFormat     string
	confidenceLevels string
	outputFile       string
	configFile       string
	profileName      string

	// Numeric flags
	minConfidence int
}

// flagPointers holds pointers to all parsed flags for safe extraction
type flagPointers struct {
	// Boolean flags
	noCodebook   *bool
	noAudit      *bool
	chatMode     *bool
	reportMode   *bool
	listProfiles *bool
	verbose      *bool
	debug        *bool
	noColor      *bool
	showVersion  *bool
	showHelp     *bool

	// String flags
	input            *string
	out              *string
	sessionType      *string
	extraColumns     *string
	codebookOut      *string
	passwordEnv      *string
	scanPath         *string
	suppressionsFile *string
	ollamaURL        *string
	model            *string
	outputFormat     *string
	confidenceLevels *string
	outputFile       *string
	configFile       *string
	profileName      *string

	// Numeric flags
	minConfidence *int
}

// extractAllFlags safely extracts all flag values once to avoid repeated nil checks
func extractAllFlags(flags flagPointers) extractedFlags {
	return extractedFlags{
		noCodebook:   getBoolFlag(flags.noCodebook),
		noAudit:      getBoolFlag(flags.noAudit),
		chatMode:     getBoolFlag(flags.chatMode),
		reportMode:   getBoolFlag(flags.reportMode),
		listProfiles: getBoolFlag(flags.listProfiles),
		verbose:      getBoolFlag(flags.verbose),
		debug:        getBoolFlag(flags.debug),
		noColor:      getBoolFlag(flags.noColor),
		showVersion:  getBoolFlag(flags.showVersion),
		showHelp:     getBoolFlag(flags.showHelp),

		input:            getStringFlag(flags.input),
		out:              getStringFlag(flags.out),
		sessionType:      getStringFlag(flags.sessionType),
		extraColumns:     getStringFlag(flags.extraColumns),
		codebookOut:      getStringFlag(flags.codebookOut),
		passwordEnv:      getStringFlag(flags.passwordEnv),
		scanPath:         getStringFlag(flags.scanPath),
		suppressionsFile: getStringFlag(flags.suppressionsFile),
		ollamaURL:        getStringFlag(flags.ollamaURL),
		model:            getStringFlag(flags.model),
		outputFormat:     getStringFlag(flags.outputFormat),
		confidenceLevels: getStringFlag(flags.confidenceLevels),
		outputFile:       getStringFlag(flags.outputFile),
		configFile:       getStringFlag(flags.configFile),
		profileName:      getStringFlag(flags.profileName),

		minConfidence: getIntFlag(flags.minConfidence),
	}
}

// runMode is the operation one invocation performs.
type runMode int

const (
	modeAnonymize runMode = iota
	modeScan
	modeChat
	modeReport
)

// selectMode picks the run mode from the flag combination and rejects
// ambiguous ones before any file is touched.
func selectMode(flags extractedFlags) (runMode, error) {
	if flags.scanPath != "" {
		if flags.chatMode || flags.reportMode {
			return 0, fmt.Errorf("--scan cannot be combined with --chat or --report")
		}
		if flags.input != "" {
			return 0, fmt.Errorf("--scan and --input select different modes; pass one or the other")
		}
		return modeScan, nil
	}
	if flags.chatMode && flags.reportMode {
		return 0, fmt.Errorf("--chat and --report cannot be combined")
	}
	if flags.input == "" {
		return 0, fmt.Errorf("no input specified; pass --input <export.csv> or --scan <path>")
	}
	if flags.chatMode {
		return modeChat, nil
	}
	if flags.reportMode {
		return modeReport, nil
	}
	return modeAnonymize, nil
}

func main() {
	// Parse command line flags
	input := flag.String("input", "", "Session export to process (CSV)")
	out := flag.String("out", "", "Path for the anonymized CSV (default: <input>_anonymized.csv)")
	sessionType := flag.String("session-type", "", "Export layout: scheduled or walkin (default: auto-detect)")
	extraColumns := flag.String("extra-columns", "", "Comma-separated columns to keep beyond the essential set")
	codebookOut := flag.String("codebook-out", "", "Encrypted codebook location (default: platform data dir)")
	noCodebook := flag.Bool("no-codebook", false, "Skip codebook creation; the identity mapping becomes unrecoverable")
	passwordEnv := flag.String("password-env", "", "Environment variable holding the codebook password (otherwise prompted)")
	noAudit := flag.Bool("no-audit", false, "Skip writing the anonymization audit record")
	scanPath := flag.String("scan", "", "Scan a report file or directory for leaked identifiers")
	minConfidence := flag.Int("min-confidence", 0, "Drop leak findings below this confidence (0-100)")
	suppressionsFile := flag.String("suppressions", "", "Suppression rules file for the leak scanner")
	chatMode := flag.Bool("chat", false, "Interactive questions about an anonymized dataset (local model only)")
	reportMode := flag.Bool("report", false, "Print the aggregate metrics report and exit")
	ollamaURL := flag.String("ollama-url", "", "Inference server address (default: http://localhost:11434)")
	model := flag.String("model", "", "Model name for chat (default: gemma3:4b)")
	outputFormat := flag.String("format", "", "Output format: text, json, csv, yaml (default: text)")
	confidenceLevels := flag.String("confidence", "", "Confidence levels to display: high, medium, low, or combinations like 'high,medium'")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	verbose := flag.Bool("verbose", false, "Display detailed information for each finding")
	debug := flag.Bool("debug", false, "Enable step-by-step logging of the processing pipeline")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")

	flag.Parse()

	// Extract all flag values once for consistency
	flags := extractAllFlags(flagPointers{
		noCodebook:   noCodebook,
		noAudit:      noAudit,
		chatMode:     chatMode,
		reportMode:   reportMode,
		listProfiles: listProfiles,
		verbose:      verbose,
		debug:        debug,
		noColor:      noColor,
		showVersion:  showVersion,
		showHelp:     showHelp,

		input:            input,
		out:              out,
		sessionType:      sessionType,
		extraColumns:     extraColumns,
		codebookOut:      codebookOut,
		passwordEnv:      passwordEnv,
		scanPath:         scanPath,
		suppressionsFile: suppressionsFile,
		ollamaURL:        ollamaURL,
		model:            model,
		outputFormat:     outputFormat,
		confidenceLevels: confidenceLevels,
		outputFile:       outputFile,
		configFile:       configFile,
		profileName:      profileName,

		minConfidence: minConfidence,
	})

	// Auto-detect non-interactive environment
	if !isTerminal(os.Stderr) || os.Getenv("CI") != "" {
		setBoolFlag(noColor, true)
		flags.noColor = true
	}

	// Version information needs no configuration
	if flags.showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Help dispatch: general help, the topics list, or a single topic
	if flags.showHelp {
		helpSystem := help.NewSystem(flags.noColor)
		args := flag.Args()
		switch {
		case len(args) == 0:
			helpSystem.ShowGeneralHelp()
		case args[0] == "topics":
			helpSystem.ShowTopicsHelp()
		default:
			if !helpSystem.ShowTopicHelp(args[0]) {
				os.Exit(1)
			}
		}
		os.Exit(0)
	}

	// Create debug observer early for configuration logging
	var obs *observability.DebugObserver
	if flags.debug {
		obs = observability.NewDebugObserver(os.Stderr)
		obs.LogDetail("main", fmt.Sprintf("Command line arguments: %v", os.Args))
	}

	// Load configuration
	cfg := loadConfiguration(flags.configFile)

	// Handle profile operations
	handleProfiles(cfg, flags.listProfiles, flags.profileName)

	// Resolve final configuration values using extracted flags
	final := resolveConfiguration(cfg, &configFlags{
		outputFormat:     flags.outputFormat,
		confidenceLevels: flags.confidenceLevels,
		sessionType:      flags.sessionType,
		extraColumns:     flags.extraColumns,
		codebookOut:      flags.codebookOut,
		suppressionsFile: flags.suppressionsFile,
		ollamaURL:        flags.ollamaURL,
		model:            flags.model,
		minConfidence:    flags.minConfidence,
		verbose:          flags.verbose,
		debug:            flags.debug,
		noColor:          flags.noColor,
		noAudit:          flags.noAudit,
	})

	// Config-enabled debug starts the observer late; flag-enabled debug
	// already created it above
	if final.debug && obs == nil {
		obs = observability.NewDebugObserver(os.Stderr)
	}
	if final.noColor {
		color.NoColor = true
	}

	mode, err := selectMode(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use --help for usage information.\n")
		os.Exit(1)
	}

	levels, err := config.ParseConfidenceLevels(final.confidenceLevels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	formatOpts := formatters.Options{
		ConfidenceLevel: levels,
		Verbose:         final.verbose,
		NoColor:         final.noColor,
	}

	// Ctrl-C cancels long scans, chat turns, and model calls cleanly
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch mode {
	case modeScan:
		os.Exit(runScan(ctx, final, flags, formatOpts, obs))
	case modeChat:
		os.Exit(runChat(ctx, cfg, final, flags, obs))
	case modeReport:
		os.Exit(runReport(ctx, cfg, final, flags, obs))
	default:
		os.Exit(runAnonymize(cfg, final, flags, formatOpts, obs))
	}
}

// runAnonymize cleans a raw export, replaces identities with stable
// anonymous IDs, writes the anonymized CSV and the encrypted codebook,
// and renders the run summary. Returns the process exit code.
func runAnonymize(cfg *config.Config, final *finalConfiguration, flags extractedFlags, formatOpts formatters.Options, obs *observability.DebugObserver) int {
	raw, err := ingest.LoadCSV(flags.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", flags.input, err)
		return 1
	}
	if obs != nil {
		obs.LogDetail("ingest", fmt.Sprintf("Loaded %d rows, %d columns from %s", raw.NumRows(), raw.NumCols(), flags.input))
	}

	cleaned, cleanLog, err := ingest.Clean(raw, final.sessionType)
	if err != nil {
		if errors.Is(err, ingest.ErrUnknownSessionType) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "Pass --session-type scheduled or --session-type walkin.\n")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error cleaning %s: %v\n", flags.input, err)
		return 1
	}
	if obs != nil {
		obs.LogDetail("ingest", fmt.Sprintf("Cleaned as %s export: %d renamed columns, %d merged datetime pairs",
			cleanLog.Pipeline, cleanLog.Renamed, cleanLog.MergedPairs))
	}

	var done func(bool, string)
	if obs != nil {
		done = obs.StartStep("anonymizer", "anonymize", flags.input)
	}
	result, err := anonymizer.Anonymize(cleaned, anonymizer.Options{
		Rules:        cfg.PIIRules(),
		ExtraColumns: final.extraColumns,
		SessionType:  cleanLog.Pipeline,
	})
	if err != nil {
		if done != nil {
			done(false, err.Error())
		}
		fmt.Fprintf(os.Stderr, "Error anonymizing %s: %v\n", flags.input, err)
		return 1
	}
	if done != nil {
		done(true, fmt.Sprintf("%d students, %d tutors", result.Log.StudentsAnonymized, result.Log.TutorsAnonymized))
	}

	outPath := flags.out
	if outPath == "" {
		outPath = defaultOutputPath(flags.input)
	}
	if err := result.Frame.SaveCSV(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
		return 1
	}

	codebookPath := ""
	if !flags.noCodebook {
		codebookPath, err = writeCodebook(result, cleanLog.Pipeline, final.codebookOut, flags.passwordEnv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error saving codebook: %v\n", err)
			return 1
		}
	}

	if final.audit {
		logAnonymizationAudit(result, codebookPath, cleanLog.Pipeline)
	}

	report := formatters.FromAnonymization(result.Log, flags.input, version.Short())
	rendered, err := formatters.Export(final.format, report, formatOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting results: %v\n", err)
		return 1
	}
	if code := emitOutput(rendered, flags.outputFile); code != 0 {
		return code
	}

	fmt.Fprintf(os.Stderr, "Anonymized dataset written to %s\n", outPath)
	if codebookPath != "" {
		fmt.Fprintf(os.Stderr, "Codebook written to %s; store the password separately\n", codebookPath)
	} else {
		fmt.Fprintf(os.Stderr, "No codebook written; this anonymization cannot be reversed\n")
	}
	return 0
}

// writeCodebook encrypts the identity mapping. The password comes from
// the named environment variable when set, otherwise from an interactive
// prompt with confirmation.
func writeCodebook(result *anonymizer.Result, sessionType, outPath, passwordEnv string) (string, error) {
	password := security.PasswordFromEnv(passwordEnv)
	if password != nil && password.Len() < security.MinPasswordLength {
		password.Clear()
		return "", fmt.Errorf("%s: %w", passwordEnv, security.ErrPasswordTooShort)
	}
	if password == nil {
		var err error
		password, err = security.PromptNewPassword()
		if err != nil {
			return "", err
		}
	}
	defer password.Clear()

	path := outPath
	if path == "" {
		dataDir := paths.GetDataDir()
		if err := paths.EnsureDir(dataDir); err != nil {
			return "", fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(dataDir, codebook.DefaultFileName(sessionType))
	} else if dir := filepath.Dir(path); dir != "." {
		if err := paths.EnsureDir(dir); err != nil {
			return "", fmt.Errorf("creating codebook directory: %w", err)
		}
	}

	cb := codebook.New(result.Students, result.Tutors, sessionType, result.Log.DateRange)
	if err := codebook.Save(path, cb, password.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// logAnonymizationAudit appends run events to the audit trail. Audit
// problems warn rather than fail: the anonymized output is already on
// disk and a broken audit file should not hide that.
func logAnonymizationAudit(result *anonymizer.Result, codebookPath, sessionType string) {
	logger, err := audit.OpenDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit log unavailable: %v\n", err)
		return
	}
	defer logger.Close()
	logger.AnonymizationRun(sessionType, result.Log.Rows, result.Log.StudentsAnonymized, result.Log.TutorsAnonymized)
	if codebookPath != "" {
		logger.CodebookSaved(codebookPath, len(result.Students), len(result.Tutors))
	}
}

// defaultOutputPath derives the anonymized CSV name from the input name.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_anonymized.csv"
}

// runScan walks a report bundle for residual identifiers and renders the
// findings. The exit code signals the outcome: 0 clean, 1 findings to
// review, 2 when the scan itself failed.
func runScan(ctx context.Context, final *finalConfiguration, flags extractedFlags, formatOpts formatters.Options, obs *observability.DebugObserver) int {
	suppPath := final.suppressionsFile
	if suppPath == "" {
		suppPath = paths.GetSuppressionsFile()
	}
	manager := suppressions.NewManager(suppPath)
	if obs != nil {
		obs.LogDetail("scan", fmt.Sprintf("Suppression rules: %s (%d loaded)", suppPath, len(manager.List())))
	}

	scanner := leakscan.NewScanner(leakscan.Options{
		MinConfidence: final.minConfidence,
		Suppressions:  manager,
	})
	var done func(success bool, details string)
	if obs != nil {
		done = obs.StartStep("scanner", "scan", flags.scanPath)
	}
	scanReport, err := scanner.ScanPath(ctx, flags.scanPath)
	if err != nil {
		if done != nil {
			done(false, err.Error())
		}
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", flags.scanPath, err)
		return 2
	}
	if done != nil {
		done(true, fmt.Sprintf("%d findings in %d files", len(scanReport.Findings), scanReport.FilesScanned))
		obs.LogMetric("scanner", "suppressed", scanReport.Suppressed)
	}

	if final.audit {
		if logger, err := audit.OpenDefault(); err == nil {
			logger.LeakScan(flags.scanPath, len(scanReport.Findings))
			logger.Close()
		}
	}

	report := formatters.FromLeakScan(scanReport, version.Short())
	rendered, err := formatters.Export(final.format, report, formatOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting results: %v\n", err)
		return 1
	}
	if code := emitOutput(rendered, flags.outputFile); code != 0 {
		return code
	}

	if len(scanReport.Findings) > 0 {
		return 1
	}
	return 0
}

// loadAnonymized loads a dataset for the chat and report modes. Both
// refuse raw exports: a file with surviving identity columns gets an
// error pointing at the anonymize mode instead of being processed.
func loadAnonymized(path, sessionTypeFlag string, rules pii.RuleSet) (*dataset.Frame, string, int) {
	frame, err := ingest.LoadCSV(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		return nil, "", 1
	}
	if frame.NumRows() == 0 {
		fmt.Fprintf(os.Stderr, "Error: %s has no data rows\n", path)
		return nil, "", 1
	}

	classifier := pii.NewClassifier(rules)
	if cols := classifier.DetectPIIColumns(frame); len(cols) > 0 {
		fmt.Fprintf(os.Stderr, "Error: %s still carries identity columns (%s)\n", path, strings.Join(cols, ", "))
		fmt.Fprintf(os.Stderr, "Anonymize it first: studio-analytics --input %s\n", path)
		return nil, "", 1
	}

	st := sessionTypeFlag
	if st == "" || st == "auto" {
		st = detectCleanedSessionType(frame)
	}
	return frame, st, 0
}

// detectCleanedSessionType keys on the cleaned column names an
// anonymized export carries, not the raw platform headers.
func detectCleanedSessionType(f *dataset.Frame) string {
	if f.HasColumn("Duration_Minutes") || f.HasColumn("Check_In_DateTime") {
		return ingest.SessionTypeWalkIn
	}
	if f.HasColumn("Appointment_DateTime") || f.HasColumn("Booking_DateTime") {
		return ingest.SessionTypeScheduled
	}
	return ingest.SessionTypeUnknown
}

// reportPayload is the structured form of the metrics report for json
// and yaml output. The text form is rendered by hand below.
type reportPayload struct {
	Tool         string           `json:"tool" yaml:"tool"`
	Version      string           `json:"version" yaml:"version"`
	GeneratedAt  time.Time        `json:"generated_at" yaml:"generated_at"`
	Source       string           `json:"source" yaml:"source"`
	SessionType  string           `json:"session_type" yaml:"session_type"`
	Key          keyMetricsBlock  `json:"key_metrics" yaml:"key_metrics"`
	Summary      metrics.Summary  `json:"summary" yaml:"summary"`
	BusiestDates []dateCountBlock `json:"busiest_dates,omitempty" yaml:"busiest_dates,omitempty"`
}

type keyMetricsBlock struct {
	TotalSessions      int     `json:"total_sessions" yaml:"total_sessions"`
	DateRange          string  `json:"date_range,omitempty" yaml:"date_range,omitempty"`
	UniqueStudents     int     `json:"unique_students,omitempty" yaml:"unique_students,omitempty"`
	UniqueTutors       int     `json:"unique_tutors,omitempty" yaml:"unique_tutors,omitempty"`
	CompletionRate     float64 `json:"completion_rate_pct,omitempty" yaml:"completion_rate_pct,omitempty"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes,omitempty" yaml:"avg_duration_minutes,omitempty"`
	AvgSatisfaction    float64 `json:"avg_satisfaction,omitempty" yaml:"avg_satisfaction,omitempty"`
	BusiestDay         string  `json:"busiest_day,omitempty" yaml:"busiest_day,omitempty"`
	PeakHour           int     `json:"peak_hour" yaml:"peak_hour"`
}

type dateCountBlock struct {
	Date     string `json:"date" yaml:"date"`
	Sessions int    `json:"sessions" yaml:"sessions"`
}

func buildReportPayload(rep *metrics.Report, summary metrics.Summary, busiest []query.DateCount, source string) reportPayload {
	key := rep.Key()
	payload := reportPayload{
		Tool:        "studio-analytics",
		Version:     version.Short(),
		GeneratedAt: time.Now(),
		Source:      source,
		SessionType: rep.SessionType,
		Key: keyMetricsBlock{
			TotalSessions:      key.TotalSessions,
			DateRange:          key.DateRange,
			UniqueStudents:     key.UniqueStudents,
			UniqueTutors:       key.UniqueTutors,
			CompletionRate:     key.CompletionRate,
			AvgDurationMinutes: key.AvgDurationMinutes,
			AvgSatisfaction:    key.AvgSatisfaction,
			BusiestDay:         key.BusiestDay,
			PeakHour:           key.PeakHour,
		},
		Summary: summary,
	}
	for _, dc := range busiest {
		payload.BusiestDates = append(payload.BusiestDates, dateCountBlock{Date: dc.Date, Sessions: dc.Sessions})
	}
	return payload
}

// runReport prints the aggregate metrics the chat assistant is grounded
// on, without starting a chat.
func runReport(ctx context.Context, cfg *config.Config, final *finalConfiguration, flags extractedFlags, obs *observability.DebugObserver) int {
	frame, st, code := loadAnonymized(flags.input, final.sessionType, cfg.PIIRules())
	if code != 0 {
		return code
	}

	var done func(success bool, details string)
	if obs != nil {
		done = obs.StartStep("metrics", "compute", flags.input)
	}
	rep := metrics.Compute(frame, st)
	summary := metrics.Summarize(rep)
	if done != nil {
		done(true, fmt.Sprintf("%d sessions", rep.Key().TotalSessions))
	}

	// Busiest dates come from the query engine; a frame without
	// parseable timestamps just omits the section
	var busiest []query.DateCount
	if engine, err := query.New(frame); err == nil {
		busiest, _ = engine.BusiestDates(ctx, 5)
		engine.Close()
	} else if obs != nil {
		obs.LogDetail("report", fmt.Sprintf("query engine unavailable: %v", err))
	}

	var rendered string
	switch final.format {
	case "", "text":
		rendered = renderTextReport(rep, summary, busiest)
	case "json":
		data, err := json.MarshalIndent(buildReportPayload(rep, summary, busiest, flags.input), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting report: %v\n", err)
			return 1
		}
		rendered = string(data)
	case "yaml":
		data, err := yaml.Marshal(buildReportPayload(rep, summary, busiest, flags.input))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting report: %v\n", err)
			return 1
		}
		rendered = string(data)
	default:
		fmt.Fprintf(os.Stderr, "Error: the metrics report supports text, json and yaml output, not %q\n", final.format)
		return 1
	}

	return emitOutput(rendered, flags.outputFile)
}

// renderTextReport renders the metrics report for terminals: overview
// paragraph, headline numbers, then findings, concerns, recommendations
// and the busiest dates.
func renderTextReport(rep *metrics.Report, summary metrics.Summary, busiest []query.DateCount) string {
	var b strings.Builder

	title := color.New(color.FgWhite, color.Bold)
	header := color.New(color.FgBlue, color.Bold)
	positive := color.New(color.FgGreen)
	warning := color.New(color.FgYellow)
	item := color.New(color.FgCyan)

	heading := "Session Metrics Report"
	b.WriteString(title.Sprint(heading))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(heading)))
	b.WriteString("\n\n")

	if summary.Overview != "" {
		b.WriteString(summary.Overview)
		b.WriteString("\n\n")
	}

	b.WriteString(rep.PromptBlock())
	b.WriteString("\n")

	if len(summary.KeyFindings) > 0 {
		b.WriteString("\n")
		b.WriteString(header.Sprint("FINDINGS:"))
		b.WriteString("\n")
		for _, line := range summary.KeyFindings {
			b.WriteString(item.Sprintf("  - %s", line))
			b.WriteString("\n")
		}
	}
	if len(summary.Concerns) > 0 {
		b.WriteString("\n")
		b.WriteString(header.Sprint("CONCERNS:"))
		b.WriteString("\n")
		for _, line := range summary.Concerns {
			b.WriteString(warning.Sprintf("  - %s", line))
			b.WriteString("\n")
		}
	}
	if len(summary.Recommendations) > 0 {
		b.WriteString("\n")
		b.WriteString(header.Sprint("RECOMMENDATIONS:"))
		b.WriteString("\n")
		for _, line := range summary.Recommendations {
			b.WriteString(positive.Sprintf("  - %s", line))
			b.WriteString("\n")
		}
	}
	if len(busiest) > 0 {
		b.WriteString("\n")
		b.WriteString(header.Sprint("BUSIEST DATES:"))
		b.WriteString("\n")
		for _, dc := range busiest {
			b.WriteString(fmt.Sprintf("  %s  %d sessions\n", dc.Date, dc.Sessions))
		}
	}

	return b.String()
}

// runChat starts the interactive loop: guardrails screen each question,
// aggregates run against the dataset, the local model phrases the
// answer, and the response filter checks it for identity leakage.
func runChat(ctx context.Context, cfg *config.Config, final *finalConfiguration, flags extractedFlags, obs *observability.DebugObserver) int {
	frame, st, code := loadAnonymized(flags.input, final.sessionType, cfg.PIIRules())
	if code != 0 {
		return code
	}

	client := llm.NewOllamaClient(llm.Config{BaseURL: final.ollamaURL, Model: final.model})
	if err := client.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: inference server unavailable: %v\n", err)
		fmt.Fprintf(os.Stderr, "Start Ollama or point --ollama-url at a running server.\n")
		return 1
	}
	if obs != nil {
		obs.LogDetail("chat", fmt.Sprintf("Inference server reachable, model %s", client.Model()))
	}

	executor := sandbox.New(frame, cfg.SandboxOptions())

	// The query engine is optional: a frame whose timestamps fail to
	// parse still chats through the sandbox path
	var queries *query.Engine
	if engine, err := query.New(frame); err == nil {
		queries = engine
		defer engine.Close()
	} else if obs != nil {
		obs.LogDetail("chat", fmt.Sprintf("query engine unavailable: %v", err))
	}

	var auditLogger *audit.Logger
	if final.audit {
		logger, err := audit.OpenDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit log unavailable: %v\n", err)
		} else {
			auditLogger = logger
			defer logger.Close()
		}
	}

	handler, err := chat.NewHandler(chat.Config{
		SessionType: st,
		Frame:       frame,
		Generator:   client,
		Executor:    executor,
		Queries:     queries,
		Rules:       cfg.GuardRules(),
		Audit:       auditLogger,
		GenOpts:     cfg.GenerationOptions(),
		MaxHistory:  cfg.Chat.History,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return chatLoop(ctx, handler, client.Model(), frame.NumRows(), final)
}

// chatLoop reads questions from stdin until EOF or an exit command.
func chatLoop(ctx context.Context, handler *chat.Handler, model string, rows int, final *finalConfiguration) int {
	banner := color.New(color.FgCyan, color.Bold)
	promptColor := color.New(color.FgGreen, color.Bold)
	refusal := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	banner.Println("Studio Analytics chat")
	fmt.Printf("Dataset: %d sessions. Model: %s (local). Type 'exit' to quit.\n\n", rows, model)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		switch strings.ToLower(question) {
		case "exit", "quit", "bye":
			fmt.Println("Goodbye.")
			return 0
		}

		answer, err := handler.Ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted.")
				return 1
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		if answer.Rejected {
			refusal.Println(answer.Text)
			fmt.Println()
			continue
		}
		if final.verbose && answer.Computed != "" {
			source := "sandbox"
			if answer.QueryUsed {
				source = "query"
			}
			faint.Printf("[%s] %s\n", source, answer.Computed)
		}
		fmt.Println(answer.Text)
		fmt.Println()
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		return 1
	}
	return 0
}

// emitOutput writes rendered output to stdout or, with --output, to a
// file under owner-only permissions. Returns a non-zero exit code on
// failure.
func emitOutput(content, outputFile string) int {
	if outputFile == "" {
		fmt.Println(content)
		return 0
	}

	cleanPath := filepath.Clean(outputFile)
	// Check for path traversal attempts
	if strings.Contains(outputFile, "..") || strings.Contains(cleanPath, "..") {
		fmt.Fprintf(os.Stderr, "Error: path traversal not allowed in output path: %s\n", outputFile)
		return 1
	}
	abs, err := filepath.Abs(cleanPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid output file path %s: %v\n", outputFile, err)
		return 1
	}
	// Ensure output directory exists with secure permissions (owner only)
	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		return 1
	}
	// Findings can carry sensitive fragments, so the file is owner-only
	if err := os.WriteFile(abs, []byte(content), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to output file: %v\n", err)
		return 1
	}
	return 0
}

// isFlagSet reports whether the user explicitly set the named flag.
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// splitColumns parses a comma-separated column list, dropping empties.
func splitColumns(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
