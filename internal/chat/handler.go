// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package chat answers natural-language questions about an anonymized
// session dataset. Every question passes the input validator before any
// model call, every response passes the leak filter before it reaches
// the caller, and questions that ask for a number can be routed through
// the code sandbox so the model reports computed values instead of
// guessing them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"studio-analytics/internal/dataset"
	"studio-analytics/internal/guard"
	"studio-analytics/internal/llm"
	"studio-analytics/internal/metrics"
	"studio-analytics/internal/query"
	"studio-analytics/internal/sandbox"
)

const (
	// DefaultMaxHistory bounds stored exchanges; the oldest are evicted.
	DefaultMaxHistory = 10
	// promptHistory is how many recent exchanges the prompt carries.
	promptHistory = 3
)

// Config assembles a Handler. Generator and Frame are required; Report
// is computed from the frame when nil, a nil Executor disables the
// sandbox path, and a nil Queries disables the direct aggregate path.
type Config struct {
	SessionType string
	Frame       *dataset.Frame
	Report      *metrics.Report
	Generator   llm.Generator
	Executor    *sandbox.Executor
	Queries     *query.Engine
	Rules       guard.Rules
	Audit       guard.AuditSink
	GenOpts     llm.Options
	MaxHistory  int
}

// Exchange is one stored question/answer turn.
type Exchange struct {
	Question string
	Answer   string
}

// Answer is the outcome of one Ask call. CodeUsed means the sandbox ran
// model-written code; QueryUsed means a pre-baked aggregate query
// supplied the computed value without a code round trip.
type Answer struct {
	Text      string
	Rejected  bool
	Reason    string
	LLMCalled bool
	CodeUsed  bool
	QueryUsed bool
	Computed  string
}

// Handler runs the ask pipeline over one dataset. It keeps conversation
// history between calls and is not safe for concurrent use; callers
// serialize turns.
type Handler struct {
	generator llm.Generator
	executor  *sandbox.Executor
	queries   *query.Engine
	validator *guard.InputValidator
	filter    *guard.ResponseFilter
	genOpts   llm.Options

	sysPrompt  string
	dataCtx    string
	columns    []string
	history    []Exchange
	maxHistory int
}

// NewHandler validates the config and precomputes the system prompt and
// data context so each Ask only assembles the per-question parts.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Generator == nil {
		return nil, errors.New("chat: generator is required")
	}
	if cfg.Frame == nil || cfg.Frame.NumRows() == 0 {
		return nil, errors.New("chat: dataset is empty")
	}

	validator, err := guard.NewInputValidator(cfg.Rules, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	filter, err := guard.NewResponseFilter(cfg.Rules, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	report := cfg.Report
	if report == nil {
		report = metrics.Compute(cfg.Frame, cfg.SessionType)
	}

	opts := cfg.GenOpts
	if opts.MaxTokens == 0 {
		opts = llm.DefaultOptions()
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}

	return &Handler{
		generator:  cfg.Generator,
		executor:   cfg.Executor,
		queries:    cfg.Queries,
		validator:  validator,
		filter:     filter,
		genOpts:    opts,
		sysPrompt:  buildSystemPrompt(cfg.SessionType, cfg.Frame, report),
		dataCtx:    dataContext(cfg.Frame),
		columns:    cfg.Frame.Columns(),
		maxHistory: cfg.MaxHistory,
	}, nil
}

func buildSystemPrompt(sessionType string, f *dataset.Frame, r *metrics.Report) string {
	template := scheduledSystemPrompt
	if strings.EqualFold(sessionType, "walkin") {
		template = walkinSystemPrompt
	}
	dateRange := r.DateRange
	if dateRange == "" {
		dateRange = "Unknown"
	}
	return fillTemplate(template, map[string]string{
		"total_sessions":   groupThousands(f.NumRows()),
		"date_range":       dateRange,
		"available_fields": strings.Join(f.Columns(), ", "),
		"key_metrics":      r.PromptBlock(),
	})
}

// Ask runs one question through the pipeline: validate, optionally
// compute, generate, filter, record. A rejected question returns canned
// refusal text without touching the model or the history. An error from
// the model leaves the history unchanged.
func (h *Handler) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, errors.New("chat: empty question")
	}

	verdict := h.validator.Validate(question)
	if !verdict.Allowed {
		return Answer{
			Text:     guard.RejectionMessage(verdict.Reason),
			Rejected: true,
			Reason:   verdict.Reason,
		}, nil
	}

	var computed string
	var codeUsed, queryUsed bool
	if h.queries != nil {
		computed, queryUsed = h.tryQuery(ctx, question)
		if ctx.Err() != nil {
			return Answer{}, fmt.Errorf("chat: %w", ctx.Err())
		}
	}
	if !queryUsed && h.executor != nil && wantsComputation(question) {
		computed, codeUsed = h.tryCompute(ctx, question)
		if ctx.Err() != nil {
			return Answer{}, fmt.Errorf("chat: %w", ctx.Err())
		}
	}

	prompt := h.buildPrompt(question, computed)
	raw, err := h.generator.Generate(ctx, prompt, h.genOpts)
	if err != nil {
		return Answer{}, fmt.Errorf("chat: %w", err)
	}

	safe := h.filter.Filter(raw)

	h.history = append(h.history, Exchange{Question: question, Answer: safe})
	if len(h.history) > h.maxHistory {
		h.history = h.history[len(h.history)-h.maxHistory:]
	}

	return Answer{
		Text:      safe,
		Reason:    verdict.Reason,
		LLMCalled: true,
		CodeUsed:  codeUsed,
		QueryUsed: queryUsed,
		Computed:  computed,
	}, nil
}

// isoDateRe spots a calendar date in a question. A date is its own
// computation intent; no counting keyword is required.
var isoDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)

// tryQuery answers a handful of question shapes straight from the query
// engine: a specific date, a busiest/slowest-dates ranking, or the
// weekday distribution. These are the aggregates the sandbox cannot
// derive because the interpreter has no date functions. A miss or a
// query error falls through to the sandbox path.
func (h *Handler) tryQuery(ctx context.Context, question string) (string, bool) {
	lower := strings.ToLower(question)

	if m := isoDateRe.FindString(question); m != "" {
		s, err := h.queries.SessionsOnDate(ctx, m)
		if err != nil {
			return "", false
		}
		if s.AvgDurationMinutes > 0 {
			return fmt.Sprintf("%s: %d sessions, %d unique students, average length %.1f minutes",
				s.Date, s.Sessions, s.UniqueStudents, s.AvgDurationMinutes), true
		}
		return fmt.Sprintf("%s: %d sessions, %d unique students", s.Date, s.Sessions, s.UniqueStudents), true
	}

	switch {
	case strings.Contains(lower, "busiest date"), strings.Contains(lower, "slowest date"):
		ranked, err := h.queries.BusiestDates(ctx, 3)
		if strings.Contains(lower, "slowest date") {
			ranked, err = h.queries.SlowestDates(ctx, 3)
		}
		if err != nil || len(ranked) == 0 {
			return "", false
		}
		parts := make([]string, len(ranked))
		for i, dc := range ranked {
			parts[i] = fmt.Sprintf("%s (%d sessions)", dc.Date, dc.Sessions)
		}
		return strings.Join(parts, ", "), true

	case strings.Contains(lower, "by weekday"), strings.Contains(lower, "per weekday"),
		strings.Contains(lower, "by day of week"):
		days, err := h.queries.SessionsByWeekday(ctx)
		if err != nil {
			return "", false
		}
		parts := make([]string, 0, len(days))
		for _, wc := range days {
			parts = append(parts, fmt.Sprintf("%s=%d", wc.Weekday, wc.Sessions))
		}
		return strings.Join(parts, ", "), true
	}

	return "", false
}

// tryCompute asks the model for sandbox code and executes it. Any
// failure along the way falls back to the plain prompt; the question
// still gets answered, just without a computed value.
func (h *Handler) tryCompute(ctx context.Context, question string) (string, bool) {
	prompt := fillTemplate(codePromptTemplate, map[string]string{
		"columns":  strings.Join(h.columns, ", "),
		"question": question,
	})
	resp, err := h.generator.Generate(ctx, prompt, llm.Options{
		MaxTokens:   256,
		Temperature: 0.2,
		TopP:        0.9,
		TopK:        40,
		Stop:        []string{"```"},
	})
	if err != nil {
		return "", false
	}
	code := extractCode(resp)
	if code == "" {
		return "", false
	}
	res := h.executor.Execute(ctx, code)
	if !res.OK {
		return "", false
	}
	return sandbox.FormatValue(res.Value), true
}

func (h *Handler) buildPrompt(question, computed string) string {
	var b strings.Builder
	b.WriteString(h.sysPrompt)
	b.WriteString("\n\n")
	b.WriteString(h.dataCtx)
	b.WriteString("\n\n")

	if computed != "" {
		b.WriteString("COMPUTED RESULT: " + computed + "\n")
		b.WriteString("The value above was calculated directly from the dataset for this question. Use it in your answer.\n\n")
	}

	if len(h.history) > 0 {
		b.WriteString("CONVERSATION HISTORY:\n")
		start := len(h.history) - promptHistory
		if start < 0 {
			start = 0
		}
		for _, ex := range h.history[start:] {
			b.WriteString("User: " + ex.Question + "\n")
			b.WriteString("Assistant: " + ex.Answer + "\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\nAssistant:", question)
	return b.String()
}

// History returns a copy of the stored exchanges, oldest first.
func (h *Handler) History() []Exchange {
	out := make([]Exchange, len(h.history))
	copy(out, h.history)
	return out
}

// ClearHistory drops all stored exchanges.
func (h *Handler) ClearHistory() {
	h.history = nil
}

// computationRe matches question phrasings that ask for a number. Only
// those are worth a sandbox round trip.
var computationRe = regexp.MustCompile(`(?i)\b(how many|how much|average|avg|mean|median|count|total|sum|busiest|slowest|most|least|rate|percent|percentage|std|standard deviation|min(imum)?|max(imum)?|unique|number of)\b`)

func wantsComputation(question string) bool {
	return computationRe.MatchString(question)
}

// extractCode strips markdown fences and surrounding prose from a model
// reply, keeping the lines that look like sandbox statements. Anything
// the sandbox cannot parse is rejected there, so this stays permissive.
func extractCode(resp string) string {
	var lines []string
	inFence := false
	sawFence := strings.Contains(resp, "```")
	for _, line := range strings.Split(resp, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if sawFence && !inFence {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
