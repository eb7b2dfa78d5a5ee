package docgen

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/colldocs/internal/errors"
	"git.home.luguber.info/inful/colldocs/internal/logfields"
)

// RecordedError is one build error as it appears in the end-of-build
// summary and build-report.json.
type RecordedError struct {
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Plugin    string `json:"plugin,omitempty"`
	FieldPath string `json:"field_path,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Message   string `json:"message"`
}

// Report aggregates the outcome of one build invocation. No error is
// silently dropped; everything recorded here is logged in the final summary.
type Report struct {
	mu sync.Mutex

	BuildID    string          `json:"build_id"`
	Collection string          `json:"collection"`
	Version    string          `json:"version,omitempty"`
	Plugins    int             `json:"plugins"`
	Skipped    int             `json:"skipped"`
	Pages      int             `json:"pages"`
	Entities   int             `json:"entities"`
	Outcome    string          `json:"outcome"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS float64         `json:"duration_ms"`
	Stages     map[string]float64 `json:"stage_durations_ms"`
	Errors     []RecordedError `json:"errors"`
}

func newReport(buildID string) *Report {
	return &Report{
		BuildID:   buildID,
		StartedAt: time.Now().UTC(),
		Stages:    make(map[string]float64),
	}
}

// Record adds one error, unwrapping BuildError structure when present.
func (r *Report) Record(err error, plugin, file string) {
	if err == nil {
		return
	}
	rec := RecordedError{
		Category: string(errors.GetCategory(err)),
		Severity: string(errors.SeverityError),
		Plugin:   plugin,
		File:     file,
		Message:  err.Error(),
	}
	if be, ok := err.(*errors.BuildError); ok {
		rec.Severity = string(be.Severity)
		rec.FieldPath = be.FieldPath
		rec.Message = be.Message
	}
	r.mu.Lock()
	r.Errors = append(r.Errors, rec)
	r.mu.Unlock()
}

// RecordReference adds one reference-resolution finding with its source
// location.
func (r *Report) RecordReference(file string, line int, query string, err error) {
	r.mu.Lock()
	r.Errors = append(r.Errors, RecordedError{
		Category: string(errors.CategoryReference),
		Severity: string(errors.SeverityWarning),
		File:     file,
		Line:     line,
		Message:  err.Error(),
	})
	r.mu.Unlock()
}

func (r *Report) stage(name string, d time.Duration) {
	r.mu.Lock()
	r.Stages[name] = float64(d.Milliseconds())
	r.mu.Unlock()
}

// CountByCategory returns recorded error counts keyed by category.
func (r *Report) CountByCategory() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range r.Errors {
		counts[e.Category]++
	}
	return counts
}

// ErrorCount returns the number of recorded errors.
func (r *Report) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors)
}

func (r *Report) finish(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DurationMS = float64(d.Milliseconds())
	// Stable error ordering for byte-identical reports.
	sort.Slice(r.Errors, func(i, j int) bool {
		a, b := r.Errors[i], r.Errors[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Plugin != b.Plugin {
			return a.Plugin < b.Plugin
		}
		return a.Message < b.Message
	})
	switch {
	case len(r.Errors) == 0:
		r.Outcome = "success"
	default:
		r.Outcome = "warning"
	}
}

// WriteJSON writes the report to path with stable formatting.
func (r *Report) WriteJSON(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, errors.SeverityError, "failed to marshal build report")
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LogSummary emits the end-of-build summary: outcome, counts per category,
// and one line per recorded error with its location.
func (r *Report) LogSummary() {
	counts := r.CountByCategory()
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	slog.Info("Build finished",
		logfields.BuildID(r.BuildID),
		logfields.Collection(r.Collection),
		slog.String("outcome", r.Outcome),
		slog.Int("plugins", r.Plugins),
		slog.Int("pages", r.Pages),
		slog.Int("errors", r.ErrorCount()))

	for _, c := range categories {
		slog.Info("Recorded errors", slog.String("category", c), logfields.Count(counts[c]))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Errors {
		slog.Warn("Build error",
			slog.String("category", e.Category),
			logfields.Plugin(e.Plugin),
			logfields.File(e.File),
			slog.Int("line", e.Line),
			slog.String("field", e.FieldPath),
			slog.String("message", e.Message))
	}
}
