// Package errors provides the structured error type (BuildError) shared by
// every stage of a documentation build, with category-based classification
// for the end-of-build report.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a build error for classification.
type ErrorCategory string

const (
	// User-facing metadata and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryCollision  ErrorCategory = "collision"
	CategoryReference  ErrorCategory = "reference"

	// External system and infrastructure errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryGit        ErrorCategory = "git"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the build
	SeverityError   ErrorSeverity = "error"   // Entity skipped, build continues
	SeverityWarning ErrorSeverity = "warning" // Recorded, output still produced
)

// BuildError is a structured error with category, severity, and context.
// Validation errors additionally carry the dotted field path of the
// offending metadata field.
type BuildError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	FieldPath string        `json:"field_path,omitempty"`
	Cause     error         `json:"-"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BuildError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *BuildError) Error() string {
	switch {
	case e.FieldPath != "" && e.Cause != nil:
		return fmt.Sprintf("%s (%s): %s: %s: %v", e.Category, e.Severity, e.FieldPath, e.Message, e.Cause)
	case e.FieldPath != "":
		return fmt.Sprintf("%s (%s): %s: %s", e.Category, e.Severity, e.FieldPath, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
	}
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithField records the dotted field path the error refers to.
func (e *BuildError) WithField(path string) *BuildError {
	e.FieldPath = path
	return e
}

// WithSeverity overrides the error severity.
func (e *BuildError) WithSeverity(s ErrorSeverity) *BuildError {
	e.Severity = s
	return e
}

// WithContext adds context information to the error.
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BuildError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Validationf creates a validation error for the given dotted field path.
func Validationf(fieldPath, format string, args ...any) *BuildError {
	return &BuildError{
		Category:  CategoryValidation,
		Severity:  SeverityError,
		Message:   fmt.Sprintf(format, args...),
		FieldPath: fieldPath,
	}
}

// Collisionf creates a collision error for a duplicate canonical identifier.
func Collisionf(identifier, format string, args ...any) *BuildError {
	return &BuildError{
		Category:  CategoryCollision,
		Severity:  SeverityError,
		Message:   fmt.Sprintf(format, args...),
		FieldPath: identifier,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	if be, ok := err.(*BuildError); ok {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns
// CategoryInternal if not a BuildError.
func GetCategory(err error) ErrorCategory {
	if be, ok := err.(*BuildError); ok {
		return be.Category
	}
	return CategoryInternal
}
