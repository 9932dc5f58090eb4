package errors

import (
	"fmt"
)

// SearchError is the structured error type for searchd.
// It provides rich context for error handling, logging, and user presentation.
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_201_QUERY_PARSE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Query, Engine, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// UserCorrectable indicates the caller can fix the problem by
	// changing their input (bad query vs. backend unavailable).
	UserCorrectable bool
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SearchError.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and the user-correctable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:            code,
		Message:         message,
		Category:        categoryFromCode(code),
		Severity:        severityFromCode(code),
		Cause:           cause,
		UserCorrectable: isUserCorrectable(code),
	}
}

// Wrap creates a SearchError from an existing error.
// The error's message becomes the SearchError message.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// QueryParseError creates an error for a query that failed to parse.
// The offending query text is surfaced verbatim.
func QueryParseError(query string, cause error) *SearchError {
	return New(
		ErrCodeQueryParse,
		fmt.Sprintf("failed to parse query %q with message: %s", query, cause.Error()),
		cause,
	).WithDetail("query", query)
}

// InvalidFilterValueError creates an error for an invalid enumerated
// filter value (e.g., archived:maybe).
func InvalidFilterValueError(message string) *SearchError {
	return New(ErrCodeInvalidFilterValue, message, nil)
}

// UnknownContextError creates an error for an unresolvable search context name.
func UnknownContextError(name string) *SearchError {
	return New(
		ErrCodeUnknownContext,
		fmt.Sprintf("search context %q not found", name),
		nil,
	).WithDetail("context", name)
}

// UnexpectedError creates an internal error surfaced to callers as a
// generic failure.
func UnexpectedError(message string, cause error) *SearchError {
	return New(ErrCodeInternal, message, cause)
}

// EngineError creates a search engine transport error.
func EngineError(message string, cause error) *SearchError {
	return New(ErrCodeEngineUnavailable, message, cause)
}

// IsUserCorrectable checks if an error is caused by caller input.
func IsUserCorrectable(err error) bool {
	if se, ok := err.(*SearchError); ok {
		return se.UserCorrectable
	}
	return false
}
