// Package errors provides structured error handling for searchd.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Query errors (user-correctable)
//   - 3XX: Engine/transport errors
//   - 4XX: Store errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryQuery indicates user-correctable query errors.
	CategoryQuery Category = "QUERY"
	// CategoryEngine indicates search engine transport errors.
	CategoryEngine Category = "ENGINE"
	// CategoryStore indicates repository store errors.
	CategoryStore Category = "STORE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Query errors (200-299)
	ErrCodeQueryParse         = "ERR_201_QUERY_PARSE"
	ErrCodeInvalidFilterValue = "ERR_202_INVALID_FILTER_VALUE"
	ErrCodeUnknownContext     = "ERR_203_UNKNOWN_SEARCH_CONTEXT"

	// Engine errors (300-399)
	ErrCodeEngineUnavailable = "ERR_301_ENGINE_UNAVAILABLE"
	ErrCodeEngineStream      = "ERR_302_ENGINE_STREAM"

	// Store errors (400-499)
	ErrCodeRepoLookup = "ERR_401_REPO_LOOKUP"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from an error code prefix.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryQuery
	case '3':
		return CategoryEngine
	case '4':
		return CategoryStore
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from an error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigNotFound, ErrCodeConfigInvalid:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isUserCorrectable reports whether the error is caused by caller input
// (bad query syntax, bad filter values) rather than by infrastructure.
func isUserCorrectable(code string) bool {
	return categoryFromCode(code) == CategoryQuery
}
