package errors

import (
	stderrors "errors"
	"net/http"
)

// ServiceError is the wire representation of an error at the HTTP/SSE
// boundary. It is safe to serialize to callers.
type ServiceError struct {
	StatusCode int    `json:"statusCode"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

// ToServiceError converts any error into its wire representation.
// User-correctable errors map to 400, engine errors to 502, and
// everything else to 500 with the original message preserved.
func ToServiceError(err error) ServiceError {
	var se *SearchError
	if !stderrors.As(err, &se) {
		return ServiceError{
			StatusCode: http.StatusInternalServerError,
			ErrorCode:  ErrCodeInternal,
			Message:    err.Error(),
		}
	}

	status := http.StatusInternalServerError
	switch {
	case se.UserCorrectable:
		status = http.StatusBadRequest
	case se.Category == CategoryEngine:
		status = http.StatusBadGateway
	}

	return ServiceError{
		StatusCode: status,
		ErrorCode:  se.Code,
		Message:    se.Message,
	}
}
