package models

import (
	"errors"
	"fmt"
)

// Error codes used by strategies, the engine and the control API.
const (
	ErrCodeTargetNotFound    = "TARGET_NOT_FOUND"
	ErrCodeMissingIdentifier = "MISSING_IDENTIFIER"
	ErrCodeContentNotFound   = "CONTENT_NOT_FOUND"
	ErrCodeExtractor         = "EXTRACTOR_FAILED"
	ErrCodeSnapshot          = "SNAPSHOT_FAILED"
	ErrCodeTimeout           = "EXTRACTION_TIMEOUT"
	ErrCodeBrowser           = "BROWSER_ERROR"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExtractError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ExtractError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError.
func NewExtractError(code, message string, err error) *ExtractError {
	return &ExtractError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ExtractError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// ErrorCode returns the code of the first ExtractError in err's chain,
// or ErrCodeInternal when there is none.
func ErrorCode(err error) string {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ErrCodeInternal
}

// DetailOf converts any error to an ErrorDetail.
func DetailOf(err error) *ErrorDetail {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}
