package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure kind. Codes are part of the API contract:
// handlers and tests match on them, never on message wording.
type Code string

const (
	CodeStorageFailure       Code = "storage_failure"
	CodeUnsupportedMediaType Code = "unsupported_media_type"
	CodeCorruptContent       Code = "corrupt_content"
	CodePersistenceFailure   Code = "persistence_failure"
	CodeNotFound             Code = "not_found"
	CodeInvalidIdentifier    Code = "invalid_identifier"
	CodeConflict             Code = "conflict"

	CodeAnalysisAuth              Code = "analysis_auth"
	CodeAnalysisRateLimited       Code = "analysis_rate_limited"
	CodeAnalysisQuota             Code = "analysis_quota"
	CodeAnalysisMalformedResponse Code = "analysis_malformed_response"
	CodeAnalysisNetwork           Code = "analysis_network"
	CodeAnalysisUpstream          Code = "analysis_upstream"
	CodeInvalidAnalysisResult     Code = "invalid_analysis_result"

	CodeValidation   Code = "validation_failed"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// messages holds the stable, user-visible text per code. Upstream error
// detail stays in the wrapped cause and reaches logs, not API responses.
var messages = map[Code]string{
	CodeStorageFailure:       "failed to store file",
	CodeUnsupportedMediaType: "unsupported media type",
	CodeCorruptContent:       "file content could not be read",
	CodePersistenceFailure:   "failed to persist document record",
	CodeNotFound:             "document not found",
	CodeInvalidIdentifier:    "invalid document identifier",
	CodeConflict:             "operation conflicts with current state",

	CodeAnalysisAuth:              "analysis service rejected credentials",
	CodeAnalysisRateLimited:       "analysis service rate limit exceeded",
	CodeAnalysisQuota:             "analysis service quota exhausted",
	CodeAnalysisMalformedResponse: "analysis service returned an unreadable response",
	CodeAnalysisNetwork:           "analysis service unreachable",
	CodeAnalysisUpstream:          "analysis service failed",
	CodeInvalidAnalysisResult:     "analysis result is missing required fields",

	CodeValidation:   "invalid request",
	CodeUnauthorized: "authentication required",
	CodeInternal:     "internal error",
}

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the stable message for code, wrapping cause.
// cause may be nil.
func New(code Code, cause error) *Error {
	msg, ok := messages[code]
	if !ok {
		msg = messages[CodeInternal]
	}
	return &Error{Code: code, Message: msg, Err: cause}
}

// Newf overrides the stable message with request-specific detail. Use it
// only for validation-style errors where the detail is caller input, not
// upstream error text.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code from err, walking the wrap chain.
// Errors outside the taxonomy report CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// MessageOf returns the user-visible message for err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return messages[CodeInternal]
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a failure code to its externally visible status. Codes
// stay distinct even where statuses coincide.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case CodeCorruptContent:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidIdentifier, CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeAnalysisRateLimited, CodeAnalysisQuota:
		return http.StatusTooManyRequests
	case CodeAnalysisAuth, CodeAnalysisUpstream, CodeAnalysisMalformedResponse, CodeInvalidAnalysisResult:
		return http.StatusBadGateway
	case CodeAnalysisNetwork:
		return http.StatusGatewayTimeout
	case CodeStorageFailure, CodePersistenceFailure, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
