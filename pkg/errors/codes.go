package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeCacheError         ErrorCode = "COMMON_011"
	ErrCodeStorageError       ErrorCode = "COMMON_012"
	ErrCodeNotImplemented     ErrorCode = "COMMON_013"
)

// Aliases used throughout the codebase.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Editor Module Error Codes
const (
	ErrCodeSessionNotFound    ErrorCode = "EDT_001"
	ErrCodeAtomNotFound       ErrorCode = "EDT_002"
	ErrCodeBondNotFound       ErrorCode = "EDT_003"
	ErrCodeDuplicateBond      ErrorCode = "EDT_004"
	ErrCodeSelfBond           ErrorCode = "EDT_005"
	ErrCodeUnknownElement     ErrorCode = "EDT_006"
	ErrCodeUnknownTool        ErrorCode = "EDT_007"
	ErrCodeEmptyMolecule      ErrorCode = "EDT_008"
	ErrCodeMalformedMolBlock  ErrorCode = "EDT_009"
	ErrCodeSketchNotFound     ErrorCode = "EDT_010"
	ErrCodeSketchNameConflict ErrorCode = "EDT_011"
)

// Resolution / Analysis Module Error Codes
const (
	ErrCodeEmptyQuery          ErrorCode = "RES_001"
	ErrCodeCompoundNotFound    ErrorCode = "RES_002"
	ErrCodeNoFallbackReference ErrorCode = "RES_003"
	ErrCodeAnalysisFailed      ErrorCode = "RES_004"
)

// Provider Error Codes (primary AI provider and PubChem alike)
const (
	ErrCodeProviderUnavailable ErrorCode = "SRC_001"
	ErrCodeProviderRateLimited ErrorCode = "SRC_002"
	ErrCodeProviderAuthFailed  ErrorCode = "SRC_003"
	ErrCodeMalformedResponse   ErrorCode = "SRC_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeSessionNotFound:    http.StatusNotFound,
	ErrCodeAtomNotFound:       http.StatusNotFound,
	ErrCodeBondNotFound:       http.StatusNotFound,
	ErrCodeDuplicateBond:      http.StatusConflict,
	ErrCodeSelfBond:           http.StatusBadRequest,
	ErrCodeUnknownElement:     http.StatusBadRequest,
	ErrCodeUnknownTool:        http.StatusBadRequest,
	ErrCodeEmptyMolecule:      http.StatusBadRequest,
	ErrCodeMalformedMolBlock:  http.StatusBadGateway,
	ErrCodeSketchNotFound:     http.StatusNotFound,
	ErrCodeSketchNameConflict: http.StatusConflict,

	ErrCodeEmptyQuery:          http.StatusBadRequest,
	ErrCodeCompoundNotFound:    http.StatusNotFound,
	ErrCodeNoFallbackReference: http.StatusFailedDependency,
	ErrCodeAnalysisFailed:      http.StatusBadGateway,

	ErrCodeProviderUnavailable: http.StatusServiceUnavailable,
	ErrCodeProviderRateLimited: http.StatusTooManyRequests,
	ErrCodeProviderAuthFailed:  http.StatusBadGateway,
	ErrCodeMalformedResponse:   http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeSessionNotFound:    "editor session not found",
	ErrCodeAtomNotFound:       "atom not found",
	ErrCodeBondNotFound:       "bond not found",
	ErrCodeDuplicateBond:      "bond already exists between these atoms",
	ErrCodeSelfBond:           "bond endpoints must be distinct atoms",
	ErrCodeUnknownElement:     "unknown element symbol",
	ErrCodeUnknownTool:        "unknown editor tool",
	ErrCodeEmptyMolecule:      "molecule has no atoms",
	ErrCodeMalformedMolBlock:  "malformed mol-block payload",
	ErrCodeSketchNotFound:     "saved sketch not found",
	ErrCodeSketchNameConflict: "a sketch with this name already exists",

	ErrCodeEmptyQuery:          "query must not be empty",
	ErrCodeCompoundNotFound:    "compound not found in any source",
	ErrCodeNoFallbackReference: "no reference identifier available for fallback lookup",
	ErrCodeAnalysisFailed:      "structure analysis failed",

	ErrCodeProviderUnavailable: "provider unavailable",
	ErrCodeProviderRateLimited: "provider rate limited",
	ErrCodeProviderAuthFailed:  "provider authentication failed",
	ErrCodeMalformedResponse:   "malformed provider response",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
