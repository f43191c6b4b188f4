// Package types provides shared types, interfaces, and errors for the application.
package types

import "errors"

// Client-facing error codes surfaced at the HTTP boundary.
const (
	CodeURLRequired      = "URL_REQUIRED"
	CodeURLInvalid       = "URL_INVALID"
	CodeURLBlocked       = "URL_BLOCKED"
	CodeDomainNotAllowed = "DOMAIN_NOT_ALLOWED"
	CodePoolExhausted    = "POOL_EXHAUSTED"
	CodeTimeout          = "TIMEOUT"
	CodeNavigationFailed = "NAVIGATION_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeBadRequest       = "BAD_REQUEST"
)

// Sentinel errors for consistent error handling across the application.
// These errors can be checked with errors.Is() for type-safe error handling.
var (
	// Browser pool errors
	ErrPoolClosed  = errors.New("browser pool is closed")
	ErrPoolTimeout = errors.New("timeout waiting for browser from pool")

	// URL guard errors
	ErrURLRequired      = errors.New("url is required")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrBlockedScheme    = errors.New("URL scheme not allowed")
	ErrBlockedHost      = errors.New("host not allowed")
	ErrPrivateIPBlocked = errors.New("private/internal IP addresses are not allowed")
	ErrDomainNotAllowed = errors.New("domain is not in the allowed list")

	// Pipeline errors
	ErrNavigationFailed = errors.New("navigation failed")
	ErrNavigationTimeout = errors.New("navigation timed out")
)

// AnalysisError carries the taxonomy code for a failed analysis alongside
// the underlying cause. The code maps directly to the HTTP error envelope.
type AnalysisError struct {
	Code    string // taxonomy code, e.g. TIMEOUT
	Message string // client-facing message, no internal detail
	Err     error  // underlying error (for unwrapping), logged server-side only
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewURLRequiredError creates an error for requests without a URL.
func NewURLRequiredError() *AnalysisError {
	return &AnalysisError{
		Code:    CodeURLRequired,
		Message: "URL is required.",
		Err:     ErrURLRequired,
	}
}

// NewURLBlockedError creates an error for SSRF-rejected URLs.
func NewURLBlockedError(err error) *AnalysisError {
	return &AnalysisError{
		Code:    CodeURLBlocked,
		Message: "This URL is not allowed for security reasons.",
		Err:     err,
	}
}

// NewURLInvalidError creates an error for malformed target URLs.
func NewURLInvalidError(err error) *AnalysisError {
	return &AnalysisError{
		Code:    CodeURLInvalid,
		Message: "Invalid URL format. Please provide a valid HTTP or HTTPS URL.",
		Err:     err,
	}
}

// NewDomainNotAllowedError creates an error for allowlist rejections.
func NewDomainNotAllowedError() *AnalysisError {
	return &AnalysisError{
		Code:    CodeDomainNotAllowed,
		Message: "This domain is not in the allowed list.",
		Err:     ErrDomainNotAllowed,
	}
}

// NewTimeoutError creates an error for navigation or extraction timeouts.
func NewTimeoutError(err error) *AnalysisError {
	return &AnalysisError{
		Code:    CodeTimeout,
		Message: "The request timed out. The page may be loading too slowly.",
		Err:     err,
	}
}

// NewNavigationError creates an error for network-level navigation failures.
func NewNavigationError(err error) *AnalysisError {
	return &AnalysisError{
		Code:    CodeNavigationFailed,
		Message: "Failed to load the page. Please check if the URL is accessible.",
		Err:     err,
	}
}

// NewPoolExhaustedError creates an error for pool acquisition timeouts.
func NewPoolExhaustedError(err error) *AnalysisError {
	return &AnalysisError{
		Code:    CodePoolExhausted,
		Message: "All browser instances are busy. Please retry shortly.",
		Err:     err,
	}
}

// NewInternalError wraps an unclassified failure. The client sees a
// generic message; the cause is only logged server-side.
func NewInternalError(err error) *AnalysisError {
	return &AnalysisError{
		Code:    CodeInternalError,
		Message: "An unexpected error occurred.",
		Err:     err,
	}
}
