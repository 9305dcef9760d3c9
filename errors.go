package bingart

import (
	"errors"
	"net"
	"strings"
)

// AuthCookieError means the session is not authenticated: the auth cookie could
// not be discovered, the landing page did not confirm a signed-in user, or the
// service did not hand back a request identifier.
type AuthCookieError struct {
	Reason string
	Err    error
}

func (e *AuthCookieError) Error() string {
	if e.Err != nil {
		return "auth cookie: " + e.Reason + ": " + e.Err.Error()
	}
	return "auth cookie: " + e.Reason
}

func (e *AuthCookieError) Unwrap() error {
	return e.Err
}

func newAuthCookieError(reason string) error {
	return &AuthCookieError{Reason: reason}
}

// PromptRejectedError means the service blocked the prompt for content policy.
// Retrying the same prompt will not help.
type PromptRejectedError struct {
	Prompt string
	Marker string
}

func (e *PromptRejectedError) Error() string {
	return "prompt rejected for content policy"
}

// IsAuthCookieError reports whether err is or wraps an *AuthCookieError.
func IsAuthCookieError(err error) bool {
	var ae *AuthCookieError
	return errors.As(err, &ae)
}

// IsPromptRejected reports whether err is or wraps a *PromptRejectedError.
func IsPromptRejected(err error) bool {
	var pe *PromptRejectedError
	return errors.As(err, &pe)
}

// =============================================================================
// Fatal Errors
// =============================================================================

// FatalError marks an error that must stop a batch run.
// Auth failures are fatal: every worker shares the same cookie.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError wraps an error as fatal.
func NewFatalError(err error) error {
	return &FatalError{Err: err}
}

// IsFatalError reports whether err should stop every worker.
func IsFatalError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FatalError
	return errors.As(err, &fe) || IsAuthCookieError(err)
}

// =============================================================================
// Retryable Errors
// =============================================================================

var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
	"proxy responded with non 200 code",
}

// IsRetryableError checks if the error is a transport failure worth retrying
// on a fresh client (and a fresh proxy, when one is configured).
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if IsFatalError(err) || IsPromptRejected(err) {
		return false
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsRetryablePattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func containsRetryablePattern(errStr string) bool {
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
