package bingart

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "dial tcp: operation timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestErrorClassification(t *testing.T) {
	auth := fmt.Errorf("initialize: %w", newAuthCookieError("landing page is not signed in"))
	rejected := fmt.Errorf("poll: %w", &PromptRejectedError{Prompt: "x", Marker: rejectionMarkers[0]})
	fatal := NewFatalError(errors.New("account suspended"))

	tests := []struct {
		name      string
		err       error
		auth      bool
		rejected  bool
		fatal     bool
		retryable bool
	}{
		{name: "nil"},
		{name: "auth", err: auth, auth: true, fatal: true},
		{name: "rejected", err: rejected, rejected: true},
		{name: "fatal", err: fatal, fatal: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), retryable: true},
		{name: "proxy", err: errors.New("proxy responded with non 200 code: 407"), retryable: true},
		{name: "net timeout", err: fmt.Errorf("get: %w", timeoutError{}), retryable: true},
		{name: "canceled", err: context.Canceled},
		{name: "other", err: errors.New("unexpected markup")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.auth, IsAuthCookieError(tt.err))
			require.Equal(t, tt.rejected, IsPromptRejected(tt.err))
			require.Equal(t, tt.fatal, IsFatalError(tt.err))
			require.Equal(t, tt.retryable, IsRetryableError(tt.err))
		})
	}
}

func TestAuthCookieErrorMessage(t *testing.T) {
	require.Equal(t, "auth cookie: no request id in creation response",
		newAuthCookieError("no request id in creation response").Error())

	cause := errors.New("permission denied")
	err := &AuthCookieError{Reason: "cookie store", Err: cause}
	require.Equal(t, "auth cookie: cookie store: permission denied", err.Error())
	require.ErrorIs(t, err, cause)
}
