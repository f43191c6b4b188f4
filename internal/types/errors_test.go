package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestAnalysisErrorUnwrap(t *testing.T) {
	aerr := NewPoolExhaustedError(ErrPoolTimeout)

	if !errors.Is(aerr, ErrPoolTimeout) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
	if aerr.Error() != aerr.Message {
		t.Errorf("Error() = %q, want the client-facing message", aerr.Error())
	}
}

func TestAnalysisErrorAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", NewTimeoutError(ErrNavigationTimeout))

	var aerr *AnalysisError
	if !errors.As(wrapped, &aerr) {
		t.Fatal("errors.As should find the AnalysisError through wrapping")
	}
	if aerr.Code != CodeTimeout {
		t.Errorf("Code = %q, want %q", aerr.Code, CodeTimeout)
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("connection to 10.0.0.5:9222 refused")
	aerr := NewInternalError(cause)

	if aerr.Message == cause.Error() {
		t.Error("client-facing message must not expose the underlying cause")
	}
	if !errors.Is(aerr, cause) {
		t.Error("cause should remain reachable for server-side logging")
	}
}
