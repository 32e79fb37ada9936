package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapOpPreservesExistingKind(t *testing.T) {
	inner := NewOpError(ErrorAuth, "token expired")
	wrapped := WrapOp(ErrorNetwork, fmt.Errorf("request: %w", inner), "fetch config")

	if KindOf(wrapped) != ErrorAuth {
		t.Errorf("kind = %v, want auth preserved through wrapping", KindOf(wrapped))
	}
}

func TestWrapOpNilPassthrough(t *testing.T) {
	if WrapOp(ErrorNetwork, nil, "noop") != nil {
		t.Error("WrapOp(nil) != nil")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != ErrorUnknown {
		t.Error("plain error should classify as unknown")
	}
}

func TestToLastError(t *testing.T) {
	if ToLastError(nil) != nil {
		t.Error("ToLastError(nil) != nil")
	}

	le := ToLastError(NewOpError(ErrorActivation, "driver missing"))
	if le.Kind != "activation" {
		t.Errorf("kind = %s", le.Kind)
	}
	if le.Message == "" {
		t.Error("empty message")
	}
}

func TestOpErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapOp(ErrorNetwork, cause, "dial api")
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}
