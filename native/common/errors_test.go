package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrapsToKind(t *testing.T) {
	wrapped := fmt.Errorf("send: %w", ErrOnlyOwner)
	if !errors.Is(wrapped, ErrAuthorization) {
		t.Fatalf("expected authorization kind to match")
	}
	if !errors.Is(wrapped, ErrOnlyOwner) {
		t.Fatalf("expected precise sentinel to match")
	}
	if errors.Is(wrapped, ErrState) {
		t.Fatalf("unexpected state kind match")
	}
	kind, ok := KindOf(wrapped)
	if !ok || kind != KindAuthorization {
		t.Fatalf("unexpected kind: %v (ok=%t)", kind, ok)
	}
	code, ok := CodeOf(wrapped)
	if !ok || code != 6000 {
		t.Fatalf("unexpected code: %d (ok=%t)", code, ok)
	}
}

func TestErrorStringIncludesKind(t *testing.T) {
	if got := ErrArithmeticOverflow.Error(); got != "state: arithmetic overflow" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatalf("plain errors must not be classified")
	}
}
