package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfWrapped(t *testing.T) {
	base := NewError(CodeConflict, "op", "stale", nil)
	wrapped := fmt.Errorf("outer: %w", base)
	if !IsCode(wrapped, CodeConflict) {
		t.Fatalf("expected conflict through wrapping, got %q", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain error must carry no code")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeInternal, "Cargo.Op", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if got := err.Error(); got != "Cargo.Op: boom (internal)" {
		t.Fatalf("message: %q", got)
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}

func TestParseMissingMirrorPolicy(t *testing.T) {
	for in, want := range map[string]MissingMirrorPolicy{"": MissingMirrorRepair, "repair": MissingMirrorRepair, "ignore": MissingMirrorIgnore} {
		got, ok := ParseMissingMirrorPolicy(in)
		if !ok || got != want {
			t.Fatalf("%q: want=%q got=%q ok=%v", in, want, got, ok)
		}
	}
	if _, ok := ParseMissingMirrorPolicy("insert"); ok {
		t.Fatalf("unknown policy accepted")
	}
}
