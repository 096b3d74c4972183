package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	if got := sanitizeValue("authorization", "Bearer abc"); got != "[REDACTED]" {
		t.Fatalf("authorization: got %v", got)
	}
	got, ok := sanitizeValue("subject", "auth0|5eb70257").(string)
	if !ok || !strings.HasPrefix(got, "hash:") || strings.Contains(got, "5eb70257") {
		t.Fatalf("subject should be hashed, got %v", got)
	}
	if got := sanitizeValue("load_id", int64(42)); got != int64(42) {
		t.Fatalf("plain values pass through, got %v", got)
	}
	jwtish := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTYifQ.sig"
	if got := sanitizeValue("note", jwtish); got != "[REDACTED]" {
		t.Fatalf("jwt-looking value should be redacted, got %v", got)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected: %#v", out)
	}
}
