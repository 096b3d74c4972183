// Package patch provides a JSON field wrapper that tells an absent key apart
// from an explicit null, for PATCH-style merges.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field holds one optional request field.
//
//	absent key   -> Present=false
//	"k": null    -> Present=true, Null=true
//	"k": value   -> Present=true, Value=value
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
}

func Set[T any](v T) Field[T] { return Field[T]{Present: true, Value: v} }

func Null[T any]() Field[T] { return Field[T]{Present: true, Null: true} }

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(b, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Present || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Apply merges f into *dst: absent keeps, null clears, a value replaces.
func (f Field[T]) Apply(dst **T) {
	if !f.Present {
		return
	}
	if f.Null {
		*dst = nil
		return
	}
	v := f.Value
	*dst = &v
}
