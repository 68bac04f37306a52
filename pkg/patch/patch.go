// Package patch provides a JSON field type that distinguishes an absent key
// from an explicit null, which pointer fields cannot do.
package patch

import "encoding/json"

// Field holds a decoded JSON value together with whether the key was present.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a Field set to v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked by encoding/json when the key is present.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(b, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Get returns the value and whether it is set and non-null.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Set && !f.Null
}
