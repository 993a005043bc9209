package dto

import "encoding/json"

// Nullable distinguishes an absent JSON key from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Null returns a present-but-null value.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Some returns a present value.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}
