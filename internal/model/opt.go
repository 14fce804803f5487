package model

import (
	"bytes"
	"encoding/json"
)

// Opt carries a value together with whether the store actually reported it, so that an
// absent metric is never confused with a genuine zero.
type Opt[T any] struct {
	Value T
	Valid bool
}

// Some returns a present value.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Valid: true}
}

// Get returns the value and its presence flag.
func (o Opt[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// Or returns the value when present and def otherwise.
func (o Opt[T]) Or(def T) T {
	if o.Valid {
		return o.Value
	}
	return def
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
