package processor

import (
	"fmt"

	"github.com/stellar/go/xdr"
)

type inputKind int

const (
	inputAbsent inputKind = iota
	inputBase64
	inputBytes
	inputValue
)

// Input is one transaction component supplied as base64 XDR, raw XDR bytes or
// an already decoded value. The zero value is an absent input.
type Input[T any] struct {
	kind  inputKind
	text  string
	raw   []byte
	value T
}

// FromBase64 wraps base64-encoded XDR. An empty string is an absent input.
func FromBase64[T any](s string) Input[T] {
	if s == "" {
		return Input[T]{}
	}
	return Input[T]{kind: inputBase64, text: s}
}

// FromBytes wraps raw XDR. An empty buffer is an absent input.
func FromBytes[T any](b []byte) Input[T] {
	if len(b) == 0 {
		return Input[T]{}
	}
	return Input[T]{kind: inputBytes, raw: b}
}

// FromValue wraps an already decoded value.
func FromValue[T any](v T) Input[T] {
	return Input[T]{kind: inputValue, value: v}
}

// Present reports whether the input was supplied.
func (in Input[T]) Present() bool {
	return in.kind != inputAbsent
}

func (in Input[T]) decode() (T, error) {
	var v T
	switch in.kind {
	case inputValue:
		return in.value, nil
	case inputBase64:
		if err := xdr.SafeUnmarshalBase64(in.text, &v); err != nil {
			return v, err
		}
		return v, nil
	case inputBytes:
		if err := xdr.SafeUnmarshal(in.raw, &v); err != nil {
			return v, err
		}
		return v, nil
	default:
		return v, fmt.Errorf("input is absent")
	}
}
