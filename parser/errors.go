package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedEntry is returned for ledger entry variants the decoder does not model.
	ErrUnsupportedEntry = errors.New("unsupported ledger entry")
	// ErrMissingState is returned when an updated or removed change has no prior state.
	ErrMissingState = errors.New("ledger entry change without prior state")
	// ErrUnknownMeta is returned for transaction meta versions the decoder does not model.
	ErrUnknownMeta = errors.New("unknown transaction meta version")
)

// ChangeError carries the position and shape of a change that failed to decode.
type ChangeError struct {
	Index  int
	Type   string
	Action string
	Err    error
}

func (e *ChangeError) Error() string {
	return fmt.Sprintf("ledger entry change %d (%s %s): %v", e.Index, e.Type, e.Action, e.Err)
}

func (e *ChangeError) Unwrap() error {
	return e.Err
}
