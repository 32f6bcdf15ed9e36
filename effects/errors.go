package effects

import (
	"errors"
	"fmt"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

var (
	// ErrUnexpectedLedgerState is returned when a decoded change does not
	// have the shape the operation under analysis requires.
	ErrUnexpectedLedgerState = errors.New("unexpected ledger state")
	// ErrInvalidAmount is returned for amounts that are not non-negative base-10 integers.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrMissingSource is returned when an operation has no source account.
	ErrMissingSource = errors.New("operation source account is missing")
	// ErrEmptyCallStack is returned when a fn_return event has no matching fn_call.
	ErrEmptyCallStack = errors.New("contract return without a pending call")
)

// UnexpectedChangeError describes a ledger change the analyzer cannot attribute.
type UnexpectedChangeError struct {
	Type   parser.EntryType
	Action parser.ChangeAction
	Reason string
}

func (e *UnexpectedChangeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unexpected %s %s change", e.Action, e.Type)
	}
	return fmt.Sprintf("unexpected %s %s change: %s", e.Action, e.Type, e.Reason)
}

func (e *UnexpectedChangeError) Unwrap() error {
	return ErrUnexpectedLedgerState
}

func unexpectedChange(change parser.LedgerEntryChange, reason string) error {
	return &UnexpectedChangeError{Type: change.Type, Action: change.Action, Reason: reason}
}
