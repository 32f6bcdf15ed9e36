package parser

import (
	"fmt"

	"github.com/stellar/go/xdr"
)

// ChangeAction describes what happened to a ledger entry.
type ChangeAction string

const (
	ActionCreated  ChangeAction = "created"
	ActionUpdated  ChangeAction = "updated"
	ActionRemoved  ChangeAction = "removed"
	ActionRestored ChangeAction = "restored"
)

// LedgerEntryChange is one decoded before/after pair for a single ledger entry.
// Created changes have no Before, removed changes have no After, and restored
// changes carry the same snapshot on both sides.
type LedgerEntryChange struct {
	Type   EntryType    `json:"type"`
	Action ChangeAction `json:"action"`
	Before Snapshot     `json:"before,omitempty"`
	After  Snapshot     `json:"after,omitempty"`

	keyHash string
}

// KeyHash is the hex sha256 of the entry's ledger key.
func (c LedgerEntryChange) KeyHash() string {
	return c.keyHash
}

// Current returns After, or Before for removed entries.
func (c LedgerEntryChange) Current() Snapshot {
	if c.After != nil {
		return c.After
	}
	return c.Before
}

// ParseLedgerEntryChanges decodes raw change records into typed before/after
// pairs. Only the listed entry types are returned when a filter is given.
// TTL changes are moved to the end, other changes keep their order.
func ParseLedgerEntryChanges(changes xdr.LedgerEntryChanges, filter ...EntryType) ([]LedgerEntryChange, error) {
	d := changeDecoder{}
	for i, change := range changes {
		if err := d.next(change); err != nil {
			return nil, &ChangeError{
				Index:  i,
				Type:   d.currentType,
				Action: changeActionName(change.Type),
				Err:    err,
			}
		}
	}
	return d.result(filter), nil
}

type changeDecoder struct {
	pending     *xdr.LedgerEntry
	changes     []LedgerEntryChange
	currentType string
}

func (d *changeDecoder) next(change xdr.LedgerEntryChange) error {
	d.currentType = ""
	switch change.Type {
	case xdr.LedgerEntryChangeTypeLedgerEntryState:
		d.pending = change.State
		return nil

	case xdr.LedgerEntryChangeTypeLedgerEntryCreated:
		defer d.clearPending()
		return d.emitEntry(ActionCreated, *change.Created)

	case xdr.LedgerEntryChangeTypeLedgerEntryUpdated:
		defer d.clearPending()
		return d.emitEntry(ActionUpdated, *change.Updated)

	case xdr.LedgerEntryChangeTypeLedgerEntryRestored:
		defer d.clearPending()
		return d.emitEntry(ActionRestored, *change.Restored)

	case xdr.LedgerEntryChangeTypeLedgerEntryRemoved:
		defer d.clearPending()
		return d.emitRemoved(*change.Removed)

	default:
		return fmt.Errorf("unknown change type %v", change.Type)
	}
}

func (d *changeDecoder) clearPending() {
	d.pending = nil
}

func (d *changeDecoder) emitEntry(action ChangeAction, entry xdr.LedgerEntry) error {
	entryType, err := entryTypeOf(entry.Data.Type)
	if err != nil {
		return err
	}
	d.currentType = string(entryType)

	key, err := entry.LedgerKey()
	if err != nil {
		return fmt.Errorf("ledger key: %w", err)
	}
	keyHash, err := LedgerKeyHash(key)
	if err != nil {
		return err
	}
	after, err := decodeSnapshot(entry)
	if err != nil {
		return err
	}

	change := LedgerEntryChange{Type: entryType, Action: action, After: after, keyHash: keyHash}
	switch action {
	case ActionRestored:
		change.Before = after
	case ActionUpdated:
		before, err := d.previous(keyHash)
		if err != nil {
			return err
		}
		if before == nil {
			return ErrMissingState
		}
		change.Before = before
	}
	d.changes = append(d.changes, change)
	return nil
}

func (d *changeDecoder) emitRemoved(key xdr.LedgerKey) error {
	entryType, err := entryTypeOf(key.Type)
	if err != nil {
		return err
	}
	d.currentType = string(entryType)

	keyHash, err := LedgerKeyHash(key)
	if err != nil {
		return err
	}
	before, err := d.previous(keyHash)
	if err != nil {
		return err
	}
	if before == nil {
		// expired TTL entries are evicted without a preceding state record
		if entryType == EntryTTL {
			return nil
		}
		return ErrMissingState
	}
	d.changes = append(d.changes, LedgerEntryChange{
		Type:    entryType,
		Action:  ActionRemoved,
		Before:  before,
		keyHash: keyHash,
	})
	return nil
}

// previous resolves the prior state of an entry: the pending state record if
// it describes the same key, else a restored change of that key that is the
// latest change seen for it (restore-then-modify within one transaction).
func (d *changeDecoder) previous(keyHash string) (Snapshot, error) {
	if d.pending != nil {
		key, err := d.pending.LedgerKey()
		if err != nil {
			return nil, fmt.Errorf("state ledger key: %w", err)
		}
		pendingHash, err := LedgerKeyHash(key)
		if err != nil {
			return nil, err
		}
		if pendingHash == keyHash {
			return decodeSnapshot(*d.pending)
		}
	}
	for i := len(d.changes) - 1; i >= 0; i-- {
		prior := d.changes[i]
		if prior.keyHash != keyHash {
			continue
		}
		if prior.Action != ActionRestored {
			return nil, nil
		}
		return prior.After, nil
	}
	return nil, nil
}

func (d *changeDecoder) result(filter []EntryType) []LedgerEntryChange {
	allowed := func(t EntryType) bool {
		if len(filter) == 0 {
			return true
		}
		for _, f := range filter {
			if f == t {
				return true
			}
		}
		return false
	}

	res := make([]LedgerEntryChange, 0, len(d.changes))
	var ttl []LedgerEntryChange
	for _, change := range d.changes {
		if !allowed(change.Type) {
			continue
		}
		if change.Type == EntryTTL {
			ttl = append(ttl, change)
			continue
		}
		res = append(res, change)
	}
	return append(res, ttl...)
}

func changeActionName(t xdr.LedgerEntryChangeType) string {
	switch t {
	case xdr.LedgerEntryChangeTypeLedgerEntryCreated:
		return string(ActionCreated)
	case xdr.LedgerEntryChangeTypeLedgerEntryUpdated:
		return string(ActionUpdated)
	case xdr.LedgerEntryChangeTypeLedgerEntryRemoved:
		return string(ActionRemoved)
	case xdr.LedgerEntryChangeTypeLedgerEntryRestored:
		return string(ActionRestored)
	case xdr.LedgerEntryChangeTypeLedgerEntryState:
		return "state"
	default:
		return t.String()
	}
}

// NewChange assembles an already decoded change.
func NewChange(entryType EntryType, action ChangeAction, before, after Snapshot, keyHash string) LedgerEntryChange {
	return LedgerEntryChange{Type: entryType, Action: action, Before: before, After: after, keyHash: keyHash}
}
