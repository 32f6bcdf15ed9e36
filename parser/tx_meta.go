package parser

import (
	"fmt"

	"github.com/stellar/go/xdr"
)

// SorobanFees is the resource fee breakdown charged to a Soroban transaction.
type SorobanFees struct {
	NonRefundable int64
	Refundable    int64
	Rent          int64
}

// OperationMeta holds the raw changes and contract events of one operation.
type OperationMeta struct {
	Changes xdr.LedgerEntryChanges
	Events  []xdr.ContractEvent
}

// TxMeta is transaction meta flattened across meta versions.
type TxMeta struct {
	Version          int32
	TxChangesBefore  xdr.LedgerEntryChanges
	TxChangesAfter   xdr.LedgerEntryChanges
	Operations       []OperationMeta
	DiagnosticEvents []xdr.DiagnosticEvent
	ReturnValue      *xdr.ScVal
	SorobanFees      *SorobanFees
}

// ParseTxMeta flattens transaction meta v0 through v4. In v3 the contract
// events live at transaction level and are attributed to the only operation
// a Soroban transaction may carry.
func ParseTxMeta(meta xdr.TransactionMeta) (*TxMeta, error) {
	res := &TxMeta{Version: meta.V}
	switch meta.V {
	case 0:
		if meta.Operations != nil {
			res.Operations = operationMetas(*meta.Operations)
		}
	case 1:
		v1 := meta.MustV1()
		res.TxChangesBefore = v1.TxChanges
		res.Operations = operationMetas(v1.Operations)
	case 2:
		v2 := meta.MustV2()
		res.TxChangesBefore = v2.TxChangesBefore
		res.TxChangesAfter = v2.TxChangesAfter
		res.Operations = operationMetas(v2.Operations)
	case 3:
		v3 := meta.MustV3()
		res.TxChangesBefore = v3.TxChangesBefore
		res.TxChangesAfter = v3.TxChangesAfter
		res.Operations = operationMetas(v3.Operations)
		if sm := v3.SorobanMeta; sm != nil {
			if len(res.Operations) > 0 {
				res.Operations[0].Events = sm.Events
			}
			res.DiagnosticEvents = sm.DiagnosticEvents
			rv := sm.ReturnValue
			res.ReturnValue = &rv
			res.SorobanFees = sorobanFees(sm.Ext)
		}
	case 4:
		v4 := meta.MustV4()
		res.TxChangesBefore = v4.TxChangesBefore
		res.TxChangesAfter = v4.TxChangesAfter
		for _, op := range v4.Operations {
			res.Operations = append(res.Operations, OperationMeta{Changes: op.Changes, Events: op.Events})
		}
		res.DiagnosticEvents = v4.DiagnosticEvents
		if sm := v4.SorobanMeta; sm != nil {
			res.ReturnValue = sm.ReturnValue
			res.SorobanFees = sorobanFees(sm.Ext)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMeta, meta.V)
	}
	return res, nil
}

// Operation returns the meta of the operation at index, if present.
func (m *TxMeta) Operation(index int) *OperationMeta {
	if m == nil || index < 0 || index >= len(m.Operations) {
		return nil
	}
	return &m.Operations[index]
}

// TxLevelChanges returns the transaction-level changes applied before and
// after the operations, in ledger order.
func (m *TxMeta) TxLevelChanges() xdr.LedgerEntryChanges {
	if m == nil {
		return nil
	}
	res := make(xdr.LedgerEntryChanges, 0, len(m.TxChangesBefore)+len(m.TxChangesAfter))
	res = append(res, m.TxChangesBefore...)
	return append(res, m.TxChangesAfter...)
}

func operationMetas(ops []xdr.OperationMeta) []OperationMeta {
	res := make([]OperationMeta, 0, len(ops))
	for _, op := range ops {
		res = append(res, OperationMeta{Changes: op.Changes})
	}
	return res
}

func sorobanFees(ext xdr.SorobanTransactionMetaExt) *SorobanFees {
	if ext.V != 1 || ext.V1 == nil {
		return nil
	}
	return &SorobanFees{
		NonRefundable: int64(ext.V1.TotalNonRefundableResourceFeeCharged),
		Refundable:    int64(ext.V1.TotalRefundableResourceFeeCharged),
		Rent:          int64(ext.V1.RentFeeCharged),
	}
}
