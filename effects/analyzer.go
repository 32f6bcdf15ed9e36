// Package effects derives ordered effect records for a single operation from
// its decoded ledger changes, result and contract events.
package effects

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// Operation identifies the operation under analysis.
type Operation struct {
	Index int
	// Source is the effective source account: the operation source when set,
	// otherwise the transaction source.
	Source string
	Body   xdr.Operation
}

// Input is everything known about one operation.
type Input struct {
	Operation        Operation
	Changes          []parser.LedgerEntryChange
	Result           *parser.OperationResult
	Events           []xdr.ContractEvent
	DiagnosticEvents []xdr.DiagnosticEvent
	// ReturnValue is the top-level invocation result from the Soroban meta.
	ReturnValue *xdr.ScVal
	SorobanFees *parser.SorobanFees
}

// Options carry transaction-scoped settings shared by all operations.
type Options struct {
	Network string
	// SAC is the transaction's asset contract mapper. Optional.
	SAC *SACMapper
	// ProcessSystemEvents also analyzes diagnostic events emitted outside
	// successful contract calls.
	ProcessSystemEvents bool
	Logger              *zerolog.Logger
}

type analyzer struct {
	in      Input
	opts    Options
	source  string
	list    *List
	sac     *SACMapper
	log     zerolog.Logger
	metrics map[string]int64
}

// Analyze produces the effects of one operation. An error means the operation
// could not be analyzed and no effect is returned.
func Analyze(in Input, opts Options) ([]*Effect, error) {
	if in.Operation.Source == "" {
		return nil, ErrMissingSource
	}
	source := parser.NormalizeAddress(in.Operation.Source)
	a := &analyzer{
		in:     in,
		opts:   opts,
		source: source,
		list:   NewList(source),
		sac:    opts.SAC,
		log:    zerolog.Nop(),
	}
	if opts.Logger != nil {
		a.log = opts.Logger.With().Int("op", in.Operation.Index).Logger()
	}

	if err := a.dispatch(); err != nil {
		return nil, err
	}
	if a.opType() == xdr.OperationTypeInvokeHostFunction {
		if err := a.analyzeEvents(); err != nil {
			return nil, err
		}
	}
	if err := a.analyzeContractState(); err != nil {
		return nil, err
	}
	if err := a.analyzeChanges(); err != nil {
		return nil, err
	}
	if err := a.analyzeSponsorships(); err != nil {
		return nil, err
	}
	if err := a.analyzeSupply(); err != nil {
		return nil, err
	}
	a.appendMetrics()
	return a.list.Items(), nil
}

func (a *analyzer) opType() xdr.OperationType {
	return a.in.Operation.Body.Body.Type
}

// changesOf returns the decoded changes of one entry type.
func (a *analyzer) changesOf(t parser.EntryType) []parser.LedgerEntryChange {
	var res []parser.LedgerEntryChange
	for _, change := range a.in.Changes {
		if change.Type == t {
			res = append(res, change)
		}
	}
	return res
}

func (a *analyzer) addAmountEffect(typ EffectType, source, asset string, amount decimal.Decimal) error {
	formatted, err := formatAmount(amount)
	if err != nil {
		return err
	}
	a.list.Append(&Effect{Type: typ, Source: source, Asset: asset, Amount: formatted})
	return nil
}

func (a *analyzer) credit(account, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	return a.addAmountEffect(AccountCredited, account, asset, amount)
}

func (a *analyzer) debit(account, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	return a.addAmountEffect(AccountDebited, account, asset, amount)
}

func (a *analyzer) mint(asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	return a.addAmountEffect(AssetMinted, "", asset, amount)
}

func (a *analyzer) burn(asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	return a.addAmountEffect(AssetBurned, "", asset, amount)
}

// balanceChange emits a credit or debit for a signed balance delta.
func (a *analyzer) balanceChange(account, asset string, before, after int64) error {
	d := delta(before, after)
	switch d.Sign() {
	case 0:
		return nil
	case -1:
		return a.debit(account, asset, d.Neg())
	default:
		return a.credit(account, asset, d)
	}
}

// appendMetrics adds the trailing contract metrics effect of a Soroban invocation.
func (a *analyzer) appendMetrics() {
	if a.opType() != xdr.OperationTypeInvokeHostFunction {
		return
	}
	if len(a.metrics) == 0 && a.in.SorobanFees == nil {
		return
	}
	metrics := make(map[string]int64, len(a.metrics)+3)
	for k, v := range a.metrics {
		metrics[k] = v
	}
	if fees := a.in.SorobanFees; fees != nil {
		metrics["fee_nonrefundable"] = fees.NonRefundable
		metrics["fee_refundable"] = fees.Refundable
		metrics["fee_rent"] = fees.Rent
	}
	e := &Effect{Type: ContractMetrics, Metrics: metrics}
	if invoke := a.in.Operation.Body.Body.InvokeHostFunctionOp; invoke != nil && invoke.HostFunction.InvokeContract != nil {
		if contract, err := parser.ScAddressString(invoke.HostFunction.InvokeContract.ContractAddress); err == nil {
			e.Contract = contract
		}
	}
	a.list.Append(e)
}

func (a *analyzer) addMetric(name string, value int64) {
	if a.metrics == nil {
		a.metrics = make(map[string]int64)
	}
	a.metrics[name] += value
}

func wrapOp(err error, what string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
