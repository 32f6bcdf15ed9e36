package effects

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/hash"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/contractid"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// dispatch runs the operation-specific handler. Operation types without a
// handler derive all of their effects from the generic change passes.
func (a *analyzer) dispatch() error {
	body := a.in.Operation.Body.Body
	switch body.Type {
	case xdr.OperationTypeSetOptions:
		return a.setOptions()
	case xdr.OperationTypeAllowTrust:
		op := body.MustAllowTrustOp()
		asset, err := allowTrustAsset(op.Asset, a.source)
		if err != nil {
			return err
		}
		return a.trustlineFlagsChanged(op.Trustor.Address(), asset)
	case xdr.OperationTypeSetTrustLineFlags:
		op := body.MustSetTrustLineFlagsOp()
		return a.trustlineFlagsChanged(op.Trustor.Address(), parser.AssetString(op.Asset))
	case xdr.OperationTypeBumpSequence:
		return a.bumpSequence()
	case xdr.OperationTypeManageSellOffer,
		xdr.OperationTypeManageBuyOffer,
		xdr.OperationTypeCreatePassiveSellOffer,
		xdr.OperationTypePathPaymentStrictReceive,
		xdr.OperationTypePathPaymentStrictSend:
		return a.trades()
	case xdr.OperationTypeLiquidityPoolDeposit:
		op := body.MustLiquidityPoolDepositOp()
		return a.poolDeposit(parser.PoolIDString(op.LiquidityPoolId))
	case xdr.OperationTypeLiquidityPoolWithdraw:
		op := body.MustLiquidityPoolWithdrawOp()
		return a.poolWithdraw(parser.PoolIDString(op.LiquidityPoolId))
	case xdr.OperationTypeCreateClaimableBalance:
		return a.createClaimableBalance()
	case xdr.OperationTypeInflation:
		a.list.Append(&Effect{Type: Inflation})
		return nil
	case xdr.OperationTypeInvokeHostFunction:
		return a.invokeHostFunction(body.MustInvokeHostFunctionOp())
	default:
		return nil
	}
}

// createClaimableBalance checks that the balance id reported by the result
// was created by the operation.
func (a *analyzer) createClaimableBalance() error {
	if a.in.Result == nil || a.in.Result.BalanceID == "" {
		return nil
	}
	for _, change := range a.changesOf(parser.EntryClaimableBalance) {
		if change.Action != parser.ActionCreated {
			continue
		}
		if change.After.(*parser.ClaimableBalanceState).BalanceID == a.in.Result.BalanceID {
			return nil
		}
	}
	return fmt.Errorf("%w: claimable balance %s was not created", ErrUnexpectedLedgerState, a.in.Result.BalanceID)
}

func (a *analyzer) findAccountChange(address string) (parser.LedgerEntryChange, bool) {
	for _, change := range a.changesOf(parser.EntryAccount) {
		if change.Action != parser.ActionUpdated {
			continue
		}
		if change.After.(*parser.AccountState).Address == address {
			return change, true
		}
	}
	return parser.LedgerEntryChange{}, false
}

func (a *analyzer) setOptions() error {
	change, ok := a.findAccountChange(a.source)
	if !ok {
		return nil
	}
	before := change.Before.(*parser.AccountState)
	after := change.After.(*parser.AccountState)

	if before.HomeDomain != after.HomeDomain {
		a.list.Append(&Effect{Type: AccountHomeDomainUpdated, Domain: after.HomeDomain})
	}
	if before.Thresholds != after.Thresholds {
		a.list.Append(&Effect{Type: AccountThresholdsUpdated, Thresholds: after.Thresholds[:]})
	}
	if before.Flags != after.Flags {
		a.list.Append(&Effect{
			Type:      AccountFlagsUpdated,
			Flags:     uint32Ptr(after.Flags),
			PrevFlags: uint32Ptr(before.Flags),
		})
	}
	if before.InflationDest != after.InflationDest {
		a.list.Append(&Effect{Type: AccountInflationDestinationUpdated, InflationDestination: after.InflationDest})
	}
	return nil
}

func allowTrustAsset(code xdr.AssetCode, issuer string) (string, error) {
	var raw string
	switch code.Type {
	case xdr.AssetTypeAssetTypeCreditAlphanum4:
		c := code.MustAssetCode4()
		raw = string(c[:])
	case xdr.AssetTypeAssetTypeCreditAlphanum12:
		c := code.MustAssetCode12()
		raw = string(c[:])
	}
	asset, err := xdr.NewCreditAsset(strings.TrimRight(raw, "\x00"), issuer)
	if err != nil {
		return "", wrapOp(err, "allow trust asset")
	}
	return parser.AssetString(asset), nil
}

// trustlineFlagsChanged handles allowTrust and setTrustLineFlags. Revoking
// authorization also redeems the trustor's pool shares, which shows up as
// pool reserve decreases.
func (a *analyzer) trustlineFlagsChanged(trustor, asset string) error {
	for _, change := range a.changesOf(parser.EntryTrustline) {
		tl := change.Current().(*parser.TrustlineState)
		if tl.Account != trustor || tl.Asset != asset {
			continue
		}
		if change.Action != parser.ActionUpdated {
			return unexpectedChange(change, "authorization change must update the trustline")
		}
		before := change.Before.(*parser.TrustlineState)
		after := change.After.(*parser.TrustlineState)
		if before.Flags != after.Flags {
			a.list.Append(&Effect{
				Type:      TrustlineAuthorizationUpdated,
				Account:   trustor,
				Asset:     asset,
				Flags:     uint32Ptr(after.Flags),
				PrevFlags: uint32Ptr(before.Flags),
			})
		}
		break
	}

	for _, change := range a.changesOf(parser.EntryLiquidityPool) {
		if change.Action != parser.ActionUpdated && change.Action != parser.ActionRemoved {
			continue
		}
		before := change.Before.(*parser.LiquidityPoolState)
		after := &parser.LiquidityPoolState{}
		if change.After != nil {
			after = change.After.(*parser.LiquidityPoolState)
		}
		if err := a.poolEffect(LiquidityPoolWithdrew, trustor, before, after, -1); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) bumpSequence() error {
	change, ok := a.findAccountChange(a.source)
	if !ok {
		return nil
	}
	before := change.Before.(*parser.AccountState)
	after := change.After.(*parser.AccountState)
	if before.Sequence != after.Sequence {
		a.list.Append(&Effect{Type: SequenceBumped, Sequence: after.Sequence})
	}
	return nil
}

func (a *analyzer) trades() error {
	if a.in.Result == nil {
		return nil
	}
	for _, claimed := range a.in.Result.ClaimedOffers {
		amounts := make([]string, 2)
		for i, v := range claimed.Amounts {
			formatted, err := formatInt(v)
			if err != nil {
				return err
			}
			amounts[i] = formatted
		}
		a.list.Append(&Effect{
			Type:    Trade,
			Offer:   claimed.Offer,
			Pool:    claimed.Pool,
			Seller:  claimed.Seller,
			Assets:  []string{claimed.Assets[0], claimed.Assets[1]},
			Amounts: amounts,
		})
	}
	return nil
}

func (a *analyzer) findPoolChange(pool string) (parser.LedgerEntryChange, bool) {
	for _, change := range a.changesOf(parser.EntryLiquidityPool) {
		if change.Current().(*parser.LiquidityPoolState).Pool == pool {
			return change, true
		}
	}
	return parser.LedgerEntryChange{}, false
}

func (a *analyzer) poolDeposit(pool string) error {
	change, ok := a.findPoolChange(pool)
	if !ok || change.Action != parser.ActionUpdated {
		return &UnexpectedChangeError{Type: parser.EntryLiquidityPool, Action: change.Action, Reason: "deposit requires an updated pool " + pool}
	}
	return a.poolEffect(LiquidityPoolDeposited, a.source,
		change.Before.(*parser.LiquidityPoolState), change.After.(*parser.LiquidityPoolState), 1)
}

func (a *analyzer) poolWithdraw(pool string) error {
	change, ok := a.findPoolChange(pool)
	if !ok || (change.Action != parser.ActionUpdated && change.Action != parser.ActionRemoved) {
		return &UnexpectedChangeError{Type: parser.EntryLiquidityPool, Action: change.Action, Reason: "withdrawal requires an updated pool " + pool}
	}
	after := &parser.LiquidityPoolState{}
	if change.After != nil {
		after = change.After.(*parser.LiquidityPoolState)
	}
	return a.poolEffect(LiquidityPoolWithdrew, a.source, change.Before.(*parser.LiquidityPoolState), after, -1)
}

// poolEffect emits a deposit (sign 1: after-before) or withdrawal
// (sign -1: before-after) of reserves and shares.
func (a *analyzer) poolEffect(typ EffectType, source string, before, after *parser.LiquidityPoolState, sign int64) error {
	amounts := make([]string, 2)
	for i := range amounts {
		d := delta(before.Reserves[i], after.Reserves[i]).Mul(decimal.NewFromInt(sign))
		formatted, err := formatAmount(d)
		if err != nil {
			return wrapOp(err, "pool reserve delta")
		}
		amounts[i] = formatted
	}
	shares, err := formatAmount(delta(before.Shares, after.Shares).Mul(decimal.NewFromInt(sign)))
	if err != nil {
		return wrapOp(err, "pool shares delta")
	}
	a.list.Append(&Effect{
		Type:    typ,
		Source:  source,
		Pool:    before.Pool,
		Assets:  []string{before.Assets[0], before.Assets[1]},
		Amounts: amounts,
		Shares:  shares,
	})
	return nil
}

func (a *analyzer) invokeHostFunction(op xdr.InvokeHostFunctionOp) error {
	fn := op.HostFunction
	switch fn.Type {
	case xdr.HostFunctionTypeHostFunctionTypeInvokeContract:
		if len(a.in.DiagnosticEvents) > 0 {
			// fn_call diagnostic events describe the invocation tree
			return nil
		}
		invoke := fn.MustInvokeContract()
		contract, err := parser.ScAddressString(invoke.ContractAddress)
		if err != nil {
			return wrapOp(err, "invoked contract")
		}
		args, raw, err := invocationArgs(invoke.Args)
		if err != nil {
			return err
		}
		e := &Effect{
			Type:     ContractInvoked,
			Contract: contract,
			Function: string(invoke.FunctionName),
			Args:     args,
			RawArgs:  raw,
		}
		if rv := a.in.ReturnValue; rv != nil && rv.Type != xdr.ScValTypeScvVoid {
			if e.Result, err = parser.ScValBase64(*rv); err != nil {
				return wrapOp(err, "encode return value")
			}
		}
		a.list.Append(e)
		return nil

	case xdr.HostFunctionTypeHostFunctionTypeCreateContract:
		create := fn.MustCreateContract()
		return a.contractCreated(create.ContractIdPreimage, create.Executable, nil)

	case xdr.HostFunctionTypeHostFunctionTypeCreateContractV2:
		create := fn.MustCreateContractV2()
		return a.contractCreated(create.ContractIdPreimage, create.Executable, create.ConstructorArgs)

	case xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm:
		wasm := fn.MustWasm()
		sum := hash.Hash(wasm)
		keyHash, err := parser.LedgerKeyHash(xdr.LedgerKey{
			Type:         xdr.LedgerEntryTypeContractCode,
			ContractCode: &xdr.LedgerKeyContractCode{Hash: xdr.Hash(sum)},
		})
		if err != nil {
			return err
		}
		a.list.Append(&Effect{
			Type:     ContractCodeUploaded,
			Wasm:     base64.StdEncoding.EncodeToString(wasm),
			WasmHash: hex.EncodeToString(sum[:]),
			KeyHash:  keyHash,
		})
		return nil
	}
	return nil
}

func (a *analyzer) contractCreated(preimage xdr.ContractIdPreimage, executable xdr.ContractExecutable, ctorArgs []xdr.ScVal) error {
	contract, err := contractid.Address(preimage, a.opts.Network)
	if err != nil {
		return wrapOp(err, "derive contract address")
	}
	e := &Effect{Type: ContractCreated, Contract: contract}
	switch executable.Type {
	case xdr.ContractExecutableTypeContractExecutableWasm:
		e.Kind = parser.ContractKindWasm
		if executable.WasmHash != nil {
			e.WasmHash = executable.WasmHash.HexString()
		}
	case xdr.ContractExecutableTypeContractExecutableStellarAsset:
		e.Kind = parser.ContractKindFromAsset
	}
	if preimage.Type == xdr.ContractIdPreimageTypeContractIdPreimageFromAsset && preimage.FromAsset != nil {
		e.Asset = parser.AssetString(*preimage.FromAsset)
		if a.sac != nil {
			a.sac.Register(contract, e.Asset)
		}
	}
	if len(ctorArgs) > 0 {
		args, _, err := invocationArgs(ctorArgs)
		if err != nil {
			return err
		}
		e.Args = args
	}
	a.list.InsertAt(0, e)
	return nil
}

// invocationArgs decodes call arguments and their XDR vector encoding.
func invocationArgs(args []xdr.ScVal) ([]any, string, error) {
	native := make([]any, 0, len(args))
	for _, arg := range args {
		v, err := parser.ScValToNative(arg)
		if err != nil {
			return nil, "", wrapOp(err, "decode invocation argument")
		}
		native = append(native, v)
	}
	vec := xdr.ScVec(args)
	pv := &vec
	raw, err := parser.ScValBase64(xdr.ScVal{Type: xdr.ScValTypeScvVec, Vec: &pv})
	if err != nil {
		return nil, "", wrapOp(err, "encode invocation arguments")
	}
	return native, raw, nil
}
