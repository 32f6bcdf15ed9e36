package effects

import (
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

const usdcIssuer = "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"

var usdc = "USDC-" + usdcIssuer + "-1"

func testAccount(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return strkey.MustEncode(strkey.VersionByteAccountID, raw)
}

func testContract(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return strkey.MustEncode(strkey.VersionByteContract, raw)
}

func contractID(address string) xdr.ContractId {
	raw := strkey.MustDecode(strkey.VersionByteContract, address)
	var id xdr.ContractId
	copy(id[:], raw)
	return id
}

func scAddress(address string) xdr.ScAddress {
	if address[0] == 'C' {
		id := contractID(address)
		return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &id}
	}
	account := xdr.MustAddress(address)
	return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeAccount, AccountId: &account}
}

func addressVal(address string) xdr.ScVal {
	a := scAddress(address)
	return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &a}
}

func symbol(s string) xdr.ScVal {
	sym := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}
}

func str(s string) xdr.ScVal {
	v := xdr.ScString(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &v}
}

func u64(v uint64) xdr.ScVal {
	n := xdr.Uint64(v)
	return xdr.ScVal{Type: xdr.ScValTypeScvU64, U64: &n}
}

func void() xdr.ScVal {
	return xdr.ScVal{Type: xdr.ScValTypeScvVoid}
}

func vec(items ...xdr.ScVal) xdr.ScVal {
	v := xdr.ScVec(items)
	pv := &v
	return xdr.ScVal{Type: xdr.ScValTypeScvVec, Vec: &pv}
}

func contractEvent(contract string, data xdr.ScVal, topics ...xdr.ScVal) xdr.ContractEvent {
	id := contractID(contract)
	return xdr.ContractEvent{
		ContractId: &id,
		Type:       xdr.ContractEventTypeContract,
		Body: xdr.ContractEventBody{
			V:  0,
			V0: &xdr.ContractEventV0{Topics: topics, Data: data},
		},
	}
}

func diagnosticEvent(data xdr.ScVal, topics ...xdr.ScVal) xdr.ContractEvent {
	return xdr.ContractEvent{
		Type: xdr.ContractEventTypeDiagnostic,
		Body: xdr.ContractEventBody{
			V:  0,
			V0: &xdr.ContractEventV0{Topics: topics, Data: data},
		},
	}
}

func inCall(ev xdr.ContractEvent) xdr.DiagnosticEvent {
	return xdr.DiagnosticEvent{InSuccessfulContractCall: true, Event: ev}
}

func fnCall(contract, function string, args ...xdr.ScVal) xdr.DiagnosticEvent {
	id := contractID(contract)
	raw := xdr.ScBytes(id[:])
	var data xdr.ScVal
	switch len(args) {
	case 0:
		data = void()
	case 1:
		data = args[0]
	default:
		data = vec(args...)
	}
	return inCall(diagnosticEvent(data,
		symbol("fn_call"),
		xdr.ScVal{Type: xdr.ScValTypeScvBytes, Bytes: &raw},
		symbol(function)))
}

func fnReturn(function string, result xdr.ScVal) xdr.DiagnosticEvent {
	return inCall(diagnosticEvent(result, symbol("fn_return"), symbol(function)))
}

func operation(body xdr.OperationBody) Operation {
	return Operation{Source: testAccount(1), Body: xdr.Operation{Body: body}}
}

func paymentOp(to string, asset xdr.Asset, amount int64) Operation {
	return operation(xdr.OperationBody{
		Type: xdr.OperationTypePayment,
		PaymentOp: &xdr.PaymentOp{
			Destination: xdr.MustMuxedAddress(to),
			Asset:       asset,
			Amount:      xdr.Int64(amount),
		},
	})
}

func invokeOp(contract, function string, args ...xdr.ScVal) Operation {
	return operation(xdr.OperationBody{
		Type: xdr.OperationTypeInvokeHostFunction,
		InvokeHostFunctionOp: &xdr.InvokeHostFunctionOp{
			HostFunction: xdr.HostFunction{
				Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
				InvokeContract: &xdr.InvokeContractArgs{
					ContractAddress: scAddress(contract),
					FunctionName:    xdr.ScSymbol(function),
					Args:            args,
				},
			},
		},
	})
}

func updated(before, after parser.Snapshot, keyHash string) parser.LedgerEntryChange {
	return parser.NewChange(before.EntryType(), parser.ActionUpdated, before, after, keyHash)
}

func created(after parser.Snapshot, keyHash string) parser.LedgerEntryChange {
	return parser.NewChange(after.EntryType(), parser.ActionCreated, nil, after, keyHash)
}

func removed(before parser.Snapshot, keyHash string) parser.LedgerEntryChange {
	return parser.NewChange(before.EntryType(), parser.ActionRemoved, before, nil, keyHash)
}

func trustline(account, asset string, balance int64) *parser.TrustlineState {
	return &parser.TrustlineState{Account: account, Asset: asset, Balance: balance, Limit: 1_000_000, Flags: 1}
}

func effectTypes(list []*Effect) []EffectType {
	res := make([]EffectType, 0, len(list))
	for _, e := range list {
		res = append(res, e.Type)
	}
	return res
}
