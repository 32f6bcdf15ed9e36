package effects

import (
	"fmt"

	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

const argWildcard = "*"

// analyzeEvents walks diagnostic events first, building the invocation call
// stack and interpreting standard token events, then appends the plain
// contract events.
func (a *analyzer) analyzeEvents() error {
	var stack []*Effect
	for _, diag := range a.in.DiagnosticEvents {
		ev := diag.Event
		topics, data, ok := eventBody(ev)
		if !ok || len(topics) == 0 {
			continue
		}
		tag, _ := parser.ScValString(topics[0])

		if ev.Type == xdr.ContractEventTypeDiagnostic && tag == "core_metrics" {
			a.coreMetric(topics, data)
			continue
		}
		if !diag.InSuccessfulContractCall && !a.opts.ProcessSystemEvents {
			continue
		}

		switch ev.Type {
		case xdr.ContractEventTypeDiagnostic:
			switch tag {
			case "fn_call":
				e, err := a.fnCall(topics, data, len(stack))
				if err != nil {
					return err
				}
				// skipped calls still take a frame so their fn_return pops it
				stack = append(stack, e)
			case "fn_return":
				if len(topics) != 2 {
					a.log.Debug().Int("topics", len(topics)).Msg("skipping malformed fn_return")
					continue
				}
				if len(stack) == 0 {
					return ErrEmptyCallStack
				}
				frame := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if frame != nil && data.Type != xdr.ScValTypeScvVoid {
					result, err := parser.ScValBase64(data)
					if err != nil {
						return wrapOp(err, "encode return value")
					}
					frame.Result = result
				}
			}
		case xdr.ContractEventTypeContract:
			if err := a.tokenEvent(ev, tag, topics, data); err != nil {
				return err
			}
		}
	}

	for _, ev := range a.in.Events {
		if ev.Type != xdr.ContractEventTypeContract {
			continue
		}
		topics, data, ok := eventBody(ev)
		if !ok {
			continue
		}
		tag := ""
		if len(topics) > 0 {
			tag, _ = parser.ScValString(topics[0])
		}
		if len(a.in.DiagnosticEvents) == 0 {
			if err := a.tokenEvent(ev, tag, topics, data); err != nil {
				return err
			}
		}
		if tag == "set" {
			continue
		}
		if err := a.contractEvent(ev, topics, data); err != nil {
			return err
		}
	}
	return nil
}

func eventBody(ev xdr.ContractEvent) ([]xdr.ScVal, xdr.ScVal, bool) {
	if ev.Body.V != 0 || ev.Body.V0 == nil {
		return nil, xdr.ScVal{}, false
	}
	return ev.Body.V0.Topics, ev.Body.V0.Data, true
}

func eventContract(ev xdr.ContractEvent) (string, bool) {
	if ev.ContractId == nil {
		return "", false
	}
	contract, err := parser.ContractIDString(ev.ContractId[:])
	if err != nil {
		return "", false
	}
	return contract, true
}

func (a *analyzer) coreMetric(topics []xdr.ScVal, data xdr.ScVal) {
	if len(topics) < 2 {
		return
	}
	name, ok := parser.ScValString(topics[1])
	if !ok {
		return
	}
	value, ok := parser.ScValBigInt(data)
	if !ok || !value.IsInt64() {
		return
	}
	a.addMetric(name, value.Int64())
}

// fnCall appends the invocation effect described by a fn_call event:
// topics [fn_call, contract id bytes, function], data holding the arguments.
// A nil effect means the event did not have that shape and was skipped.
func (a *analyzer) fnCall(topics []xdr.ScVal, data xdr.ScVal, depth int) (*Effect, error) {
	if len(topics) != 3 || topics[1].Type != xdr.ScValTypeScvBytes || topics[1].Bytes == nil {
		a.log.Debug().Int("topics", len(topics)).Msg("skipping malformed fn_call")
		return nil, nil
	}
	contract, err := parser.ContractIDString(*topics[1].Bytes)
	if err != nil {
		a.log.Debug().Err(err).Msg("skipping fn_call with invalid contract id")
		return nil, nil
	}
	function, ok := parser.ScValString(topics[2])
	if !ok {
		a.log.Debug().Str("contract", contract).Msg("skipping fn_call without function name")
		return nil, nil
	}

	var rawArgs []xdr.ScVal
	switch data.Type {
	case xdr.ScValTypeScvVoid:
	case xdr.ScValTypeScvVec:
		rawArgs, _ = parser.ScVecItems(data)
	default:
		rawArgs = []xdr.ScVal{data}
	}
	args, raw, err := invocationArgs(rawArgs)
	if err != nil {
		return nil, err
	}

	e := &Effect{
		Type:     ContractInvoked,
		Contract: contract,
		Function: function,
		Args:     args,
		RawArgs:  raw,
	}
	if depth > 0 {
		e.Depth = depth
	}
	a.list.Append(e)
	return e, nil
}

func (a *analyzer) contractEvent(ev xdr.ContractEvent, topics []xdr.ScVal, data xdr.ScVal) error {
	contract, ok := eventContract(ev)
	if !ok {
		return nil
	}
	nativeTopics := make([]any, 0, len(topics))
	for _, topic := range topics {
		v, err := parser.ScValToNative(topic)
		if err != nil {
			return wrapOp(err, "decode event topic")
		}
		nativeTopics = append(nativeTopics, v)
	}
	var nativeData any
	if data.Type != xdr.ScValTypeScvVoid {
		v, err := parser.ScValToNative(data)
		if err != nil {
			return wrapOp(err, "decode event data")
		}
		nativeData = v
	}
	a.list.Append(&Effect{
		Type:     ContractEvent,
		Contract: contract,
		Topics:   nativeTopics,
		Data:     nativeData,
	})
	return nil
}

// matchTopics checks a token event topic list (without its tag) against a
// shape of n leading addresses and an optional trailing SEP-11 asset name.
func matchTopics(topics []xdr.ScVal, n int) ([]string, string, bool) {
	if len(topics) != n && len(topics) != n+1 {
		return nil, "", false
	}
	addresses := make([]string, n)
	for i := 0; i < n; i++ {
		address, ok := parser.ScValAddress(topics[i])
		if !ok {
			return nil, "", false
		}
		addresses[i] = address
	}
	var asset string
	if len(topics) == n+1 {
		name, ok := parser.ScValString(topics[n])
		if !ok {
			return nil, "", false
		}
		asset = name
	}
	return addresses, asset, true
}

// matchAnyTopics tries the shapes in order, larger arity first.
func matchAnyTopics(topics []xdr.ScVal, shapes ...int) ([]string, string, bool) {
	for _, n := range shapes {
		if addresses, asset, ok := matchTopics(topics, n); ok {
			return addresses, asset, true
		}
	}
	return nil, "", false
}

// corroborated reports whether an invocation of contract matching one of the
// call patterns is already in the list. Pattern arguments equal to "*" match
// anything.
func (a *analyzer) corroborated(contract string, patterns ...[]string) bool {
	return a.list.FindIndex(func(e *Effect) bool {
		if e.Type != ContractInvoked || e.Contract != contract {
			return false
		}
		for _, p := range patterns {
			if p[0] == e.Function && argsMatch(e.Args, p[1:]) {
				return true
			}
		}
		return false
	}) >= 0
}

func argsMatch(args []any, expected []string) bool {
	if len(args) != len(expected) {
		return false
	}
	for i, want := range expected {
		if want == argWildcard {
			continue
		}
		if fmt.Sprint(args[i]) != want {
			return false
		}
	}
	return true
}

// tokenEvent interprets the standard token interface events. Events whose
// topics do not fit the expected shape, or that no recorded invocation
// accounts for, are ignored.
func (a *analyzer) tokenEvent(ev xdr.ContractEvent, tag string, topics []xdr.ScVal, data xdr.ScVal) error {
	switch tag {
	case "transfer", "mint", "burn", "clawback", "set_admin":
	default:
		return nil
	}
	contract, ok := eventContract(ev)
	if !ok {
		return nil
	}
	skip := func(reason string) error {
		a.log.Debug().Str("contract", contract).Str("event", tag).Msg(reason)
		return nil
	}

	if tag == "set_admin" {
		addresses, _, ok := matchTopics(topics[1:], 1)
		if !ok {
			return skip("topic shape mismatch")
		}
		admin, ok := parser.ScValAddress(data)
		if !ok {
			return skip("admin is not an address")
		}
		if !a.corroborated(contract, []string{"set_admin", admin}) {
			return skip("no matching invocation")
		}
		a.list.Append(&Effect{
			Type:     ContractAdminUpdated,
			Source:   addresses[0],
			Contract: contract,
			Admin:    admin,
		})
		return nil
	}

	amount, ok := parser.ScValAmount(data)
	if !ok || amount.IsNegative() {
		return skip("amount is not a non-negative integer")
	}
	amt := amount.String()

	switch tag {
	case "transfer":
		addresses, asset, ok := matchTopics(topics[1:], 2)
		if !ok {
			return skip("topic shape mismatch")
		}
		from, to := addresses[0], addresses[1]
		if !a.corroborated(contract,
			[]string{"transfer", from, to, amt},
			[]string{"transfer_from", argWildcard, from, to, amt}) {
			return skip("no matching invocation")
		}
		return a.tokenTransfer(contract, from, to, amount, asset)

	case "mint":
		addresses, asset, ok := matchAnyTopics(topics[1:], 2, 1)
		if !ok {
			return skip("topic shape mismatch")
		}
		to := addresses[len(addresses)-1]
		if !a.corroborated(contract, []string{"mint", to, amt}) {
			return skip("no matching invocation")
		}
		return a.tokenMint(contract, to, amount, asset)

	case "burn":
		addresses, asset, ok := matchTopics(topics[1:], 1)
		if !ok {
			return skip("topic shape mismatch")
		}
		from := addresses[0]
		if !a.corroborated(contract,
			[]string{"burn", from, amt},
			[]string{"burn_from", argWildcard, from, amt}) {
			return skip("no matching invocation")
		}
		return a.tokenBurn(contract, from, amount, asset)

	case "clawback":
		addresses, asset, ok := matchAnyTopics(topics[1:], 2, 1)
		if !ok {
			return skip("topic shape mismatch")
		}
		from := addresses[len(addresses)-1]
		if !a.corroborated(contract, []string{"clawback", from, amt}) {
			return skip("no matching invocation")
		}
		return a.tokenBurn(contract, from, amount, asset)
	}
	return nil
}
