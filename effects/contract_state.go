package effects

import (
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// analyzeContractState emits contract data effects for non-instance storage
// entries and attaches token balances to matching credits and debits.
func (a *analyzer) analyzeContractState() error {
	for _, change := range a.changesOf(parser.EntryContractData) {
		state := change.Current().(*parser.ContractDataState)
		if state.Instance {
			continue
		}
		e := &Effect{Owner: state.Owner, Key: state.Key, Durability: state.Durability}
		switch change.Action {
		case parser.ActionCreated:
			e.Type = ContractDataCreated
			e.Value = state.Value
		case parser.ActionUpdated:
			before := change.Before.(*parser.ContractDataState)
			if before.Value == state.Value {
				continue
			}
			e.Type = ContractDataUpdated
			e.Value = state.Value
			e.PrevValue = before.Value
		case parser.ActionRemoved:
			e.Type = ContractDataRemoved
			e.PrevValue = state.Value
		case parser.ActionRestored:
			e.Type = ContractDataRestored
			e.Value = state.Value
		default:
			return unexpectedChange(change, "unknown contract data action")
		}
		a.list.Append(e)

		if change.Action != parser.ActionRemoved {
			a.attachBalance(state)
		}
	}
	return nil
}

// attachBalance handles the ["Balance", holder] storage layout used by token
// contracts. The balance is attached only when exactly one credit or debit of
// the holder in that token is still missing it.
func (a *analyzer) attachBalance(state *parser.ContractDataState) {
	key := state.RawKey()
	items, ok := parser.ScVecItems(key)
	if !ok || len(items) != 2 {
		return
	}
	if name, ok := parser.ScValString(items[0]); !ok || name != "Balance" {
		return
	}
	holder, ok := parser.ScValAddress(items[1])
	if !ok {
		return
	}
	balance, ok := parser.ScValAmount(state.RawValue())
	if !ok || balance.IsNegative() {
		return
	}

	assets := []string{state.Owner}
	if a.sac != nil {
		if classic, ok := a.sac.AssetOf(state.Owner); ok {
			assets = append(assets, classic)
		}
	}
	match := -1
	for i, e := range a.list.Items() {
		if e.Type != AccountCredited && e.Type != AccountDebited {
			continue
		}
		if e.Source != holder || e.Balance != "" || !containsString(assets, e.Asset) {
			continue
		}
		if match >= 0 {
			return
		}
		match = i
	}
	if match < 0 {
		return
	}
	a.list.At(match).Balance = balance.String()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
