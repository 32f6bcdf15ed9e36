package effects

import (
	"github.com/shopspring/decimal"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// analyzeChanges is the generic pass over every decoded ledger change.
func (a *analyzer) analyzeChanges() error {
	for _, change := range a.in.Changes {
		var err error
		switch change.Type {
		case parser.EntryAccount:
			err = a.accountChanged(change)
		case parser.EntryTrustline:
			err = a.trustlineChanged(change)
		case parser.EntryOffer:
			err = a.offerChanged(change)
		case parser.EntryLiquidityPool:
			err = a.poolChanged(change)
		case parser.EntryClaimableBalance:
			err = a.claimableBalanceChanged(change)
		case parser.EntryData:
			err = a.dataChanged(change)
		case parser.EntryContractData:
			if change.Current().(*parser.ContractDataState).Instance {
				err = a.instanceChanged(change)
			}
		case parser.EntryContractCode:
			err = a.contractCodeChanged(change)
		case parser.EntryTTL:
			err = a.ttlChanged(change)
		default:
			err = unexpectedChange(change, "unsupported entry type")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) accountChanged(change parser.LedgerEntryChange) error {
	switch change.Action {
	case parser.ActionCreated:
		after := change.After.(*parser.AccountState)
		a.list.Append(&Effect{Type: AccountCreated, Account: after.Address})
		return a.credit(after.Address, parser.NativeAsset, decimal.NewFromInt(after.Balance))
	case parser.ActionUpdated:
		before := change.Before.(*parser.AccountState)
		after := change.After.(*parser.AccountState)
		if err := a.balanceChange(after.Address, parser.NativeAsset, before.Balance, after.Balance); err != nil {
			return err
		}
		for _, e := range DiffSigners(before, after) {
			a.list.Append(e)
		}
		return nil
	case parser.ActionRemoved:
		before := change.Before.(*parser.AccountState)
		if err := a.debit(before.Address, parser.NativeAsset, decimal.NewFromInt(before.Balance)); err != nil {
			return err
		}
		a.list.Append(&Effect{Type: AccountRemoved, Source: before.Address})
		return nil
	default:
		return unexpectedChange(change, "")
	}
}

func (a *analyzer) trustlineChanged(change parser.LedgerEntryChange) error {
	switch change.Action {
	case parser.ActionCreated:
		after := change.After.(*parser.TrustlineState)
		limit, err := formatInt(after.Limit)
		if err != nil {
			return err
		}
		a.list.Append(&Effect{
			Type:   TrustlineCreated,
			Source: after.Account,
			Asset:  after.Asset,
			Limit:  limit,
			Flags:  uint32Ptr(after.Flags),
		})
		if after.IsPoolShare() {
			return nil
		}
		return a.credit(after.Account, after.Asset, decimal.NewFromInt(after.Balance))

	case parser.ActionUpdated:
		before := change.Before.(*parser.TrustlineState)
		after := change.After.(*parser.TrustlineState)
		if !after.IsPoolShare() {
			if err := a.balanceChange(after.Account, after.Asset, before.Balance, after.Balance); err != nil {
				return err
			}
		}
		flagsOp := a.opType() == xdr.OperationTypeAllowTrust || a.opType() == xdr.OperationTypeSetTrustLineFlags
		if before.Limit == after.Limit && (before.Flags == after.Flags || flagsOp) {
			return nil
		}
		limit, err := formatInt(after.Limit)
		if err != nil {
			return err
		}
		a.list.Append(&Effect{
			Type:   TrustlineUpdated,
			Source: after.Account,
			Asset:  after.Asset,
			Limit:  limit,
			Flags:  uint32Ptr(after.Flags),
		})
		return nil

	case parser.ActionRemoved:
		before := change.Before.(*parser.TrustlineState)
		if !before.IsPoolShare() {
			if err := a.debit(before.Account, before.Asset, decimal.NewFromInt(before.Balance)); err != nil {
				return err
			}
		}
		a.list.Append(&Effect{Type: TrustlineRemoved, Source: before.Account, Asset: before.Asset})
		return nil

	default:
		return unexpectedChange(change, "")
	}
}

func (a *analyzer) offerChanged(change parser.LedgerEntryChange) error {
	offer := change.Current().(*parser.OfferState)
	e := &Effect{
		Source: offer.Account,
		Offer:  offer.ID,
		Assets: []string{offer.Assets[0], offer.Assets[1]},
	}
	switch change.Action {
	case parser.ActionCreated:
		e.Type = OfferCreated
	case parser.ActionUpdated:
		before := change.Before.(*parser.OfferState)
		if before.Amount == offer.Amount && before.Price == offer.Price {
			return nil
		}
		e.Type = OfferUpdated
	case parser.ActionRemoved:
		a.list.Append(&Effect{Type: OfferRemoved, Source: offer.Account, Offer: offer.ID, Assets: e.Assets})
		return nil
	default:
		return unexpectedChange(change, "")
	}
	amount, err := formatInt(offer.Amount)
	if err != nil {
		return err
	}
	e.Amount = amount
	e.Price = offer.Price
	a.list.Append(e)
	return nil
}

func (a *analyzer) poolChanged(change parser.LedgerEntryChange) error {
	pool := change.Current().(*parser.LiquidityPoolState)
	switch change.Action {
	case parser.ActionCreated:
		e := &Effect{
			Type:    LiquidityPoolCreated,
			Pool:    pool.Pool,
			Assets:  []string{pool.Assets[0], pool.Assets[1]},
			PoolFee: pool.Fee,
		}
		idx := a.list.FindIndex(func(existing *Effect) bool { return existing.references(pool.Pool) })
		if idx < 0 {
			a.list.Append(e)
		} else {
			a.list.InsertAt(idx, e)
		}
		return nil
	case parser.ActionUpdated:
		before := change.Before.(*parser.LiquidityPoolState)
		if before.Reserves == pool.Reserves && before.Shares == pool.Shares {
			return nil
		}
		amounts := make([]string, 2)
		for i, reserve := range pool.Reserves {
			formatted, err := formatInt(reserve)
			if err != nil {
				return err
			}
			amounts[i] = formatted
		}
		shares, err := formatInt(pool.Shares)
		if err != nil {
			return err
		}
		a.list.Append(&Effect{
			Type:    LiquidityPoolUpdated,
			Pool:    pool.Pool,
			Assets:  []string{pool.Assets[0], pool.Assets[1]},
			Amounts: amounts,
			Shares:  shares,
		})
		return nil
	case parser.ActionRemoved:
		a.list.Append(&Effect{Type: LiquidityPoolRemoved, Pool: pool.Pool})
		return nil
	default:
		return unexpectedChange(change, "")
	}
}

func (a *analyzer) claimableBalanceChanged(change parser.LedgerEntryChange) error {
	balance := change.Current().(*parser.ClaimableBalanceState)
	var typ EffectType
	switch change.Action {
	case parser.ActionCreated:
		typ = ClaimableBalanceCreated
	case parser.ActionUpdated:
		return nil
	case parser.ActionRemoved:
		typ = ClaimableBalanceRemoved
	default:
		return unexpectedChange(change, "")
	}
	amount, err := formatInt(balance.Amount)
	if err != nil {
		return err
	}
	e := &Effect{Type: typ, BalanceID: balance.BalanceID, Asset: balance.Asset, Amount: amount}
	if typ == ClaimableBalanceCreated {
		e.Claimants = balance.Claimants
	}
	a.list.Append(e)
	return nil
}

func (a *analyzer) dataChanged(change parser.LedgerEntryChange) error {
	data := change.Current().(*parser.DataState)
	e := &Effect{Source: data.Account, Name: data.Name}
	switch change.Action {
	case parser.ActionCreated:
		e.Type = DataEntryCreated
		e.Value = data.Value
	case parser.ActionUpdated:
		before := change.Before.(*parser.DataState)
		if before.Value == data.Value {
			return nil
		}
		e.Type = DataEntryUpdated
		e.Value = data.Value
		e.PrevValue = before.Value
	case parser.ActionRemoved:
		e.Type = DataEntryRemoved
		e.PrevValue = data.Value
	default:
		return unexpectedChange(change, "")
	}
	a.list.Append(e)
	return nil
}

// instanceChanged handles contract instance entries and their inline storage.
func (a *analyzer) instanceChanged(change parser.LedgerEntryChange) error {
	instance := change.Current().(*parser.ContractDataState)
	if instance.Kind == parser.ContractKindFromAsset && instance.Asset != "" && a.sac != nil {
		a.sac.Register(instance.Owner, instance.Asset)
	}

	switch change.Action {
	case parser.ActionCreated:
		exists := a.list.FindIndex(func(e *Effect) bool {
			return e.Type == ContractCreated && e.Contract == instance.Owner
		}) >= 0
		if !exists {
			a.list.Append(&Effect{
				Type:     ContractCreated,
				Contract: instance.Owner,
				Kind:     instance.Kind,
				WasmHash: instance.WasmHash,
				Asset:    instance.Asset,
			})
		}
		a.storageEffects(ContractDataCreated, instance)

	case parser.ActionUpdated:
		before := change.Before.(*parser.ContractDataState)
		if before.WasmHash != instance.WasmHash {
			a.list.Append(&Effect{
				Type:         ContractUpdated,
				Contract:     instance.Owner,
				WasmHash:     instance.WasmHash,
				PrevWasmHash: before.WasmHash,
			})
		}
		a.diffStorage(before, instance)

	case parser.ActionRestored:
		a.list.Append(&Effect{
			Type:     ContractRestored,
			Contract: instance.Owner,
			Kind:     instance.Kind,
			WasmHash: instance.WasmHash,
		})
		a.storageEffects(ContractDataRestored, instance)

	default:
		return unexpectedChange(change, "contract instances cannot be removed")
	}
	return nil
}

func (a *analyzer) storageEffects(typ EffectType, instance *parser.ContractDataState) {
	for _, entry := range instance.Storage {
		a.list.Append(&Effect{
			Type:       typ,
			Owner:      instance.Owner,
			Key:        entry.Key,
			Value:      entry.Value,
			Durability: instance.Durability,
		})
	}
}

func (a *analyzer) diffStorage(before, after *parser.ContractDataState) {
	prev := make(map[string]string, len(before.Storage))
	for _, entry := range before.Storage {
		prev[entry.Key] = entry.Value
	}
	seen := make(map[string]struct{}, len(after.Storage))
	for _, entry := range after.Storage {
		seen[entry.Key] = struct{}{}
		old, ok := prev[entry.Key]
		switch {
		case !ok:
			a.list.Append(&Effect{
				Type:       ContractDataCreated,
				Owner:      after.Owner,
				Key:        entry.Key,
				Value:      entry.Value,
				Durability: after.Durability,
			})
		case old != entry.Value:
			a.list.Append(&Effect{
				Type:       ContractDataUpdated,
				Owner:      after.Owner,
				Key:        entry.Key,
				Value:      entry.Value,
				PrevValue:  old,
				Durability: after.Durability,
			})
		}
	}
	for _, entry := range before.Storage {
		if _, ok := seen[entry.Key]; ok {
			continue
		}
		a.list.Append(&Effect{
			Type:       ContractDataRemoved,
			Owner:      after.Owner,
			Key:        entry.Key,
			PrevValue:  entry.Value,
			Durability: after.Durability,
		})
	}
}

func (a *analyzer) contractCodeChanged(change parser.LedgerEntryChange) error {
	code := change.Current().(*parser.ContractCodeState)
	switch change.Action {
	case parser.ActionCreated, parser.ActionUpdated:
		// uploads are reported by the invocation handler
		return nil
	case parser.ActionRemoved:
		a.list.Append(&Effect{Type: ContractCodeRemoved, WasmHash: code.Hash, KeyHash: code.KeyHash})
	case parser.ActionRestored:
		a.list.Append(&Effect{Type: ContractCodeRestored, WasmHash: code.Hash, KeyHash: code.KeyHash})
	default:
		return unexpectedChange(change, "")
	}
	return nil
}

func (a *analyzer) ttlChanged(change parser.LedgerEntryChange) error {
	switch change.Action {
	case parser.ActionRemoved:
		return nil
	case parser.ActionUpdated:
		if change.Before.(*parser.TTLState).TTL == change.After.(*parser.TTLState).TTL {
			return nil
		}
	case parser.ActionCreated, parser.ActionRestored:
	default:
		return unexpectedChange(change, "")
	}
	ttl := change.After.(*parser.TTLState)
	e := &Effect{Type: SetTTL, KeyHash: ttl.KeyHash, TTL: ttl.TTL}
	for _, target := range a.in.Changes {
		if target.KeyHash() != ttl.KeyHash {
			continue
		}
		switch state := target.Current().(type) {
		case *parser.ContractDataState:
			e.Owner = state.Owner
			e.Durability = state.Durability
		case *parser.ContractCodeState:
			e.WasmHash = state.Hash
		}
		break
	}
	a.list.Append(e)
	return nil
}
