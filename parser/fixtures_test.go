package parser

import (
	"encoding/hex"

	"github.com/stellar/go/xdr"
)

func testAccountID(b byte) xdr.AccountId {
	var key xdr.Uint256
	for i := range key {
		key[i] = b
	}
	return xdr.AccountId{Type: xdr.PublicKeyTypePublicKeyTypeEd25519, Ed25519: &key}
}

func testContractAddress(b byte) xdr.ScAddress {
	var id xdr.ContractId
	for i := range id {
		id[i] = b
	}
	return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &id}
}

func symbol(s string) xdr.ScVal {
	sym := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}
}

func u32(v uint32) xdr.ScVal {
	n := xdr.Uint32(v)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &n}
}

func accountEntry(id xdr.AccountId, balance int64) xdr.LedgerEntry {
	return xdr.LedgerEntry{
		Data: xdr.LedgerEntryData{
			Type: xdr.LedgerEntryTypeAccount,
			Account: &xdr.AccountEntry{
				AccountId:  id,
				Balance:    xdr.Int64(balance),
				SeqNum:     100,
				Thresholds: xdr.Thresholds{1, 0, 0, 0},
			},
		},
	}
}

func contractDataEntry(contract xdr.ScAddress, key string, value uint32) xdr.LedgerEntry {
	return xdr.LedgerEntry{
		Data: xdr.LedgerEntryData{
			Type: xdr.LedgerEntryTypeContractData,
			ContractData: &xdr.ContractDataEntry{
				Contract:   contract,
				Key:        symbol(key),
				Durability: xdr.ContractDataDurabilityPersistent,
				Val:        u32(value),
			},
		},
	}
}

func ttlEntry(keyHash xdr.Hash, liveUntil uint32) xdr.LedgerEntry {
	return xdr.LedgerEntry{
		Data: xdr.LedgerEntryData{
			Type: xdr.LedgerEntryTypeTtl,
			Ttl:  &xdr.TtlEntry{KeyHash: keyHash, LiveUntilLedgerSeq: xdr.Uint32(liveUntil)},
		},
	}
}

func stateChange(entry xdr.LedgerEntry) xdr.LedgerEntryChange {
	return xdr.LedgerEntryChange{Type: xdr.LedgerEntryChangeTypeLedgerEntryState, State: &entry}
}

func createdChange(entry xdr.LedgerEntry) xdr.LedgerEntryChange {
	return xdr.LedgerEntryChange{Type: xdr.LedgerEntryChangeTypeLedgerEntryCreated, Created: &entry}
}

func updatedChange(entry xdr.LedgerEntry) xdr.LedgerEntryChange {
	return xdr.LedgerEntryChange{Type: xdr.LedgerEntryChangeTypeLedgerEntryUpdated, Updated: &entry}
}

func restoredChange(entry xdr.LedgerEntry) xdr.LedgerEntryChange {
	return xdr.LedgerEntryChange{Type: xdr.LedgerEntryChangeTypeLedgerEntryRestored, Restored: &entry}
}

func removedChange(entry xdr.LedgerEntry) xdr.LedgerEntryChange {
	key, err := entry.LedgerKey()
	if err != nil {
		panic(err)
	}
	return xdr.LedgerEntryChange{Type: xdr.LedgerEntryChangeTypeLedgerEntryRemoved, Removed: &key}
}

func keyHashOf(entry xdr.LedgerEntry) xdr.Hash {
	key, err := entry.LedgerKey()
	if err != nil {
		panic(err)
	}
	h, err := LedgerKeyHash(key)
	if err != nil {
		panic(err)
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		panic(err)
	}
	var res xdr.Hash
	copy(res[:], raw)
	return res
}
