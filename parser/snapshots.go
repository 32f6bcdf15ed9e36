package parser

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/hash"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// EntryType names the ledger entry variants the decoder understands.
type EntryType string

const (
	EntryAccount          EntryType = "account"
	EntryTrustline        EntryType = "trustline"
	EntryOffer            EntryType = "offer"
	EntryData             EntryType = "data"
	EntryClaimableBalance EntryType = "claimableBalance"
	EntryLiquidityPool    EntryType = "liquidityPool"
	EntryContractData     EntryType = "contractData"
	EntryContractCode     EntryType = "contractCode"
	EntryTTL              EntryType = "ttl"
)

// Snapshot is the decoded state of one ledger entry at one point in time.
type Snapshot interface {
	EntryType() EntryType
}

type Signer struct {
	Key     string `json:"key"`
	Weight  uint32 `json:"weight"`
	Sponsor string `json:"sponsor,omitempty"`
}

type AccountState struct {
	Address       string   `json:"address"`
	Sequence      string   `json:"sequence"`
	Balance       int64    `json:"balance"`
	HomeDomain    string   `json:"homeDomain,omitempty"`
	InflationDest string   `json:"inflationDest,omitempty"`
	Flags         uint32   `json:"flags"`
	Thresholds    [3]uint8 `json:"thresholds"`
	MasterWeight  uint8    `json:"masterWeight"`
	Signers       []Signer `json:"signers,omitempty"`
	Sponsor       string   `json:"sponsor,omitempty"`
}

func (*AccountState) EntryType() EntryType { return EntryAccount }

type TrustlineState struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance int64  `json:"balance"`
	Limit   int64  `json:"limit"`
	Flags   uint32 `json:"flags"`
	Sponsor string `json:"sponsor,omitempty"`
}

func (*TrustlineState) EntryType() EntryType { return EntryTrustline }

// IsPoolShare reports whether the trustline holds liquidity pool shares.
func (t *TrustlineState) IsPoolShare() bool {
	return !IsIssuedAsset(t.Asset) && t.Asset != NativeAsset
}

type OfferState struct {
	ID      string    `json:"id"`
	Account string    `json:"account"`
	Assets  [2]string `json:"assets"`
	Amount  int64     `json:"amount"`
	Price   string    `json:"price"`
	Flags   uint32    `json:"flags"`
	Sponsor string    `json:"sponsor,omitempty"`
}

func (*OfferState) EntryType() EntryType { return EntryOffer }

type LiquidityPoolState struct {
	Pool     string    `json:"pool"`
	Assets   [2]string `json:"assets"`
	Fee      int32     `json:"fee"`
	Reserves [2]int64  `json:"reserves"`
	Shares   int64     `json:"shares"`
	Accounts int64     `json:"accounts"`
	Sponsor  string    `json:"sponsor,omitempty"`
}

func (*LiquidityPoolState) EntryType() EntryType { return EntryLiquidityPool }

type ClaimableBalanceState struct {
	BalanceID string     `json:"balanceId"`
	Asset     string     `json:"asset"`
	Amount    int64      `json:"amount"`
	Claimants []Claimant `json:"claimants"`
	Flags     uint32     `json:"flags"`
	Sponsor   string     `json:"sponsor,omitempty"`
}

func (*ClaimableBalanceState) EntryType() EntryType { return EntryClaimableBalance }

type DataState struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Value   string `json:"value"`
	Sponsor string `json:"sponsor,omitempty"`
}

func (*DataState) EntryType() EntryType { return EntryData }

type ContractCodeState struct {
	Hash    string `json:"hash"`
	KeyHash string `json:"keyHash"`
}

func (*ContractCodeState) EntryType() EntryType { return EntryContractCode }

// Contract kinds decoded from an instance entry.
const (
	ContractKindWasm      = "wasm"
	ContractKindFromAsset = "fromAsset"
)

// StorageEntry is one key/value pair of a contract instance's inline storage.
type StorageEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ContractDataState holds a contract data entry. Instance entries also carry
// the decoded executable and inline storage.
type ContractDataState struct {
	Owner      string `json:"owner"`
	Key        string `json:"key"`
	Value      string `json:"value"`
	Durability string `json:"durability"`
	KeyHash    string `json:"keyHash"`

	Instance bool           `json:"instance,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	WasmHash string         `json:"wasmHash,omitempty"`
	Asset    string         `json:"asset,omitempty"`
	Storage  []StorageEntry `json:"storage,omitempty"`

	rawKey xdr.ScVal
	rawVal xdr.ScVal
}

func (*ContractDataState) EntryType() EntryType { return EntryContractData }

// RawKey returns the undecoded storage key.
func (c *ContractDataState) RawKey() xdr.ScVal { return c.rawKey }

// RawValue returns the undecoded storage value.
func (c *ContractDataState) RawValue() xdr.ScVal { return c.rawVal }

type TTLState struct {
	KeyHash string `json:"keyHash"`
	TTL     uint32 `json:"ttl"`
}

func (*TTLState) EntryType() EntryType { return EntryTTL }

// entryTypeOf maps an xdr ledger entry type onto the decoder's names.
func entryTypeOf(t xdr.LedgerEntryType) (EntryType, error) {
	switch t {
	case xdr.LedgerEntryTypeAccount:
		return EntryAccount, nil
	case xdr.LedgerEntryTypeTrustline:
		return EntryTrustline, nil
	case xdr.LedgerEntryTypeOffer:
		return EntryOffer, nil
	case xdr.LedgerEntryTypeData:
		return EntryData, nil
	case xdr.LedgerEntryTypeClaimableBalance:
		return EntryClaimableBalance, nil
	case xdr.LedgerEntryTypeLiquidityPool:
		return EntryLiquidityPool, nil
	case xdr.LedgerEntryTypeContractData:
		return EntryContractData, nil
	case xdr.LedgerEntryTypeContractCode:
		return EntryContractCode, nil
	case xdr.LedgerEntryTypeTtl:
		return EntryTTL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEntry, t.String())
	}
}

// LedgerKeyHash returns hex(sha256(key xdr)), the identity TTL entries refer to.
func LedgerKeyHash(key xdr.LedgerKey) (string, error) {
	raw, err := key.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal ledger key: %w", err)
	}
	h := hash.Hash(raw)
	return hex.EncodeToString(h[:]), nil
}

func sponsorOf(entry xdr.LedgerEntry) string {
	if desc := entry.SponsoringID(); desc != nil {
		return desc.Address()
	}
	return ""
}

// decodeSnapshot converts a full ledger entry into its snapshot.
func decodeSnapshot(entry xdr.LedgerEntry) (Snapshot, error) {
	data := entry.Data
	switch data.Type {
	case xdr.LedgerEntryTypeAccount:
		return decodeAccount(*data.Account, sponsorOf(entry)), nil

	case xdr.LedgerEntryTypeTrustline:
		tl := data.TrustLine
		return &TrustlineState{
			Account: tl.AccountId.Address(),
			Asset:   TrustLineAssetString(tl.Asset),
			Balance: int64(tl.Balance),
			Limit:   int64(tl.Limit),
			Flags:   uint32(tl.Flags),
			Sponsor: sponsorOf(entry),
		}, nil

	case xdr.LedgerEntryTypeOffer:
		o := data.Offer
		return &OfferState{
			ID:      fmt.Sprint(int64(o.OfferId)),
			Account: o.SellerId.Address(),
			Assets:  [2]string{AssetString(o.Selling), AssetString(o.Buying)},
			Amount:  int64(o.Amount),
			Price:   PriceString(o.Price),
			Flags:   uint32(o.Flags),
			Sponsor: sponsorOf(entry),
		}, nil

	case xdr.LedgerEntryTypeData:
		d := data.Data
		return &DataState{
			Account: d.AccountId.Address(),
			Name:    string(d.DataName),
			Value:   base64.StdEncoding.EncodeToString(d.DataValue),
			Sponsor: sponsorOf(entry),
		}, nil

	case xdr.LedgerEntryTypeClaimableBalance:
		cb := data.ClaimableBalance
		id, err := ClaimableBalanceIDString(cb.BalanceId)
		if err != nil {
			return nil, fmt.Errorf("encode balance id: %w", err)
		}
		var flags uint32
		if cb.Ext.V1 != nil {
			flags = uint32(cb.Ext.V1.Flags)
		}
		return &ClaimableBalanceState{
			BalanceID: id,
			Asset:     AssetString(cb.Asset),
			Amount:    int64(cb.Amount),
			Claimants: ParseClaimants(cb.Claimants),
			Flags:     flags,
			Sponsor:   sponsorOf(entry),
		}, nil

	case xdr.LedgerEntryTypeLiquidityPool:
		lp := data.LiquidityPool
		cp := lp.Body.ConstantProduct
		if cp == nil {
			return nil, fmt.Errorf("%w: liquidity pool type %v", ErrUnsupportedEntry, lp.Body.Type)
		}
		return &LiquidityPoolState{
			Pool:     PoolIDString(lp.LiquidityPoolId),
			Assets:   [2]string{AssetString(cp.Params.AssetA), AssetString(cp.Params.AssetB)},
			Fee:      int32(cp.Params.Fee),
			Reserves: [2]int64{int64(cp.ReserveA), int64(cp.ReserveB)},
			Shares:   int64(cp.TotalPoolShares),
			Accounts: int64(cp.PoolSharesTrustLineCount),
			Sponsor:  sponsorOf(entry),
		}, nil

	case xdr.LedgerEntryTypeContractData:
		key, err := entry.LedgerKey()
		if err != nil {
			return nil, fmt.Errorf("contract data key: %w", err)
		}
		keyHash, err := LedgerKeyHash(key)
		if err != nil {
			return nil, err
		}
		return decodeContractData(*data.ContractData, keyHash)

	case xdr.LedgerEntryTypeContractCode:
		key, err := entry.LedgerKey()
		if err != nil {
			return nil, fmt.Errorf("contract code key: %w", err)
		}
		keyHash, err := LedgerKeyHash(key)
		if err != nil {
			return nil, err
		}
		return &ContractCodeState{
			Hash:    data.ContractCode.Hash.HexString(),
			KeyHash: keyHash,
		}, nil

	case xdr.LedgerEntryTypeTtl:
		return &TTLState{
			KeyHash: data.Ttl.KeyHash.HexString(),
			TTL:     uint32(data.Ttl.LiveUntilLedgerSeq),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEntry, data.Type.String())
	}
}

func decodeAccount(acc xdr.AccountEntry, sponsor string) *AccountState {
	state := &AccountState{
		Address:      acc.AccountId.Address(),
		Sequence:     fmt.Sprint(int64(acc.SeqNum)),
		Balance:      int64(acc.Balance),
		HomeDomain:   string(acc.HomeDomain),
		Flags:        uint32(acc.Flags),
		MasterWeight: acc.Thresholds[0],
		Thresholds:   [3]uint8{acc.Thresholds[1], acc.Thresholds[2], acc.Thresholds[3]},
		Sponsor:      sponsor,
	}
	if acc.InflationDest != nil {
		state.InflationDest = acc.InflationDest.Address()
	}

	var sponsorIDs []xdr.SponsorshipDescriptor
	if acc.Ext.V == 1 && acc.Ext.V1 != nil && acc.Ext.V1.Ext.V == 2 && acc.Ext.V1.Ext.V2 != nil {
		sponsorIDs = acc.Ext.V1.Ext.V2.SignerSponsoringIDs
	}
	for i, s := range acc.Signers {
		signer := Signer{Key: s.Key.Address(), Weight: uint32(s.Weight)}
		if i < len(sponsorIDs) && sponsorIDs[i] != nil {
			signer.Sponsor = sponsorIDs[i].Address()
		}
		state.Signers = append(state.Signers, signer)
	}
	return state
}

func decodeContractData(cd xdr.ContractDataEntry, keyHash string) (*ContractDataState, error) {
	owner, err := ScAddressString(cd.Contract)
	if err != nil {
		return nil, fmt.Errorf("contract data owner: %w", err)
	}
	key, err := ScValBase64(cd.Key)
	if err != nil {
		return nil, fmt.Errorf("contract data key: %w", err)
	}
	value, err := ScValBase64(cd.Val)
	if err != nil {
		return nil, fmt.Errorf("contract data value: %w", err)
	}
	state := &ContractDataState{
		Owner:      owner,
		Key:        key,
		Value:      value,
		Durability: durabilityName(cd.Durability),
		KeyHash:    keyHash,
		rawKey:     cd.Key,
		rawVal:     cd.Val,
	}
	if cd.Key.Type == xdr.ScValTypeScvLedgerKeyContractInstance && cd.Val.Instance != nil {
		if err := decodeInstance(state, *cd.Val.Instance); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func durabilityName(d xdr.ContractDataDurability) string {
	if d == xdr.ContractDataDurabilityTemporary {
		return "temporary"
	}
	return "persistent"
}

func decodeInstance(state *ContractDataState, instance xdr.ScContractInstance) error {
	state.Instance = true
	switch instance.Executable.Type {
	case xdr.ContractExecutableTypeContractExecutableWasm:
		state.Kind = ContractKindWasm
		if instance.Executable.WasmHash != nil {
			state.WasmHash = instance.Executable.WasmHash.HexString()
		}
	case xdr.ContractExecutableTypeContractExecutableStellarAsset:
		state.Kind = ContractKindFromAsset
	}
	if instance.Storage == nil {
		return nil
	}
	for _, entry := range *instance.Storage {
		key, err := ScValBase64(entry.Key)
		if err != nil {
			return fmt.Errorf("instance storage key: %w", err)
		}
		value, err := ScValBase64(entry.Val)
		if err != nil {
			return fmt.Errorf("instance storage value: %w", err)
		}
		state.Storage = append(state.Storage, StorageEntry{Key: key, Value: value})
		if state.Kind == ContractKindFromAsset {
			if name, ok := ScValString(entry.Key); ok && name == "AssetInfo" {
				state.Asset = assetFromAssetInfo(entry.Val)
			}
		}
	}
	return nil
}

// assetFromAssetInfo decodes the AssetInfo value kept in a Stellar Asset
// Contract instance: ["Native"] or ["AlphaNum4"|"AlphaNum12", {asset_code, issuer}].
func assetFromAssetInfo(val xdr.ScVal) string {
	items, ok := ScVecItems(val)
	if !ok || len(items) == 0 {
		return ""
	}
	kind, _ := ScValString(items[0])
	switch kind {
	case "Native":
		return NativeAsset
	case "AlphaNum4", "AlphaNum12":
		if len(items) < 2 {
			return ""
		}
		codeVal, ok := ScMapGet(items[1], "asset_code")
		if !ok {
			return ""
		}
		issuerVal, ok := ScMapGet(items[1], "issuer")
		if !ok || issuerVal.Bytes == nil {
			return ""
		}
		code, _ := ScValString(codeVal)
		code = strings.TrimRight(code, "\x00")
		issuer, err := strkey.Encode(strkey.VersionByteAccountID, *issuerVal.Bytes)
		if err != nil {
			return ""
		}
		suffix := "-1"
		if kind == "AlphaNum12" {
			suffix = "-2"
		}
		return code + "-" + issuer + suffix
	default:
		return ""
	}
}

// PriceString renders an offer price n/d as a decimal string.
func PriceString(p xdr.Price) string {
	if p.D == 0 {
		return "0"
	}
	return decimal.NewFromInt32(int32(p.N)).DivRound(decimal.NewFromInt32(int32(p.D)), 7).String()
}
