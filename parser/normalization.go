package parser

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// NativeAsset is the canonical name of the network's native asset.
const NativeAsset = "XLM"

// AssetString encodes a classic asset as "XLM" or "CODE-ISSUER-{1|2}".
func AssetString(asset xdr.Asset) string {
	switch asset.Type {
	case xdr.AssetTypeAssetTypeNative:
		return NativeAsset
	case xdr.AssetTypeAssetTypeCreditAlphanum4:
		return assetCode(asset) + "-" + asset.GetIssuer() + "-1"
	case xdr.AssetTypeAssetTypeCreditAlphanum12:
		return assetCode(asset) + "-" + asset.GetIssuer() + "-2"
	default:
		return ""
	}
}

// assetCode returns the asset code without the XDR zero padding.
func assetCode(asset xdr.Asset) string {
	return strings.TrimRight(asset.GetCode(), "\x00")
}

// TrustLineAssetString encodes a trustline asset. Pool share trustlines are
// identified by the hex pool id.
func TrustLineAssetString(asset xdr.TrustLineAsset) string {
	if asset.Type == xdr.AssetTypeAssetTypePoolShare {
		if asset.LiquidityPoolId == nil {
			return ""
		}
		return PoolIDString(*asset.LiquidityPoolId)
	}
	return AssetString(xdr.Asset{
		Type:       asset.Type,
		AlphaNum4:  asset.AlphaNum4,
		AlphaNum12: asset.AlphaNum12,
	})
}

// ParseAssetString is the inverse of AssetString.
func ParseAssetString(asset string) (xdr.Asset, error) {
	if asset == NativeAsset {
		return xdr.MustNewNativeAsset(), nil
	}
	parts := strings.Split(asset, "-")
	if len(parts) != 3 {
		return xdr.Asset{}, fmt.Errorf("invalid asset %q", asset)
	}
	return xdr.NewCreditAsset(parts[0], parts[1])
}

// SEP11ToAssetString converts the SEP-11 names used by Stellar Asset Contract
// events ("native", "CODE:ISSUER") into the canonical asset encoding.
func SEP11ToAssetString(name string) (string, bool) {
	if name == "native" {
		return NativeAsset, true
	}
	code, issuer, found := strings.Cut(name, ":")
	if !found || code == "" || !strkey.IsValidEd25519PublicKey(issuer) {
		return "", false
	}
	kind := "1"
	if len(code) > 4 {
		kind = "2"
	}
	return code + "-" + issuer + "-" + kind, true
}

// AssetIssuer returns the issuer of an encoded classic asset, if any.
func AssetIssuer(asset string) string {
	parts := strings.Split(asset, "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// IsIssuedAsset reports whether the encoded asset is a classic issued asset.
func IsIssuedAsset(asset string) bool {
	return strings.Contains(asset, "-")
}

// IsContractAddress reports whether the string looks like a contract address.
func IsContractAddress(address string) bool {
	return len(address) == 56 && address[0] == 'C'
}

// PoolIDString encodes a liquidity pool id as lowercase hex.
func PoolIDString(id xdr.PoolId) string {
	return hex.EncodeToString(id[:])
}

// ClaimableBalanceIDString encodes a claimable balance id in its XDR hex form.
func ClaimableBalanceIDString(id xdr.ClaimableBalanceId) (string, error) {
	return xdr.MarshalHex(id)
}

// NormalizeAddress collapses a multiplexed (M...) address to its base account.
// Non-muxed input is returned unchanged.
func NormalizeAddress(address string) string {
	if !strings.HasPrefix(address, "M") {
		return address
	}
	muxed, err := xdr.AddressToMuxedAccount(address)
	if err != nil {
		return address
	}
	return muxed.ToAccountId().Address()
}

// MuxedAccountAddress returns the base account address of a muxed account.
func MuxedAccountAddress(account xdr.MuxedAccount) string {
	return account.ToAccountId().Address()
}

// ScAddressString encodes a Soroban address. Muxed addresses collapse to the
// base account.
func ScAddressString(address xdr.ScAddress) (string, error) {
	switch address.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		if address.AccountId == nil {
			return "", fmt.Errorf("account address without account id")
		}
		return address.AccountId.Address(), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		contractID, ok := address.GetContractId()
		if !ok {
			return "", fmt.Errorf("contract address without contract id")
		}
		return strkey.Encode(strkey.VersionByteContract, contractID[:])
	case xdr.ScAddressTypeScAddressTypeMuxedAccount:
		if address.MuxedAccount == nil {
			return "", fmt.Errorf("muxed address without account")
		}
		return strkey.Encode(strkey.VersionByteAccountID, address.MuxedAccount.Ed25519[:])
	case xdr.ScAddressTypeScAddressTypeClaimableBalance:
		if address.ClaimableBalanceId == nil || address.ClaimableBalanceId.V0 == nil {
			return "", fmt.Errorf("claimable balance address without id")
		}
		payload := append([]byte{byte(address.ClaimableBalanceId.Type)}, address.ClaimableBalanceId.V0[:]...)
		return strkey.Encode(strkey.VersionByteClaimableBalance, payload)
	case xdr.ScAddressTypeScAddressTypeLiquidityPool:
		if address.LiquidityPoolId == nil {
			return "", fmt.Errorf("liquidity pool address without id")
		}
		return strkey.Encode(strkey.VersionByteLiquidityPool, address.LiquidityPoolId[:])
	default:
		return "", fmt.Errorf("unknown ScAddress type: %v", address.Type)
	}
}

// ContractIDString encodes a raw 32-byte contract id as a C... address.
func ContractIDString(id []byte) (string, error) {
	return strkey.Encode(strkey.VersionByteContract, id)
}

// Claimant is a decoded claimable balance claimant.
type Claimant struct {
	Destination string         `json:"destination"`
	Predicate   map[string]any `json:"predicate"`
}

// ParseClaimants decodes the claimants of a claimable balance entry.
func ParseClaimants(claimants []xdr.Claimant) []Claimant {
	res := make([]Claimant, 0, len(claimants))
	for _, c := range claimants {
		if c.V0 == nil {
			continue
		}
		res = append(res, Claimant{
			Destination: c.V0.Destination.Address(),
			Predicate:   ParseClaimPredicate(c.V0.Predicate),
		})
	}
	return res
}

// ParseClaimPredicate converts a claim predicate tree into a JSON-friendly map.
func ParseClaimPredicate(p xdr.ClaimPredicate) map[string]any {
	switch p.Type {
	case xdr.ClaimPredicateTypeClaimPredicateAnd:
		return map[string]any{"and": parsePredicateList(p.AndPredicates)}
	case xdr.ClaimPredicateTypeClaimPredicateOr:
		return map[string]any{"or": parsePredicateList(p.OrPredicates)}
	case xdr.ClaimPredicateTypeClaimPredicateNot:
		if p.NotPredicate == nil || *p.NotPredicate == nil {
			return map[string]any{"not": map[string]any{}}
		}
		return map[string]any{"not": ParseClaimPredicate(**p.NotPredicate)}
	case xdr.ClaimPredicateTypeClaimPredicateBeforeAbsoluteTime:
		if p.AbsBefore == nil {
			return map[string]any{}
		}
		return map[string]any{"absBefore": fmt.Sprint(int64(*p.AbsBefore))}
	case xdr.ClaimPredicateTypeClaimPredicateBeforeRelativeTime:
		if p.RelBefore == nil {
			return map[string]any{}
		}
		return map[string]any{"relBefore": fmt.Sprint(int64(*p.RelBefore))}
	default:
		return map[string]any{}
	}
}

func parsePredicateList(list *[]xdr.ClaimPredicate) []map[string]any {
	if list == nil {
		return nil
	}
	res := make([]map[string]any, 0, len(*list))
	for _, p := range *list {
		res = append(res, ParseClaimPredicate(p))
	}
	return res
}
