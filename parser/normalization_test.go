package parser

import (
	"testing"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdcIssuer = "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"

func TestAssetString(t *testing.T) {
	tests := []struct {
		name     string
		asset    xdr.Asset
		expected string
	}{
		{name: "native", asset: xdr.MustNewNativeAsset(), expected: "XLM"},
		{name: "alphanum4", asset: xdr.MustNewCreditAsset("USDC", usdcIssuer), expected: "USDC-" + usdcIssuer + "-1"},
		{name: "alphanum12", asset: xdr.MustNewCreditAsset("LONGASSET", usdcIssuer), expected: "LONGASSET-" + usdcIssuer + "-2"},
		{name: "short alphanum4", asset: xdr.MustNewCreditAsset("USD", usdcIssuer), expected: "USD-" + usdcIssuer + "-1"},
		{name: "short alphanum12", asset: xdr.MustNewCreditAsset("ABCDE", usdcIssuer), expected: "ABCDE-" + usdcIssuer + "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AssetString(tt.asset))

			back, err := ParseAssetString(tt.expected)
			require.NoError(t, err)
			assert.True(t, back.Equals(tt.asset))
		})
	}
}

func TestTrustLineAssetStringTrimsPadding(t *testing.T) {
	asset := xdr.MustNewCreditAsset("USD", usdcIssuer).ToTrustLineAsset()
	assert.Equal(t, "USD-"+usdcIssuer+"-1", TrustLineAssetString(asset))

	sep11, ok := SEP11ToAssetString("USD:" + usdcIssuer)
	require.True(t, ok)
	assert.Equal(t, sep11, TrustLineAssetString(asset))
}

func TestSEP11ToAssetString(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
		ok       bool
	}{
		{name: "native", in: "native", expected: "XLM", ok: true},
		{name: "alphanum4", in: "USDC:" + usdcIssuer, expected: "USDC-" + usdcIssuer + "-1", ok: true},
		{name: "alphanum12", in: "LONGASSET:" + usdcIssuer, expected: "LONGASSET-" + usdcIssuer + "-2", ok: true},
		{name: "bad issuer", in: "USDC:nope", ok: false},
		{name: "no separator", in: "USDC", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SEP11ToAssetString(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	id := testAccountID(2)
	muxed := xdr.MuxedAccount{
		Type: xdr.CryptoKeyTypeKeyTypeMuxedEd25519,
		Med25519: &xdr.MuxedAccountMed25519{
			Id:      42,
			Ed25519: *id.Ed25519,
		},
	}
	muxedAddress, err := muxed.GetAddress()
	require.NoError(t, err)
	require.Equal(t, byte('M'), muxedAddress[0])

	assert.Equal(t, id.Address(), NormalizeAddress(muxedAddress))
	assert.Equal(t, id.Address(), NormalizeAddress(id.Address()))
	assert.Equal(t, id.Address(), MuxedAccountAddress(muxed))
}

func TestScAddressString(t *testing.T) {
	id := testAccountID(3)
	address, err := ScAddressString(xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeAccount, AccountId: &id})
	require.NoError(t, err)
	assert.Equal(t, id.Address(), address)

	contract, err := ScAddressString(testContractAddress(3))
	require.NoError(t, err)
	assert.True(t, IsContractAddress(contract))
	assert.False(t, IsContractAddress(address))
}

func TestParseClaimPredicate(t *testing.T) {
	before := xdr.Int64(1700000000)
	inner := &xdr.ClaimPredicate{Type: xdr.ClaimPredicateTypeClaimPredicateBeforeAbsoluteTime, AbsBefore: &before}
	not := xdr.ClaimPredicate{Type: xdr.ClaimPredicateTypeClaimPredicateNot, NotPredicate: &inner}

	assert.Equal(t, map[string]any{"not": map[string]any{"absBefore": "1700000000"}}, ParseClaimPredicate(not))
	assert.Equal(t, map[string]any{}, ParseClaimPredicate(xdr.ClaimPredicate{Type: xdr.ClaimPredicateTypeClaimPredicateUnconditional}))
}

func TestPriceString(t *testing.T) {
	assert.Equal(t, "0.5", PriceString(xdr.Price{N: 1, D: 2}))
	assert.Equal(t, "3", PriceString(xdr.Price{N: 3, D: 1}))
	assert.Equal(t, "0", PriceString(xdr.Price{N: 3, D: 0}))
}
