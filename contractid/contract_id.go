// Package contractid derives Soroban contract addresses from their hash
// preimages.
package contractid

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stellar/go/hash"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// A process rarely sees more than a handful of passphrases.
const networkIDMemoSize = 32

var networkIDs *lru.Cache[string, xdr.Hash]

func init() {
	var err error
	networkIDs, err = lru.New[string, xdr.Hash](networkIDMemoSize)
	if err != nil {
		panic(fmt.Sprintf("contractid: network id memo: %v", err))
	}
}

// NetworkID returns hash(passphrase), memoized per passphrase.
func NetworkID(passphrase string) xdr.Hash {
	if id, ok := networkIDs.Get(passphrase); ok {
		return id
	}
	id := xdr.Hash(network.ID(passphrase))
	networkIDs.Add(passphrase, id)
	return id
}

// Derive returns the raw contract id for a preimage on the given network:
// hash(HashIdPreimage{ENVELOPE_TYPE_CONTRACT_ID, networkId, preimage}).
func Derive(preimage xdr.ContractIdPreimage, passphrase string) (xdr.Hash, error) {
	full := xdr.HashIdPreimage{
		Type: xdr.EnvelopeTypeEnvelopeTypeContractId,
		ContractId: &xdr.HashIdPreimageContractId{
			NetworkId:          NetworkID(passphrase),
			ContractIdPreimage: preimage,
		},
	}
	raw, err := full.MarshalBinary()
	if err != nil {
		return xdr.Hash{}, fmt.Errorf("marshal contract id preimage: %w", err)
	}
	return xdr.Hash(hash.Hash(raw)), nil
}

// Address derives the strkey-encoded contract address (C...) for a preimage.
func Address(preimage xdr.ContractIdPreimage, passphrase string) (string, error) {
	id, err := Derive(preimage, passphrase)
	if err != nil {
		return "", err
	}
	return strkey.Encode(strkey.VersionByteContract, id[:])
}

// AssetAddress derives the Stellar Asset Contract address wrapping a classic asset.
func AssetAddress(asset xdr.Asset, passphrase string) (string, error) {
	return Address(FromAsset(asset), passphrase)
}

// FromAsset builds a preimage for a contract deployed from a classic asset.
func FromAsset(asset xdr.Asset) xdr.ContractIdPreimage {
	return xdr.ContractIdPreimage{
		Type:      xdr.ContractIdPreimageTypeContractIdPreimageFromAsset,
		FromAsset: &asset,
	}
}

// FromAddress builds a preimage for a contract deployed by an address with a salt.
func FromAddress(address xdr.ScAddress, salt xdr.Uint256) xdr.ContractIdPreimage {
	return xdr.ContractIdPreimage{
		Type: xdr.ContractIdPreimageTypeContractIdPreimageFromAddress,
		FromAddress: &xdr.ContractIdPreimageFromAddress{
			Address: address,
			Salt:    salt,
		},
	}
}
