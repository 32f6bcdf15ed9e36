package parser

import (
	"fmt"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// ClaimedOffer is one trade leg matched by a DEX operation. Assets and amounts
// are from the maker's side: index 0 is what the maker (offer or pool) sold,
// index 1 is what it bought.
type ClaimedOffer struct {
	Offer   string
	Pool    string
	Seller  string
	Assets  [2]string
	Amounts [2]int64
}

// OperationResult holds the parts of an operation result the effects analyzer needs.
type OperationResult struct {
	Type          xdr.OperationType
	ClaimedOffers []ClaimedOffer
	BalanceID     string
}

// TxResult is a decoded transaction result. For fee-bump transactions the
// operation results are taken from the inner transaction.
type TxResult struct {
	FeeCharged      int64
	InnerFeeCharged int64
	FeeBump         bool
	Successful      bool
	Operations      []OperationResult
}

// ParseTxResult decodes a transaction result.
func ParseTxResult(result xdr.TransactionResult) (*TxResult, error) {
	res := &TxResult{
		FeeCharged: int64(result.FeeCharged),
		Successful: result.Successful(),
	}

	var opResults []xdr.OperationResult
	switch result.Result.Code {
	case xdr.TransactionResultCodeTxFeeBumpInnerSuccess, xdr.TransactionResultCodeTxFeeBumpInnerFailed:
		pair := result.Result.InnerResultPair
		if pair == nil {
			return nil, fmt.Errorf("fee bump result without inner result")
		}
		res.FeeBump = true
		res.InnerFeeCharged = int64(pair.Result.FeeCharged)
		if pair.Result.Result.Results != nil {
			opResults = *pair.Result.Result.Results
		}
	default:
		if result.Result.Results != nil {
			opResults = *result.Result.Results
		}
	}

	for i, opResult := range opResults {
		parsed, err := parseOperationResult(opResult)
		if err != nil {
			return nil, fmt.Errorf("operation result %d: %w", i, err)
		}
		res.Operations = append(res.Operations, parsed)
	}
	return res, nil
}

// Operation returns the result of the operation at index, if present.
func (r *TxResult) Operation(index int) *OperationResult {
	if r == nil || index < 0 || index >= len(r.Operations) {
		return nil
	}
	return &r.Operations[index]
}

func parseOperationResult(result xdr.OperationResult) (OperationResult, error) {
	if result.Code != xdr.OperationResultCodeOpInner || result.Tr == nil {
		return OperationResult{}, nil
	}
	tr := result.Tr
	res := OperationResult{Type: tr.Type}

	var atoms []xdr.ClaimAtom
	switch tr.Type {
	case xdr.OperationTypeManageSellOffer:
		if r := tr.ManageSellOfferResult; r != nil && r.Success != nil {
			atoms = r.Success.OffersClaimed
		}
	case xdr.OperationTypeCreatePassiveSellOffer:
		if r := tr.CreatePassiveSellOfferResult; r != nil && r.Success != nil {
			atoms = r.Success.OffersClaimed
		}
	case xdr.OperationTypeManageBuyOffer:
		if r := tr.ManageBuyOfferResult; r != nil && r.Success != nil {
			atoms = r.Success.OffersClaimed
		}
	case xdr.OperationTypePathPaymentStrictReceive:
		if r := tr.PathPaymentStrictReceiveResult; r != nil && r.Success != nil {
			atoms = r.Success.Offers
		}
	case xdr.OperationTypePathPaymentStrictSend:
		if r := tr.PathPaymentStrictSendResult; r != nil && r.Success != nil {
			atoms = r.Success.Offers
		}
	case xdr.OperationTypeCreateClaimableBalance:
		if r := tr.CreateClaimableBalanceResult; r != nil && r.BalanceId != nil {
			id, err := ClaimableBalanceIDString(*r.BalanceId)
			if err != nil {
				return res, fmt.Errorf("encode balance id: %w", err)
			}
			res.BalanceID = id
		}
	}

	for _, atom := range atoms {
		claimed, err := parseClaimAtom(atom)
		if err != nil {
			return res, err
		}
		res.ClaimedOffers = append(res.ClaimedOffers, claimed)
	}
	return res, nil
}

func parseClaimAtom(atom xdr.ClaimAtom) (ClaimedOffer, error) {
	switch atom.Type {
	case xdr.ClaimAtomTypeClaimAtomTypeV0:
		v0 := atom.MustV0()
		seller, err := strkey.Encode(strkey.VersionByteAccountID, v0.SellerEd25519[:])
		if err != nil {
			return ClaimedOffer{}, fmt.Errorf("encode seller: %w", err)
		}
		return ClaimedOffer{
			Offer:   fmt.Sprint(int64(v0.OfferId)),
			Seller:  seller,
			Assets:  [2]string{AssetString(v0.AssetSold), AssetString(v0.AssetBought)},
			Amounts: [2]int64{int64(v0.AmountSold), int64(v0.AmountBought)},
		}, nil

	case xdr.ClaimAtomTypeClaimAtomTypeOrderBook:
		ob := atom.MustOrderBook()
		return ClaimedOffer{
			Offer:   fmt.Sprint(int64(ob.OfferId)),
			Seller:  ob.SellerId.Address(),
			Assets:  [2]string{AssetString(ob.AssetSold), AssetString(ob.AssetBought)},
			Amounts: [2]int64{int64(ob.AmountSold), int64(ob.AmountBought)},
		}, nil

	case xdr.ClaimAtomTypeClaimAtomTypeLiquidityPool:
		lp := atom.MustLiquidityPool()
		return ClaimedOffer{
			Pool:    PoolIDString(lp.LiquidityPoolId),
			Assets:  [2]string{AssetString(lp.AssetSold), AssetString(lp.AssetBought)},
			Amounts: [2]int64{int64(lp.AmountSold), int64(lp.AmountBought)},
		}, nil

	default:
		return ClaimedOffer{}, fmt.Errorf("unknown claim atom type %v", atom.Type)
	}
}
