package effects

import (
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// EffectType is the closed set of effect kinds the analyzer emits.
type EffectType string

const (
	FeeCharged EffectType = "feeCharged"

	AccountCreated                     EffectType = "accountCreated"
	AccountRemoved                     EffectType = "accountRemoved"
	AccountCredited                    EffectType = "accountCredited"
	AccountDebited                     EffectType = "accountDebited"
	AccountThresholdsUpdated           EffectType = "accountThresholdsUpdated"
	AccountHomeDomainUpdated           EffectType = "accountHomeDomainUpdated"
	AccountFlagsUpdated                EffectType = "accountFlagsUpdated"
	AccountInflationDestinationUpdated EffectType = "accountInflationDestinationUpdated"
	AccountSignerCreated               EffectType = "accountSignerCreated"
	AccountSignerUpdated               EffectType = "accountSignerUpdated"
	AccountSignerRemoved               EffectType = "accountSignerRemoved"

	TrustlineCreated              EffectType = "trustlineCreated"
	TrustlineUpdated              EffectType = "trustlineUpdated"
	TrustlineRemoved              EffectType = "trustlineRemoved"
	TrustlineAuthorizationUpdated EffectType = "trustlineAuthorizationUpdated"

	AssetMinted EffectType = "assetMinted"
	AssetBurned EffectType = "assetBurned"

	OfferCreated EffectType = "offerCreated"
	OfferUpdated EffectType = "offerUpdated"
	OfferRemoved EffectType = "offerRemoved"

	LiquidityPoolCreated   EffectType = "liquidityPoolCreated"
	LiquidityPoolUpdated   EffectType = "liquidityPoolUpdated"
	LiquidityPoolRemoved   EffectType = "liquidityPoolRemoved"
	LiquidityPoolDeposited EffectType = "liquidityPoolDeposited"
	LiquidityPoolWithdrew  EffectType = "liquidityPoolWithdrew"

	Trade EffectType = "trade"

	DataEntryCreated EffectType = "dataEntryCreated"
	DataEntryUpdated EffectType = "dataEntryUpdated"
	DataEntryRemoved EffectType = "dataEntryRemoved"

	SequenceBumped EffectType = "sequenceBumped"
	Inflation      EffectType = "inflation"

	ClaimableBalanceCreated EffectType = "claimableBalanceCreated"
	ClaimableBalanceRemoved EffectType = "claimableBalanceRemoved"

	AccountSponsorshipCreated          EffectType = "accountSponsorshipCreated"
	AccountSponsorshipUpdated          EffectType = "accountSponsorshipUpdated"
	AccountSponsorshipRemoved          EffectType = "accountSponsorshipRemoved"
	TrustlineSponsorshipCreated        EffectType = "trustlineSponsorshipCreated"
	TrustlineSponsorshipUpdated        EffectType = "trustlineSponsorshipUpdated"
	TrustlineSponsorshipRemoved        EffectType = "trustlineSponsorshipRemoved"
	OfferSponsorshipCreated            EffectType = "offerSponsorshipCreated"
	OfferSponsorshipUpdated            EffectType = "offerSponsorshipUpdated"
	OfferSponsorshipRemoved            EffectType = "offerSponsorshipRemoved"
	DataSponsorshipCreated             EffectType = "dataSponsorshipCreated"
	DataSponsorshipUpdated             EffectType = "dataSponsorshipUpdated"
	DataSponsorshipRemoved             EffectType = "dataSponsorshipRemoved"
	ClaimableBalanceSponsorshipCreated EffectType = "claimableBalanceSponsorshipCreated"
	ClaimableBalanceSponsorshipUpdated EffectType = "claimableBalanceSponsorshipUpdated"
	ClaimableBalanceSponsorshipRemoved EffectType = "claimableBalanceSponsorshipRemoved"
	SignerSponsorshipCreated           EffectType = "signerSponsorshipCreated"
	SignerSponsorshipUpdated           EffectType = "signerSponsorshipUpdated"
	SignerSponsorshipRemoved           EffectType = "signerSponsorshipRemoved"

	ContractCodeUploaded EffectType = "contractCodeUploaded"
	ContractCodeRemoved  EffectType = "contractCodeRemoved"
	ContractCodeRestored EffectType = "contractCodeRestored"

	ContractCreated  EffectType = "contractCreated"
	ContractUpdated  EffectType = "contractUpdated"
	ContractRestored EffectType = "contractRestored"
	ContractInvoked  EffectType = "contractInvoked"
	ContractEvent    EffectType = "contractEvent"

	ContractDataCreated  EffectType = "contractDataCreated"
	ContractDataUpdated  EffectType = "contractDataUpdated"
	ContractDataRemoved  EffectType = "contractDataRemoved"
	ContractDataRestored EffectType = "contractDataRestored"

	ContractAdminUpdated EffectType = "contractAdminUpdated"
	ContractMetrics      EffectType = "contractMetrics"
	SetTTL               EffectType = "setTtl"
)

// Effect is one observable state change caused by an operation. Only the
// fields relevant to Type are set.
type Effect struct {
	Type   EffectType `json:"type"`
	Source string     `json:"source"`

	Account string `json:"account,omitempty"`
	Asset   string `json:"asset,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Balance string `json:"balance,omitempty"`
	Limit   string `json:"limit,omitempty"`

	Assets  []string `json:"assets,omitempty"`
	Amounts []string `json:"amounts,omitempty"`
	Shares  string   `json:"shares,omitempty"`

	Flags                *uint32 `json:"flags,omitempty"`
	PrevFlags            *uint32 `json:"prevFlags,omitempty"`
	Thresholds           []uint8 `json:"thresholds,omitempty"`
	Domain               string  `json:"domain,omitempty"`
	InflationDestination string  `json:"inflationDestination,omitempty"`

	Signer  string          `json:"signer,omitempty"`
	Weight  *uint32         `json:"weight,omitempty"`
	Signers []parser.Signer `json:"signers,omitempty"`

	Sponsor     string `json:"sponsor,omitempty"`
	PrevSponsor string `json:"prevSponsor,omitempty"`

	Offer   string `json:"offer,omitempty"`
	Pool    string `json:"pool,omitempty"`
	Seller  string `json:"seller,omitempty"`
	Price   string `json:"price,omitempty"`
	PoolFee int32  `json:"fee,omitempty"`

	BalanceID string            `json:"balanceId,omitempty"`
	Claimants []parser.Claimant `json:"claimants,omitempty"`

	Name      string `json:"name,omitempty"`
	Value     string `json:"value,omitempty"`
	PrevValue string `json:"prevValue,omitempty"`
	Sequence  string `json:"sequence,omitempty"`

	Contract     string `json:"contract,omitempty"`
	Function     string `json:"function,omitempty"`
	Args         []any  `json:"args,omitempty"`
	RawArgs      string `json:"rawArgs,omitempty"`
	Result       string `json:"result,omitempty"`
	Depth        int    `json:"depth,omitempty"`
	Kind         string `json:"kind,omitempty"`
	WasmHash     string `json:"wasmHash,omitempty"`
	PrevWasmHash string `json:"prevWasmHash,omitempty"`
	Wasm         string `json:"wasm,omitempty"`
	KeyHash      string `json:"keyHash,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Key          string `json:"key,omitempty"`
	Durability   string `json:"durability,omitempty"`
	Topics       []any  `json:"topics,omitempty"`
	Data         any    `json:"data,omitempty"`
	TTL          uint32 `json:"ttl,omitempty"`
	Admin        string `json:"admin,omitempty"`

	Charged      string           `json:"charged,omitempty"`
	InnerCharged string           `json:"innerCharged,omitempty"`
	Bid          string           `json:"bid,omitempty"`
	Metrics      map[string]int64 `json:"metrics,omitempty"`
}

// references reports whether the effect mentions the asset or pool.
func (e *Effect) references(asset string) bool {
	if e.Asset == asset || e.Pool == asset {
		return true
	}
	for _, a := range e.Assets {
		if a == asset {
			return true
		}
	}
	return false
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}
