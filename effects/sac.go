package effects

import (
	"github.com/shopspring/decimal"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/cache"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/contractid"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/metrics"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// SACMapper reconciles Stellar Asset Contract addresses with the classic
// assets they wrap. It holds a transaction-scoped contract -> asset map and
// consults a process-wide (asset, network) -> contract cache. A mapper must
// not be shared between transactions.
type SACMapper struct {
	network   string
	contracts map[string]string
	cache     *cache.Cache[string, string]
}

// NewSACMapper creates a mapper for one transaction. The cache may be nil.
func NewSACMapper(network string, c *cache.Cache[string, string]) *SACMapper {
	return &SACMapper{
		network:   network,
		contracts: make(map[string]string),
		cache:     c,
	}
}

func (m *SACMapper) cacheKey(asset string) string {
	return asset + "|" + m.network
}

// Map reports whether contract is the asset contract of the classic asset,
// recording a validated pair in both the transaction map and the cache.
func (m *SACMapper) Map(contract, asset string) bool {
	if known, ok := m.contracts[contract]; ok {
		metrics.IncrementSACLookups("tx")
		return known == asset
	}
	if m.cache != nil {
		if cached, ok := m.cache.Get(m.cacheKey(asset)); ok {
			if cached != contract {
				metrics.IncrementSACLookups("mismatch")
				return false
			}
			metrics.IncrementSACLookups("cache")
			m.contracts[contract] = asset
			return true
		}
	}

	xdrAsset, err := parser.ParseAssetString(asset)
	if err != nil {
		return false
	}
	derived, err := contractid.AssetAddress(xdrAsset, m.network)
	if err != nil || derived != contract {
		metrics.IncrementSACLookups("mismatch")
		return false
	}
	metrics.IncrementSACLookups("derived")
	m.Register(contract, asset)
	return true
}

// Register records a known contract/asset pair.
func (m *SACMapper) Register(contract, asset string) {
	m.contracts[contract] = asset
	if m.cache != nil {
		m.cache.Set(m.cacheKey(asset), contract)
	}
}

// AssetOf returns the classic asset mapped to a contract within this transaction.
func (m *SACMapper) AssetOf(contract string) (string, bool) {
	asset, ok := m.contracts[contract]
	return asset, ok
}

// resolveTokenAsset returns the asset a token event should be accounted in:
// the classic asset when the event's SEP-11 name maps onto the emitting
// contract, otherwise the contract address itself.
func (a *analyzer) resolveTokenAsset(contract, sep11 string) (string, bool) {
	if sep11 == "" || a.sac == nil {
		return contract, false
	}
	asset, ok := parser.SEP11ToAssetString(sep11)
	if !ok || !a.sac.Map(contract, asset) {
		return contract, false
	}
	return asset, true
}

func (a *analyzer) tokenTransfer(contract, from, to string, amount decimal.Decimal, sep11 string) error {
	if from == to {
		a.log.Debug().Str("contract", contract).Str("address", from).Msg("skipping self transfer")
		return nil
	}
	asset, classic := a.resolveTokenAsset(contract, sep11)
	if !classic {
		if err := a.debit(from, asset, amount); err != nil {
			return err
		}
		return a.credit(to, asset, amount)
	}

	issuer := parser.AssetIssuer(asset)
	switch {
	case issuer != "" && from == issuer:
		if err := a.mint(asset, amount); err != nil {
			return err
		}
		if parser.IsContractAddress(to) {
			return a.credit(to, asset, amount)
		}
	case issuer != "" && to == issuer:
		if parser.IsContractAddress(from) {
			if err := a.debit(from, asset, amount); err != nil {
				return err
			}
		}
		return a.burn(asset, amount)
	default:
		if parser.IsContractAddress(from) {
			if err := a.debit(from, asset, amount); err != nil {
				return err
			}
		}
		if parser.IsContractAddress(to) {
			return a.credit(to, asset, amount)
		}
	}
	return nil
}

func (a *analyzer) tokenMint(contract, to string, amount decimal.Decimal, sep11 string) error {
	asset, classic := a.resolveTokenAsset(contract, sep11)
	if err := a.mint(asset, amount); err != nil {
		return err
	}
	if !classic || parser.IsContractAddress(to) {
		return a.credit(to, asset, amount)
	}
	return nil
}

func (a *analyzer) tokenBurn(contract, from string, amount decimal.Decimal, sep11 string) error {
	asset, classic := a.resolveTokenAsset(contract, sep11)
	if !classic || parser.IsContractAddress(from) {
		if err := a.debit(from, asset, amount); err != nil {
			return err
		}
	}
	return a.burn(asset, amount)
}
