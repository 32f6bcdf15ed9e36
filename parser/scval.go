package parser

import (
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/xdr"
)

// ScValToNative converts a Soroban value into a JSON-friendly Go value.
// Integers wider than 64 bits become base-10 strings, addresses become strkey
// strings, and byte blobs become base64.
func ScValToNative(val xdr.ScVal) (any, error) {
	switch val.Type {
	case xdr.ScValTypeScvBool:
		if val.B == nil {
			return nil, fmt.Errorf("ScvBool has nil value")
		}
		return *val.B, nil

	case xdr.ScValTypeScvVoid:
		return nil, nil

	case xdr.ScValTypeScvU32:
		if val.U32 == nil {
			return nil, fmt.Errorf("ScvU32 has nil value")
		}
		return uint32(*val.U32), nil

	case xdr.ScValTypeScvI32:
		if val.I32 == nil {
			return nil, fmt.Errorf("ScvI32 has nil value")
		}
		return int32(*val.I32), nil

	case xdr.ScValTypeScvU64:
		if val.U64 == nil {
			return nil, fmt.Errorf("ScvU64 has nil value")
		}
		return fmt.Sprint(uint64(*val.U64)), nil

	case xdr.ScValTypeScvI64:
		if val.I64 == nil {
			return nil, fmt.Errorf("ScvI64 has nil value")
		}
		return fmt.Sprint(int64(*val.I64)), nil

	case xdr.ScValTypeScvTimepoint:
		if val.Timepoint == nil {
			return nil, fmt.Errorf("ScvTimepoint has nil value")
		}
		return fmt.Sprint(uint64(*val.Timepoint)), nil

	case xdr.ScValTypeScvDuration:
		if val.Duration == nil {
			return nil, fmt.Errorf("ScvDuration has nil value")
		}
		return fmt.Sprint(uint64(*val.Duration)), nil

	case xdr.ScValTypeScvU128, xdr.ScValTypeScvI128, xdr.ScValTypeScvU256, xdr.ScValTypeScvI256:
		n, ok := ScValBigInt(val)
		if !ok {
			return nil, fmt.Errorf("%s has nil value", val.Type.String())
		}
		return n.String(), nil

	case xdr.ScValTypeScvSymbol:
		if val.Sym == nil {
			return nil, fmt.Errorf("ScvSymbol has nil value")
		}
		return string(*val.Sym), nil

	case xdr.ScValTypeScvString:
		if val.Str == nil {
			return nil, fmt.Errorf("ScvString has nil value")
		}
		return string(*val.Str), nil

	case xdr.ScValTypeScvBytes:
		if val.Bytes == nil {
			return nil, fmt.Errorf("ScvBytes has nil value")
		}
		return base64.StdEncoding.EncodeToString(*val.Bytes), nil

	case xdr.ScValTypeScvAddress:
		if val.Address == nil {
			return nil, fmt.Errorf("ScvAddress has nil value")
		}
		return ScAddressString(*val.Address)

	case xdr.ScValTypeScvVec:
		if val.Vec == nil || *val.Vec == nil {
			return []any{}, nil
		}
		vec := **val.Vec
		result := make([]any, 0, len(vec))
		for _, item := range vec {
			converted, err := ScValToNative(item)
			if err != nil {
				return nil, err
			}
			result = append(result, converted)
		}
		return result, nil

	case xdr.ScValTypeScvMap:
		if val.Map == nil || *val.Map == nil {
			return map[string]any{}, nil
		}
		result := make(map[string]any, len(**val.Map))
		for _, entry := range **val.Map {
			key, err := ScValToNative(entry.Key)
			if err != nil {
				return nil, err
			}
			value, err := ScValToNative(entry.Val)
			if err != nil {
				return nil, err
			}
			result[fmt.Sprint(key)] = value
		}
		return result, nil

	case xdr.ScValTypeScvContractInstance:
		return map[string]any{"type": "contract_instance"}, nil

	case xdr.ScValTypeScvLedgerKeyContractInstance:
		return map[string]any{"type": "ledger_key_contract_instance"}, nil

	case xdr.ScValTypeScvLedgerKeyNonce:
		if val.NonceKey == nil {
			return nil, fmt.Errorf("ScvLedgerKeyNonce has nil value")
		}
		return map[string]any{"nonce": fmt.Sprint(int64(val.NonceKey.Nonce))}, nil

	case xdr.ScValTypeScvError:
		if val.Error == nil {
			return nil, fmt.Errorf("ScvError has nil value")
		}
		return map[string]any{"error": val.Error.Type.String()}, nil

	default:
		return nil, fmt.Errorf("unsupported ScVal type: %s", val.Type.String())
	}
}

// ScValBase64 returns the XDR base64 encoding of a value.
func ScValBase64(val xdr.ScVal) (string, error) {
	return xdr.MarshalBase64(val)
}

// ScValString returns the text of a symbol or string value.
func ScValString(val xdr.ScVal) (string, bool) {
	switch val.Type {
	case xdr.ScValTypeScvSymbol:
		if val.Sym != nil {
			return string(*val.Sym), true
		}
	case xdr.ScValTypeScvString:
		if val.Str != nil {
			return string(*val.Str), true
		}
	}
	return "", false
}

// ScValAddress returns the strkey form of an address value.
func ScValAddress(val xdr.ScVal) (string, bool) {
	if val.Type != xdr.ScValTypeScvAddress || val.Address == nil {
		return "", false
	}
	address, err := ScAddressString(*val.Address)
	if err != nil {
		return "", false
	}
	return address, true
}

// ScValAmount reads a token amount. Besides plain integers it accepts the map
// form {amount, to_muxed_id} emitted by transfers to muxed destinations.
func ScValAmount(val xdr.ScVal) (decimal.Decimal, bool) {
	if val.Type == xdr.ScValTypeScvMap {
		if entry, ok := ScMapGet(val, "amount"); ok {
			return ScValAmount(entry)
		}
		return decimal.Decimal{}, false
	}
	n, ok := ScValBigInt(val)
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromBigInt(n, 0), true
}

// ScMapGet looks up a symbol-keyed entry in a map value.
func ScMapGet(val xdr.ScVal, key string) (xdr.ScVal, bool) {
	if val.Type != xdr.ScValTypeScvMap || val.Map == nil || *val.Map == nil {
		return xdr.ScVal{}, false
	}
	for _, entry := range **val.Map {
		if name, ok := ScValString(entry.Key); ok && name == key {
			return entry.Val, true
		}
	}
	return xdr.ScVal{}, false
}

// ScVecItems returns the items of a vector value.
func ScVecItems(val xdr.ScVal) ([]xdr.ScVal, bool) {
	if val.Type != xdr.ScValTypeScvVec || val.Vec == nil || *val.Vec == nil {
		return nil, false
	}
	return **val.Vec, true
}

// ScValBigInt reads any integer-typed value into a big.Int.
func ScValBigInt(val xdr.ScVal) (*big.Int, bool) {
	switch val.Type {
	case xdr.ScValTypeScvU32:
		if val.U32 != nil {
			return new(big.Int).SetUint64(uint64(*val.U32)), true
		}
	case xdr.ScValTypeScvI32:
		if val.I32 != nil {
			return big.NewInt(int64(*val.I32)), true
		}
	case xdr.ScValTypeScvU64:
		if val.U64 != nil {
			return new(big.Int).SetUint64(uint64(*val.U64)), true
		}
	case xdr.ScValTypeScvI64:
		if val.I64 != nil {
			return big.NewInt(int64(*val.I64)), true
		}
	case xdr.ScValTypeScvU128:
		if val.U128 != nil {
			return joinWords(false, uint64(val.U128.Hi), uint64(val.U128.Lo)), true
		}
	case xdr.ScValTypeScvI128:
		if val.I128 != nil {
			return joinWords(true, uint64(val.I128.Hi), uint64(val.I128.Lo)), true
		}
	case xdr.ScValTypeScvU256:
		if val.U256 != nil {
			p := val.U256
			return joinWords(false, uint64(p.HiHi), uint64(p.HiLo), uint64(p.LoHi), uint64(p.LoLo)), true
		}
	case xdr.ScValTypeScvI256:
		if val.I256 != nil {
			p := val.I256
			return joinWords(true, uint64(p.HiHi), uint64(p.HiLo), uint64(p.LoHi), uint64(p.LoLo)), true
		}
	}
	return nil, false
}

// joinWords assembles big-endian 64-bit words into an integer, applying two's
// complement when signed and the top bit is set.
func joinWords(signed bool, words ...uint64) *big.Int {
	n := new(big.Int)
	for _, w := range words {
		n.Lsh(n, 64)
		n.Or(n, new(big.Int).SetUint64(w))
	}
	if signed && len(words) > 0 && words[0]&(1<<63) != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(64*len(words))))
	}
	return n
}

// I128 builds an i128 value from an int64. Used to assemble token amounts.
func I128(v int64) xdr.ScVal {
	hi := xdr.Int64(0)
	if v < 0 {
		hi = -1
	}
	return xdr.ScVal{
		Type: xdr.ScValTypeScvI128,
		I128: &xdr.Int128Parts{Hi: hi, Lo: xdr.Uint64(uint64(v))},
	}
}
