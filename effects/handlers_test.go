package effects

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

func TestAnalyzeSetOptions(t *testing.T) {
	source, signer := testAccount(1), testAccount(3)
	base := parser.AccountState{Address: source, Balance: 100, Thresholds: [3]uint8{1, 1, 1}, MasterWeight: 1}

	tests := []struct {
		name     string
		update   func(*parser.AccountState)
		expected []*Effect
	}{
		{
			name: "account settings",
			update: func(s *parser.AccountState) {
				s.HomeDomain = "example.com"
				s.Thresholds = [3]uint8{2, 2, 2}
				s.Flags = 3
				s.InflationDest = testAccount(5)
			},
			expected: []*Effect{
				{Type: AccountHomeDomainUpdated, Source: source, Domain: "example.com"},
				{Type: AccountThresholdsUpdated, Source: source, Thresholds: []uint8{2, 2, 2}},
				{Type: AccountFlagsUpdated, Source: source, Flags: uint32Ptr(3), PrevFlags: uint32Ptr(0)},
				{Type: AccountInflationDestinationUpdated, Source: source, InflationDestination: testAccount(5)},
			},
		},
		{
			name: "signer added",
			update: func(s *parser.AccountState) {
				s.Signers = []parser.Signer{{Key: signer, Weight: 1}}
			},
			expected: []*Effect{{
				Type:    AccountSignerCreated,
				Source:  source,
				Signer:  signer,
				Weight:  uint32Ptr(1),
				Signers: []parser.Signer{{Key: signer, Weight: 1}},
			}},
		},
		{
			name:   "nothing changed",
			update: func(*parser.AccountState) {},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := base, base
			tt.update(&after)
			op := operation(xdr.OperationBody{Type: xdr.OperationTypeSetOptions, SetOptionsOp: &xdr.SetOptionsOp{}})

			res, err := Analyze(Input{Operation: op, Changes: []parser.LedgerEntryChange{updated(&before, &after, "acc")}}, testOptions())
			require.NoError(t, err)
			if len(tt.expected) == 0 {
				assert.Empty(t, res)
				return
			}
			assert.Equal(t, tt.expected, res)
		})
	}
}

func TestAnalyzeBumpSequence(t *testing.T) {
	source := testAccount(1)
	tests := []struct {
		name     string
		after    string
		expected []*Effect
	}{
		{name: "bumped", after: "200", expected: []*Effect{{Type: SequenceBumped, Source: source, Sequence: "200"}}},
		{name: "already past target", after: "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := &parser.AccountState{Address: source, Sequence: "100", MasterWeight: 1}
			after := &parser.AccountState{Address: source, Sequence: tt.after, MasterWeight: 1}
			op := operation(xdr.OperationBody{Type: xdr.OperationTypeBumpSequence, BumpSequenceOp: &xdr.BumpSequenceOp{BumpTo: 200}})

			res, err := Analyze(Input{Operation: op, Changes: []parser.LedgerEntryChange{updated(before, after, "acc")}}, testOptions())
			require.NoError(t, err)
			if len(tt.expected) == 0 {
				assert.Empty(t, res)
				return
			}
			assert.Equal(t, tt.expected, res)
		})
	}
}

func TestAnalyzeUploadContractWasm(t *testing.T) {
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01}
	op := operation(xdr.OperationBody{
		Type: xdr.OperationTypeInvokeHostFunction,
		InvokeHostFunctionOp: &xdr.InvokeHostFunctionOp{
			HostFunction: xdr.HostFunction{Type: xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm, Wasm: &wasm},
		},
	})
	sum := sha256.Sum256(wasm)
	keyHash, err := parser.LedgerKeyHash(xdr.LedgerKey{
		Type:         xdr.LedgerEntryTypeContractCode,
		ContractCode: &xdr.LedgerKeyContractCode{Hash: xdr.Hash(sum)},
	})
	require.NoError(t, err)

	res, err := Analyze(Input{Operation: op}, testOptions())
	require.NoError(t, err)
	assert.Equal(t, []*Effect{{
		Type:     ContractCodeUploaded,
		Source:   testAccount(1),
		Wasm:     base64.StdEncoding.EncodeToString(wasm),
		WasmHash: hex.EncodeToString(sum[:]),
		KeyHash:  keyHash,
	}}, res)
}

func TestAnalyzeInvokeReturnValue(t *testing.T) {
	contract := testContract(5)
	result := u64(42)
	encoded, err := xdr.MarshalBase64(result)
	require.NoError(t, err)
	unit := void()

	tests := []struct {
		name     string
		value    *xdr.ScVal
		expected string
	}{
		{name: "value", value: &result, expected: encoded},
		{name: "void", value: &unit},
		{name: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Analyze(Input{
				Operation:   invokeOp(contract, "answer"),
				ReturnValue: tt.value,
			}, testOptions())
			require.NoError(t, err)
			require.Equal(t, []EffectType{ContractInvoked}, effectTypes(res))
			assert.Equal(t, tt.expected, res[0].Result)
		})
	}
}

func TestAnalyzeReturnValueIgnoredWithCallStack(t *testing.T) {
	contract := testContract(5)
	top := u64(1)
	res, err := Analyze(Input{
		Operation:        invokeOp(contract, "answer"),
		DiagnosticEvents: []xdr.DiagnosticEvent{fnCall(contract, "answer"), fnReturn("answer", u64(42))},
		ReturnValue:      &top,
	}, testOptions())
	require.NoError(t, err)
	require.Equal(t, []EffectType{ContractInvoked}, effectTypes(res))
	expected, err := xdr.MarshalBase64(u64(42))
	require.NoError(t, err)
	assert.Equal(t, expected, res[0].Result)
}

func TestAnalyzeCreateClaimableBalance(t *testing.T) {
	balance := &parser.ClaimableBalanceState{BalanceID: "00aa", Asset: parser.NativeAsset, Amount: 100}
	tests := []struct {
		name    string
		result  *parser.OperationResult
		wantErr error
	}{
		{name: "matching id", result: &parser.OperationResult{Type: xdr.OperationTypeCreateClaimableBalance, BalanceID: "00aa"}},
		{name: "no result"},
		{
			name:    "id not created",
			result:  &parser.OperationResult{Type: xdr.OperationTypeCreateClaimableBalance, BalanceID: "00bb"},
			wantErr: ErrUnexpectedLedgerState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Analyze(Input{
				Operation: operation(xdr.OperationBody{Type: xdr.OperationTypeCreateClaimableBalance}),
				Changes:   []parser.LedgerEntryChange{created(balance, "cb")},
				Result:    tt.result,
			}, testOptions())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, []EffectType{ClaimableBalanceCreated}, effectTypes(res))
			assert.Equal(t, "00aa", res[0].BalanceID)
			assert.Equal(t, "100", res[0].Amount)
		})
	}
}
