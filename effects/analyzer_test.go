package effects

import (
	"testing"

	"github.com/stellar/go/network"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/contractid"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

const testPool = "abababababababababababababababababababababababababababababababab"

func testOptions() Options {
	return Options{Network: network.TestNetworkPassphrase}
}

func TestAnalyzeRequiresSource(t *testing.T) {
	_, err := Analyze(Input{}, testOptions())
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestAnalyzePayment(t *testing.T) {
	from, to := testAccount(1), testAccount(2)
	tests := []struct {
		name     string
		source   string
		changes  []parser.LedgerEntryChange
		expected []EffectType
	}{
		{
			name:   "transfer between holders",
			source: from,
			changes: []parser.LedgerEntryChange{
				updated(trustline(from, usdc, 100), trustline(from, usdc, 60), "from"),
				updated(trustline(to, usdc, 0), trustline(to, usdc, 40), "to"),
			},
			expected: []EffectType{AccountDebited, AccountCredited},
		},
		{
			name:   "payment from issuer",
			source: usdcIssuer,
			changes: []parser.LedgerEntryChange{
				updated(trustline(to, usdc, 0), trustline(to, usdc, 40), "to"),
			},
			expected: []EffectType{AssetMinted, AccountCredited},
		},
		{
			name:   "payment to issuer",
			source: from,
			changes: []parser.LedgerEntryChange{
				updated(trustline(from, usdc, 100), trustline(from, usdc, 60), "from"),
			},
			expected: []EffectType{AccountDebited, AssetBurned},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := paymentOp(to, xdr.MustNewCreditAsset("USDC", usdcIssuer), 40)
			op.Source = tt.source
			res, err := Analyze(Input{Operation: op, Changes: tt.changes}, testOptions())
			require.NoError(t, err)
			require.Equal(t, tt.expected, effectTypes(res))
			for _, e := range res {
				assert.Equal(t, usdc, e.Asset)
				assert.Equal(t, "40", e.Amount)
			}
		})
	}
}

func TestAnalyzePaymentEffectSources(t *testing.T) {
	from, to := testAccount(1), testAccount(2)
	res, err := Analyze(Input{
		Operation: paymentOp(to, xdr.MustNewNativeAsset(), 25),
		Changes: []parser.LedgerEntryChange{
			updated(&parser.AccountState{Address: from, Balance: 100, MasterWeight: 1},
				&parser.AccountState{Address: from, Balance: 75, MasterWeight: 1}, "from"),
			updated(&parser.AccountState{Address: to, Balance: 0, MasterWeight: 1},
				&parser.AccountState{Address: to, Balance: 25, MasterWeight: 1}, "to"),
		},
	}, testOptions())
	require.NoError(t, err)
	require.Equal(t, []EffectType{AccountDebited, AccountCredited}, effectTypes(res))
	assert.Equal(t, from, res[0].Source)
	assert.Equal(t, to, res[1].Source)
	assert.Equal(t, parser.NativeAsset, res[1].Asset)
}

func TestAnalyzeDeauthorizeWithdrawsPoolShares(t *testing.T) {
	trustor := testAccount(2)
	op := operation(xdr.OperationBody{
		Type: xdr.OperationTypeSetTrustLineFlags,
		SetTrustLineFlagsOp: &xdr.SetTrustLineFlagsOp{
			Trustor:    xdr.MustAddress(trustor),
			Asset:      xdr.MustNewCreditAsset("USDC", usdcIssuer),
			ClearFlags: xdr.Uint32(xdr.TrustLineFlagsAuthorizedFlag),
		},
	})
	op.Source = usdcIssuer

	authorized := trustline(trustor, usdc, 50)
	revoked := trustline(trustor, usdc, 50)
	revoked.Flags = 0
	poolBefore := &parser.LiquidityPoolState{Pool: testPool, Assets: [2]string{parser.NativeAsset, usdc}, Reserves: [2]int64{1000, 500}, Shares: 100}
	poolAfter := &parser.LiquidityPoolState{Pool: testPool, Assets: [2]string{parser.NativeAsset, usdc}, Reserves: [2]int64{900, 450}, Shares: 90}
	shares := &parser.TrustlineState{Account: trustor, Asset: testPool, Balance: 10, Limit: 10}

	res, err := Analyze(Input{
		Operation: op,
		Changes: []parser.LedgerEntryChange{
			updated(authorized, revoked, "tl"),
			updated(poolBefore, poolAfter, "pool"),
			removed(shares, "shares"),
			created(&parser.ClaimableBalanceState{BalanceID: "00aa", Asset: parser.NativeAsset, Amount: 100}, "cb1"),
			created(&parser.ClaimableBalanceState{BalanceID: "00bb", Asset: usdc, Amount: 50}, "cb2"),
		},
	}, testOptions())
	require.NoError(t, err)
	require.Equal(t, []EffectType{
		TrustlineAuthorizationUpdated,
		LiquidityPoolWithdrew,
		LiquidityPoolUpdated,
		TrustlineRemoved,
		ClaimableBalanceCreated,
		ClaimableBalanceCreated,
	}, effectTypes(res))

	auth := res[0]
	assert.Equal(t, usdcIssuer, auth.Source)
	assert.Equal(t, trustor, auth.Account)
	assert.Equal(t, uint32(0), *auth.Flags)
	assert.Equal(t, uint32(1), *auth.PrevFlags)

	withdrew := res[1]
	assert.Equal(t, trustor, withdrew.Source)
	assert.Equal(t, testPool, withdrew.Pool)
	assert.Equal(t, []string{"100", "50"}, withdrew.Amounts)
	assert.Equal(t, "10", withdrew.Shares)
}

func TestAnalyzeAuthorizationRequiresUpdatedTrustline(t *testing.T) {
	trustor := testAccount(2)
	op := operation(xdr.OperationBody{
		Type: xdr.OperationTypeSetTrustLineFlags,
		SetTrustLineFlagsOp: &xdr.SetTrustLineFlagsOp{
			Trustor: xdr.MustAddress(trustor),
			Asset:   xdr.MustNewCreditAsset("USDC", usdcIssuer),
		},
	})
	_, err := Analyze(Input{
		Operation: op,
		Changes:   []parser.LedgerEntryChange{created(trustline(trustor, usdc, 0), "tl")},
	}, testOptions())
	require.ErrorIs(t, err, ErrUnexpectedLedgerState)

	var changeErr *UnexpectedChangeError
	require.ErrorAs(t, err, &changeErr)
	assert.Equal(t, parser.ActionCreated, changeErr.Action)
}

func TestAnalyzeTrade(t *testing.T) {
	taker, seller := testAccount(1), testAccount(2)
	op := operation(xdr.OperationBody{
		Type:              xdr.OperationTypeManageSellOffer,
		ManageSellOfferOp: &xdr.ManageSellOfferOp{},
	})
	res, err := Analyze(Input{
		Operation: op,
		Result: &parser.OperationResult{
			Type: xdr.OperationTypeManageSellOffer,
			ClaimedOffers: []parser.ClaimedOffer{{
				Offer:   "42",
				Seller:  seller,
				Assets:  [2]string{usdc, parser.NativeAsset},
				Amounts: [2]int64{10, 20},
			}},
		},
		Changes: []parser.LedgerEntryChange{
			updated(trustline(taker, usdc, 0), trustline(taker, usdc, 10), "taker"),
			updated(trustline(seller, usdc, 50), trustline(seller, usdc, 40), "seller"),
			updated(&parser.OfferState{ID: "42", Account: seller, Assets: [2]string{usdc, parser.NativeAsset}, Amount: 50, Price: "2"},
				&parser.OfferState{ID: "42", Account: seller, Assets: [2]string{usdc, parser.NativeAsset}, Amount: 40, Price: "2"}, "offer"),
		},
	}, testOptions())
	require.NoError(t, err)
	require.Equal(t, []EffectType{Trade, AccountCredited, AccountDebited, OfferUpdated}, effectTypes(res))
	assert.Equal(t, []string{"10", "20"}, res[0].Amounts)
	assert.Equal(t, seller, res[0].Seller)
	assert.Equal(t, seller, res[3].Source)
	assert.Equal(t, "40", res[3].Amount)
}

func TestAnalyzeSponsoredTrustline(t *testing.T) {
	account, sponsor := testAccount(1), testAccount(9)
	tl := trustline(account, usdc, 0)
	tl.Sponsor = sponsor
	op := operation(xdr.OperationBody{Type: xdr.OperationTypeChangeTrust, ChangeTrustOp: &xdr.ChangeTrustOp{}})

	res, err := Analyze(Input{Operation: op, Changes: []parser.LedgerEntryChange{created(tl, "tl")}}, testOptions())
	require.NoError(t, err)
	require.Equal(t, []EffectType{TrustlineCreated, TrustlineSponsorshipCreated}, effectTypes(res))
	assert.Equal(t, "1000000", res[0].Limit)
	assert.Equal(t, sponsor, res[1].Sponsor)
	assert.Equal(t, account, res[1].Account)
	assert.Equal(t, usdc, res[1].Asset)
}

func TestAnalyzeSACContractTransfer(t *testing.T) {
	sac, err := contractid.AssetAddress(xdr.MustNewCreditAsset("USDC", usdcIssuer), network.TestNetworkPassphrase)
	require.NoError(t, err)
	from, to := testContract(1), testContract(2)
	amount := parser.I128(500)

	transfer := contractEvent(sac, amount, symbol("transfer"), addressVal(from), addressVal(to), str("USDC:"+usdcIssuer))
	mapper := NewSACMapper(network.TestNetworkPassphrase, nil)
	opts := testOptions()
	opts.SAC = mapper

	res, err := Analyze(Input{
		Operation: invokeOp(sac, "transfer", addressVal(from), addressVal(to), amount),
		Events:    []xdr.ContractEvent{transfer},
		DiagnosticEvents: []xdr.DiagnosticEvent{
			fnCall(sac, "transfer", addressVal(from), addressVal(to), amount),
			inCall(transfer),
			fnReturn("transfer", void()),
		},
	}, opts)
	require.NoError(t, err)
	require.Equal(t, []EffectType{ContractInvoked, AccountDebited, AccountCredited, ContractEvent}, effectTypes(res))

	assert.Equal(t, from, res[1].Source)
	assert.Equal(t, to, res[2].Source)
	for _, e := range res[1:3] {
		assert.Equal(t, usdc, e.Asset)
		assert.Equal(t, "500", e.Amount)
	}
	asset, ok := mapper.AssetOf(sac)
	require.True(t, ok)
	assert.Equal(t, usdc, asset)
}

func TestAnalyzeCustomTokenTransfer(t *testing.T) {
	token := testContract(7)
	from, to := testAccount(1), testAccount(2)

	tests := []struct {
		name     string
		invoked  int64
		expected []EffectType
	}{
		{
			name:     "corroborated",
			invoked:  75,
			expected: []EffectType{ContractInvoked, AccountDebited, AccountCredited, ContractEvent},
		},
		{
			name:     "amount mismatch",
			invoked:  10,
			expected: []EffectType{ContractInvoked, ContractEvent},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Analyze(Input{
				Operation: invokeOp(token, "transfer", addressVal(from), addressVal(to), parser.I128(tt.invoked)),
				Events: []xdr.ContractEvent{
					contractEvent(token, parser.I128(75), symbol("transfer"), addressVal(from), addressVal(to)),
					contractEvent(token, void(), symbol("set"), symbol("config")),
				},
			}, testOptions())
			require.NoError(t, err)
			require.Equal(t, tt.expected, effectTypes(res))
			if len(res) == 4 {
				assert.Equal(t, token, res[1].Asset)
				assert.Equal(t, "75", res[2].Amount)
			}
		})
	}
}

func TestAnalyzeSelfTransferSkipped(t *testing.T) {
	token := testContract(7)
	holder := testAccount(1)
	res, err := Analyze(Input{
		Operation: invokeOp(token, "transfer", addressVal(holder), addressVal(holder), parser.I128(5)),
		Events: []xdr.ContractEvent{
			contractEvent(token, parser.I128(5), symbol("transfer"), addressVal(holder), addressVal(holder)),
		},
	}, testOptions())
	require.NoError(t, err)
	assert.Equal(t, []EffectType{ContractInvoked, ContractEvent}, effectTypes(res))
}

func TestAnalyzeCallStack(t *testing.T) {
	router, token := testContract(5), testContract(7)
	from, to := testAccount(1), testAccount(2)

	res, err := Analyze(Input{
		Operation: invokeOp(router, "swap", u64(1)),
		DiagnosticEvents: []xdr.DiagnosticEvent{
			fnCall(router, "swap", u64(1)),
			fnCall(token, "transfer", addressVal(from), addressVal(to), parser.I128(5)),
			fnReturn("transfer", void()),
			fnReturn("swap", u64(9)),
		},
	}, testOptions())
	require.NoError(t, err)
	require.Equal(t, []EffectType{ContractInvoked, ContractInvoked}, effectTypes(res))

	outer, inner := res[0], res[1]
	assert.Equal(t, router, outer.Contract)
	assert.Equal(t, []any{"1"}, outer.Args)
	assert.Zero(t, outer.Depth)
	expected, err := xdr.MarshalBase64(u64(9))
	require.NoError(t, err)
	assert.Equal(t, expected, outer.Result)

	assert.Equal(t, token, inner.Contract)
	assert.Equal(t, "transfer", inner.Function)
	assert.Equal(t, 1, inner.Depth)
	assert.Empty(t, inner.Result)
}

func TestAnalyzeCallStackSkipsUnknownCallShape(t *testing.T) {
	router, hello := testContract(5), testContract(6)
	unknownShape := inCall(diagnosticEvent(u64(1), symbol("fn_call"), addressVal(hello), symbol("hello")))
	swapResult := u64(9)

	tests := []struct {
		name   string
		events []xdr.DiagnosticEvent
		outer  *xdr.ScVal
	}{
		{
			name: "nested",
			events: []xdr.DiagnosticEvent{
				fnCall(router, "swap", u64(1)),
				unknownShape,
				fnReturn("hello", u64(7)),
				fnReturn("swap", u64(9)),
			},
			outer: &swapResult,
		},
		{
			name: "top level",
			events: []xdr.DiagnosticEvent{
				unknownShape,
				fnReturn("hello", u64(7)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Analyze(Input{
				Operation:        invokeOp(router, "swap", u64(1)),
				DiagnosticEvents: tt.events,
			}, testOptions())
			require.NoError(t, err)
			if tt.outer == nil {
				assert.Empty(t, res)
				return
			}
			require.Equal(t, []EffectType{ContractInvoked}, effectTypes(res))
			expected, err := xdr.MarshalBase64(*tt.outer)
			require.NoError(t, err)
			assert.Equal(t, expected, res[0].Result)
		})
	}
}

func TestAnalyzeEmptyCallStack(t *testing.T) {
	res, err := Analyze(Input{
		Operation:        invokeOp(testContract(5), "swap"),
		DiagnosticEvents: []xdr.DiagnosticEvent{fnReturn("swap", void())},
	}, testOptions())
	assert.ErrorIs(t, err, ErrEmptyCallStack)
	assert.Nil(t, res)
}

func TestAnalyzeContractMetrics(t *testing.T) {
	contract := testContract(5)
	res, err := Analyze(Input{
		Operation: invokeOp(contract, "noop"),
		DiagnosticEvents: []xdr.DiagnosticEvent{
			{Event: diagnosticEvent(u64(1200), symbol("core_metrics"), symbol("cpu_insn"))},
			{Event: diagnosticEvent(u64(300), symbol("core_metrics"), symbol("read_entry"))},
		},
		SorobanFees: &parser.SorobanFees{NonRefundable: 100, Refundable: 200, Rent: 30},
	}, testOptions())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, ContractMetrics, res[0].Type)
	assert.Equal(t, contract, res[0].Contract)
	assert.Equal(t, map[string]int64{
		"cpu_insn":          1200,
		"read_entry":        300,
		"fee_nonrefundable": 100,
		"fee_refundable":    200,
		"fee_rent":          30,
	}, res[0].Metrics)
}

func TestAnalyzeCreateAssetContract(t *testing.T) {
	asset := xdr.MustNewCreditAsset("USDC", usdcIssuer)
	sac, err := contractid.AssetAddress(asset, network.TestNetworkPassphrase)
	require.NoError(t, err)

	op := operation(xdr.OperationBody{
		Type: xdr.OperationTypeInvokeHostFunction,
		InvokeHostFunctionOp: &xdr.InvokeHostFunctionOp{
			HostFunction: xdr.HostFunction{
				Type: xdr.HostFunctionTypeHostFunctionTypeCreateContract,
				CreateContract: &xdr.CreateContractArgs{
					ContractIdPreimage: contractid.FromAsset(asset),
					Executable:         xdr.ContractExecutable{Type: xdr.ContractExecutableTypeContractExecutableStellarAsset},
				},
			},
		},
	})
	instance := &parser.ContractDataState{
		Owner:      sac,
		Durability: "persistent",
		Instance:   true,
		Kind:       parser.ContractKindFromAsset,
		Asset:      usdc,
	}
	mapper := NewSACMapper(network.TestNetworkPassphrase, nil)
	opts := testOptions()
	opts.SAC = mapper

	res, err := Analyze(Input{Operation: op, Changes: []parser.LedgerEntryChange{created(instance, "instance")}}, opts)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, ContractCreated, res[0].Type)
	assert.Equal(t, sac, res[0].Contract)
	assert.Equal(t, parser.ContractKindFromAsset, res[0].Kind)
	assert.Equal(t, usdc, res[0].Asset)

	mapped, ok := mapper.AssetOf(sac)
	require.True(t, ok)
	assert.Equal(t, usdc, mapped)
}

func TestAnalyzeContractDataAndTTL(t *testing.T) {
	contract := testContract(5)
	before := &parser.ContractDataState{Owner: contract, Key: "a2V5", Value: "b2xk", Durability: "persistent", KeyHash: "data"}
	after := &parser.ContractDataState{Owner: contract, Key: "a2V5", Value: "bmV3", Durability: "persistent", KeyHash: "data"}

	res, err := Analyze(Input{
		Operation: invokeOp(contract, "put"),
		Changes: []parser.LedgerEntryChange{
			updated(before, after, "data"),
			updated(&parser.TTLState{KeyHash: "data", TTL: 100}, &parser.TTLState{KeyHash: "data", TTL: 500}, "ttl"),
		},
	}, testOptions())
	require.NoError(t, err)
	require.Equal(t, []EffectType{ContractInvoked, ContractDataUpdated, SetTTL}, effectTypes(res))

	assert.Equal(t, "bmV3", res[1].Value)
	assert.Equal(t, "b2xk", res[1].PrevValue)
	assert.Equal(t, contract, res[2].Owner)
	assert.Equal(t, uint32(500), res[2].TTL)
}
