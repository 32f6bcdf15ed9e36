package effects

import (
	"github.com/shopspring/decimal"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// supplyTotals is a signed running total per asset, kept in order of first
// appearance so synthesized effects are deterministic.
type supplyTotals struct {
	order  []string
	totals map[string]decimal.Decimal
}

func (s *supplyTotals) add(asset string, amount decimal.Decimal) {
	if s.totals == nil {
		s.totals = make(map[string]decimal.Decimal)
	}
	if _, ok := s.totals[asset]; !ok {
		s.order = append(s.order, asset)
	}
	s.totals[asset] = s.totals[asset].Add(amount)
}

// analyzeSupply synthesizes mint and burn effects for issued assets whose
// observed movements do not balance, then collapses redundant pairs.
func (a *analyzer) analyzeSupply() error {
	var totals supplyTotals
	track := func(asset, amount string, sign int64) error {
		if !a.supplyTracked(asset) {
			return nil
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return wrapOp(ErrInvalidAmount, "supply amount "+amount)
		}
		totals.add(asset, d.Mul(decimal.NewFromInt(sign)))
		return nil
	}

	for _, e := range a.list.Items() {
		var err error
		switch e.Type {
		case AccountCredited, ClaimableBalanceCreated, AssetBurned:
			err = track(e.Asset, e.Amount, 1)
		case AccountDebited, ClaimableBalanceRemoved, AssetMinted:
			err = track(e.Asset, e.Amount, -1)
		case LiquidityPoolDeposited:
			for i := range e.Assets {
				if err = track(e.Assets[i], e.Amounts[i], 1); err != nil {
					break
				}
			}
		case LiquidityPoolWithdrew:
			for i := range e.Assets {
				if err = track(e.Assets[i], e.Amounts[i], -1); err != nil {
					break
				}
			}
		case Trade:
			if e.Pool == "" {
				continue
			}
			if err = track(e.Assets[0], e.Amounts[0], -1); err == nil {
				err = track(e.Assets[1], e.Amounts[1], 1)
			}
		}
		if err != nil {
			return err
		}
	}

	for _, asset := range totals.order {
		total := totals.totals[asset]
		switch total.Sign() {
		case 1:
			amount, err := formatAmount(total)
			if err != nil {
				return err
			}
			e := &Effect{Type: AssetMinted, Asset: asset, Amount: amount}
			idx := a.list.FindIndex(func(existing *Effect) bool { return existing.references(asset) })
			if idx < 0 {
				a.list.Append(e)
			} else {
				a.list.InsertAt(idx, e)
			}
		case -1:
			if err := a.burn(asset, total.Neg()); err != nil {
				return err
			}
		}
	}

	return collapseSupply(a.list)
}

func (a *analyzer) supplyTracked(asset string) bool {
	if asset == parser.NativeAsset {
		return a.opType() == xdr.OperationTypeInvokeHostFunction
	}
	return parser.IsIssuedAsset(asset) || len(asset) == 56
}

// collapseSupply replaces several mint/burn effects of one asset with their
// net: a mint at the first removed position or a burn at the last one.
func collapseSupply(list *List) error {
	hasMint := list.FindIndex(func(e *Effect) bool { return e.Type == AssetMinted }) >= 0
	hasBurn := list.FindIndex(func(e *Effect) bool { return e.Type == AssetBurned }) >= 0
	if !hasMint || !hasBurn {
		return nil
	}

	var assets []string
	seen := make(map[string]struct{})
	for _, e := range list.Items() {
		if e.Type != AssetMinted && e.Type != AssetBurned {
			continue
		}
		if _, ok := seen[e.Asset]; !ok {
			seen[e.Asset] = struct{}{}
			assets = append(assets, e.Asset)
		}
	}

	for _, asset := range assets {
		var positions []int
		net := decimal.Zero
		for i, e := range list.Items() {
			if e.Asset != asset || (e.Type != AssetMinted && e.Type != AssetBurned) {
				continue
			}
			amount, err := decimal.NewFromString(e.Amount)
			if err != nil {
				return wrapOp(ErrInvalidAmount, "supply amount "+e.Amount)
			}
			if e.Type == AssetBurned {
				amount = amount.Neg()
			}
			net = net.Add(amount)
			positions = append(positions, i)
		}
		if len(positions) < 2 {
			continue
		}
		for i := len(positions) - 1; i >= 0; i-- {
			list.RemoveAt(positions[i])
		}

		switch net.Sign() {
		case 1:
			amount, err := formatAmount(net)
			if err != nil {
				return err
			}
			list.InsertAt(positions[0], &Effect{Type: AssetMinted, Asset: asset, Amount: amount})
		case -1:
			amount, err := formatAmount(net.Neg())
			if err != nil {
				return err
			}
			list.InsertAt(positions[len(positions)-1]-(len(positions)-1), &Effect{Type: AssetBurned, Asset: asset, Amount: amount})
		}
	}
	return nil
}
