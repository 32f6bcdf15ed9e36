package effects

import (
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// DiffSigners compares the signer configuration of two snapshots of the same
// account. The master key is treated as a signer whose implicit weight is 1;
// it appears in the reported signer list whenever its weight differs from
// that default, including an explicit 0. Every effect carries the full post-change signer list.
func DiffSigners(before, after *parser.AccountState) []*Effect {
	if before == nil || after == nil {
		return nil
	}
	address := after.Address
	signers := signerSnapshot(after)

	var res []*Effect
	emit := func(e *Effect) {
		e.Source = address
		e.Signers = signers
		res = append(res, e)
	}

	if before.MasterWeight != after.MasterWeight {
		typ := AccountSignerUpdated
		if after.MasterWeight == 0 {
			typ = AccountSignerRemoved
		}
		emit(&Effect{Type: typ, Signer: address, Weight: uint32Ptr(uint32(after.MasterWeight))})
	}

	afterByKey := make(map[string]parser.Signer, len(after.Signers))
	for _, s := range after.Signers {
		afterByKey[s.Key] = s
	}
	beforeKeys := make(map[string]struct{}, len(before.Signers))

	for _, prev := range before.Signers {
		beforeKeys[prev.Key] = struct{}{}
		cur, ok := afterByKey[prev.Key]
		if !ok {
			emit(&Effect{Type: AccountSignerRemoved, Signer: prev.Key, Weight: uint32Ptr(prev.Weight)})
			if prev.Sponsor != "" {
				emit(&Effect{Type: SignerSponsorshipRemoved, Signer: prev.Key, PrevSponsor: prev.Sponsor})
			}
			continue
		}
		if cur.Weight != prev.Weight {
			emit(&Effect{Type: AccountSignerUpdated, Signer: cur.Key, Weight: uint32Ptr(cur.Weight)})
		}
		switch {
		case prev.Sponsor == cur.Sponsor:
		case prev.Sponsor == "":
			emit(&Effect{Type: SignerSponsorshipCreated, Signer: cur.Key, Sponsor: cur.Sponsor})
		case cur.Sponsor == "":
			emit(&Effect{Type: SignerSponsorshipRemoved, Signer: cur.Key, PrevSponsor: prev.Sponsor})
		default:
			emit(&Effect{Type: SignerSponsorshipUpdated, Signer: cur.Key, Sponsor: cur.Sponsor, PrevSponsor: prev.Sponsor})
		}
	}

	for _, cur := range after.Signers {
		if _, ok := beforeKeys[cur.Key]; ok {
			continue
		}
		emit(&Effect{Type: AccountSignerCreated, Signer: cur.Key, Weight: uint32Ptr(cur.Weight)})
		if cur.Sponsor != "" {
			emit(&Effect{Type: SignerSponsorshipCreated, Signer: cur.Key, Sponsor: cur.Sponsor})
		}
	}
	return res
}

func signerSnapshot(account *parser.AccountState) []parser.Signer {
	res := make([]parser.Signer, 0, len(account.Signers)+1)
	if account.MasterWeight != 1 {
		res = append(res, parser.Signer{Key: account.Address, Weight: uint32(account.MasterWeight)})
	}
	return append(res, account.Signers...)
}
