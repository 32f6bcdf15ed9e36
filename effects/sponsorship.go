package effects

import (
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

type sponsorshipTypes struct {
	created, updated, removed EffectType
}

var sponsorshipEffects = map[parser.EntryType]sponsorshipTypes{
	parser.EntryAccount:          {AccountSponsorshipCreated, AccountSponsorshipUpdated, AccountSponsorshipRemoved},
	parser.EntryTrustline:        {TrustlineSponsorshipCreated, TrustlineSponsorshipUpdated, TrustlineSponsorshipRemoved},
	parser.EntryOffer:            {OfferSponsorshipCreated, OfferSponsorshipUpdated, OfferSponsorshipRemoved},
	parser.EntryData:             {DataSponsorshipCreated, DataSponsorshipUpdated, DataSponsorshipRemoved},
	parser.EntryClaimableBalance: {ClaimableBalanceSponsorshipCreated, ClaimableBalanceSponsorshipUpdated, ClaimableBalanceSponsorshipRemoved},
}

// analyzeSponsorships compares entry sponsors before and after each change.
// Liquidity pools carry no sponsorship of their own.
func (a *analyzer) analyzeSponsorships() error {
	for _, change := range a.in.Changes {
		types, ok := sponsorshipEffects[change.Type]
		if !ok {
			continue
		}
		before, after := sponsorOf(change.Before), sponsorOf(change.After)
		if change.Action == parser.ActionRestored || before == after {
			continue
		}

		e := &Effect{}
		switch {
		case before == "":
			e.Type = types.created
			e.Sponsor = after
		case after == "":
			e.Type = types.removed
			e.PrevSponsor = before
		default:
			e.Type = types.updated
			e.Sponsor = after
			e.PrevSponsor = before
		}
		describeSponsored(e, change.Current())
		a.list.Append(e)
	}
	return nil
}

func sponsorOf(s parser.Snapshot) string {
	switch state := s.(type) {
	case *parser.AccountState:
		return state.Sponsor
	case *parser.TrustlineState:
		return state.Sponsor
	case *parser.OfferState:
		return state.Sponsor
	case *parser.DataState:
		return state.Sponsor
	case *parser.ClaimableBalanceState:
		return state.Sponsor
	default:
		return ""
	}
}

// describeSponsored identifies the sponsored entry on the effect.
func describeSponsored(e *Effect, s parser.Snapshot) {
	switch state := s.(type) {
	case *parser.AccountState:
		e.Account = state.Address
	case *parser.TrustlineState:
		e.Account = state.Account
		e.Asset = state.Asset
	case *parser.OfferState:
		e.Account = state.Account
		e.Offer = state.ID
	case *parser.DataState:
		e.Account = state.Account
		e.Name = state.Name
	case *parser.ClaimableBalanceState:
		e.BalanceID = state.BalanceID
	}
}
