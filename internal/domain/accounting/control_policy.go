package accounting

// ControlAccountPolicy maps each control account type to the automated sources allowed to
// post to it. Manual postings are gated by a caller permission instead.
type ControlAccountPolicy struct {
	allow map[ControlAccountType]map[SourceModule]struct{}
}

// DefaultControlAccountPolicy returns the standard allow-lists
func DefaultControlAccountPolicy() *ControlAccountPolicy {
	return NewControlAccountPolicy(map[ControlAccountType][]SourceModule{
		ControlAccountSalesTax: {
			SourcePOS, SourcePOSReturn, SourceFnB, SourceAR, SourcePMS, SourceACH, SourceManual, SourceMembership,
		},
		ControlAccountUndepositedFunds: {
			SourcePOS, SourcePOSReturn, SourceFnB, SourceMembership, SourcePMS, SourceACH, SourceAR, SourceManual,
		},
		ControlAccountAR:          {SourceAR, SourcePOS, SourceMembership, SourceACH, SourcePMS, SourceManual},
		ControlAccountAP:          {SourceAP, SourceManual},
		ControlAccountBank:        {SourceACH, SourceAR, SourceAP, SourceManual},
		ControlAccountGuestLedger: {SourcePMS, SourcePOS, SourceFnB, SourceManual},
	})
}

// NewControlAccountPolicy builds a policy from explicit allow-lists
func NewControlAccountPolicy(lists map[ControlAccountType][]SourceModule) *ControlAccountPolicy {
	p := &ControlAccountPolicy{allow: make(map[ControlAccountType]map[SourceModule]struct{}, len(lists))}
	for ct, sources := range lists {
		set := make(map[SourceModule]struct{}, len(sources))
		for _, s := range sources {
			set[s] = struct{}{}
		}
		p.allow[ct] = set
	}
	return p
}

// Check enforces the policy for one account. Reversals mirror an entry that already
// passed the policy, so they are always allowed.
func (p *ControlAccountPolicy) Check(account *Account, source SourceModule, hasControlPermission bool) error {
	if !account.IsControlAccount {
		return nil
	}
	switch source {
	case SourceReversal:
		return nil
	case SourceManual:
		if hasControlPermission {
			return nil
		}
		return NewControlAccountRestrictedError(account.AccountNumber, account.ControlAccountType, source)
	}
	if _, ok := p.allow[account.ControlAccountType][source]; ok {
		return nil
	}
	return NewControlAccountRestrictedError(account.AccountNumber, account.ControlAccountType, source)
}
