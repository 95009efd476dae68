package entities

import "time"

// VoteRecord is the ledger entry keyed by (ProposalID, VoterID). Records are
// insert-only: there is no vote change and no retraction.
type VoteRecord struct {
	ProposalID uint64
	VoterID    string
	Support    bool
	CastAt     time.Time
}

func (v VoteRecord) Side() string {
	if v.Support {
		return "for"
	}
	return "against"
}
