package entities

import "time"

// Proposal is a value snapshot of one stored proposal. It carries no
// references into store state, so callers cannot mutate counters through it.
type Proposal struct {
	ProposalID   uint64
	Description  string
	CreatorID    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ForVotes     uint64
	AgainstVotes uint64
}

// ProposalDraft is the store input for proposal creation.
type ProposalDraft struct {
	Description     string
	CreatorID       string
	DurationSeconds int64
	Now             time.Time
}

// MaxExpiresAt is the latest expiry that still encodes as an RFC 3339
// timestamp and as epoch milliseconds.
var MaxExpiresAt = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// ExpiresAt returns CreatedAt + DurationSeconds at second precision. Callers
// must check ExpiryInRange first.
func (d ProposalDraft) ExpiresAt() time.Time {
	return time.Unix(d.Now.Unix()+d.DurationSeconds, 0).UTC()
}

// ExpiryInRange reports whether the duration is non-negative and ends no
// later than MaxExpiresAt.
func (d ProposalDraft) ExpiryInRange() bool {
	if d.DurationSeconds < 0 {
		return false
	}
	return d.DurationSeconds <= MaxExpiresAt.Unix()-d.Now.Unix()
}

type ProposalStatus string

const (
	ProposalStatusActive  ProposalStatus = "active"
	ProposalStatusExpired ProposalStatus = "expired"
)

// ActiveAt reports whether votes are accepted at now. A proposal is expired
// once now >= ExpiresAt, so a zero-duration proposal is never active.
func (p Proposal) ActiveAt(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}

func (p Proposal) StatusAt(now time.Time) ProposalStatus {
	if p.ActiveAt(now) {
		return ProposalStatusActive
	}
	return ProposalStatusExpired
}

func (p Proposal) Tally() Tally {
	return Tally{
		ProposalID:   p.ProposalID,
		ForVotes:     p.ForVotes,
		AgainstVotes: p.AgainstVotes,
	}
}

// Increment returns a copy of p with one more vote on the chosen side.
func (p Proposal) Increment(support bool) Proposal {
	if support {
		p.ForVotes++
	} else {
		p.AgainstVotes++
	}
	return p
}

type TallyOutcome string

const (
	TallyOutcomeFor     TallyOutcome = "for"
	TallyOutcomeAgainst TallyOutcome = "against"
	TallyOutcomeTied    TallyOutcome = "tied"
)

type Tally struct {
	ProposalID   uint64
	ForVotes     uint64
	AgainstVotes uint64
}

func (t Tally) Total() uint64 {
	return t.ForVotes + t.AgainstVotes
}

// Outcome summarizes which side currently leads. It is informational only;
// tallies stay open to reads after expiry and nothing is finalized.
func (t Tally) Outcome() TallyOutcome {
	switch {
	case t.ForVotes > t.AgainstVotes:
		return TallyOutcomeFor
	case t.AgainstVotes > t.ForVotes:
		return TallyOutcomeAgainst
	default:
		return TallyOutcomeTied
	}
}

// ProposalCreated is the (id, creator) pair a host emits after creation.
type ProposalCreated struct {
	ProposalID uint64
	CreatorID  string
	CreatedAt  time.Time
}
