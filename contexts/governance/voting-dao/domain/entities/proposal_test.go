package entities

import (
	"testing"
	"time"
)

func TestProposalDraftExpiresAt(t *testing.T) {
	draft := ProposalDraft{DurationSeconds: 60, Now: time.Unix(1000, 0)}
	if got := draft.ExpiresAt(); !got.Equal(time.Unix(1060, 0)) {
		t.Fatalf("expected expiry 1060, got %d", got.Unix())
	}
	if got := draft.ExpiresAt().Location(); got != time.UTC {
		t.Fatalf("expected UTC expiry, got %s", got)
	}
}

func TestProposalActiveBoundary(t *testing.T) {
	proposal := Proposal{CreatedAt: time.Unix(1000, 0), ExpiresAt: time.Unix(1060, 0)}
	cases := []struct {
		now    int64
		active bool
	}{
		{now: 1000, active: true},
		{now: 1059, active: true},
		{now: 1060, active: false},
		{now: 1061, active: false},
	}
	for _, tc := range cases {
		if got := proposal.ActiveAt(time.Unix(tc.now, 0)); got != tc.active {
			t.Fatalf("ActiveAt(%d) = %v, want %v", tc.now, got, tc.active)
		}
	}
	if status := proposal.StatusAt(time.Unix(1060, 0)); status != ProposalStatusExpired {
		t.Fatalf("expected expired status at boundary, got %s", status)
	}
}

func TestZeroDurationProposalIsNeverActive(t *testing.T) {
	draft := ProposalDraft{DurationSeconds: 0, Now: time.Unix(1000, 0)}
	proposal := Proposal{CreatedAt: draft.Now, ExpiresAt: draft.ExpiresAt()}
	if proposal.ActiveAt(time.Unix(1000, 0)) {
		t.Fatalf("expected zero-duration proposal to be expired at creation")
	}
}

func TestIncrementReturnsCopy(t *testing.T) {
	original := Proposal{ProposalID: 3}
	updated := original.Increment(true).Increment(false).Increment(false)
	if original.ForVotes != 0 || original.AgainstVotes != 0 {
		t.Fatalf("expected original untouched, got %+v", original)
	}
	tally := updated.Tally()
	if tally.ProposalID != 3 || tally.ForVotes != 1 || tally.AgainstVotes != 2 || tally.Total() != 3 {
		t.Fatalf("unexpected tally %+v", tally)
	}
}

func TestTallyOutcome(t *testing.T) {
	cases := []struct {
		tally Tally
		want  TallyOutcome
	}{
		{tally: Tally{}, want: TallyOutcomeTied},
		{tally: Tally{ForVotes: 2, AgainstVotes: 1}, want: TallyOutcomeFor},
		{tally: Tally{ForVotes: 1, AgainstVotes: 4}, want: TallyOutcomeAgainst},
		{tally: Tally{ForVotes: 5, AgainstVotes: 5}, want: TallyOutcomeTied},
	}
	for _, tc := range cases {
		if got := tc.tally.Outcome(); got != tc.want {
			t.Fatalf("Outcome(%+v) = %s, want %s", tc.tally, got, tc.want)
		}
	}
}

func TestVoteRecordSide(t *testing.T) {
	if side := (VoteRecord{Support: true}).Side(); side != "for" {
		t.Fatalf("expected for, got %s", side)
	}
	if side := (VoteRecord{Support: false}).Side(); side != "against" {
		t.Fatalf("expected against, got %s", side)
	}
}

func TestProposalDraftExpiryInRange(t *testing.T) {
	now := time.Unix(1000, 0)
	limit := MaxExpiresAt.Unix() - now.Unix()
	cases := map[int64]bool{
		-1:        false,
		0:         true,
		limit:     true,
		limit + 1: false,
	}
	for duration, want := range cases {
		draft := ProposalDraft{DurationSeconds: duration, Now: now}
		if got := draft.ExpiryInRange(); got != want {
			t.Fatalf("ExpiryInRange(%d) = %v, want %v", duration, got, want)
		}
	}
	edge := ProposalDraft{DurationSeconds: limit, Now: now}
	if !edge.ExpiresAt().Equal(MaxExpiresAt) {
		t.Fatalf("expected boundary expiry %s, got %s", MaxExpiresAt, edge.ExpiresAt())
	}
}
