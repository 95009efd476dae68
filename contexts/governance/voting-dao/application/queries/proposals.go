package queries

import (
	"context"
	"strings"
	"time"

	application "votingdao/contexts/governance/voting-dao/application"
	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	"votingdao/contexts/governance/voting-dao/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ProposalQueries are pure reads; none of them mutate store or ledger state.
type ProposalQueries struct {
	Proposals ports.ProposalRepository
	Votes     ports.VoteLedger
	Clock     ports.Clock
}

func (q ProposalQueries) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	return q.Proposals.GetProposal(ctx, proposalID)
}

func (q ProposalQueries) GetVoteCounts(ctx context.Context, proposalID uint64) (entities.Tally, error) {
	proposal, err := q.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return entities.Tally{}, err
	}
	return proposal.Tally(), nil
}

// IsProposalActive evaluates expiry at now (zero means the query clock).
func (q ProposalQueries) IsProposalActive(ctx context.Context, proposalID uint64, now time.Time) (bool, error) {
	return q.Proposals.IsActive(ctx, proposalID, application.ResolveNow(now, q.Clock))
}

func (q ProposalQueries) ListProposals(ctx context.Context, offset int, limit int) ([]entities.Proposal, error) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return q.Proposals.ListProposals(ctx, ports.ProposalFilter{
		Offset: offset,
		Limit:  limit,
	})
}

// GetVoteRecord reports whether voterID has voted on the proposal.
func (q ProposalQueries) GetVoteRecord(ctx context.Context, proposalID uint64, voterID string) (entities.VoteRecord, bool, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return entities.VoteRecord{}, false, domainerrors.ErrInvalidVoteInput
	}
	if _, err := q.Proposals.GetProposal(ctx, proposalID); err != nil {
		return entities.VoteRecord{}, false, err
	}
	return q.Votes.GetVoteRecord(ctx, proposalID, voterID)
}

func (q ProposalQueries) ListVoteRecords(ctx context.Context, proposalID uint64) ([]entities.VoteRecord, error) {
	if _, err := q.Proposals.GetProposal(ctx, proposalID); err != nil {
		return nil, err
	}
	return q.Votes.ListVoteRecords(ctx, proposalID)
}
