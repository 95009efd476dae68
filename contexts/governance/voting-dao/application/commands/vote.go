package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "votingdao/contexts/governance/voting-dao/application"
	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	"votingdao/contexts/governance/voting-dao/ports"
)

// CastVoteCommand records one vote. VoterID must be the host-authenticated
// identity of the caller; Now may be left zero to use the clock.
type CastVoteCommand struct {
	ProposalID uint64
	VoterID    string
	Support    bool
	Now        time.Time
}

type CastVoteResult struct {
	Record entities.VoteRecord
	Tally  entities.Tally
}

// VoteUseCase owns the voter ledger gates. It is the only caller of
// ProposalRepository.IncrementVote.
type VoteUseCase struct {
	Tx     ports.Transactor
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// CastVote runs the existence, expiry and single-vote gates in that order and
// then writes the record, the counter increment and the vote.cast event in
// one unit of work. A failed gate leaves no trace.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	logger.Info("vote cast processing started",
		"event", "voting_vote_cast_started",
		"module", "governance/voting-dao",
		"layer", "application",
		"proposal_id", cmd.ProposalID,
		"voter_id", voterID,
	)
	if voterID == "" {
		logger.Warn("vote cast validation failed",
			"event", "voting_vote_cast_validation_failed",
			"module", "governance/voting-dao",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
		)
		return CastVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	now := application.ResolveNow(cmd.Now, uc.Clock)
	var result CastVoteResult
	err := uc.Tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		proposal, err := uow.Proposals.GetProposal(ctx, cmd.ProposalID)
		if err != nil {
			return err
		}
		active, err := uow.Proposals.IsActive(ctx, cmd.ProposalID, now)
		if err != nil {
			return err
		}
		if !active {
			return domainerrors.ErrProposalExpired
		}
		if _, found, err := uow.Votes.GetVoteRecord(ctx, cmd.ProposalID, voterID); err != nil {
			return err
		} else if found {
			return domainerrors.ErrAlreadyVoted
		}

		record := entities.VoteRecord{
			ProposalID: cmd.ProposalID,
			VoterID:    voterID,
			Support:    cmd.Support,
			CastAt:     now,
		}
		if err := uow.Votes.InsertVoteRecord(ctx, record); err != nil {
			return err
		}
		if err := uow.Proposals.IncrementVote(ctx, cmd.ProposalID, cmd.Support); err != nil {
			return err
		}
		result = CastVoteResult{
			Record: record,
			Tally:  proposal.Increment(cmd.Support).Tally(),
		}
		return appendOutboxEvent(ctx, uow.Outbox, uc.IDGen, EventTypeVoteCast, cmd.ProposalID, now, map[string]any{
			"proposal_id":   cmd.ProposalID,
			"voter_id":      voterID,
			"support":       cmd.Support,
			"for_votes":     result.Tally.ForVotes,
			"against_votes": result.Tally.AgainstVotes,
			"cast_at":       now.Format(time.RFC3339),
		})
	})
	if err != nil {
		logger.Warn("vote cast rejected",
			"event", "voting_vote_cast_rejected",
			"module", "governance/voting-dao",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"voter_id", voterID,
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "voting_vote_cast",
		"module", "governance/voting-dao",
		"layer", "application",
		"proposal_id", cmd.ProposalID,
		"voter_id", voterID,
		"side", result.Record.Side(),
		"for_votes", result.Tally.ForVotes,
		"against_votes", result.Tally.AgainstVotes,
	)
	return result, nil
}
