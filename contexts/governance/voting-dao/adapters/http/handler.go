package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "votingdao/contexts/governance/voting-dao/application"
	"votingdao/contexts/governance/voting-dao/application/commands"
	"votingdao/contexts/governance/voting-dao/application/queries"
	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	"votingdao/contexts/governance/voting-dao/ports"
	httptransport "votingdao/contexts/governance/voting-dao/transport/http"
)

type Handler struct {
	Proposals commands.ProposalUseCase
	Votes     commands.VoteUseCase
	Queries   queries.ProposalQueries
	Clock     ports.Clock
	Logger    *slog.Logger
}

// CreateProposalHandler godoc
// @Summary Create proposal
// @Description Opens a proposal for voting for duration_seconds from now.
// @Tags voting-dao
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Creator identity"
// @Param Idempotency-Key header string false "Replay-safe creation key"
// @Param request body httptransport.CreateProposalRequest true "Proposal payload"
// @Success 201 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals [post]
func (h Handler) CreateProposalHandler(
	ctx context.Context,
	creatorID string,
	idempotencyKey string,
	req httptransport.CreateProposalRequest,
) (httptransport.ProposalResponse, error) {
	if req.Description == nil {
		return httptransport.ProposalResponse{}, domainerrors.ErrInvalidProposalInput
	}
	result, err := h.Proposals.CreateProposal(ctx, commands.CreateProposalCommand{
		CreatorID:       creatorID,
		Description:     *req.Description,
		DurationSeconds: req.DurationSeconds,
		IdempotencyKey:  idempotencyKey,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}

	application.ResolveLogger(h.Logger).Info("proposal created",
		"event", "proposal_created",
		"module", "governance/voting-dao",
		"layer", "transport",
		"proposal_id", result.Created.ProposalID,
		"creator_id", result.Created.CreatorID,
		"replayed", result.Replayed,
	)

	resp := mapProposal(result.Proposal, h.now())
	resp.Replayed = result.Replayed
	return resp, nil
}

// ListProposalsHandler godoc
// @Summary List proposals
// @Tags voting-dao
// @Produce json
// @Param offset query int false "Number of proposals to skip"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} httptransport.ListProposalsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/proposals [get]
func (h Handler) ListProposalsHandler(ctx context.Context, offset int, limit int) (httptransport.ListProposalsResponse, error) {
	items, err := h.Queries.ListProposals(ctx, offset, limit)
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	now := h.now()
	resp := httptransport.ListProposalsResponse{
		Items: make([]httptransport.ProposalResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapProposal(item, now))
	}
	return resp, nil
}

// GetProposalHandler godoc
// @Summary Get proposal
// @Tags voting-dao
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id} [get]
func (h Handler) GetProposalHandler(ctx context.Context, proposalID uint64) (httptransport.ProposalResponse, error) {
	proposal, err := h.Queries.GetProposal(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal, h.now()), nil
}

// CastVoteHandler godoc
// @Summary Cast vote
// @Description Records one for/against vote per voter while the proposal is active.
// @Tags voting-dao
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Voter identity"
// @Param proposal_id path int true "Proposal id"
// @Param request body httptransport.CastVoteRequest true "Vote payload"
// @Success 201 {object} httptransport.CastVoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes [post]
func (h Handler) CastVoteHandler(
	ctx context.Context,
	voterID string,
	proposalID uint64,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	if req.Support == nil {
		return httptransport.CastVoteResponse{}, domainerrors.ErrInvalidVoteInput
	}
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		ProposalID: proposalID,
		VoterID:    voterID,
		Support:    *req.Support,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		Vote:  mapVoteRecord(result.Record),
		Tally: mapTally(result.Tally),
	}, nil
}

// ListVotesHandler godoc
// @Summary List votes of a proposal
// @Tags voting-dao
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Success 200 {object} httptransport.ListVotesResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes [get]
func (h Handler) ListVotesHandler(ctx context.Context, proposalID uint64) (httptransport.ListVotesResponse, error) {
	records, err := h.Queries.ListVoteRecords(ctx, proposalID)
	if err != nil {
		return httptransport.ListVotesResponse{}, err
	}
	resp := httptransport.ListVotesResponse{
		ProposalID: proposalID,
		Items:      make([]httptransport.VoteRecordResponse, 0, len(records)),
	}
	for _, record := range records {
		resp.Items = append(resp.Items, mapVoteRecord(record))
	}
	return resp, nil
}

// HasVotedHandler godoc
// @Summary Has the voter voted
// @Tags voting-dao
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Param voter_id path string true "Voter identity"
// @Success 200 {object} httptransport.HasVotedResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes/{voter_id} [get]
func (h Handler) HasVotedHandler(ctx context.Context, proposalID uint64, voterID string) (httptransport.HasVotedResponse, error) {
	record, found, err := h.Queries.GetVoteRecord(ctx, proposalID, voterID)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	resp := httptransport.HasVotedResponse{
		ProposalID: proposalID,
		VoterID:    voterID,
		HasVoted:   found,
	}
	if found {
		vote := mapVoteRecord(record)
		resp.VoterID = record.VoterID
		resp.Vote = &vote
	}
	return resp, nil
}

// TallyHandler godoc
// @Summary Get vote counts
// @Tags voting-dao
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Success 200 {object} httptransport.TallyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/tally [get]
func (h Handler) TallyHandler(ctx context.Context, proposalID uint64) (httptransport.TallyResponse, error) {
	tally, err := h.Queries.GetVoteCounts(ctx, proposalID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return mapTally(tally), nil
}

// ActiveHandler godoc
// @Summary Is proposal active
// @Tags voting-dao
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Success 200 {object} httptransport.ActiveResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/active [get]
func (h Handler) ActiveHandler(ctx context.Context, proposalID uint64) (httptransport.ActiveResponse, error) {
	active, err := h.Queries.IsProposalActive(ctx, proposalID, h.now())
	if err != nil {
		return httptransport.ActiveResponse{}, err
	}
	return httptransport.ActiveResponse{
		ProposalID: proposalID,
		Active:     active,
	}, nil
}

func (h Handler) now() time.Time {
	return application.ResolveNow(time.Time{}, h.Clock)
}

func mapProposal(proposal entities.Proposal, now time.Time) httptransport.ProposalResponse {
	return httptransport.ProposalResponse{
		ProposalID:   proposal.ProposalID,
		Description:  proposal.Description,
		CreatorID:    proposal.CreatorID,
		CreatedAt:    proposal.CreatedAt,
		ExpiresAt:    proposal.ExpiresAt,
		ForVotes:     proposal.ForVotes,
		AgainstVotes: proposal.AgainstVotes,
		Status:       string(proposal.StatusAt(now)),
	}
}

func mapVoteRecord(record entities.VoteRecord) httptransport.VoteRecordResponse {
	return httptransport.VoteRecordResponse{
		ProposalID: record.ProposalID,
		VoterID:    record.VoterID,
		Support:    record.Support,
		Side:       record.Side(),
		CastAt:     record.CastAt,
	}
}

func mapTally(tally entities.Tally) httptransport.TallyResponse {
	return httptransport.TallyResponse{
		ProposalID:   tally.ProposalID,
		ForVotes:     tally.ForVotes,
		AgainstVotes: tally.AgainstVotes,
		Outcome:      string(tally.Outcome()),
	}
}
