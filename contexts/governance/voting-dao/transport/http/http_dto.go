package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateProposalRequest keeps Description as a pointer so an absent field can
// be told apart from an empty string.
type CreateProposalRequest struct {
	Description     *string `json:"description"`
	DurationSeconds int64   `json:"duration_seconds"`
}

type ProposalResponse struct {
	ProposalID   uint64    `json:"proposal_id"`
	Description  string    `json:"description"`
	CreatorID    string    `json:"creator_id"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	ForVotes     uint64    `json:"for_votes"`
	AgainstVotes uint64    `json:"against_votes"`
	Status       string    `json:"status"`
	Replayed     bool      `json:"replayed,omitempty"`
}

type ListProposalsResponse struct {
	Items []ProposalResponse `json:"items"`
}

type CastVoteRequest struct {
	Support *bool `json:"support"`
}

type VoteRecordResponse struct {
	ProposalID uint64    `json:"proposal_id"`
	VoterID    string    `json:"voter_id"`
	Support    bool      `json:"support"`
	Side       string    `json:"side"`
	CastAt     time.Time `json:"cast_at"`
}

type CastVoteResponse struct {
	Vote  VoteRecordResponse `json:"vote"`
	Tally TallyResponse      `json:"tally"`
}

type ListVotesResponse struct {
	ProposalID uint64               `json:"proposal_id"`
	Items      []VoteRecordResponse `json:"items"`
}

type HasVotedResponse struct {
	ProposalID uint64              `json:"proposal_id"`
	VoterID    string              `json:"voter_id"`
	HasVoted   bool                `json:"has_voted"`
	Vote       *VoteRecordResponse `json:"vote,omitempty"`
}

type TallyResponse struct {
	ProposalID   uint64 `json:"proposal_id"`
	ForVotes     uint64 `json:"for_votes"`
	AgainstVotes uint64 `json:"against_votes"`
	Outcome      string `json:"outcome"`
}

type ActiveResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Active     bool   `json:"active"`
}
