package errors

import "errors"

// Messages of the first three errors are part of the caller-facing contract
// and are matched verbatim by existing clients.
var (
	ErrProposalNotFound     = errors.New("Proposal does not exist")
	ErrProposalExpired      = errors.New("Proposal has expired")
	ErrAlreadyVoted         = errors.New("You have already voted")
	ErrInvalidProposalInput = errors.New("invalid proposal input")
	ErrInvalidVoteInput     = errors.New("invalid vote input")
	ErrIdempotencyConflict  = errors.New("idempotency key conflict")
	ErrOutboxConflict       = errors.New("outbox record conflict")
)
