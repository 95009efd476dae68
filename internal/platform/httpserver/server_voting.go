package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	votingerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	votinghttp "votingdao/contexts/governance/voting-dao/transport/http"
)

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{Code: code, Message: message})
}

func (s *Server) writeVotingDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrProposalNotFound):
		writeVotingError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrProposalExpired):
		writeVotingError(w, http.StatusConflict, "proposal_expired", err.Error())
	case errors.Is(err, votingerrors.ErrAlreadyVoted):
		writeVotingError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, votingerrors.ErrIdempotencyConflict):
		writeVotingError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidProposalInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_proposal", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidVoteInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_vote", err.Error())
	default:
		s.logger.Error("voting request failed",
			"event", "http_voting_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireVotingUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeVotingError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func parseProposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	proposalID, err := strconv.ParseUint(strings.TrimSpace(r.PathValue("proposal_id")), 10, 64)
	if err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be a non-negative integer")
		return 0, false
	}
	return proposalID, true
}

func parseQueryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		writeVotingError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return value, true
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireVotingUser(w, r)
	if !ok {
		return
	}

	var req votinghttp.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.voting.Handler.CreateProposalHandler(
		r.Context(),
		userID,
		strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		req,
	)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	offset, ok := parseQueryInt(w, r, "offset")
	if !ok {
		return
	}
	limit, ok := parseQueryInt(w, r, "limit")
	if !ok {
		return
	}

	resp, err := s.voting.Handler.ListProposalsHandler(r.Context(), offset, limit)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.GetProposalHandler(r.Context(), proposalID)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireVotingUser(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}

	var req votinghttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.voting.Handler.CastVoteHandler(r.Context(), userID, proposalID, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.ListVotesHandler(r.Context(), proposalID)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.HasVotedHandler(r.Context(), proposalID, r.PathValue("voter_id"))
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.TallyHandler(r.Context(), proposalID)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.ActiveHandler(r.Context(), proposalID)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
