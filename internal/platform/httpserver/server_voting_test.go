package httpserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	votingdao "votingdao/contexts/governance/voting-dao"
	votinghttp "votingdao/contexts/governance/voting-dao/transport/http"
)

func newTestServer() *Server {
	return New(votingdao.NewInMemoryModule(slog.Default()), slog.Default(), ":0")
}

func doRequest(t *testing.T, server *Server, method string, path string, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) votinghttp.ErrorResponse {
	t.Helper()
	var resp votinghttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v body=%s", err, rr.Body.String())
	}
	return resp
}

func TestCreateProposalRequiresUser(t *testing.T) {
	server := newTestServer()
	rr := doRequest(t, server, http.MethodPost, "/v1/proposals", "", `{"description":"p","duration_seconds":60}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateProposalRejectsMissingDescription(t *testing.T) {
	server := newTestServer()
	rr := doRequest(t, server, http.MethodPost, "/v1/proposals", "owner", `{"duration_seconds":60}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeError(t, rr).Code; code != "invalid_proposal" {
		t.Fatalf("expected invalid_proposal, got %s", code)
	}
}

func TestCreateProposalRejectsNegativeDuration(t *testing.T) {
	server := newTestServer()
	rr := doRequest(t, server, http.MethodPost, "/v1/proposals", "owner", `{"description":"p","duration_seconds":-1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateProposalRejectsExpiryPastYear9999(t *testing.T) {
	server := newTestServer()
	rr := doRequest(t, server, http.MethodPost, "/v1/proposals", "owner", `{"description":"far","duration_seconds":400000000000}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeError(t, rr).Code; code != "invalid_proposal" {
		t.Fatalf("expected invalid_proposal, got %s", code)
	}

	list := doRequest(t, server, http.MethodGet, "/v1/proposals", "", "")
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	var resp votinghttp.ListProposalsResponse
	if err := json.Unmarshal(list.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v body=%q", err, list.Body.String())
	}
	if len(resp.Items) != 0 {
		t.Fatalf("expected no stored proposals, got %d", len(resp.Items))
	}
}

func TestWriteJSONReportsEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, votinghttp.ProposalResponse{
		ExpiresAt: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != "internal_error" {
		t.Fatalf("expected internal_error, got %s", code)
	}
}

func TestCreateProposalRejectsMalformedJSON(t *testing.T) {
	server := newTestServer()
	rr := doRequest(t, server, http.MethodPost, "/v1/proposals", "owner", `{`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestProposalLifecycleOverHTTP(t *testing.T) {
	server := newTestServer()

	rr := doRequest(t, server, http.MethodPost, "/v1/proposals", "owner", `{"description":"Proposal 1","duration_seconds":3600}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created votinghttp.ProposalResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode proposal: %v", err)
	}
	if created.ProposalID != 0 || created.CreatorID != "owner" || created.Status != "active" {
		t.Fatalf("unexpected created proposal: %+v", created)
	}

	rr = doRequest(t, server, http.MethodPost, "/v1/proposals/0/votes", "owner", `{"support":true}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var cast votinghttp.CastVoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &cast); err != nil {
		t.Fatalf("decode vote: %v", err)
	}
	if cast.Tally.ForVotes != 1 || cast.Tally.AgainstVotes != 0 || cast.Vote.Side != "for" {
		t.Fatalf("unexpected vote response: %+v", cast)
	}

	rr = doRequest(t, server, http.MethodPost, "/v1/proposals/0/votes", "owner", `{"support":false}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if errResp := decodeError(t, rr); errResp.Code != "already_voted" || errResp.Message != "You have already voted" {
		t.Fatalf("unexpected error response: %+v", errResp)
	}

	rr = doRequest(t, server, http.MethodPost, "/v1/proposals/0/votes", "addr1", `{"support":false}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodGet, "/v1/proposals/0/tally", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var tally votinghttp.TallyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &tally); err != nil {
		t.Fatalf("decode tally: %v", err)
	}
	if tally.ForVotes != 1 || tally.AgainstVotes != 1 || tally.Outcome != "tied" {
		t.Fatalf("unexpected tally: %+v", tally)
	}

	rr = doRequest(t, server, http.MethodGet, "/v1/proposals/0/votes/addr1", "", "")
	var hasVoted votinghttp.HasVotedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &hasVoted); err != nil {
		t.Fatalf("decode has voted: %v", err)
	}
	if !hasVoted.HasVoted || hasVoted.Vote == nil || hasVoted.Vote.Support {
		t.Fatalf("unexpected has voted response: %+v", hasVoted)
	}

	rr = doRequest(t, server, http.MethodGet, "/v1/proposals/0/votes/addr2", "", "")
	hasVoted = votinghttp.HasVotedResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), &hasVoted); err != nil {
		t.Fatalf("decode has voted: %v", err)
	}
	if hasVoted.HasVoted || hasVoted.Vote != nil {
		t.Fatalf("expected addr2 to have no vote: %+v", hasVoted)
	}

	rr = doRequest(t, server, http.MethodGet, "/v1/proposals/0/votes", "", "")
	var votes votinghttp.ListVotesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &votes); err != nil {
		t.Fatalf("decode votes: %v", err)
	}
	if len(votes.Items) != 2 {
		t.Fatalf("expected 2 votes, got %d", len(votes.Items))
	}

	rr = doRequest(t, server, http.MethodGet, "/v1/proposals/0/active", "", "")
	var active votinghttp.ActiveResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &active); err != nil {
		t.Fatalf("decode active: %v", err)
	}
	if !active.Active {
		t.Fatalf("expected proposal to be active")
	}

	rr = doRequest(t, server, http.MethodGet, "/v1/proposals?limit=10", "", "")
	var list votinghttp.ListProposalsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ForVotes != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestCastVoteOnExpiredProposalReturnsConflict(t *testing.T) {
	server := newTestServer()
	rr := doRequest(t, server, http.MethodPost, "/v1/proposals", "owner", `{"description":"","duration_seconds":0}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodPost, "/v1/proposals/0/votes", "addr1", `{"support":true}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if errResp := decodeError(t, rr); errResp.Code != "proposal_expired" || errResp.Message != "Proposal has expired" {
		t.Fatalf("unexpected error response: %+v", errResp)
	}
}

func TestUnknownProposalReturnsNotFound(t *testing.T) {
	server := newTestServer()
	for _, path := range []string{
		"/v1/proposals/7",
		"/v1/proposals/7/tally",
		"/v1/proposals/7/active",
		"/v1/proposals/7/votes",
		"/v1/proposals/7/votes/addr1",
	} {
		rr := doRequest(t, server, http.MethodGet, path, "", "")
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d body=%s", path, rr.Code, rr.Body.String())
		}
		if errResp := decodeError(t, rr); errResp.Message != "Proposal does not exist" {
			t.Fatalf("%s: unexpected message %q", path, errResp.Message)
		}
	}

	rr := doRequest(t, server, http.MethodPost, "/v1/proposals/7/votes", "addr1", `{"support":true}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCastVoteRejectsMissingSupport(t *testing.T) {
	server := newTestServer()
	doRequest(t, server, http.MethodPost, "/v1/proposals", "owner", `{"description":"p","duration_seconds":60}`)

	rr := doRequest(t, server, http.MethodPost, "/v1/proposals/0/votes", "addr1", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestInvalidProposalIDReturnsBadRequest(t *testing.T) {
	server := newTestServer()
	rr := doRequest(t, server, http.MethodGet, "/v1/proposals/-1", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateProposalIdempotencyReplay(t *testing.T) {
	server := newTestServer()
	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/proposals", bytes.NewReader([]byte(body)))
		req.Header.Set("X-User-Id", "owner")
		req.Header.Set("Idempotency-Key", "idem-1")
		rr := httptest.NewRecorder()
		server.mux.ServeHTTP(rr, req)
		return rr
	}

	first := send(`{"description":"p","duration_seconds":60}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", first.Code, first.Body.String())
	}
	second := send(`{"description":"p","duration_seconds":60}`)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 replay, got %d body=%s", second.Code, second.Body.String())
	}
	var replayed votinghttp.ProposalResponse
	if err := json.Unmarshal(second.Body.Bytes(), &replayed); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if !replayed.Replayed || replayed.ProposalID != 0 {
		t.Fatalf("unexpected replay response: %+v", replayed)
	}
	conflict := send(`{"description":"other","duration_seconds":60}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", conflict.Code, conflict.Body.String())
	}
}
