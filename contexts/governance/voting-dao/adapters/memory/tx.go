package memory

import (
	"context"
	"time"

	"votingdao/contexts/governance/voting-dao/domain/entities"
	"votingdao/contexts/governance/voting-dao/ports"
)

// txView is the UnitOfWork handed to WithinTransaction callbacks. The caller
// already holds store.mu, so its methods must not lock. Every write pushes an
// undo step that rollback replays in reverse order.
type txView struct {
	store *Store
	undo  []func()
}

func (t *txView) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txView) CreateProposal(_ context.Context, draft entities.ProposalDraft) (entities.Proposal, error) {
	proposal, previousNext := t.store.createProposalLocked(draft)
	t.undo = append(t.undo, func() {
		delete(t.store.proposals, proposal.ProposalID)
		t.store.nextProposalID = previousNext
	})
	return proposal, nil
}

func (t *txView) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	return t.store.getProposalLocked(proposalID)
}

func (t *txView) IncrementVote(_ context.Context, proposalID uint64, support bool) error {
	previous, err := t.store.incrementVoteLocked(proposalID, support)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, func() {
		t.store.proposals[proposalID] = previous
	})
	return nil
}

func (t *txView) IsActive(_ context.Context, proposalID uint64, now time.Time) (bool, error) {
	proposal, err := t.store.getProposalLocked(proposalID)
	if err != nil {
		return false, err
	}
	return proposal.ActiveAt(now), nil
}

func (t *txView) ListProposals(_ context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	items := make([]entities.Proposal, 0)
	for id := uint64(max(filter.Offset, 0)); id < t.store.nextProposalID; id++ {
		if filter.Limit > 0 && len(items) >= filter.Limit {
			break
		}
		if proposal, ok := t.store.proposals[id]; ok {
			items = append(items, proposal)
		}
	}
	return items, nil
}

func (t *txView) GetVoteRecord(_ context.Context, proposalID uint64, voterID string) (entities.VoteRecord, bool, error) {
	record, ok := t.store.votes[voteKey{proposalID: proposalID, voterID: voterID}]
	return record, ok, nil
}

func (t *txView) InsertVoteRecord(_ context.Context, record entities.VoteRecord) error {
	key, err := t.store.insertVoteLocked(record)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, func() {
		delete(t.store.votes, key)
	})
	return nil
}

func (t *txView) ListVoteRecords(_ context.Context, proposalID uint64) ([]entities.VoteRecord, error) {
	items := make([]entities.VoteRecord, 0)
	for key, record := range t.store.votes {
		if key.proposalID == proposalID {
			items = append(items, record)
		}
	}
	sortVoteRecords(items)
	return items, nil
}

func (t *txView) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	record, found, dropped := t.store.getIdempotencyLocked(key, now)
	if dropped != nil {
		restored := *dropped
		t.undo = append(t.undo, func() {
			t.store.idempotency[restored.Key] = restored
		})
	}
	return record, found, nil
}

func (t *txView) Put(_ context.Context, record ports.IdempotencyRecord) error {
	key, err := t.store.putIdempotencyLocked(record)
	if err != nil {
		return err
	}
	if key != "" {
		t.undo = append(t.undo, func() {
			delete(t.store.idempotency, key)
		})
	}
	return nil
}

func (t *txView) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	outboxID, err := t.store.appendOutboxLocked(envelope)
	if err != nil {
		return err
	}
	if outboxID == "" {
		return nil
	}
	t.undo = append(t.undo, func() {
		delete(t.store.outbox, outboxID)
	})
	return nil
}

var _ ports.IdempotencyStore = (*txView)(nil)
