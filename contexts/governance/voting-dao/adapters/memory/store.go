package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	"votingdao/contexts/governance/voting-dao/ports"

	"github.com/google/uuid"
)

type voteKey struct {
	proposalID uint64
	voterID    string
}

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  uint64
	published bool
}

// Store keeps proposals, the voter ledger, idempotency keys and the outbox
// behind one lock. Transactions hold the write lock for their whole body.
type Store struct {
	mu sync.RWMutex

	nextProposalID uint64
	proposals      map[uint64]entities.Proposal
	votes          map[voteKey]entities.VoteRecord
	idempotency    map[string]ports.IdempotencyRecord
	outbox         map[string]outboxRecord
	outboxSequence uint64
}

func NewStore() *Store {
	return &Store{
		proposals:   make(map[uint64]entities.Proposal),
		votes:       make(map[voteKey]entities.VoteRecord),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
	}
}

func (s *Store) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, uow ports.UnitOfWork) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txView{store: s}
	if err := fn(ctx, ports.UnitOfWork{
		Proposals:   tx,
		Votes:       tx,
		Outbox:      tx,
		Idempotency: tx,
	}); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) CreateProposal(_ context.Context, draft entities.ProposalDraft) (entities.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, _ := s.createProposalLocked(draft)
	return proposal, nil
}

func (s *Store) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProposalLocked(proposalID)
}

func (s *Store) IncrementVote(_ context.Context, proposalID uint64, support bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.incrementVoteLocked(proposalID, support)
	return err
}

func (s *Store) IsActive(_ context.Context, proposalID uint64, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, err := s.getProposalLocked(proposalID)
	if err != nil {
		return false, err
	}
	return proposal.ActiveAt(now), nil
}

func (s *Store) ListProposals(_ context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Proposal, 0)
	if filter.Offset < 0 || uint64(filter.Offset) >= s.nextProposalID {
		return items, nil
	}
	end := s.nextProposalID
	if filter.Limit > 0 && uint64(filter.Offset+filter.Limit) < end {
		end = uint64(filter.Offset + filter.Limit)
	}
	for id := uint64(filter.Offset); id < end; id++ {
		if proposal, ok := s.proposals[id]; ok {
			items = append(items, proposal)
		}
	}
	return items, nil
}

func (s *Store) GetVoteRecord(_ context.Context, proposalID uint64, voterID string) (entities.VoteRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.votes[voteKey{proposalID: proposalID, voterID: strings.TrimSpace(voterID)}]
	return record, ok, nil
}

func (s *Store) InsertVoteRecord(_ context.Context, record entities.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.insertVoteLocked(record)
	return err
}

func (s *Store) ListVoteRecords(_ context.Context, proposalID uint64) ([]entities.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VoteRecord, 0)
	for key, record := range s.votes {
		if key.proposalID == proposalID {
			items = append(items, record)
		}
	}
	sortVoteRecords(items)
	return items, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, found, _ := s.getIdempotencyLocked(key, now)
	return record, found, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.putIdempotencyLocked(record)
	return err
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.appendOutboxLocked(envelope)
	return err
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].sequence < rows[j].sequence
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrOutboxConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// The *Locked helpers require s.mu to be held for writing (or reading for
// getProposalLocked).

func (s *Store) createProposalLocked(draft entities.ProposalDraft) (entities.Proposal, uint64) {
	previousNext := s.nextProposalID
	createdAt := draft.Now.UTC()
	proposal := entities.Proposal{
		ProposalID:  s.nextProposalID,
		Description: draft.Description,
		CreatorID:   strings.TrimSpace(draft.CreatorID),
		CreatedAt:   createdAt,
		ExpiresAt:   draft.ExpiresAt(),
	}
	s.proposals[proposal.ProposalID] = proposal
	s.nextProposalID++
	return proposal, previousNext
}

func (s *Store) getProposalLocked(proposalID uint64) (entities.Proposal, error) {
	proposal, ok := s.proposals[proposalID]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) incrementVoteLocked(proposalID uint64, support bool) (entities.Proposal, error) {
	previous, ok := s.proposals[proposalID]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	s.proposals[proposalID] = previous.Increment(support)
	return previous, nil
}

func (s *Store) insertVoteLocked(record entities.VoteRecord) (voteKey, error) {
	key := voteKey{proposalID: record.ProposalID, voterID: strings.TrimSpace(record.VoterID)}
	if _, exists := s.votes[key]; exists {
		return key, domainerrors.ErrAlreadyVoted
	}
	record.VoterID = key.voterID
	record.CastAt = record.CastAt.UTC()
	s.votes[key] = record
	return key, nil
}

// getIdempotencyLocked drops an expired key and reports the dropped record
// so a transaction can restore it.
func (s *Store) getIdempotencyLocked(key string, now time.Time) (ports.IdempotencyRecord, bool, *ports.IdempotencyRecord) {
	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, &record
	}
	return record, true, nil
}

// putIdempotencyLocked returns the stored key when it inserted a new record
// and "" when an identical record already existed.
func (s *Store) putIdempotencyLocked(record ports.IdempotencyRecord) (string, error) {
	key := strings.TrimSpace(record.Key)
	existing, exists := s.idempotency[key]
	if exists {
		if existing.RequestHash != record.RequestHash || existing.ProposalID != record.ProposalID {
			return "", domainerrors.ErrIdempotencyConflict
		}
		return "", nil
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(record.RequestHash),
		ProposalID:  record.ProposalID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	return key, nil
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) (string, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return "", domainerrors.ErrOutboxConflict
		}
		return "", nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSequence++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
		sequence: s.outboxSequence,
	}
	return outboxID, nil
}

func sortVoteRecords(items []entities.VoteRecord) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].VoterID < items[j].VoterID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
}

var _ ports.ProposalRepository = (*Store)(nil)
var _ ports.VoteLedger = (*Store)(nil)
var _ ports.Transactor = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
