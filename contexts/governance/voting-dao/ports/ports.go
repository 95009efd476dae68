package ports

import (
	"context"
	"encoding/json"
	"time"

	"votingdao/contexts/governance/voting-dao/domain/entities"
)

// ProposalRepository owns proposals and is the only writer of their counters.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, draft entities.ProposalDraft) (entities.Proposal, error)
	GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error)
	IncrementVote(ctx context.Context, proposalID uint64, support bool) error
	IsActive(ctx context.Context, proposalID uint64, now time.Time) (bool, error)
	ListProposals(ctx context.Context, filter ProposalFilter) ([]entities.Proposal, error)
}

type ProposalFilter struct {
	Offset int
	Limit  int
}

// VoteLedger stores at most one record per (proposal, voter). InsertVoteRecord
// must fail with ErrAlreadyVoted when the pair already exists.
type VoteLedger interface {
	GetVoteRecord(ctx context.Context, proposalID uint64, voterID string) (entities.VoteRecord, bool, error)
	InsertVoteRecord(ctx context.Context, record entities.VoteRecord) error
	ListVoteRecords(ctx context.Context, proposalID uint64) ([]entities.VoteRecord, error)
}

// UnitOfWork exposes the stores bound to one transaction. Idempotency keys
// claimed through it commit or roll back with the proposal they name.
type UnitOfWork struct {
	Proposals   ProposalRepository
	Votes       VoteLedger
	Outbox      OutboxWriter
	Idempotency IdempotencyStore
}

// Transactor runs fn as one all-or-nothing unit. Any error returned by fn
// discards every write made through the UnitOfWork.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ProposalID  uint64
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
