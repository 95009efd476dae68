// Package sqliteadapter provides the embedded SQLite-backed proposal store
// and voter ledger.
package sqliteadapter

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"votingdao/contexts/governance/voting-dao/adapters/sqlite/migrations"
	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	"votingdao/contexts/governance/voting-dao/ports"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	proposalSequenceName  = "proposals"
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists proposals, votes, idempotency keys and outbox rows in
// SQLite. Times are stored as unix milliseconds.
type Store struct {
	sqlDB  *sql.DB
	q      queryer
	inTx   bool
	logger *slog.Logger
}

func NewStore(sqlDB *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sqlDB:  sqlDB,
		q:      sqlDB,
		logger: logger,
	}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := applyMigrations(ctx, s.sqlDB, migrations.FS); err != nil {
		return s.logError("voting_sqlite_migrate_failed", err)
	}
	return nil
}

func (s *Store) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, uow ports.UnitOfWork) error,
) error {
	if s.inTx {
		return fn(ctx, ports.UnitOfWork{Proposals: s, Votes: s, Outbox: s, Idempotency: s})
	}
	return s.transact(ctx, func(bound *Store) error {
		return fn(ctx, ports.UnitOfWork{
			Proposals:   bound,
			Votes:       bound,
			Outbox:      bound,
			Idempotency: bound,
		})
	})
}

func (s *Store) CreateProposal(ctx context.Context, draft entities.ProposalDraft) (entities.Proposal, error) {
	var created entities.Proposal
	err := s.transact(ctx, func(bound *Store) error {
		// Bumping the sequence first makes the transaction a writer before
		// any read, so SQLite never has to upgrade a shared lock.
		if _, err := bound.q.ExecContext(ctx,
			`INSERT INTO proposal_sequences (name, next_id) VALUES (?, 0)
			 ON CONFLICT (name) DO NOTHING`,
			proposalSequenceName,
		); err != nil {
			return err
		}
		if _, err := bound.q.ExecContext(ctx,
			`UPDATE proposal_sequences SET next_id = next_id + 1 WHERE name = ?`,
			proposalSequenceName,
		); err != nil {
			return err
		}
		var nextID int64
		if err := bound.q.QueryRowContext(ctx,
			`SELECT next_id FROM proposal_sequences WHERE name = ?`,
			proposalSequenceName,
		).Scan(&nextID); err != nil {
			return err
		}

		created = entities.Proposal{
			ProposalID:  uint64(nextID - 1),
			Description: draft.Description,
			CreatorID:   strings.TrimSpace(draft.CreatorID),
			CreatedAt:   draft.Now.UTC(),
			ExpiresAt:   draft.ExpiresAt(),
		}
		_, err := bound.q.ExecContext(ctx,
			`INSERT INTO proposals (id, description, creator_id, created_at, expires_at, for_votes, against_votes)
			 VALUES (?, ?, ?, ?, ?, 0, 0)`,
			int64(created.ProposalID),
			created.Description,
			created.CreatorID,
			toMillis(created.CreatedAt),
			toMillis(created.ExpiresAt),
		)
		return err
	})
	if err != nil {
		return entities.Proposal{}, s.logError("voting_sqlite_create_proposal_failed", err,
			"creator_id", strings.TrimSpace(draft.CreatorID),
		)
	}
	return created, nil
}

func (s *Store) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	if proposalID > math.MaxInt64 {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT id, description, creator_id, created_at, expires_at, for_votes, against_votes
		 FROM proposals WHERE id = ?`,
		int64(proposalID),
	)
	proposal, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, s.logError("voting_sqlite_get_proposal_failed", err, "proposal_id", proposalID)
	}
	return proposal, nil
}

func (s *Store) IncrementVote(ctx context.Context, proposalID uint64, support bool) error {
	if proposalID > math.MaxInt64 {
		return domainerrors.ErrProposalNotFound
	}
	query := `UPDATE proposals SET against_votes = against_votes + 1 WHERE id = ?`
	if support {
		query = `UPDATE proposals SET for_votes = for_votes + 1 WHERE id = ?`
	}
	result, err := s.q.ExecContext(ctx, query, int64(proposalID))
	if err != nil {
		return s.logError("voting_sqlite_increment_vote_failed", err, "proposal_id", proposalID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return s.logError("voting_sqlite_increment_vote_failed", err, "proposal_id", proposalID)
	}
	if affected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	return nil
}

func (s *Store) IsActive(ctx context.Context, proposalID uint64, now time.Time) (bool, error) {
	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return false, err
	}
	return proposal.ActiveAt(now), nil
}

func (s *Store) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	limit := int64(-1)
	if filter.Limit > 0 {
		limit = int64(filter.Limit)
	}
	offset := int64(0)
	if filter.Offset > 0 {
		offset = int64(filter.Offset)
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, description, creator_id, created_at, expires_at, for_votes, against_votes
		 FROM proposals ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, s.logError("voting_sqlite_list_proposals_failed", err)
	}
	defer rows.Close()

	items := make([]entities.Proposal, 0)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, s.logError("voting_sqlite_list_proposals_scan_failed", err)
		}
		items = append(items, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, s.logError("voting_sqlite_list_proposals_failed", err)
	}
	return items, nil
}

func (s *Store) GetVoteRecord(ctx context.Context, proposalID uint64, voterID string) (entities.VoteRecord, bool, error) {
	if proposalID > math.MaxInt64 {
		return entities.VoteRecord{}, false, nil
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT proposal_id, voter_id, support, cast_at FROM vote_records WHERE proposal_id = ? AND voter_id = ?`,
		int64(proposalID),
		strings.TrimSpace(voterID),
	)
	record, err := scanVoteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.VoteRecord{}, false, nil
		}
		return entities.VoteRecord{}, false, s.logError("voting_sqlite_get_vote_record_failed", err,
			"proposal_id", proposalID,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return record, true, nil
}

func (s *Store) InsertVoteRecord(ctx context.Context, record entities.VoteRecord) error {
	voterID := strings.TrimSpace(record.VoterID)
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO vote_records (proposal_id, voter_id, support, cast_at) VALUES (?, ?, ?, ?)`,
		int64(record.ProposalID),
		voterID,
		record.Support,
		toMillis(record.CastAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return s.logError("voting_sqlite_insert_vote_record_failed", err,
			"proposal_id", record.ProposalID,
			"voter_id", voterID,
		)
	}
	return nil
}

func (s *Store) ListVoteRecords(ctx context.Context, proposalID uint64) ([]entities.VoteRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT proposal_id, voter_id, support, cast_at FROM vote_records
		 WHERE proposal_id = ? ORDER BY cast_at ASC, voter_id ASC`,
		int64(proposalID),
	)
	if err != nil {
		return nil, s.logError("voting_sqlite_list_vote_records_failed", err, "proposal_id", proposalID)
	}
	defer rows.Close()

	items := make([]entities.VoteRecord, 0)
	for rows.Next() {
		record, err := scanVoteRecord(rows)
		if err != nil {
			return nil, s.logError("voting_sqlite_list_vote_records_scan_failed", err, "proposal_id", proposalID)
		}
		items = append(items, record)
	}
	if err := rows.Err(); err != nil {
		return nil, s.logError("voting_sqlite_list_vote_records_failed", err, "proposal_id", proposalID)
	}
	return items, nil
}

func (s *Store) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	key = strings.TrimSpace(key)
	var (
		record     ports.IdempotencyRecord
		proposalID int64
		expiresAt  int64
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT key, request_hash, proposal_id, expires_at FROM voting_dao_idempotency WHERE key = ?`,
		key,
	).Scan(&record.Key, &record.RequestHash, &proposalID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, s.logError("voting_sqlite_idempotency_get_failed", err,
			"idempotency_key", key,
		)
	}
	record.ProposalID = uint64(proposalID)
	record.ExpiresAt = fromMillis(expiresAt)
	if !record.ExpiresAt.After(now.UTC()) {
		if _, err := s.q.ExecContext(ctx, `DELETE FROM voting_dao_idempotency WHERE key = ?`, key); err != nil {
			return ports.IdempotencyRecord{}, false, s.logError("voting_sqlite_idempotency_expire_delete_failed", err,
				"idempotency_key", key,
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	key := strings.TrimSpace(record.Key)
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO voting_dao_idempotency (key, request_hash, proposal_id, expires_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT (key) DO NOTHING`,
		key,
		strings.TrimSpace(record.RequestHash),
		int64(record.ProposalID),
		toMillis(record.ExpiresAt),
	)
	if err != nil {
		return s.logError("voting_sqlite_idempotency_put_failed", err, "idempotency_key", key)
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	var (
		existingHash       string
		existingProposalID int64
	)
	if err := s.q.QueryRowContext(ctx,
		`SELECT request_hash, proposal_id FROM voting_dao_idempotency WHERE key = ?`,
		key,
	).Scan(&existingHash, &existingProposalID); err != nil {
		return s.logError("voting_sqlite_idempotency_load_existing_failed", err, "idempotency_key", key)
	}
	if existingHash != strings.TrimSpace(record.RequestHash) || uint64(existingProposalID) != record.ProposalID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (s *Store) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return s.logError("voting_sqlite_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO voting_dao_outbox (outbox_id, event_type, partition_key, payload, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (outbox_id) DO NOTHING`,
		outboxID,
		strings.TrimSpace(envelope.EventType),
		strings.TrimSpace(envelope.PartitionKey),
		payload,
		outboxStatusPending,
		toMillis(createdAt),
	)
	if err != nil {
		return s.logError("voting_sqlite_append_outbox_insert_failed", err, "outbox_id", outboxID)
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	var existing []byte
	if err := s.q.QueryRowContext(ctx,
		`SELECT payload FROM voting_dao_outbox WHERE outbox_id = ?`,
		outboxID,
	).Scan(&existing); err != nil {
		return s.logError("voting_sqlite_append_outbox_load_existing_failed", err, "outbox_id", outboxID)
	}
	if !bytes.Equal(existing, payload) {
		return domainerrors.ErrOutboxConflict
	}
	return nil
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT outbox_id, event_type, partition_key, payload, created_at FROM voting_dao_outbox
		 WHERE status = ? ORDER BY sequence ASC LIMIT ?`,
		outboxStatusPending,
		limit,
	)
	if err != nil {
		return nil, s.logError("voting_sqlite_list_pending_outbox_failed", err, "limit", limit)
	}
	defer rows.Close()

	items := make([]ports.OutboxMessage, 0)
	for rows.Next() {
		var (
			message   ports.OutboxMessage
			createdAt int64
		)
		if err := rows.Scan(&message.OutboxID, &message.EventType, &message.PartitionKey, &message.Payload, &createdAt); err != nil {
			return nil, s.logError("voting_sqlite_list_pending_outbox_scan_failed", err)
		}
		message.CreatedAt = fromMillis(createdAt)
		items = append(items, message)
	}
	if err := rows.Err(); err != nil {
		return nil, s.logError("voting_sqlite_list_pending_outbox_failed", err, "limit", limit)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE voting_dao_outbox SET status = ?, published_at = ? WHERE outbox_id = ?`,
		outboxStatusPublished,
		toMillis(publishedAt),
		strings.TrimSpace(outboxID),
	)
	if err != nil {
		return s.logError("voting_sqlite_mark_outbox_published_failed", err, "outbox_id", strings.TrimSpace(outboxID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return s.logError("voting_sqlite_mark_outbox_published_failed", err, "outbox_id", strings.TrimSpace(outboxID))
	}
	if affected == 0 {
		return domainerrors.ErrOutboxConflict
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) transact(ctx context.Context, fn func(bound *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite transaction: %w", err)
	}
	bound := &Store{sqlDB: s.sqlDB, q: tx, inTx: true, logger: s.logger}
	if err := fn(bound); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite transaction: %w", err)
	}
	return nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-dao",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("voting sqlite operation failed", fields...)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (entities.Proposal, error) {
	var (
		id, createdAt, expiresAt int64
		forVotes, againstVotes   int64
		proposal                 entities.Proposal
	)
	if err := row.Scan(&id, &proposal.Description, &proposal.CreatorID, &createdAt, &expiresAt, &forVotes, &againstVotes); err != nil {
		return entities.Proposal{}, err
	}
	proposal.ProposalID = uint64(id)
	proposal.CreatedAt = fromMillis(createdAt)
	proposal.ExpiresAt = fromMillis(expiresAt)
	proposal.ForVotes = uint64(forVotes)
	proposal.AgainstVotes = uint64(againstVotes)
	return proposal, nil
}

func scanVoteRecord(row rowScanner) (entities.VoteRecord, error) {
	var (
		proposalID, castAt int64
		record             entities.VoteRecord
	)
	if err := row.Scan(&proposalID, &record.VoterID, &record.Support, &castAt); err != nil {
		return entities.VoteRecord{}, err
	}
	record.ProposalID = uint64(proposalID)
	record.CastAt = fromMillis(castAt)
	return record, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ ports.ProposalRepository = (*Store)(nil)
var _ ports.VoteLedger = (*Store)(nil)
var _ ports.Transactor = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
