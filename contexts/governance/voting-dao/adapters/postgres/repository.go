package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	"votingdao/contexts/governance/voting-dao/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
	// inTx marks a repository bound to an open transaction; proposal reads
	// then take a row lock so concurrent votes on one proposal serialize.
	inTx bool
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the voting tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&proposalModel{},
		&proposalSequenceModel{},
		&voteRecordModel{},
		&idempotencyModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("voting_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, uow ports.UnitOfWork) error,
) error {
	if r.inTx {
		return fn(ctx, ports.UnitOfWork{Proposals: r, Votes: r, Outbox: r, Idempotency: r})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound := &Repository{db: tx, logger: r.logger, inTx: true}
		return fn(ctx, ports.UnitOfWork{
			Proposals:   bound,
			Votes:       bound,
			Outbox:      bound,
			Idempotency: bound,
		})
	})
}

func (r *Repository) CreateProposal(ctx context.Context, draft entities.ProposalDraft) (entities.Proposal, error) {
	var created entities.Proposal
	err := r.transact(ctx, func(tx *gorm.DB) error {
		id, err := allocateProposalID(tx)
		if err != nil {
			return err
		}
		row := proposalModel{
			ID:          id,
			Description: draft.Description,
			CreatorID:   strings.TrimSpace(draft.CreatorID),
			CreatedAt:   draft.Now.UTC(),
			ExpiresAt:   draft.ExpiresAt(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		created = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.Proposal{}, r.logError("voting_repo_create_proposal_failed", err,
			"creator_id", strings.TrimSpace(draft.CreatorID),
		)
	}
	return created, nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	if proposalID > math.MaxInt64 {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	tx := r.db.WithContext(ctx)
	if r.inTx {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row proposalModel
	if err := tx.Where("id = ?", int64(proposalID)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("voting_repo_get_proposal_failed", err, "proposal_id", proposalID)
	}
	return row.toEntity(), nil
}

func (r *Repository) IncrementVote(ctx context.Context, proposalID uint64, support bool) error {
	if proposalID > math.MaxInt64 {
		return domainerrors.ErrProposalNotFound
	}
	column := "against_votes"
	if support {
		column = "for_votes"
	}
	result := r.db.WithContext(ctx).
		Model(&proposalModel{}).
		Where("id = ?", int64(proposalID)).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return r.logError("voting_repo_increment_vote_failed", result.Error,
			"proposal_id", proposalID,
			"column", column,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	return nil
}

func (r *Repository) IsActive(ctx context.Context, proposalID uint64, now time.Time) (bool, error) {
	proposal, err := r.GetProposal(ctx, proposalID)
	if err != nil {
		return false, err
	}
	return proposal.ActiveAt(now), nil
}

func (r *Repository) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	tx := r.db.WithContext(ctx).Order("id ASC")
	if filter.Offset > 0 {
		tx = tx.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	var rows []proposalModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_proposals_failed", err,
			"offset", filter.Offset,
			"limit", filter.Limit,
		)
	}
	return toProposalEntities(rows), nil
}

func (r *Repository) GetVoteRecord(ctx context.Context, proposalID uint64, voterID string) (entities.VoteRecord, bool, error) {
	if proposalID > math.MaxInt64 {
		return entities.VoteRecord{}, false, nil
	}
	var row voteRecordModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", int64(proposalID)).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteRecord{}, false, nil
		}
		return entities.VoteRecord{}, false, r.logError("voting_repo_get_vote_record_failed", err,
			"proposal_id", proposalID,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) InsertVoteRecord(ctx context.Context, record entities.VoteRecord) error {
	row := voteRecordModel{
		ProposalID: int64(record.ProposalID),
		VoterID:    strings.TrimSpace(record.VoterID),
		Support:    record.Support,
		CastAt:     record.CastAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("voting_repo_insert_vote_record_failed", err,
			"proposal_id", record.ProposalID,
			"voter_id", row.VoterID,
		)
	}
	return nil
}

func (r *Repository) ListVoteRecords(ctx context.Context, proposalID uint64) ([]entities.VoteRecord, error) {
	var rows []voteRecordModel
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ?", int64(proposalID)).
		Order("cast_at ASC, voter_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_vote_records_failed", err, "proposal_id", proposalID)
	}
	return toVoteRecordEntities(rows), nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("voting_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.UTC().After(now.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("voting_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		ProposalID:  uint64(row.ProposalID),
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		ProposalID:  int64(record.ProposalID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("voting_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.ProposalID != row.ProposalID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("voting_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("voting_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrOutboxConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("sequence ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("voting_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxConflict
	}
	return nil
}

func (r *Repository) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.inTx {
		return fn(r.db.WithContext(ctx))
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-dao",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

// allocateProposalID reserves the next id under a row lock on the sequence.
func allocateProposalID(tx *gorm.DB) (int64, error) {
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&proposalSequenceModel{Name: proposalSequenceName, NextID: 0}).Error; err != nil {
		return 0, err
	}
	var seq proposalSequenceModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", proposalSequenceName).
		First(&seq).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&proposalSequenceModel{}).
		Where("name = ?", proposalSequenceName).
		UpdateColumn("next_id", seq.NextID+1).Error; err != nil {
		return 0, err
	}
	return seq.NextID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ProposalRepository = (*Repository)(nil)
var _ ports.VoteLedger = (*Repository)(nil)
var _ ports.Transactor = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
