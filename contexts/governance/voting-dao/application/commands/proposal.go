package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "votingdao/contexts/governance/voting-dao/application"
	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"
	"votingdao/contexts/governance/voting-dao/ports"
)

// CreateProposalCommand is the write-model input for proposal creation.
// Description is stored verbatim; Now may be left zero to use the clock.
type CreateProposalCommand struct {
	CreatorID       string
	Description     string
	DurationSeconds int64
	Now             time.Time
	IdempotencyKey  string
}

// CreateProposalResult carries the stored snapshot and the (id, creator) pair
// the host surfaces as its ProposalCreated signal.
type CreateProposalResult struct {
	Proposal entities.Proposal
	Created  entities.ProposalCreated
	Replayed bool
}

type ProposalUseCase struct {
	Tx             ports.Transactor
	Proposals      ports.ProposalRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CreateProposal assigns the next sequential id and stores the proposal
// together with its proposal.created outbox event.
func (uc ProposalUseCase) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (CreateProposalResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	creatorID := strings.TrimSpace(cmd.CreatorID)
	logger.Info("proposal create processing started",
		"event", "voting_proposal_create_started",
		"module", "governance/voting-dao",
		"layer", "application",
		"creator_id", creatorID,
		"duration_seconds", cmd.DurationSeconds,
	)

	now := application.ResolveNow(cmd.Now, uc.Clock)
	draft := entities.ProposalDraft{
		Description:     cmd.Description,
		CreatorID:       creatorID,
		DurationSeconds: cmd.DurationSeconds,
		Now:             now,
	}
	if creatorID == "" || !draft.ExpiryInRange() {
		logger.Warn("proposal create validation failed",
			"event", "voting_proposal_create_validation_failed",
			"module", "governance/voting-dao",
			"layer", "application",
			"creator_id", creatorID,
			"duration_seconds", cmd.DurationSeconds,
		)
		return CreateProposalResult{}, domainerrors.ErrInvalidProposalInput
	}

	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	useIdempotency := idempotencyKey != "" && uc.Idempotency != nil
	requestHash := hashCreateProposalCommand(cmd)

	var (
		proposal entities.Proposal
		replayed bool
	)
	err := uc.Tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		claimKey := useIdempotency && uow.Idempotency != nil
		if claimKey {
			existing, found, err := replayFromStore(ctx, uow.Idempotency, uow.Proposals, idempotencyKey, requestHash, now)
			if err != nil {
				return err
			}
			if found {
				proposal = existing
				replayed = true
				return nil
			}
		}

		created, err := uow.Proposals.CreateProposal(ctx, draft)
		if err != nil {
			return err
		}
		if err := uc.appendEvent(ctx, uow.Outbox, EventTypeProposalCreated, created.ProposalID, now, map[string]any{
			"proposal_id": created.ProposalID,
			"creator_id":  created.CreatorID,
			"description": created.Description,
			"created_at":  created.CreatedAt.Format(time.RFC3339),
			"expires_at":  created.ExpiresAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		if claimKey {
			if err := uow.Idempotency.Put(ctx, ports.IdempotencyRecord{
				Key:         idempotencyKey,
				RequestHash: requestHash,
				ProposalID:  created.ProposalID,
				ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
			}); err != nil {
				return err
			}
		}
		proposal = created
		return nil
	})
	if errors.Is(err, domainerrors.ErrIdempotencyConflict) && useIdempotency {
		// A concurrent request may have committed the same key first; its
		// rolled-back twin then replays the winner.
		existing, found, lookupErr := replayFromStore(ctx, uc.Idempotency, uc.Proposals, idempotencyKey, requestHash, now)
		if lookupErr == nil && found {
			proposal, replayed, err = existing, true, nil
		}
	}
	if err != nil {
		if errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			logger.Warn("proposal create idempotency conflict",
				"event", "voting_proposal_create_idempotency_conflict",
				"module", "governance/voting-dao",
				"layer", "application",
				"creator_id", creatorID,
			)
			return CreateProposalResult{}, err
		}
		logger.Error("proposal create failed",
			"event", "voting_proposal_create_failed",
			"module", "governance/voting-dao",
			"layer", "application",
			"creator_id", creatorID,
			"error", err.Error(),
		)
		return CreateProposalResult{}, err
	}

	if replayed {
		logger.Info("proposal create replayed",
			"event", "voting_proposal_create_replayed",
			"module", "governance/voting-dao",
			"layer", "application",
			"proposal_id", proposal.ProposalID,
			"creator_id", creatorID,
		)
	} else {
		logger.Info("proposal created",
			"event", "voting_proposal_created",
			"module", "governance/voting-dao",
			"layer", "application",
			"proposal_id", proposal.ProposalID,
			"creator_id", proposal.CreatorID,
			"expires_at", proposal.ExpiresAt.Format(time.RFC3339),
		)
	}
	return CreateProposalResult{
		Proposal: proposal,
		Created:  createdSignal(proposal),
		Replayed: replayed,
	}, nil
}

// replayFromStore resolves a stored idempotency key. A key bound to a
// different payload is ErrIdempotencyConflict.
func replayFromStore(
	ctx context.Context,
	idempotency ports.IdempotencyStore,
	proposals ports.ProposalRepository,
	key string,
	requestHash string,
	now time.Time,
) (entities.Proposal, bool, error) {
	record, found, err := idempotency.Get(ctx, key, now)
	if err != nil || !found {
		return entities.Proposal{}, false, err
	}
	if record.RequestHash != requestHash {
		return entities.Proposal{}, false, domainerrors.ErrIdempotencyConflict
	}
	proposal, err := proposals.GetProposal(ctx, record.ProposalID)
	if err != nil {
		return entities.Proposal{}, false, err
	}
	return proposal, true, nil
}

func (uc ProposalUseCase) appendEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	eventType string,
	proposalID uint64,
	occurredAt time.Time,
	data map[string]any,
) error {
	return appendOutboxEvent(ctx, outbox, uc.IDGen, eventType, proposalID, occurredAt, data)
}

func (uc ProposalUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func createdSignal(proposal entities.Proposal) entities.ProposalCreated {
	return entities.ProposalCreated{
		ProposalID: proposal.ProposalID,
		CreatorID:  proposal.CreatorID,
		CreatedAt:  proposal.CreatedAt,
	}
}

// appendOutboxEvent is a no-op when the unit of work has no outbox, which
// keeps pure read/test wiring simple.
func appendOutboxEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idGen ports.IDGenerator,
	eventType string,
	proposalID uint64,
	occurredAt time.Time,
	data map[string]any,
) error {
	if outbox == nil || idGen == nil {
		return nil
	}
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newProposalEnvelope(eventID, eventType, proposalID, occurredAt, data)
	if err != nil {
		return err
	}
	return outbox.AppendOutbox(ctx, envelope)
}

func hashCreateProposalCommand(cmd CreateProposalCommand) string {
	payload := map[string]string{
		"creator_id":       strings.TrimSpace(cmd.CreatorID),
		"description":      cmd.Description,
		"duration_seconds": strconv.FormatInt(cmd.DurationSeconds, 10),
		"op":               "create_proposal",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
