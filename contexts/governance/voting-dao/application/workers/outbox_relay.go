package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	application "votingdao/contexts/governance/voting-dao/application"
	"votingdao/contexts/governance/voting-dao/application/commands"
	"votingdao/contexts/governance/voting-dao/ports"
)

var errRelayNotConfigured = errors.New("voting outbox relay requires outbox and publisher")

// OutboxRelay publishes persisted proposal.created and vote.cast records to
// the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after the publish succeeds. It stops on the first failure
// and leaves the remaining rows pending for the next cycle.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	if r.Outbox == nil || r.Publisher == nil {
		return errRelayNotConfigured
	}
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("voting outbox list failed",
			"event", "voting_outbox_list_failed",
			"module", "governance/voting-dao",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("voting outbox relay found no pending rows",
			"event", "voting_outbox_relay_noop",
			"module", "governance/voting-dao",
			"layer", "worker",
			"batch_size", limit,
		)
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	relayed := map[string]int{}
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("voting outbox decode failed",
				"event", "voting_outbox_decode_failed",
				"module", "governance/voting-dao",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("voting outbox publish failed",
				"event", "voting_outbox_publish_failed",
				"module", "governance/voting-dao",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("voting outbox mark published failed",
				"event", "voting_outbox_mark_published_failed",
				"module", "governance/voting-dao",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		relayed[topic]++
		logger.Info("voting outbox event relayed",
			"event", "voting_outbox_event_relayed",
			"module", "governance/voting-dao",
			"layer", "worker",
			"outbox_id", row.OutboxID,
			"event_type", topic,
			"proposal_id", proposalIDOf(event, row),
		)
	}

	logger.Info("voting outbox relay cycle completed",
		"event", "voting_outbox_relay_completed",
		"module", "governance/voting-dao",
		"layer", "worker",
		"published_count", len(pending),
		"proposals_created", relayed[commands.EventTypeProposalCreated],
		"votes_cast", relayed[commands.EventTypeVoteCast],
	)
	return nil
}

// proposalIDOf reads the proposal id from the partition key, which every
// voting event is keyed by.
func proposalIDOf(event ports.EventEnvelope, row ports.OutboxMessage) string {
	if event.PartitionKeyPath == "proposal_id" && event.PartitionKey != "" {
		return event.PartitionKey
	}
	return row.PartitionKey
}

// Run drives RunOnce on a fixed interval until ctx is cancelled. Cycle
// errors are logged and retried on the next tick.
func (r OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	logger := application.ResolveLogger(r.Logger)
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("voting outbox relay cycle failed; retrying next tick",
				"event", "voting_outbox_relay_cycle_failed",
				"module", "governance/voting-dao",
				"layer", "worker",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
