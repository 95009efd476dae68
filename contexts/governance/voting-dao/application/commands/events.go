package commands

import (
	"encoding/json"
	"strconv"
	"time"

	"votingdao/contexts/governance/voting-dao/ports"
)

const (
	EventTypeProposalCreated = "proposal.created"
	EventTypeVoteCast        = "vote.cast"
)

func newProposalEnvelope(
	eventID string,
	eventType string,
	proposalID uint64,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by proposal so per-proposal consumers observe creation
	// before any vote.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "voting-dao",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "proposal_id",
		PartitionKey:     strconv.FormatUint(proposalID, 10),
		Data:             payload,
	}, nil
}
