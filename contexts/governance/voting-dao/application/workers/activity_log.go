package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	application "votingdao/contexts/governance/voting-dao/application"
	"votingdao/contexts/governance/voting-dao/application/commands"
	"votingdao/contexts/governance/voting-dao/ports"
)

// ActivityLog consumes relayed proposal.created and vote.cast events and
// writes one structured line per ledger change.
type ActivityLog struct {
	Logger *slog.Logger
}

type activityPayload struct {
	ProposalID   uint64 `json:"proposal_id"`
	CreatorID    string `json:"creator_id"`
	ExpiresAt    string `json:"expires_at"`
	VoterID      string `json:"voter_id"`
	Support      bool   `json:"support"`
	ForVotes     uint64 `json:"for_votes"`
	AgainstVotes uint64 `json:"against_votes"`
}

func (ActivityLog) Topics() []string {
	return []string{commands.EventTypeProposalCreated, commands.EventTypeVoteCast}
}

func (a ActivityLog) Handle(_ context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(a.Logger)

	var data activityPayload
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode %s event %s: %w", event.EventType, event.EventID, err)
	}

	switch event.EventType {
	case commands.EventTypeProposalCreated:
		logger.Info("proposal opened",
			"event", "voting_activity_proposal_opened",
			"module", "governance/voting-dao",
			"layer", "worker",
			"event_id", event.EventID,
			"proposal_id", data.ProposalID,
			"creator_id", data.CreatorID,
			"expires_at", data.ExpiresAt,
		)
	case commands.EventTypeVoteCast:
		side := "against"
		if data.Support {
			side = "for"
		}
		logger.Info("vote recorded",
			"event", "voting_activity_vote_recorded",
			"module", "governance/voting-dao",
			"layer", "worker",
			"event_id", event.EventID,
			"proposal_id", data.ProposalID,
			"voter_id", data.VoterID,
			"side", side,
			"for_votes", data.ForVotes,
			"against_votes", data.AgainstVotes,
		)
	default:
		return fmt.Errorf("unsupported event type %q", event.EventType)
	}
	return nil
}
