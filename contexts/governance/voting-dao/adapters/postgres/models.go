package postgresadapter

import (
	"time"

	"votingdao/contexts/governance/voting-dao/domain/entities"
)

const proposalSequenceName = "proposals"

type proposalModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Description  string    `gorm:"column:description;not null"`
	CreatorID    string    `gorm:"column:creator_id;not null;index"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null"`
	ForVotes     int64     `gorm:"column:for_votes;not null;default:0"`
	AgainstVotes int64     `gorm:"column:against_votes;not null;default:0"`
}

func (proposalModel) TableName() string {
	return "proposals"
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ProposalID:   uint64(m.ID),
		Description:  m.Description,
		CreatorID:    m.CreatorID,
		CreatedAt:    m.CreatedAt.UTC(),
		ExpiresAt:    m.ExpiresAt.UTC(),
		ForVotes:     uint64(m.ForVotes),
		AgainstVotes: uint64(m.AgainstVotes),
	}
}

// proposalSequenceModel hands out proposal ids. A serial column would start
// at 1 and burn values on rollback, so ids come from this locked row instead.
type proposalSequenceModel struct {
	Name   string `gorm:"column:name;primaryKey"`
	NextID int64  `gorm:"column:next_id;not null"`
}

func (proposalSequenceModel) TableName() string {
	return "proposal_sequences"
}

type voteRecordModel struct {
	ProposalID int64     `gorm:"column:proposal_id;primaryKey;autoIncrement:false"`
	VoterID    string    `gorm:"column:voter_id;primaryKey"`
	Support    bool      `gorm:"column:support;not null"`
	CastAt     time.Time `gorm:"column:cast_at;not null"`
}

func (voteRecordModel) TableName() string {
	return "vote_records"
}

func (m voteRecordModel) toEntity() entities.VoteRecord {
	return entities.VoteRecord{
		ProposalID: uint64(m.ProposalID),
		VoterID:    m.VoterID,
		Support:    m.Support,
		CastAt:     m.CastAt.UTC(),
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash;not null"`
	ProposalID  int64     `gorm:"column:proposal_id;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null"`
}

func (idempotencyModel) TableName() string {
	return "voting_dao_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	Sequence     int64      `gorm:"column:sequence;autoIncrement;index"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;not null"`
	Status       string     `gorm:"column:status;not null;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_dao_outbox"
}

func toProposalEntities(rows []proposalModel) []entities.Proposal {
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func toVoteRecordEntities(rows []voteRecordModel) []entities.VoteRecord {
	items := make([]entities.VoteRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}
