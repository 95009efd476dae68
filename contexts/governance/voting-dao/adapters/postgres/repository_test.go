package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"votingdao/contexts/governance/voting-dao/application/commands"
	"votingdao/contexts/governance/voting-dao/domain/entities"
	domainerrors "votingdao/contexts/governance/voting-dao/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("expected foreign key violation not to match")
	}
	if isUniqueViolation(errors.New("duplicate")) {
		t.Fatalf("expected plain error not to match")
	}
}

func TestProposalModelToEntity(t *testing.T) {
	row := proposalModel{
		ID:           7,
		Description:  "p",
		CreatorID:    "owner",
		CreatedAt:    time.Unix(1000, 0),
		ExpiresAt:    time.Unix(1060, 0),
		ForVotes:     2,
		AgainstVotes: 1,
	}
	proposal := row.toEntity()
	if proposal.ProposalID != 7 || proposal.ForVotes != 2 || proposal.AgainstVotes != 1 {
		t.Fatalf("unexpected entity: %+v", proposal)
	}
	if proposal.CreatedAt.Location() != time.UTC || proposal.ExpiresAt.Unix() != 1060 {
		t.Fatalf("unexpected timestamps: %+v", proposal)
	}
}

// openTestRepository connects to VOTINGDAO_TEST_POSTGRES_DSN and resets the
// voting tables. Tests that need it are skipped when the variable is unset.
func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("VOTINGDAO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOTINGDAO_TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("resolve sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrator().DropTable(&outboxModel{}, &idempotencyModel{}, &voteRecordModel{}, &proposalModel{}, &proposalSequenceModel{}); err != nil {
		t.Fatalf("drop tables: %v", err)
	}
	repo := NewRepository(db, nil)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestRepositoryVotingFlow(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	proposals := commands.ProposalUseCase{Tx: repo, Proposals: repo, Idempotency: repo, Clock: SystemClock{}, IDGen: UUIDGenerator{}}
	votes := commands.VoteUseCase{Tx: repo, Clock: SystemClock{}, IDGen: UUIDGenerator{}}

	for want := uint64(0); want < 2; want++ {
		created, err := proposals.CreateProposal(ctx, commands.CreateProposalCommand{
			CreatorID: "owner", Description: "p", DurationSeconds: 60, Now: time.Unix(1000, 0),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.Proposal.ProposalID != want {
			t.Fatalf("expected id %d, got %d", want, created.Proposal.ProposalID)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := votes.CastVote(ctx, commands.CastVoteCommand{
				ProposalID: 0,
				VoterID:    fmt.Sprintf("voter-%d", i%10),
				Support:    i%2 == 0,
				Now:        time.Unix(1001, 0),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domainerrors.ErrAlreadyVoted):
		default:
			t.Fatalf("unexpected cast error: %v", err)
		}
	}
	if accepted != 10 {
		t.Fatalf("expected 10 accepted votes, got %d", accepted)
	}
	proposal, err := repo.GetProposal(ctx, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if proposal.ForVotes+proposal.AgainstVotes != 10 {
		t.Fatalf("expected 10 counted votes, got %d/%d", proposal.ForVotes, proposal.AgainstVotes)
	}

	if _, err := votes.CastVote(ctx, commands.CastVoteCommand{ProposalID: 0, VoterID: "late", Support: true, Now: time.Unix(1060, 0)}); !errors.Is(err, domainerrors.ErrProposalExpired) {
		t.Fatalf("expected ErrProposalExpired, got %v", err)
	}
	if err := repo.InsertVoteRecord(ctx, entities.VoteRecord{ProposalID: 0, VoterID: "voter-1", CastAt: time.Unix(1002, 0)}); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected unique backstop to report ErrAlreadyVoted, got %v", err)
	}

	pending, err := repo.ListPendingOutbox(ctx, 100)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(pending) != 12 {
		t.Fatalf("expected 2 create + 10 vote events, got %d", len(pending))
	}
	if err := repo.MarkOutboxPublished(ctx, pending[0].OutboxID, time.Now()); err != nil {
		t.Fatalf("mark: %v", err)
	}
}
