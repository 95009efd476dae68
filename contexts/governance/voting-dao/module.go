package votingdao

import (
	"log/slog"
	"time"

	httpadapter "votingdao/contexts/governance/voting-dao/adapters/http"
	"votingdao/contexts/governance/voting-dao/adapters/memory"
	"votingdao/contexts/governance/voting-dao/application/commands"
	"votingdao/contexts/governance/voting-dao/application/queries"
	"votingdao/contexts/governance/voting-dao/application/workers"
	"votingdao/contexts/governance/voting-dao/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	Proposals   commands.ProposalUseCase
	Votes       commands.VoteUseCase
	Queries     queries.ProposalQueries
	OutboxRelay workers.OutboxRelay
	Store       *memory.Store
}

type Dependencies struct {
	Tx              ports.Transactor
	Proposals       ports.ProposalRepository
	Votes           ports.VoteLedger
	Idempotency     ports.IdempotencyStore
	Outbox          ports.OutboxRepository
	Publisher       ports.EventPublisher
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	IdempotencyTTL  time.Duration
	OutboxBatchSize int
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	proposalUseCase := commands.ProposalUseCase{
		Tx:             deps.Tx,
		Proposals:      deps.Proposals,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Tx:     deps.Tx,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	proposalQueries := queries.ProposalQueries{
		Proposals: deps.Proposals,
		Votes:     deps.Votes,
		Clock:     deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Proposals: proposalUseCase,
			Votes:     voteUseCase,
			Queries:   proposalQueries,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Proposals: proposalUseCase,
		Votes:     voteUseCase,
		Queries:   proposalQueries,
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatchSize,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory.Store. The relay has no
// publisher until the caller sets OutboxRelay.Publisher.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Tx:             store,
		Proposals:      store,
		Votes:          store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
