package ballotengine

import (
	"log/slog"

	httpadapter "quorum/contexts/governance/ballot-engine/adapters/http"
	"quorum/contexts/governance/ballot-engine/adapters/memory"
	"quorum/contexts/governance/ballot-engine/application/commands"
	"quorum/contexts/governance/ballot-engine/application/queries"
	"quorum/contexts/governance/ballot-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections ports.ElectionRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	electionUseCase := commands.ElectionUseCase{
		Elections: deps.Elections,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	ballotUseCase := commands.BallotUseCase{
		Elections: deps.Elections,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Elections: deps.Elections,
		Clock:     deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Ballots:   ballotUseCase,
			Results:   resultsUseCase,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to the mutex-guarded memory store. Used
// by tests and by dev runs without a database.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Elections: store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}

// NewInMemoryModuleWithClock is NewInMemoryModule with a caller-supplied
// clock, so window boundaries can be tested deterministically.
func NewInMemoryModuleWithClock(clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Elections: store,
		Outbox:    store,
		Clock:     clock,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
