package ports

import (
	"context"
	"encoding/json"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
)

// ElectionRepository is the ledger store contract. Every mutating method is a
// conditional atomic read-modify-write: the adapter enforces the guarding
// precondition and returns the matching domain error when the record has
// moved underneath the caller.
type ElectionRepository interface {
	CreateElection(ctx context.Context, election entities.Election) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)

	// OpenWindow sets the window exactly once; ErrAlreadyStarted otherwise.
	OpenWindow(ctx context.Context, electionID string, startsAt time.Time, endsAt time.Time) error
	// CloseWindow flips the closed flag exactly once; ErrAlreadyClosed otherwise.
	CloseWindow(ctx context.Context, electionID string, closedAt time.Time) error

	RegisterVoter(ctx context.Context, voter entities.Voter) error
	GetVoter(ctx context.Context, electionID string, voterID string) (entities.Voter, bool, error)

	// AppendProposal assigns and returns the next catalog index.
	AppendProposal(ctx context.Context, proposal entities.Proposal) (int, error)
	GetProposal(ctx context.Context, electionID string, index int) (entities.Proposal, error)
	ListProposals(ctx context.Context, electionID string) ([]entities.Proposal, error)
	CountProposals(ctx context.Context, electionID string) (int, error)

	// ApplyBallot marks the voter voted, bumps the proposal tally, and bumps
	// the election total as one unit. No partial application is observable.
	ApplyBallot(ctx context.Context, ballot entities.Ballot) error
}

// EventEnvelope is the module-local view of the canonical event contract.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxWriter persists envelopes alongside committed state changes so that
// publishing failures never roll back engine state.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
