package commands

import (
	"context"
	"encoding/json"
	"time"

	"quorum/contexts/governance/ballot-engine/ports"
)

const (
	EventElectionCreated = "election.created"
	EventVoterRegistered = "voter.registered"
	EventProposalAdded   = "proposal.added"
	EventVotingStarted   = "voting.started"
	EventVoteCast        = "vote.cast"
	EventVotingClosed    = "voting.closed"
)

func newElectionEnvelope(
	eventID string,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by election for stable ordering on
	// election-scoped consumers.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "ballot-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     electionID,
		Data:             payload,
	}, nil
}

// appendEvent writes one envelope to the outbox. A nil outbox is treated as
// no-op so pure read/test wiring stays light.
func appendEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idGen ports.IDGenerator,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	if outbox == nil {
		return nil
	}
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	data["election_id"] = electionID
	data["occurred_at"] = occurredAt.UTC().Format(time.RFC3339)

	envelope, err := newElectionEnvelope(eventID, eventType, electionID, occurredAt, data)
	if err != nil {
		return err
	}
	return outbox.AppendOutbox(ctx, envelope)
}
