package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory ledger. One mutex serializes every mutation, so each
// conditional write observes and updates a consistent snapshot, which is the
// single-writer model the engine relies on.
type Store struct {
	mu sync.RWMutex

	elections map[string]entities.Election
	voters    map[string]map[string]entities.Voter
	proposals map[string][]entities.Proposal
	outbox    map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		elections: make(map[string]entities.Election),
		voters:    make(map[string]map[string]entities.Voter),
		proposals: make(map[string][]entities.Proposal),
		outbox:    make(map[string]outboxRecord),
	}
}

func (s *Store) CreateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID := strings.TrimSpace(election.ElectionID)
	if _, exists := s.elections[electionID]; exists {
		return domainerrors.ErrConflict
	}
	s.elections[electionID] = election
	s.voters[electionID] = make(map[string]entities.Voter)
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) OpenWindow(_ context.Context, electionID string, startsAt time.Time, endsAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if election.StartTime != nil {
		return domainerrors.ErrAlreadyStarted
	}
	start := startsAt.UTC()
	end := endsAt.UTC()
	election.StartTime = &start
	election.EndTime = &end
	election.UpdatedAt = start
	s.elections[strings.TrimSpace(electionID)] = election
	return nil
}

func (s *Store) CloseWindow(_ context.Context, electionID string, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if election.Closed {
		return domainerrors.ErrAlreadyClosed
	}
	election.Closed = true
	election.UpdatedAt = closedAt.UTC()
	s.elections[strings.TrimSpace(electionID)] = election
	return nil
}

func (s *Store) RegisterVoter(_ context.Context, voter entities.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID := strings.TrimSpace(voter.ElectionID)
	voterID := strings.TrimSpace(voter.VoterID)
	roll, ok := s.voters[electionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if existing, exists := roll[voterID]; exists && existing.Registered {
		return domainerrors.ErrAlreadyRegistered
	}
	roll[voterID] = voter
	return nil
}

func (s *Store) GetVoter(_ context.Context, electionID string, voterID string) (entities.Voter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roll, ok := s.voters[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Voter{}, false, nil
	}
	voter, exists := roll[strings.TrimSpace(voterID)]
	if !exists {
		return entities.Voter{}, false, nil
	}
	return voter, true, nil
}

func (s *Store) AppendProposal(_ context.Context, proposal entities.Proposal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID := strings.TrimSpace(proposal.ElectionID)
	if _, ok := s.elections[electionID]; !ok {
		return 0, domainerrors.ErrElectionNotFound
	}
	proposal.Index = len(s.proposals[electionID])
	s.proposals[electionID] = append(s.proposals[electionID], proposal)
	return proposal.Index, nil
}

func (s *Store) GetProposal(_ context.Context, electionID string, index int) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := s.proposals[strings.TrimSpace(electionID)]
	if index < 0 || index >= len(catalog) {
		return entities.Proposal{}, domainerrors.ErrInvalidProposal
	}
	return catalog[index], nil
}

func (s *Store) ListProposals(_ context.Context, electionID string) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := s.proposals[strings.TrimSpace(electionID)]
	items := make([]entities.Proposal, len(catalog))
	copy(items, catalog)
	return items, nil
}

func (s *Store) CountProposals(_ context.Context, electionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proposals[strings.TrimSpace(electionID)]), nil
}

// ApplyBallot re-validates every ballot guard under the write lock and then
// applies voter flag, proposal tally, and election total together. A losing
// racer observes the same domain error a sequential caller would.
func (s *Store) ApplyBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID := strings.TrimSpace(ballot.ElectionID)
	voterID := strings.TrimSpace(ballot.VoterID)

	election, ok := s.elections[electionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	voter, exists := s.voters[electionID][voterID]
	if !exists || !voter.Registered {
		return domainerrors.ErrVoterNotRegistered
	}
	if voter.HasVoted {
		return domainerrors.ErrAlreadyVoted
	}
	catalog := s.proposals[electionID]
	if ballot.ProposalIndex < 0 || ballot.ProposalIndex >= len(catalog) {
		return domainerrors.ErrInvalidProposal
	}

	index := ballot.ProposalIndex
	voter.HasVoted = true
	voter.VotedProposal = &index
	voter.UpdatedAt = ballot.CastAt.UTC()
	s.voters[electionID][voterID] = voter

	catalog[index].VoteCount += ballot.Weight
	election.TotalVotes += ballot.Weight
	election.UpdatedAt = ballot.CastAt.UTC()
	s.elections[electionID] = election
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.ElectionRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
