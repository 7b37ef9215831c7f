package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "quorum/contexts/governance/ballot-engine/application"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"
)

// CreateElectionCommand provisions a new voting event. The caller becomes the
// fixed administrator for the lifetime of the election.
type CreateElectionCommand struct {
	AdminID     string
	Title       string
	Description string
}

// RegisterVoterCommand is admin-only voter enrollment.
type RegisterVoterCommand struct {
	ElectionID string
	CallerID   string
	VoterID    string
	Weight     uint64
}

// AddProposalCommand appends one catalog entry; proposals are immutable once
// added and may be appended in any phase.
type AddProposalCommand struct {
	ElectionID  string
	CallerID    string
	Name        string
	Description string
	ImageRef    string
}

// StartVotingCommand opens the voting window exactly once.
type StartVotingCommand struct {
	ElectionID    string
	CallerID      string
	DurationHours uint64
}

// CloseVotingCommand closes an elapsed window exactly once.
type CloseVotingCommand struct {
	ElectionID string
	CallerID   string
}

type StartVotingResult struct {
	StartTime time.Time
	EndTime   time.Time
}

type CloseVotingResult struct {
	ClosedAt   time.Time
	TotalVotes uint64
}

// ElectionUseCase orchestrates the administrative commands: election setup,
// voter registration, proposal catalog, and the voting window lifecycle.
// Every mutating call checks the caller against the stored administrator and
// queries the clock exactly once.
type ElectionUseCase struct {
	Elections ports.ElectionRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc ElectionUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	adminID := strings.TrimSpace(cmd.AdminID)
	title := strings.TrimSpace(cmd.Title)
	if adminID == "" || title == "" {
		logger.Warn("election create validation failed",
			"event", "ballot_election_create_validation_failed",
			"module", "governance/ballot-engine",
			"layer", "application",
			"admin_id", adminID,
		)
		return entities.Election{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Election{}, err
	}
	election := entities.Election{
		ElectionID:  electionID,
		AdminID:     adminID,
		Title:       title,
		Description: strings.TrimSpace(cmd.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.Elections.CreateElection(ctx, election); err != nil {
		return entities.Election{}, err
	}
	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventElectionCreated, electionID, now, map[string]any{
		"admin_id": adminID,
		"title":    title,
	}); err != nil {
		return entities.Election{}, err
	}
	logger.Info("election created",
		"event", "ballot_election_created",
		"module", "governance/ballot-engine",
		"layer", "application",
		"election_id", electionID,
		"admin_id", adminID,
	)
	return election, nil
}

// RegisterVoter enrolls one voter with the supplied weight. Registration is
// rejected when the identity is already enrolled; it is not gated on phase.
// Zero-weight voters are accepted; their ballot adds nothing to the tally.
func (uc ElectionUseCase) RegisterVoter(ctx context.Context, cmd RegisterVoterCommand) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	voterID := strings.TrimSpace(cmd.VoterID)
	if electionID == "" || voterID == "" || strings.TrimSpace(cmd.CallerID) == "" {
		return entities.Voter{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.Voter{}, err
	}
	if err := requireAdmin(election, cmd.CallerID); err != nil {
		logger.Warn("voter registration rejected",
			"event", "ballot_voter_register_unauthorized",
			"module", "governance/ballot-engine",
			"layer", "application",
			"election_id", electionID,
			"caller_id", strings.TrimSpace(cmd.CallerID),
		)
		return entities.Voter{}, err
	}

	voter := entities.Voter{
		ElectionID:   electionID,
		VoterID:      voterID,
		Registered:   true,
		Weight:       cmd.Weight,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	if err := uc.Elections.RegisterVoter(ctx, voter); err != nil {
		return entities.Voter{}, err
	}
	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventVoterRegistered, electionID, now, map[string]any{
		"voter_id": voterID,
		"weight":   cmd.Weight,
	}); err != nil {
		return entities.Voter{}, err
	}
	logger.Info("voter registered",
		"event", "ballot_voter_registered",
		"module", "governance/ballot-engine",
		"layer", "application",
		"election_id", electionID,
		"voter_id", voterID,
		"weight", cmd.Weight,
	)
	return voter, nil
}

// AddProposal appends a catalog entry and returns its assigned index.
func (uc ElectionUseCase) AddProposal(ctx context.Context, cmd AddProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	name := strings.TrimSpace(cmd.Name)
	if electionID == "" || name == "" || strings.TrimSpace(cmd.CallerID) == "" {
		return entities.Proposal{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := requireAdmin(election, cmd.CallerID); err != nil {
		return entities.Proposal{}, err
	}

	proposal := entities.Proposal{
		ElectionID:  electionID,
		Name:        name,
		Description: strings.TrimSpace(cmd.Description),
		ImageRef:    strings.TrimSpace(cmd.ImageRef),
		CreatedAt:   now,
	}
	index, err := uc.Elections.AppendProposal(ctx, proposal)
	if err != nil {
		return entities.Proposal{}, err
	}
	proposal.Index = index
	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventProposalAdded, electionID, now, map[string]any{
		"proposal_index": index,
		"name":           name,
	}); err != nil {
		return entities.Proposal{}, err
	}
	logger.Info("proposal added",
		"event", "ballot_proposal_added",
		"module", "governance/ballot-engine",
		"layer", "application",
		"election_id", electionID,
		"proposal_index", index,
		"name", name,
	)
	return proposal, nil
}

// StartVoting opens the window at the current instant for the requested
// number of hours. The window can be opened exactly once.
func (uc ElectionUseCase) StartVoting(ctx context.Context, cmd StartVotingCommand) (StartVotingResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" || strings.TrimSpace(cmd.CallerID) == "" || cmd.DurationHours == 0 {
		return StartVotingResult{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return StartVotingResult{}, err
	}
	if err := requireAdmin(election, cmd.CallerID); err != nil {
		return StartVotingResult{}, err
	}
	if election.StartTime != nil {
		return StartVotingResult{}, domainerrors.ErrAlreadyStarted
	}

	endsAt := now.Add(time.Duration(cmd.DurationHours) * time.Hour)
	if err := uc.Elections.OpenWindow(ctx, electionID, now, endsAt); err != nil {
		return StartVotingResult{}, err
	}
	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventVotingStarted, electionID, now, map[string]any{
		"start_time": now.UTC().Format(time.RFC3339),
		"end_time":   endsAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return StartVotingResult{}, err
	}
	logger.Info("voting window opened",
		"event", "ballot_voting_started",
		"module", "governance/ballot-engine",
		"layer", "application",
		"election_id", electionID,
		"start_time", now.UTC().Format(time.RFC3339),
		"end_time", endsAt.UTC().Format(time.RFC3339),
	)
	return StartVotingResult{StartTime: now, EndTime: endsAt}, nil
}

// CloseVoting closes the window after it has elapsed. Closing is explicit and
// happens exactly once; an elapsed but unclosed election already rejects
// ballots through the phase check.
func (uc ElectionUseCase) CloseVoting(ctx context.Context, cmd CloseVotingCommand) (CloseVotingResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" || strings.TrimSpace(cmd.CallerID) == "" {
		return CloseVotingResult{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return CloseVotingResult{}, err
	}
	if err := requireAdmin(election, cmd.CallerID); err != nil {
		return CloseVotingResult{}, err
	}
	if !election.Elapsed(now) {
		return CloseVotingResult{}, domainerrors.ErrVotingNotEnded
	}
	if election.Closed {
		return CloseVotingResult{}, domainerrors.ErrAlreadyClosed
	}

	if err := uc.Elections.CloseWindow(ctx, electionID, now); err != nil {
		return CloseVotingResult{}, err
	}
	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventVotingClosed, electionID, now, map[string]any{
		"total_votes": election.TotalVotes,
	}); err != nil {
		return CloseVotingResult{}, err
	}
	logger.Info("voting window closed",
		"event", "ballot_voting_closed",
		"module", "governance/ballot-engine",
		"layer", "application",
		"election_id", electionID,
		"total_votes", election.TotalVotes,
	)
	return CloseVotingResult{ClosedAt: now, TotalVotes: election.TotalVotes}, nil
}

func (uc ElectionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

// requireAdmin is a pure precondition: the caller principal must equal the
// administrator fixed at election creation.
func requireAdmin(election entities.Election, callerID string) error {
	if strings.TrimSpace(callerID) != election.AdminID {
		return domainerrors.ErrUnauthorized
	}
	return nil
}
