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

// CastVoteCommand is one weighted ballot from an already-authenticated
// principal. Authorization here is eligibility only: the caller must be a
// registered voter of the election.
type CastVoteCommand struct {
	ElectionID    string
	VoterID       string
	ProposalIndex int
}

type CastVoteResult struct {
	Voter  entities.Voter
	CastAt time.Time
}

// BallotUseCase is the core ballot processor. The check order is fixed:
// window open, voter registered, not yet voted, proposal in range, then the
// atomic tally mutation. A failing check leaves state untouched.
type BallotUseCase struct {
	Elections ports.ElectionRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	voterID := strings.TrimSpace(cmd.VoterID)
	if electionID == "" || voterID == "" || cmd.ProposalIndex < 0 {
		return CastVoteResult{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if !election.IsOpen(now) {
		logger.Warn("ballot rejected outside voting window",
			"event", "ballot_cast_window_closed",
			"module", "governance/ballot-engine",
			"layer", "application",
			"election_id", electionID,
			"voter_id", voterID,
			"phase", string(election.Phase(now)),
		)
		return CastVoteResult{}, domainerrors.ErrVotingNotActive
	}

	voter, found, err := uc.Elections.GetVoter(ctx, electionID, voterID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if !found || !voter.Registered {
		return CastVoteResult{}, domainerrors.ErrVoterNotRegistered
	}
	if voter.HasVoted {
		return CastVoteResult{}, domainerrors.ErrAlreadyVoted
	}

	count, err := uc.Elections.CountProposals(ctx, electionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if cmd.ProposalIndex >= count {
		return CastVoteResult{}, domainerrors.ErrInvalidProposal
	}

	// The ledger store re-validates the voter and proposal guards inside its
	// own transaction, so a concurrent duplicate still fails ErrAlreadyVoted
	// without any partial tally write.
	ballot := entities.Ballot{
		ElectionID:    electionID,
		VoterID:       voterID,
		ProposalIndex: cmd.ProposalIndex,
		Weight:        voter.Weight,
		CastAt:        now,
	}
	if err := uc.Elections.ApplyBallot(ctx, ballot); err != nil {
		return CastVoteResult{}, err
	}

	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventVoteCast, electionID, now, map[string]any{
		"voter_id":       voterID,
		"proposal_index": cmd.ProposalIndex,
		"weight":         voter.Weight,
	}); err != nil {
		return CastVoteResult{}, err
	}

	index := cmd.ProposalIndex
	voter.HasVoted = true
	voter.VotedProposal = &index
	voter.UpdatedAt = now
	logger.Info("ballot cast",
		"event", "ballot_cast",
		"module", "governance/ballot-engine",
		"layer", "application",
		"election_id", electionID,
		"voter_id", voterID,
		"proposal_index", cmd.ProposalIndex,
		"weight", voter.Weight,
	)
	return CastVoteResult{Voter: voter, CastAt: now}, nil
}

func (uc BallotUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
