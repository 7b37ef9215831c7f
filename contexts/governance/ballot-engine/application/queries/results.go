package queries

import (
	"context"
	"strings"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"
)

// StatusSnapshot is the read-model view of one election at a point in time.
type StatusSnapshot struct {
	ElectionID     string
	Phase          entities.Phase
	IsActive       bool
	TimeRemaining  time.Duration
	TotalProposals int
	TotalVotes     uint64
}

// ResultsUseCase serves the read-only reporting queries. Reads observe a
// consistent snapshot from the ledger store and never mutate state.
type ResultsUseCase struct {
	Elections ports.ElectionRepository
	Clock     ports.Clock
}

func (uc ResultsUseCase) Election(ctx context.Context, electionID string) (entities.Election, error) {
	return uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
}

func (uc ResultsUseCase) Status(ctx context.Context, electionID string) (StatusSnapshot, error) {
	electionID = strings.TrimSpace(electionID)
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	count, err := uc.Elections.CountProposals(ctx, electionID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	now := uc.now()
	return StatusSnapshot{
		ElectionID:     electionID,
		Phase:          election.Phase(now),
		IsActive:       election.IsOpen(now),
		TimeRemaining:  election.TimeRemaining(now),
		TotalProposals: count,
		TotalVotes:     election.TotalVotes,
	}, nil
}

func (uc ResultsUseCase) Proposals(ctx context.Context, electionID string) ([]entities.Proposal, error) {
	return uc.Elections.ListProposals(ctx, strings.TrimSpace(electionID))
}

// VoterDetails returns the stored record, or a well-defined default record
// when the identity was never registered. Absence is not an error here.
func (uc ResultsUseCase) VoterDetails(ctx context.Context, electionID string, voterID string) (entities.Voter, error) {
	electionID = strings.TrimSpace(electionID)
	voterID = strings.TrimSpace(voterID)
	if _, err := uc.Elections.GetElection(ctx, electionID); err != nil {
		return entities.Voter{}, err
	}
	voter, found, err := uc.Elections.GetVoter(ctx, electionID, voterID)
	if err != nil {
		return entities.Voter{}, err
	}
	if !found {
		return entities.Voter{ElectionID: electionID, VoterID: voterID}, nil
	}
	return voter, nil
}

// Winner scans the catalog in index order and keeps the first proposal whose
// count strictly exceeds the running maximum, so ties resolve to the lowest
// index and an all-zero tally yields index 0. The window must have elapsed;
// explicit closure is not required.
func (uc ResultsUseCase) Winner(ctx context.Context, electionID string) (entities.WinningProposal, error) {
	electionID = strings.TrimSpace(electionID)
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.WinningProposal{}, err
	}
	if !election.Elapsed(uc.now()) {
		return entities.WinningProposal{}, domainerrors.ErrVotingNotEnded
	}

	proposals, err := uc.Elections.ListProposals(ctx, electionID)
	if err != nil {
		return entities.WinningProposal{}, err
	}
	if len(proposals) == 0 {
		return entities.WinningProposal{}, domainerrors.ErrInvalidProposal
	}

	winner := entities.WinningProposal{Index: proposals[0].Index, Proposal: proposals[0]}
	max := proposals[0].VoteCount
	for _, proposal := range proposals[1:] {
		if proposal.VoteCount > max {
			max = proposal.VoteCount
			winner = entities.WinningProposal{Index: proposal.Index, Proposal: proposal}
		}
	}
	return winner, nil
}

func (uc ResultsUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
