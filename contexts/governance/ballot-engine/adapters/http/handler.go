package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"quorum/contexts/governance/ballot-engine/application/commands"
	"quorum/contexts/governance/ballot-engine/application/queries"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	httptransport "quorum/contexts/governance/ballot-engine/transport/http"
)

type Handler struct {
	Elections commands.ElectionUseCase
	Ballots   commands.BallotUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	callerID string,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	election, err := h.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		AdminID:     callerID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Results.Election(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) RegisterVoterHandler(
	ctx context.Context,
	callerID string,
	electionID string,
	req httptransport.RegisterVoterRequest,
) (httptransport.VoterResponse, error) {
	voter, err := h.Elections.RegisterVoter(ctx, commands.RegisterVoterCommand{
		ElectionID: electionID,
		CallerID:   callerID,
		VoterID:    req.VoterID,
		Weight:     req.Weight,
	})
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return mapVoter(voter), nil
}

func (h Handler) AddProposalHandler(
	ctx context.Context,
	callerID string,
	electionID string,
	req httptransport.AddProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Elections.AddProposal(ctx, commands.AddProposalCommand{
		ElectionID:  electionID,
		CallerID:    callerID,
		Name:        req.Name,
		Description: req.Description,
		ImageRef:    req.ImageRef,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) StartVotingHandler(
	ctx context.Context,
	callerID string,
	electionID string,
	req httptransport.StartVotingRequest,
) (httptransport.StartVotingResponse, error) {
	result, err := h.Elections.StartVoting(ctx, commands.StartVotingCommand{
		ElectionID:    electionID,
		CallerID:      callerID,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		return httptransport.StartVotingResponse{}, err
	}
	return httptransport.StartVotingResponse{
		ElectionID: electionID,
		StartTime:  result.StartTime.UTC().Format(time.RFC3339),
		EndTime:    result.EndTime.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) CloseVotingHandler(
	ctx context.Context,
	callerID string,
	electionID string,
) (httptransport.CloseVotingResponse, error) {
	result, err := h.Elections.CloseVoting(ctx, commands.CloseVotingCommand{
		ElectionID: electionID,
		CallerID:   callerID,
	})
	if err != nil {
		return httptransport.CloseVotingResponse{}, err
	}
	return httptransport.CloseVotingResponse{
		ElectionID: electionID,
		ClosedAt:   result.ClosedAt.UTC().Format(time.RFC3339),
		TotalVotes: result.TotalVotes,
	}, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	callerID string,
	electionID string,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Ballots.CastVote(ctx, commands.CastVoteCommand{
		ElectionID:    electionID,
		VoterID:       callerID,
		ProposalIndex: req.ProposalIndex,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		ElectionID:    electionID,
		VoterID:       result.Voter.VoterID,
		ProposalIndex: req.ProposalIndex,
		Weight:        result.Voter.Weight,
		CastAt:        result.CastAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) StatusHandler(ctx context.Context, electionID string) (httptransport.StatusResponse, error) {
	snapshot, err := h.Results.Status(ctx, electionID)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{
		ElectionID:       snapshot.ElectionID,
		Phase:            string(snapshot.Phase),
		IsActive:         snapshot.IsActive,
		TimeRemainingSec: int64(snapshot.TimeRemaining / time.Second),
		TotalProposals:   snapshot.TotalProposals,
		TotalVotes:       snapshot.TotalVotes,
	}, nil
}

func (h Handler) ListProposalsHandler(ctx context.Context, electionID string) (httptransport.ProposalListResponse, error) {
	proposals, err := h.Results.Proposals(ctx, electionID)
	if err != nil {
		return httptransport.ProposalListResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, mapProposal(proposal))
	}
	return httptransport.ProposalListResponse{
		ElectionID: electionID,
		Items:      items,
	}, nil
}

func (h Handler) VoterDetailsHandler(
	ctx context.Context,
	electionID string,
	voterID string,
) (httptransport.VoterResponse, error) {
	voter, err := h.Results.VoterDetails(ctx, electionID, voterID)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return mapVoter(voter), nil
}

func (h Handler) WinnerHandler(ctx context.Context, electionID string) (httptransport.WinnerResponse, error) {
	winner, err := h.Results.Winner(ctx, electionID)
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	return httptransport.WinnerResponse{
		ElectionID: electionID,
		Index:      winner.Index,
		Proposal:   mapProposal(winner.Proposal),
	}, nil
}

func mapElection(election entities.Election) httptransport.ElectionResponse {
	resp := httptransport.ElectionResponse{
		ElectionID:  election.ElectionID,
		AdminID:     election.AdminID,
		Title:       election.Title,
		Description: election.Description,
		Closed:      election.Closed,
		TotalVotes:  election.TotalVotes,
	}
	if election.StartTime != nil {
		resp.StartTime = election.StartTime.UTC().Format(time.RFC3339)
	}
	if election.EndTime != nil {
		resp.EndTime = election.EndTime.UTC().Format(time.RFC3339)
	}
	return resp
}

func mapVoter(voter entities.Voter) httptransport.VoterResponse {
	resp := httptransport.VoterResponse{
		ElectionID: voter.ElectionID,
		VoterID:    voter.VoterID,
		Registered: voter.Registered,
		HasVoted:   voter.HasVoted,
		Weight:     voter.Weight,
	}
	if voter.VotedProposal != nil {
		index := *voter.VotedProposal
		resp.VotedProposal = &index
	}
	return resp
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	return httptransport.ProposalResponse{
		Index:       proposal.Index,
		Name:        proposal.Name,
		Description: proposal.Description,
		ImageRef:    proposal.ImageRef,
		VoteCount:   proposal.VoteCount,
	}
}
