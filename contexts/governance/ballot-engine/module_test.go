package ballotengine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ballotengine "quorum/contexts/governance/ballot-engine"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	httptransport "quorum/contexts/governance/ballot-engine/transport/http"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestModule(t *testing.T) (ballotengine.Module, *stepClock) {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return ballotengine.NewInMemoryModuleWithClock(clock, nil), clock
}

func createElection(t *testing.T, module ballotengine.Module, adminID string) string {
	t.Helper()
	election, err := module.Handler.CreateElectionHandler(context.Background(), adminID, httptransport.CreateElectionRequest{
		Title: "Community Treasury Vote",
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	return election.ElectionID
}

func TestWeightedVoteLifecycle(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	if _, err := module.Handler.RegisterVoterHandler(ctx, "admin-1", electionID, httptransport.RegisterVoterRequest{
		VoterID: "alice", Weight: 1,
	}); err != nil {
		t.Fatalf("register alice failed: %v", err)
	}
	if _, err := module.Handler.RegisterVoterHandler(ctx, "admin-1", electionID, httptransport.RegisterVoterRequest{
		VoterID: "bob", Weight: 3,
	}); err != nil {
		t.Fatalf("register bob failed: %v", err)
	}
	for _, name := range []string{"Fund audits", "Fund grants"} {
		if _, err := module.Handler.AddProposalHandler(ctx, "admin-1", electionID, httptransport.AddProposalRequest{Name: name}); err != nil {
			t.Fatalf("add proposal %q failed: %v", name, err)
		}
	}

	started, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 2})
	if err != nil {
		t.Fatalf("start voting failed: %v", err)
	}
	if started.EndTime != clock.now.Add(2*time.Hour).Format(time.RFC3339) {
		t.Fatalf("unexpected end time %s", started.EndTime)
	}

	cast, err := module.Handler.CastVoteHandler(ctx, "alice", electionID, httptransport.CastVoteRequest{ProposalIndex: 0})
	if err != nil {
		t.Fatalf("alice vote failed: %v", err)
	}
	if cast.Weight != 1 {
		t.Fatalf("expected alice weight 1, got %d", cast.Weight)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "bob", electionID, httptransport.CastVoteRequest{ProposalIndex: 1}); err != nil {
		t.Fatalf("bob vote failed: %v", err)
	}

	status, err := module.Handler.StatusHandler(ctx, electionID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.TotalVotes != 4 {
		t.Fatalf("expected total votes 4, got %d", status.TotalVotes)
	}
	if status.Phase != "open" || !status.IsActive {
		t.Fatalf("expected open active phase, got %s active=%v", status.Phase, status.IsActive)
	}

	clock.Advance(3 * time.Hour)
	closed, err := module.Handler.CloseVotingHandler(ctx, "admin-1", electionID)
	if err != nil {
		t.Fatalf("close voting failed: %v", err)
	}
	if closed.TotalVotes != 4 {
		t.Fatalf("expected close total 4, got %d", closed.TotalVotes)
	}

	winner, err := module.Handler.WinnerHandler(ctx, electionID)
	if err != nil {
		t.Fatalf("winner failed: %v", err)
	}
	if winner.Index != 1 || winner.Proposal.VoteCount != 3 {
		t.Fatalf("expected proposal 1 with count 3, got index %d count %d", winner.Index, winner.Proposal.VoteCount)
	}

	voter, err := module.Handler.VoterDetailsHandler(ctx, electionID, "bob")
	if err != nil {
		t.Fatalf("voter details failed: %v", err)
	}
	if !voter.HasVoted || voter.VotedProposal == nil || *voter.VotedProposal != 1 {
		t.Fatalf("expected bob voted for proposal 1, got %+v", voter)
	}
}

func TestSecondVoteRejectedWithoutTallyChange(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	if _, err := module.Handler.RegisterVoterHandler(ctx, "admin-1", electionID, httptransport.RegisterVoterRequest{VoterID: "alice", Weight: 7}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := module.Handler.AddProposalHandler(ctx, "admin-1", electionID, httptransport.AddProposalRequest{Name: "Only option"}); err != nil {
		t.Fatalf("add proposal failed: %v", err)
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 1}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", electionID, httptransport.CastVoteRequest{ProposalIndex: 0}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", electionID, httptransport.CastVoteRequest{ProposalIndex: 0}); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	status, err := module.Handler.StatusHandler(ctx, electionID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.TotalVotes != 7 {
		t.Fatalf("expected unchanged total 7, got %d", status.TotalVotes)
	}
}

func TestVotingWindowBoundaries(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	if _, err := module.Handler.RegisterVoterHandler(ctx, "admin-1", electionID, httptransport.RegisterVoterRequest{VoterID: "alice", Weight: 1}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := module.Handler.AddProposalHandler(ctx, "admin-1", electionID, httptransport.AddProposalRequest{Name: "Option"}); err != nil {
		t.Fatalf("add proposal failed: %v", err)
	}

	// Before the window opens, casting is rejected.
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", electionID, httptransport.CastVoteRequest{ProposalIndex: 0}); !errors.Is(err, domainerrors.ErrVotingNotActive) {
		t.Fatalf("expected ErrVotingNotActive before start, got %v", err)
	}

	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 2}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// The endpoint instant is still inside the window.
	clock.Advance(2 * time.Hour)
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", electionID, httptransport.CastVoteRequest{ProposalIndex: 0}); err != nil {
		t.Fatalf("vote at exact end time failed: %v", err)
	}

	module2, clock2 := newTestModule(t)
	electionID2 := createElection(t, module2, "admin-1")
	if _, err := module2.Handler.RegisterVoterHandler(ctx, "admin-1", electionID2, httptransport.RegisterVoterRequest{VoterID: "alice", Weight: 1}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := module2.Handler.AddProposalHandler(ctx, "admin-1", electionID2, httptransport.AddProposalRequest{Name: "Option"}); err != nil {
		t.Fatalf("add proposal failed: %v", err)
	}
	if _, err := module2.Handler.StartVotingHandler(ctx, "admin-1", electionID2, httptransport.StartVotingRequest{DurationHours: 2}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock2.Advance(2*time.Hour + time.Second)
	if _, err := module2.Handler.CastVoteHandler(ctx, "alice", electionID2, httptransport.CastVoteRequest{ProposalIndex: 0}); !errors.Is(err, domainerrors.ErrVotingNotActive) {
		t.Fatalf("expected ErrVotingNotActive after end, got %v", err)
	}
}

func TestWindowOpensAndClosesExactlyOnce(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 0}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero duration, got %v", err)
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 1}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 1}); !errors.Is(err, domainerrors.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	if _, err := module.Handler.CloseVotingHandler(ctx, "admin-1", electionID); !errors.Is(err, domainerrors.ErrVotingNotEnded) {
		t.Fatalf("expected ErrVotingNotEnded before elapse, got %v", err)
	}
	clock.Advance(90 * time.Minute)
	if _, err := module.Handler.CloseVotingHandler(ctx, "admin-1", electionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := module.Handler.CloseVotingHandler(ctx, "admin-1", electionID); !errors.Is(err, domainerrors.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestAdminOnlyCommands(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	if _, err := module.Handler.RegisterVoterHandler(ctx, "mallory", electionID, httptransport.RegisterVoterRequest{VoterID: "alice", Weight: 1}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for register, got %v", err)
	}
	if _, err := module.Handler.AddProposalHandler(ctx, "mallory", electionID, httptransport.AddProposalRequest{Name: "Option"}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for add proposal, got %v", err)
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "mallory", electionID, httptransport.StartVotingRequest{DurationHours: 1}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for start, got %v", err)
	}
	if _, err := module.Handler.CloseVotingHandler(ctx, "mallory", electionID); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for close, got %v", err)
	}
}

func TestEligibilityAndProposalRange(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	if _, err := module.Handler.RegisterVoterHandler(ctx, "admin-1", electionID, httptransport.RegisterVoterRequest{VoterID: "alice", Weight: 2}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := module.Handler.RegisterVoterHandler(ctx, "admin-1", electionID, httptransport.RegisterVoterRequest{VoterID: "alice", Weight: 5}); !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if _, err := module.Handler.AddProposalHandler(ctx, "admin-1", electionID, httptransport.AddProposalRequest{Name: "Option"}); err != nil {
		t.Fatalf("add proposal failed: %v", err)
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 1}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := module.Handler.CastVoteHandler(ctx, "stranger", electionID, httptransport.CastVoteRequest{ProposalIndex: 0}); !errors.Is(err, domainerrors.ErrVoterNotRegistered) {
		t.Fatalf("expected ErrVoterNotRegistered, got %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", electionID, httptransport.CastVoteRequest{ProposalIndex: 5}); !errors.Is(err, domainerrors.ErrInvalidProposal) {
		t.Fatalf("expected ErrInvalidProposal, got %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", electionID, httptransport.CastVoteRequest{ProposalIndex: -1}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative index, got %v", err)
	}
}

func TestWinnerTieResolvesToLowestIndex(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	weights := map[string]uint64{"a": 5, "b": 5, "c": 3}
	for voterID, weight := range weights {
		if _, err := module.Handler.RegisterVoterHandler(ctx, "admin-1", electionID, httptransport.RegisterVoterRequest{VoterID: voterID, Weight: weight}); err != nil {
			t.Fatalf("register %s failed: %v", voterID, err)
		}
	}
	for _, name := range []string{"First", "Second", "Third"} {
		if _, err := module.Handler.AddProposalHandler(ctx, "admin-1", electionID, httptransport.AddProposalRequest{Name: name}); err != nil {
			t.Fatalf("add proposal failed: %v", err)
		}
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 1}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	votes := map[string]int{"a": 0, "b": 1, "c": 2}
	for voterID, index := range votes {
		if _, err := module.Handler.CastVoteHandler(ctx, voterID, electionID, httptransport.CastVoteRequest{ProposalIndex: index}); err != nil {
			t.Fatalf("vote %s failed: %v", voterID, err)
		}
	}

	if _, err := module.Handler.WinnerHandler(ctx, electionID); !errors.Is(err, domainerrors.ErrVotingNotEnded) {
		t.Fatalf("expected ErrVotingNotEnded before elapse, got %v", err)
	}

	clock.Advance(2 * time.Hour)
	winner, err := module.Handler.WinnerHandler(ctx, electionID)
	if err != nil {
		t.Fatalf("winner failed: %v", err)
	}
	if winner.Index != 0 {
		t.Fatalf("expected tie to resolve to index 0, got %d", winner.Index)
	}
}

func TestWinnerWithNoBallotsIsFirstProposal(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	for _, name := range []string{"First", "Second"} {
		if _, err := module.Handler.AddProposalHandler(ctx, "admin-1", electionID, httptransport.AddProposalRequest{Name: name}); err != nil {
			t.Fatalf("add proposal failed: %v", err)
		}
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "admin-1", electionID, httptransport.StartVotingRequest{DurationHours: 1}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock.Advance(2 * time.Hour)

	winner, err := module.Handler.WinnerHandler(ctx, electionID)
	if err != nil {
		t.Fatalf("winner failed: %v", err)
	}
	if winner.Index != 0 || winner.Proposal.VoteCount != 0 {
		t.Fatalf("expected zero-tally winner at index 0, got %+v", winner)
	}
}

func TestVoterDetailsDefaultsForUnknownIdentity(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	voter, err := module.Handler.VoterDetailsHandler(ctx, electionID, "nobody")
	if err != nil {
		t.Fatalf("voter details failed: %v", err)
	}
	if voter.Registered || voter.HasVoted || voter.Weight != 0 || voter.VotedProposal != nil {
		t.Fatalf("expected default voter record, got %+v", voter)
	}

	if _, err := module.Handler.VoterDetailsHandler(ctx, "missing-election", "nobody"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected ErrElectionNotFound, got %v", err)
	}
}

func TestProposalsAppendInOrder(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	electionID := createElection(t, module, "admin-1")

	names := []string{"First", "Second", "Third"}
	for i, name := range names {
		proposal, err := module.Handler.AddProposalHandler(ctx, "admin-1", electionID, httptransport.AddProposalRequest{Name: name})
		if err != nil {
			t.Fatalf("add proposal failed: %v", err)
		}
		if proposal.Index != i {
			t.Fatalf("expected index %d, got %d", i, proposal.Index)
		}
	}

	listed, err := module.Handler.ListProposalsHandler(ctx, electionID)
	if err != nil {
		t.Fatalf("list proposals failed: %v", err)
	}
	if len(listed.Items) != len(names) {
		t.Fatalf("expected %d proposals, got %d", len(names), len(listed.Items))
	}
	for i, item := range listed.Items {
		if item.Index != i || item.Name != names[i] {
			t.Fatalf("unexpected proposal at %d: %+v", i, item)
		}
	}
}
