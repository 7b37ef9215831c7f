package entities

import "time"

// Phase is derived from election timestamps and the clock, never stored.
type Phase string

const (
	PhaseSetup  Phase = "setup"
	PhaseOpen   Phase = "open"
	PhaseClosed Phase = "closed"
)

// Election is the session record for one voting event. The administrator is
// fixed at creation; StartTime is set at most once and EndTime is always
// StartTime plus the configured duration.
type Election struct {
	ElectionID  string
	AdminID     string
	Title       string
	Description string
	StartTime   *time.Time
	EndTime     *time.Time
	Closed      bool
	TotalVotes  uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Phase derives the lifecycle phase at the supplied instant. An elapsed but
// not yet explicitly closed window still reports PhaseClosed: voters observe
// it as inactive even before the administrator calls close.
func (e Election) Phase(now time.Time) Phase {
	if e.StartTime == nil {
		return PhaseSetup
	}
	if e.Closed || now.After(e.EndTime.UTC()) {
		return PhaseClosed
	}
	if now.Before(e.StartTime.UTC()) {
		return PhaseSetup
	}
	return PhaseOpen
}

// IsOpen reports whether ballots are accepted at the supplied instant.
// The upper bound is inclusive: a ballot cast exactly at EndTime counts.
func (e Election) IsOpen(now time.Time) bool {
	return e.Phase(now) == PhaseOpen
}

// Elapsed reports whether the voting window has passed. Close and winner
// queries require strictly after EndTime.
func (e Election) Elapsed(now time.Time) bool {
	return e.EndTime != nil && now.After(e.EndTime.UTC())
}

// TimeRemaining is the wall time left in the window, zero once elapsed or
// before the window is opened.
func (e Election) TimeRemaining(now time.Time) time.Duration {
	if e.EndTime == nil {
		return 0
	}
	remaining := e.EndTime.UTC().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Voter is an identity-keyed registration record. It is created once by the
// administrator and mutated exactly once when the ballot is cast.
type Voter struct {
	ElectionID    string
	VoterID       string
	Registered    bool
	HasVoted      bool
	VotedProposal *int
	Weight        uint64
	RegisteredAt  time.Time
	UpdatedAt     time.Time
}

// Proposal is an append-only catalog entry identified by its index, which is
// stable once assigned. VoteCount only ever grows and only through ballots.
type Proposal struct {
	ElectionID  string
	Index       int
	Name        string
	Description string
	ImageRef    string
	VoteCount   uint64
	CreatedAt   time.Time
}

// Ballot is the write-model unit applied atomically by the ledger store:
// voter marked voted, proposal tally and election total bumped by Weight.
type Ballot struct {
	ElectionID    string
	VoterID       string
	ProposalIndex int
	Weight        uint64
	CastAt        time.Time
}

// WinningProposal pairs the deterministic winner with its catalog index.
type WinningProposal struct {
	Index    int
	Proposal Proposal
}
