package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateElectionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type ElectionResponse struct {
	ElectionID  string `json:"election_id"`
	AdminID     string `json:"admin_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Closed      bool   `json:"closed"`
	TotalVotes  uint64 `json:"total_votes"`
}

type RegisterVoterRequest struct {
	VoterID string `json:"voter_id"`
	Weight  uint64 `json:"weight"`
}

type VoterResponse struct {
	ElectionID    string `json:"election_id"`
	VoterID       string `json:"voter_id"`
	Registered    bool   `json:"registered"`
	HasVoted      bool   `json:"has_voted"`
	VotedProposal *int   `json:"voted_proposal,omitempty"`
	Weight        uint64 `json:"weight"`
}

type AddProposalRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
}

type ProposalResponse struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	VoteCount   uint64 `json:"vote_count"`
}

type ProposalListResponse struct {
	ElectionID string             `json:"election_id"`
	Items      []ProposalResponse `json:"items"`
}

type StartVotingRequest struct {
	DurationHours uint64 `json:"duration_hours"`
}

type StartVotingResponse struct {
	ElectionID string `json:"election_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type CloseVotingResponse struct {
	ElectionID string `json:"election_id"`
	ClosedAt   string `json:"closed_at"`
	TotalVotes uint64 `json:"total_votes"`
}

type CastVoteRequest struct {
	ProposalIndex int `json:"proposal_index"`
}

type CastVoteResponse struct {
	ElectionID    string `json:"election_id"`
	VoterID       string `json:"voter_id"`
	ProposalIndex int    `json:"proposal_index"`
	Weight        uint64 `json:"weight"`
	CastAt        string `json:"cast_at"`
}

type StatusResponse struct {
	ElectionID       string `json:"election_id"`
	Phase            string `json:"phase"`
	IsActive         bool   `json:"is_active"`
	TimeRemainingSec int64  `json:"time_remaining_seconds"`
	TotalProposals   int    `json:"total_proposals"`
	TotalVotes       uint64 `json:"total_votes"`
}

type WinnerResponse struct {
	ElectionID string           `json:"election_id"`
	Index      int              `json:"index"`
	Proposal   ProposalResponse `json:"proposal"`
}
