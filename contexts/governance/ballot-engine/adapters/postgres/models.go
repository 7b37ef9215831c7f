package postgresadapter

import (
	"strings"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
)

type electionModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	AdminID     string     `gorm:"column:admin_id"`
	Title       string     `gorm:"column:title"`
	Description string     `gorm:"column:description"`
	StartTime   *time.Time `gorm:"column:start_time"`
	EndTime     *time.Time `gorm:"column:end_time"`
	Closed      bool       `gorm:"column:closed"`
	TotalVotes  uint64     `gorm:"column:total_votes"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) electionModel {
	row := electionModel{
		ID:          strings.TrimSpace(election.ElectionID),
		AdminID:     strings.TrimSpace(election.AdminID),
		Title:       strings.TrimSpace(election.Title),
		Description: election.Description,
		Closed:      election.Closed,
		TotalVotes:  election.TotalVotes,
		CreatedAt:   election.CreatedAt.UTC(),
		UpdatedAt:   election.UpdatedAt.UTC(),
	}
	row.StartTime = normalizeOptionalTime(election.StartTime)
	row.EndTime = normalizeOptionalTime(election.EndTime)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m electionModel) toEntity() entities.Election {
	return entities.Election{
		ElectionID:  m.ID,
		AdminID:     m.AdminID,
		Title:       m.Title,
		Description: m.Description,
		StartTime:   normalizeOptionalTime(m.StartTime),
		EndTime:     normalizeOptionalTime(m.EndTime),
		Closed:      m.Closed,
		TotalVotes:  m.TotalVotes,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type voterModel struct {
	ElectionID    string    `gorm:"column:election_id;primaryKey"`
	VoterID       string    `gorm:"column:voter_id;primaryKey"`
	Registered    bool      `gorm:"column:registered"`
	HasVoted      bool      `gorm:"column:has_voted"`
	VotedProposal *int      `gorm:"column:voted_proposal"`
	Weight        uint64    `gorm:"column:weight"`
	RegisteredAt  time.Time `gorm:"column:registered_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (voterModel) TableName() string {
	return "voters"
}

func voterModelFromEntity(voter entities.Voter) voterModel {
	row := voterModel{
		ElectionID:   strings.TrimSpace(voter.ElectionID),
		VoterID:      strings.TrimSpace(voter.VoterID),
		Registered:   voter.Registered,
		HasVoted:     voter.HasVoted,
		Weight:       voter.Weight,
		RegisteredAt: voter.RegisteredAt.UTC(),
		UpdatedAt:    voter.UpdatedAt.UTC(),
	}
	if voter.VotedProposal != nil {
		index := *voter.VotedProposal
		row.VotedProposal = &index
	}
	if row.RegisteredAt.IsZero() {
		row.RegisteredAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.RegisteredAt
	}
	return row
}

func (m voterModel) toEntity() entities.Voter {
	voter := entities.Voter{
		ElectionID:   m.ElectionID,
		VoterID:      m.VoterID,
		Registered:   m.Registered,
		HasVoted:     m.HasVoted,
		Weight:       m.Weight,
		RegisteredAt: m.RegisteredAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.VotedProposal != nil {
		index := *m.VotedProposal
		voter.VotedProposal = &index
	}
	return voter
}

type proposalModel struct {
	ElectionID  string    `gorm:"column:election_id;primaryKey"`
	Idx         int       `gorm:"column:idx;primaryKey;autoIncrement:false"`
	Name        string    `gorm:"column:name"`
	Description string    `gorm:"column:description"`
	ImageRef    string    `gorm:"column:image_ref"`
	VoteCount   uint64    `gorm:"column:vote_count"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (proposalModel) TableName() string {
	return "proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	row := proposalModel{
		ElectionID:  strings.TrimSpace(proposal.ElectionID),
		Idx:         proposal.Index,
		Name:        strings.TrimSpace(proposal.Name),
		Description: proposal.Description,
		ImageRef:    strings.TrimSpace(proposal.ImageRef),
		VoteCount:   proposal.VoteCount,
		CreatedAt:   proposal.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ElectionID:  m.ElectionID,
		Index:       m.Idx,
		Name:        m.Name,
		Description: m.Description,
		ImageRef:    m.ImageRef,
		VoteCount:   m.VoteCount,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}
