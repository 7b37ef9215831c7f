package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the durable ledger store. Every conditional mutation is a
// guarded UPDATE or a single transaction, so the atomic read-modify-write
// contract holds without any engine-side locking.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateElection(ctx context.Context, election entities.Election) error {
	row := electionModelFromEntity(election)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ballot_repo_create_election_failed", err,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("ballot_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) OpenWindow(ctx context.Context, electionID string, startsAt time.Time, endsAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&electionModel{}).
		Where("id = ?", strings.TrimSpace(electionID)).
		Where("start_time IS NULL").
		Updates(map[string]any{
			"start_time": startsAt.UTC(),
			"end_time":   endsAt.UTC(),
			"updated_at": startsAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_open_window_failed", result.Error,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetElection(ctx, electionID); err != nil {
			return err
		}
		return domainerrors.ErrAlreadyStarted
	}
	return nil
}

func (r *Repository) CloseWindow(ctx context.Context, electionID string, closedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&electionModel{}).
		Where("id = ?", strings.TrimSpace(electionID)).
		Where("closed = ?", false).
		Updates(map[string]any{
			"closed":     true,
			"updated_at": closedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_close_window_failed", result.Error,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetElection(ctx, electionID); err != nil {
			return err
		}
		return domainerrors.ErrAlreadyClosed
	}
	return nil
}

func (r *Repository) RegisterVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModelFromEntity(voter)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyRegistered
		}
		return r.logError("ballot_repo_register_voter_failed", err,
			"election_id", strings.TrimSpace(voter.ElectionID),
			"voter_id", strings.TrimSpace(voter.VoterID),
		)
	}
	return nil
}

func (r *Repository) GetVoter(ctx context.Context, electionID string, voterID string) (entities.Voter, bool, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("ballot_repo_get_voter_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toEntity(), true, nil
}

// AppendProposal assigns the next catalog index under a row lock on the
// election, so concurrent appends never collide on an index.
func (r *Repository) AppendProposal(ctx context.Context, proposal entities.Proposal) (int, error) {
	electionID := strings.TrimSpace(proposal.ElectionID)
	var assigned int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var election electionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", electionID).
			First(&election).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&proposalModel{}).
			Where("election_id = ?", electionID).
			Count(&count).Error; err != nil {
			return err
		}

		row := proposalModelFromEntity(proposal)
		row.Idx = int(count)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		assigned = row.Idx
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) {
			return 0, err
		}
		return 0, r.logError("ballot_repo_append_proposal_failed", err,
			"election_id", electionID,
		)
	}
	return assigned, nil
}

func (r *Repository) GetProposal(ctx context.Context, electionID string, index int) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("idx = ?", index).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrInvalidProposal
		}
		return entities.Proposal{}, r.logError("ballot_repo_get_proposal_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"proposal_index", index,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListProposals(ctx context.Context, electionID string) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("idx ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_proposals_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountProposals(ctx context.Context, electionID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&proposalModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("ballot_repo_count_proposals_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return int(count), nil
}

// ApplyBallot runs the three tally writes in one transaction with guarded
// conditions, so a concurrent duplicate ballot rolls back with the precise
// domain error and no partial tally is ever visible.
func (r *Repository) ApplyBallot(ctx context.Context, ballot entities.Ballot) error {
	electionID := strings.TrimSpace(ballot.ElectionID)
	voterID := strings.TrimSpace(ballot.VoterID)
	castAt := ballot.CastAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voterUpdate := tx.Model(&voterModel{}).
			Where("election_id = ?", electionID).
			Where("voter_id = ?", voterID).
			Where("registered = ?", true).
			Where("has_voted = ?", false).
			Updates(map[string]any{
				"has_voted":      true,
				"voted_proposal": ballot.ProposalIndex,
				"updated_at":     castAt,
			})
		if voterUpdate.Error != nil {
			return voterUpdate.Error
		}
		if voterUpdate.RowsAffected == 0 {
			var voter voterModel
			err := tx.Where("election_id = ?", electionID).
				Where("voter_id = ?", voterID).
				First(&voter).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrVoterNotRegistered
			}
			if err != nil {
				return err
			}
			if !voter.Registered {
				return domainerrors.ErrVoterNotRegistered
			}
			return domainerrors.ErrAlreadyVoted
		}

		tallyUpdate := tx.Model(&proposalModel{}).
			Where("election_id = ?", electionID).
			Where("idx = ?", ballot.ProposalIndex).
			Update("vote_count", gorm.Expr("vote_count + ?", ballot.Weight))
		if tallyUpdate.Error != nil {
			return tallyUpdate.Error
		}
		if tallyUpdate.RowsAffected == 0 {
			return domainerrors.ErrInvalidProposal
		}

		totalUpdate := tx.Model(&electionModel{}).
			Where("id = ?", electionID).
			Updates(map[string]any{
				"total_votes": gorm.Expr("total_votes + ?", ballot.Weight),
				"updated_at":  castAt,
			})
		if totalUpdate.Error != nil {
			return totalUpdate.Error
		}
		if totalUpdate.RowsAffected == 0 {
			return domainerrors.ErrElectionNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrVoterNotRegistered) ||
			errors.Is(err, domainerrors.ErrAlreadyVoted) ||
			errors.Is(err, domainerrors.ErrInvalidProposal) ||
			errors.Is(err, domainerrors.ErrElectionNotFound) {
			return err
		}
		return r.logError("ballot_repo_apply_ballot_failed", err,
			"election_id", electionID,
			"voter_id", voterID,
			"proposal_index", ballot.ProposalIndex,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		ID:           strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ballot_repo_append_outbox_failed", err,
			"event_id", row.ID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	published := publishedAt.UTC()
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", strings.TrimSpace(outboxID)).
		Where("status = ?", outboxStatusPending).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &published,
		})
	if result.Error != nil {
		return r.logError("ballot_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/ballot-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
