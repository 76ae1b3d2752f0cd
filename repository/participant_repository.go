package repository

import (
	"context"
	"fmt"
	"time"

	"codeclash/database"
	"codeclash/models"
	"github.com/jackc/pgx/v5"
)

// ParticipantRepository implements the ParticipantRepository interface
type ParticipantRepository struct {
	q queryable
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *database.DB) *ParticipantRepository {
	return &ParticipantRepository{q: db.Pool}
}

func newParticipantRepositoryWithTx(tx queryable) *ParticipantRepository {
	return &ParticipantRepository{q: tx}
}

const participantColumns = `
	id, match_id, user_id, seat, joined_at, ready_at, submission_id, forfeit_at
`

func scanParticipant(row pgx.Row) (*models.MatchParticipant, error) {
	var p models.MatchParticipant
	err := row.Scan(
		&p.ID,
		&p.MatchID,
		&p.UserID,
		&p.Seat,
		&p.JoinedAt,
		&p.ReadyAt,
		&p.SubmissionID,
		&p.ForfeitAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new participant row. The unique (match, seat) and
// (match, user) constraints reject double seating.
func (r *ParticipantRepository) Create(ctx context.Context, participant *models.MatchParticipant) error {
	query := `
		INSERT INTO match_participants (match_id, user_id, seat)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`

	err := r.q.QueryRow(ctx, query,
		participant.MatchID,
		participant.UserID,
		participant.Seat,
	).Scan(&participant.ID, &participant.JoinedAt)

	if err != nil {
		return fmt.Errorf("failed to create participant for match %d: %w", participant.MatchID, err)
	}

	return nil
}

// GetByMatch returns all participants of a match ordered by seat
func (r *ParticipantRepository) GetByMatch(ctx context.Context, matchID int64) ([]*models.MatchParticipant, error) {
	query := `SELECT` + participantColumns + `FROM match_participants WHERE match_id = $1 ORDER BY seat`

	rows, err := r.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var participants []*models.MatchParticipant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// GetByMatchAndUser returns the participant row for a user, or nil
func (r *ParticipantRepository) GetByMatchAndUser(ctx context.Context, matchID, userID int64) (*models.MatchParticipant, error) {
	query := `SELECT` + participantColumns + `FROM match_participants WHERE match_id = $1 AND user_id = $2`

	p, err := scanParticipant(r.q.QueryRow(ctx, query, matchID, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant for match %d user %d: %w", matchID, userID, err)
	}

	return p, nil
}

// SetReady stamps ready_at once; a second call returns false
func (r *ParticipantRepository) SetReady(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE match_participants
		SET ready_at = $1
		WHERE id = $2 AND ready_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to set ready for participant %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// SetForfeit stamps forfeit_at once; a second call returns false
func (r *ParticipantRepository) SetForfeit(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE match_participants
		SET forfeit_at = $1
		WHERE id = $2 AND forfeit_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to set forfeit for participant %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// SetSubmission records the external submission service's id
func (r *ParticipantRepository) SetSubmission(ctx context.Context, id int64, submissionID string) error {
	query := `
		UPDATE match_participants
		SET submission_id = $1
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, submissionID, id)
	if err != nil {
		return fmt.Errorf("failed to set submission for participant %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %d not found", id)
	}

	return nil
}
