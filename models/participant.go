package models

import "time"

// Seat identifies which side of a match a participant occupies
type Seat string

const (
	SeatA Seat = "A"
	SeatB Seat = "B"
)

// MatchParticipant represents one of the (at most two) players of a match
type MatchParticipant struct {
	ID           int64      `db:"id"`
	MatchID      int64      `db:"match_id"`
	UserID       int64      `db:"user_id"`
	Seat         Seat       `db:"seat"`
	JoinedAt     time.Time  `db:"joined_at"`
	ReadyAt      *time.Time `db:"ready_at"`
	SubmissionID *string    `db:"submission_id"`
	ForfeitAt    *time.Time `db:"forfeit_at"`
}

// IsReady checks if the participant has marked themselves ready
func (p *MatchParticipant) IsReady() bool {
	return p.ReadyAt != nil
}

// HasForfeited checks if the participant has already forfeited
func (p *MatchParticipant) HasForfeited() bool {
	return p.ForfeitAt != nil
}

// OpponentOf returns the other participant in the pair, or nil when the user
// is not among them or no opponent has joined yet.
func OpponentOf(participants []*MatchParticipant, userID int64) *MatchParticipant {
	var found bool
	var opponent *MatchParticipant
	for _, p := range participants {
		if p.UserID == userID {
			found = true
		} else {
			opponent = p
		}
	}
	if !found {
		return nil
	}
	return opponent
}

// ParticipantFor returns the participant row for the given user, or nil.
func ParticipantFor(participants []*MatchParticipant, userID int64) *MatchParticipant {
	for _, p := range participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}
