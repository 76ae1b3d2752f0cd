package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// MatchStatus represents the lifecycle state of a match
type MatchStatus string

const (
	MatchStatusCreated          MatchStatus = "created"
	MatchStatusOpen             MatchStatus = "open"
	MatchStatusMatched          MatchStatus = "matched"
	MatchStatusInProgress       MatchStatus = "in_progress"
	MatchStatusSubmissionLocked MatchStatus = "submission_locked"
	MatchStatusJudging          MatchStatus = "judging"
	MatchStatusFinalized        MatchStatus = "finalized"
	MatchStatusArchived         MatchStatus = "archived"
)

// MatchMode represents how the match was arranged
type MatchMode string

const (
	MatchModeRanked     MatchMode = "ranked"
	MatchModeInvite     MatchMode = "invite"
	MatchModeTournament MatchMode = "tournament"
)

// DisputeStatus represents the dispute state of a match result
type DisputeStatus string

const (
	DisputeStatusNone     DisputeStatus = "none"
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// matchTransitions is the canonical forward-only transition table.
// A status not present here is terminal.
var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusCreated:          {MatchStatusOpen, MatchStatusArchived},
	MatchStatusOpen:             {MatchStatusMatched, MatchStatusArchived},
	MatchStatusMatched:          {MatchStatusInProgress, MatchStatusOpen, MatchStatusFinalized, MatchStatusArchived},
	MatchStatusInProgress:       {MatchStatusSubmissionLocked, MatchStatusFinalized},
	MatchStatusSubmissionLocked: {MatchStatusJudging, MatchStatusFinalized},
	MatchStatusJudging:          {MatchStatusFinalized},
	MatchStatusFinalized:        {MatchStatusArchived},
	MatchStatusArchived:         {},
}

// timerTransitions maps a current status to the status a timer firing drives
// it to. Statuses with no entry make a timer firing an invalid transition.
var timerTransitions = map[MatchStatus]MatchStatus{
	MatchStatusInProgress:       MatchStatusSubmissionLocked,
	MatchStatusSubmissionLocked: MatchStatusJudging,
}

// IsValidTransition reports whether from -> to is an edge of the transition table.
func IsValidTransition(from, to MatchStatus) bool {
	for _, next := range matchTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TimerTargetFor returns the status a timer expiration should drive the match
// to from the given status, or false if no timer edge exists.
func TimerTargetFor(from MatchStatus) (MatchStatus, bool) {
	to, ok := timerTransitions[from]
	return to, ok
}

// IsKnownStatus reports whether s is one of the defined match statuses.
func IsKnownStatus(s MatchStatus) bool {
	_, ok := matchTransitions[s]
	return ok
}

// Match represents a head-to-head coding challenge between two participants
type Match struct {
	ID              int64         `db:"id"`
	Status          MatchStatus   `db:"status"`
	Mode            MatchMode     `db:"mode"`
	CreatorID       int64         `db:"creator_id"`
	ChallengeID     string        `db:"challenge_id"`
	StakeAmount     int64         `db:"stake_amount"`
	DurationMinutes int           `db:"duration_minutes"`
	ConfigHash      string        `db:"config_hash"`
	DisputeStatus   DisputeStatus `db:"dispute_status"`
	CreatedAt       time.Time     `db:"created_at"`
	StartAt         *time.Time    `db:"start_at"`
	EndAt           *time.Time    `db:"end_at"`
	LockAt          *time.Time    `db:"lock_at"`
}

// IsActive checks if the match is in a state where play is still possible
func (m *Match) IsActive() bool {
	switch m.Status {
	case MatchStatusMatched, MatchStatusInProgress, MatchStatusSubmissionLocked:
		return true
	}
	return false
}

// CanBeForfeited checks if a participant may still forfeit the match
func (m *Match) CanBeForfeited() bool {
	return m.IsActive()
}

// CanBeCancelled checks if the creator may still cancel the match
func (m *Match) CanBeCancelled() bool {
	return m.Status == MatchStatusCreated || m.Status == MatchStatusOpen
}

// AcceptsSubmissions checks if solution submissions are still accepted
func (m *Match) AcceptsSubmissions() bool {
	return m.Status == MatchStatusInProgress
}

// Duration returns the configured play window
func (m *Match) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}

// ComputeConfigHash fingerprints the challenge, stake and duration so that a
// match's configuration can be compared without reading every column.
func ComputeConfigHash(challengeID string, stakeAmount int64, durationMinutes int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", challengeID, stakeAmount, durationMinutes)))
	return hex.EncodeToString(sum[:])
}
