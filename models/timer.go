package models

import (
	"time"

	"github.com/google/uuid"
)

// TimerJob is a durable scheduled transition. One unfired job may exist per
// (match, target status) pair; jobs are kept after firing for audit.
type TimerJob struct {
	ID        uuid.UUID   `db:"id"`
	MatchID   int64       `db:"match_id"`
	ToStatus  MatchStatus `db:"to_status"`
	FireAt    time.Time   `db:"fire_at"`
	FiredAt   *time.Time  `db:"fired_at"`
	CreatedAt time.Time   `db:"created_at"`
}

// IsPending checks if the job has not fired yet
func (j *TimerJob) IsPending() bool {
	return j.FiredAt == nil
}

// IsDue checks if the job's deadline has passed at the given instant
func (j *TimerJob) IsDue(now time.Time) bool {
	return !j.FireAt.After(now)
}
