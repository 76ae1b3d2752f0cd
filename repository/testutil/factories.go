package testutil

import (
	"codeclash/models"
)

// CreateTestMatch builds an unsaved match with sensible defaults
func CreateTestMatch(creatorID int64, status models.MatchStatus) *models.Match {
	return &models.Match{
		Status:          status,
		Mode:            models.MatchModeRanked,
		CreatorID:       creatorID,
		ChallengeID:     "two-sum",
		StakeAmount:     100,
		DurationMinutes: 60,
		ConfigHash:      models.ComputeConfigHash("two-sum", 100, 60),
		DisputeStatus:   models.DisputeStatusNone,
	}
}

// CreateTestMatchWithStake builds an unsaved match with a specific stake
func CreateTestMatchWithStake(creatorID int64, status models.MatchStatus, stake int64) *models.Match {
	match := CreateTestMatch(creatorID, status)
	match.StakeAmount = stake
	match.ConfigHash = models.ComputeConfigHash(match.ChallengeID, stake, match.DurationMinutes)
	return match
}

// CreateTestParticipant builds an unsaved participant row
func CreateTestParticipant(matchID, userID int64, seat models.Seat) *models.MatchParticipant {
	return &models.MatchParticipant{
		MatchID: matchID,
		UserID:  userID,
		Seat:    seat,
	}
}

// CreateTestHold builds an unsaved active hold
func CreateTestHold(accountID, matchID, amount int64) *models.CreditHold {
	return &models.CreditHold{
		AccountID:      accountID,
		MatchID:        matchID,
		AmountReserved: amount,
	}
}
