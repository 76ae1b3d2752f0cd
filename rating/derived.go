package rating

import "math"

// Tier is a display band derived from rating
type Tier string

const (
	TierUnranked Tier = "unranked"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
	TierMaster   Tier = "master"
)

// TierFor maps rating to a tier. Players below the season's minimum game
// count stay unranked regardless of rating.
func TierFor(ratingValue float64, gamesPlayed, minGames int) Tier {
	if gamesPlayed < minGames {
		return TierUnranked
	}
	switch {
	case ratingValue >= 2200:
		return TierMaster
	case ratingValue >= 2000:
		return TierDiamond
	case ratingValue >= 1800:
		return TierPlatinum
	case ratingValue >= 1600:
		return TierGold
	case ratingValue >= 1400:
		return TierSilver
	default:
		return TierBronze
	}
}

// ConfidenceInterval returns the 95% interval around the player's rating.
func ConfidenceInterval(p Player) (low, high float64) {
	margin := 1.96 * p.Deviation
	return p.Rating - margin, p.Rating + margin
}

// StakeCap bounds the maximum stake a player may place on a match. It grows
// with rating and shrinks with deviation, so uncertain ratings cannot stake
// large amounts. Monotonic: higher rating never lowers the cap, higher
// deviation never raises it.
func StakeCap(ratingValue, deviation float64) int64 {
	// Conservative rating: lower bound of the confidence interval, floored
	// so new players still get the base cap.
	conservative := ratingValue - 1.96*deviation
	if conservative < 0 {
		conservative = 0
	}

	base := 50.0
	limit := base + conservative/4.0
	return int64(math.Floor(limit))
}
