// Package rating implements the Glicko-2 skill rating system together with
// the tier and stake-cap derivations built on top of it. The package is pure
// computation; persistence and orchestration live in the service layer.
package rating

import "math"

const (
	// glickoScale converts between the public 1500-based scale and the
	// internal mu/phi scale.
	glickoScale = 173.7178

	// DeviationCeiling is the maximum rating deviation; new and long-inactive
	// players sit at this value.
	DeviationCeiling = 350.0

	// DefaultTau constrains volatility change per update. 0.5 is the value
	// recommended by the Glicko-2 paper for most systems.
	DefaultTau = 0.5

	convergenceTolerance = 1e-6
	maxIterations        = 100
)

// Player is a Glicko-2 triple on the public scale.
type Player struct {
	Rating     float64
	Deviation  float64
	Volatility float64
}

// NewPlayer returns the standard unrated starting values.
func NewPlayer() Player {
	return Player{Rating: 1500, Deviation: DeviationCeiling, Volatility: 0.06}
}

// Result is one game outcome against a single opponent, with the opponent's
// values snapshotted from before the game. Score must be 1 (win), 0.5 (draw)
// or 0 (loss).
type Result struct {
	Opponent Player
	Score    float64
}

func toInternal(p Player) (mu, phi float64) {
	return (p.Rating - 1500.0) / glickoScale, p.Deviation / glickoScale
}

func fromInternal(mu, phi float64) (r, rd float64) {
	return mu*glickoScale + 1500.0, phi * glickoScale
}

// g is the deviation weighting function from the Glicko-2 paper.
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

// expectedScore is E(mu, mu_j, phi_j): the expected outcome against one opponent.
func expectedScore(mu, muJ, phiJ float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phiJ)*(mu-muJ)))
}

// Update runs one Glicko-2 rating-period update for a player with the given
// results and returns the new triple. With no results the player's deviation
// grows one period instead (the "no games" step of the paper). The input is
// never mutated, so both sides of a match can be updated from pre-match
// snapshots in either order.
func Update(p Player, results []Result, tau float64) Player {
	if len(results) == 0 {
		return AgeByPeriods(p, 1)
	}

	mu, phi := toInternal(p)

	// Estimated variance and improvement delta across all results.
	var varianceInv float64
	var improvement float64
	for _, res := range results {
		muJ, phiJ := toInternal(res.Opponent)
		gJ := g(phiJ)
		e := expectedScore(mu, muJ, phiJ)
		varianceInv += gJ * gJ * e * (1.0 - e)
		improvement += gJ * (res.Score - e)
	}
	v := 1.0 / varianceInv
	delta := v * improvement

	sigma := solveVolatility(phi, v, delta, p.Volatility, tau)

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiNew := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muNew := mu + phiNew*phiNew*improvement

	newRating, newDeviation := fromInternal(muNew, phiNew)
	if newDeviation > DeviationCeiling {
		newDeviation = DeviationCeiling
	}

	return Player{Rating: newRating, Deviation: newDeviation, Volatility: sigma}
}

// solveVolatility finds the new volatility via the iterative convergence
// procedure of the Glicko-2 paper (Illinois variant of regula falsi).
func solveVolatility(phi, v, delta, sigma, tau float64) float64 {
	a := math.Log(sigma * sigma)
	phi2 := phi * phi
	delta2 := delta * delta

	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta2 - phi2 - v - ex)
		den := 2.0 * (phi2 + v + ex) * (phi2 + v + ex)
		return num/den - (x-a)/(tau*tau)
	}

	bigA := a
	var bigB float64
	if delta2 > phi2+v {
		bigB = math.Log(delta2 - phi2 - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		bigB = a - k*tau
	}

	fA := f(bigA)
	fB := f(bigB)
	for i := 0; i < maxIterations && math.Abs(bigB-bigA) > convergenceTolerance; i++ {
		bigC := bigA + (bigA-bigB)*fA/(fB-fA)
		fC := f(bigC)
		if fC*fB <= 0 {
			bigA = bigB
			fA = fB
		} else {
			fA = fA / 2.0
		}
		bigB = bigC
		fB = fC
	}

	return math.Exp(bigA / 2.0)
}

// AgeByPeriods grows the player's deviation for the given number of missed
// rating periods, capped at the ceiling. Rating and volatility are untouched.
func AgeByPeriods(p Player, missedPeriods int) Player {
	if missedPeriods <= 0 {
		return p
	}
	_, phi := toInternal(p)
	for i := 0; i < missedPeriods; i++ {
		phi = math.Sqrt(phi*phi + p.Volatility*p.Volatility)
	}
	_, rd := fromInternal(0, phi)
	if rd > DeviationCeiling {
		rd = DeviationCeiling
	}
	out := p
	out.Deviation = rd
	return out
}
