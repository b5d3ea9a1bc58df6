package bandit

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// sampleBeta draws from Beta(alpha, beta) and scales the draw to [0, 100].
func sampleBeta(alpha, beta float64, rng *rand.Rand) float64 {
	d := distuv.Beta{Alpha: alpha, Beta: beta, Src: rng}
	v := d.Rand()
	if math.IsNaN(v) {
		v = d.Mean()
	}
	return clamp(v, 0, 1) * 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func validDelta(delta float64) bool {
	return delta > 0 && !math.IsNaN(delta) && !math.IsInf(delta, 0)
}

// ValidDelta reports whether delta is a positive, finite increment.
// Counter stores use it to reject writes that would break alpha, beta > 0.
func ValidDelta(delta float64) bool {
	return validDelta(delta)
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
