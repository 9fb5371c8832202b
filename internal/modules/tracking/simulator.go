// README: Pull-driven movement simulator. Each poll moves the rider a fixed fraction closer.
package tracking

import (
	"vetrimart/internal/modules/geo"
	"vetrimart/internal/types"
)

const (
	DefaultStepFraction = 0.25
	// ArrivalEpsilonKm is how close counts as "at the door".
	ArrivalEpsilonKm = 0.05
)

// Simulator has no clock and no goroutine: progress happens only when a
// client polls and the caller invokes Advance.
type Simulator struct {
	stepFraction float64
	epsilonKm    float64
}

func NewSimulator(stepFraction float64) *Simulator {
	if stepFraction <= 0 || stepFraction > 1 {
		stepFraction = DefaultStepFraction
	}
	return &Simulator{stepFraction: stepFraction, epsilonKm: ArrivalEpsilonKm}
}

// Advance returns the next position and whether it is at the destination.
// Already-arrived positions are returned unchanged.
func (s *Simulator) Advance(current, dest types.GeoPoint) (types.GeoPoint, bool) {
	if geo.DistanceKm(current, dest) <= s.epsilonKm {
		return dest, true
	}
	next := geo.Interpolate(current, dest, s.stepFraction)
	if geo.DistanceKm(next, dest) <= s.epsilonKm {
		return dest, true
	}
	return next, false
}

// StepsToArrive counts the polls needed to go from start to dest.
func (s *Simulator) StepsToArrive(start, dest types.GeoPoint) int {
	cur := start
	for steps := 0; ; steps++ {
		if geo.DistanceKm(cur, dest) <= s.epsilonKm {
			return steps
		}
		cur, _ = s.Advance(cur, dest)
	}
}
