package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vetrimart/internal/modules/geo"
	"vetrimart/internal/types"
)

var (
	warehouse = types.GeoPoint{Lat: 12.9716, Lng: 77.5946}
	customer  = types.GeoPoint{Lat: 13.00, Lng: 77.65}
)

func TestAdvance_DistanceStrictlyDecreases(t *testing.T) {
	s := NewSimulator(DefaultStepFraction)
	cur := warehouse
	prev := geo.DistanceKm(cur, customer)
	for i := 0; i < 100; i++ {
		next, arrived := s.Advance(cur, customer)
		d := geo.DistanceKm(next, customer)
		if arrived {
			assert.Equal(t, customer, next)
			return
		}
		assert.Less(t, d, prev, "poll %d", i)
		prev = d
		cur = next
	}
	t.Fatal("never arrived")
}

func TestAdvance_NoOpAtDestination(t *testing.T) {
	s := NewSimulator(DefaultStepFraction)
	next, arrived := s.Advance(customer, customer)
	assert.True(t, arrived)
	assert.Equal(t, customer, next)
}

func TestAdvance_WithinEpsilonSnaps(t *testing.T) {
	s := NewSimulator(DefaultStepFraction)
	near := types.GeoPoint{Lat: customer.Lat + 0.0003, Lng: customer.Lng}
	next, arrived := s.Advance(near, customer)
	assert.True(t, arrived)
	assert.Equal(t, customer, next)
}

func TestStepsToArrive_Bounded(t *testing.T) {
	s := NewSimulator(DefaultStepFraction)
	steps := s.StepsToArrive(warehouse, customer)
	// ~7 km shrinking by 3/4 per poll reaches 50 m in under 20 polls.
	assert.Greater(t, steps, 1)
	assert.LessOrEqual(t, steps, 20)
	assert.Equal(t, 0, s.StepsToArrive(customer, customer))
}

func TestNewSimulator_BadFractionFallsBack(t *testing.T) {
	s := NewSimulator(0)
	assert.Equal(t, DefaultStepFraction, s.stepFraction)
	s = NewSimulator(1.5)
	assert.Equal(t, DefaultStepFraction, s.stepFraction)
}
