// README: Delivery feasibility: distance + slot + speed model -> ETA and verdict.
package delivery

import (
	"fmt"
	"math"
	"time"

	"vetrimart/internal/modules/geo"
	"vetrimart/internal/modules/slot"
	"vetrimart/internal/types"
)

// DefaultSpeedKmph is the average rider speed used by the deadline check.
const DefaultSpeedKmph = 15.0

const (
	DayToday    = "Today"
	DayTomorrow = "Tomorrow"
)

type Mode string

const (
	// ModeDispatch adds a stepped handling buffer to the slot start.
	ModeDispatch Mode = "dispatch"
	// ModeDeadline checks whether a rider leaving now reaches before slot end.
	ModeDeadline Mode = "deadline"
)

type Result struct {
	Mode             Mode
	DistanceKm       float64
	EstimatedMinutes float64
	BufferMinutes    int
	ETA              time.Time
	Window           slot.Resolved
	DayLabel         string
	Feasible         bool
	Message          string
}

// Evaluator answers "can we promise this slot" for a fixed store location.
type Evaluator struct {
	store     types.GeoPoint
	speedKmph float64
	loc       *time.Location
}

func NewEvaluator(store types.GeoPoint, speedKmph float64, loc *time.Location) *Evaluator {
	if speedKmph <= 0 {
		speedKmph = DefaultSpeedKmph
	}
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{store: store, speedKmph: speedKmph, loc: loc}
}

func (e *Evaluator) Store() types.GeoPoint { return e.store }

func (e *Evaluator) Location() *time.Location { return e.loc }

// StepBuffer is the dispatch tariff: short trips get a flat handling buffer.
func StepBuffer(distanceKm float64) time.Duration {
	switch {
	case distanceKm <= 3:
		return 20 * time.Minute
	case distanceKm <= 6:
		return 30 * time.Minute
	case distanceKm <= 8:
		return 40 * time.Minute
	case distanceKm <= 12:
		return 50 * time.Minute
	default:
		return 60 * time.Minute
	}
}

// EvaluateDispatch computes the dispatch-buffer ETA for the chosen slot. The
// slot rolls to tomorrow once its start has passed. Always feasible.
func (e *Evaluator) EvaluateDispatch(dest types.GeoPoint, slotRaw string, now time.Time) (Result, error) {
	now = now.In(e.loc)
	distance := geo.DistanceKm(e.store, dest)

	_, window, err := slot.ParseResolve(slotRaw, now, now, slot.RollForwardPastStart)
	if err != nil {
		return Result{}, err
	}

	buffer := StepBuffer(distance)
	eta := window.Start.Add(buffer)

	return Result{
		Mode:             ModeDispatch,
		DistanceKm:       distance,
		EstimatedMinutes: buffer.Minutes(),
		BufferMinutes:    int(buffer / time.Minute),
		ETA:              eta,
		Window:           window,
		DayLabel:         dayLabel(eta, now),
		Feasible:         true,
		Message:          fmt.Sprintf("ETA %s (Distance %.1f km)", eta.Format(slot.DisplayLayout), distance),
	}, nil
}

// EvaluateDeadline estimates a continuous travel time from now and reports
// whether the rider arrives before the slot closes. The slot rolls to
// tomorrow only once its end has passed.
func (e *Evaluator) EvaluateDeadline(dest types.GeoPoint, slotRaw string, now time.Time) (Result, error) {
	now = now.In(e.loc)
	distance := geo.DistanceKm(e.store, dest)

	_, window, err := slot.ParseResolve(slotRaw, now, now, slot.RollForwardPastEnd)
	if err != nil {
		return Result{}, err
	}

	minutes := distance / e.speedKmph * 60
	eta := now.Add(time.Duration(minutes * float64(time.Minute)))
	feasible := !eta.After(window.End)

	res := Result{
		Mode:             ModeDeadline,
		DistanceKm:       distance,
		EstimatedMinutes: minutes,
		ETA:              eta,
		Window:           window,
		DayLabel:         dayLabel(eta, now),
		Feasible:         feasible,
	}
	if feasible {
		res.Message = fmt.Sprintf("Delivery expected within chosen slot (%s). ETA: %s, Distance: %.1f km, Estimated time: %s.",
			window, eta.Format(slot.DisplayLayout), distance, FormatDuration(minutes))
	} else {
		res.Message = fmt.Sprintf("Delivery might not reach within the selected slot (%s). ETA: %s (Distance: %.1f km, Estimated time: %s).",
			window, eta.Format(slot.DisplayLayout), distance, FormatDuration(minutes))
	}
	return res, nil
}

// FormatDuration renders minutes as "40 minutes", "1 hr 20 min" or "2 hr".
func FormatDuration(minutes float64) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", int(math.Round(minutes)))
	}
	hours := int(minutes / 60)
	mins := int(math.Mod(minutes, 60))
	if mins > 0 {
		return fmt.Sprintf("%d hr %d min", hours, mins)
	}
	return fmt.Sprintf("%d hr", hours)
}

func dayLabel(eta, now time.Time) string {
	ey, em, ed := eta.Date()
	ny, nm, nd := now.Date()
	if ey == ny && em == nm && ed == nd {
		return DayToday
	}
	return DayTomorrow
}
