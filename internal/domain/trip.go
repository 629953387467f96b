// Package domain contains the core data types and business rules for the
// fleet trip ledger. This package has no dependencies on other internal
// packages and is imported by every other layer (repo, service, handler).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trip is a single vehicle usage record bounded by departure/arrival time
// and an odometer reading taken at trip end.
//
// For a given vehicle the set of trips forms a ledger ordered by
// FinalOdometer; the trip with the highest FinalOdometer is the vehicle's
// "latest" trip for validation purposes, regardless of time ordering.
type Trip struct {
	ID            uuid.UUID `json:"id"`
	CompanyID     uuid.UUID `json:"companyId"`
	DriverID      uuid.UUID `json:"driverId"`
	VehicleID     uuid.UUID `json:"vehicleId"`
	DepartureAt   time.Time `json:"departureAt"`
	ArrivalAt     time.Time `json:"arrivalAt"`
	Purpose       string    `json:"purpose,omitempty"`
	FinalOdometer int64     `json:"finalOdometer"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TripPatch carries a partial update to an existing trip.
// Nil fields are left unchanged.
type TripPatch struct {
	Purpose       *string
	DepartureAt   *time.Time
	ArrivalAt     *time.Time
	FinalOdometer *int64
}

// Apply copies the patch's non-nil fields onto the trip and returns the
// result. The receiver is not modified.
func (t Trip) Apply(p TripPatch) Trip {
	if p.Purpose != nil {
		t.Purpose = *p.Purpose
	}
	if p.DepartureAt != nil {
		t.DepartureAt = *p.DepartureAt
	}
	if p.ArrivalAt != nil {
		t.ArrivalAt = *p.ArrivalAt
	}
	if p.FinalOdometer != nil {
		t.FinalOdometer = *p.FinalOdometer
	}
	return t
}

// SequenceRule identifies which ledger rule a proposed trip violated.
type SequenceRule string

const (
	RuleInvalidTimeRange          SequenceRule = "invalid_time_range"
	RuleDepartureNotAfterLastTrip SequenceRule = "departure_not_after_last_trip"
	RuleOdometerNotIncreasing     SequenceRule = "odometer_not_increasing"
)

// SequenceError is a structured rejection from the trip sequencing rules.
// It carries the conflicting prior value (the ledger's latest odometer or
// departure time) so clients can render "must exceed X" messages.
// It wraps ErrValidation, so errors.Is(err, ErrValidation) holds.
type SequenceError struct {
	Rule          SequenceRule
	Message       string
	LastOdometer  *int64
	LastDeparture *time.Time
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidation, e.Message)
}

func (e *SequenceError) Unwrap() error {
	return ErrValidation
}

// CheckTimeRange enforces that a trip arrives strictly after it departs.
// Equal timestamps are rejected.
func CheckTimeRange(departureAt, arrivalAt time.Time) error {
	if !arrivalAt.After(departureAt) {
		return &SequenceError{
			Rule:    RuleInvalidTimeRange,
			Message: "arrival must be after departure",
		}
	}
	return nil
}

// CheckDeparture enforces that a new trip departs strictly after the
// ledger's latest trip departed. latest is nil for a vehicle with no prior
// trips, in which case any departure is accepted.
func CheckDeparture(departureAt time.Time, latest *Trip) error {
	if latest == nil {
		return nil
	}
	if !departureAt.After(latest.DepartureAt) {
		last := latest.DepartureAt
		return &SequenceError{
			Rule:          RuleDepartureNotAfterLastTrip,
			Message:       fmt.Sprintf("departure must be after the last trip's departure (%s)", last.Format(time.RFC3339)),
			LastDeparture: &last,
		}
	}
	return nil
}

// CheckOdometer enforces that a trip's final odometer strictly exceeds the
// ledger's latest. latest is nil for a vehicle with no prior trips, in
// which case any reading is accepted (the schema rejects negatives).
func CheckOdometer(finalOdometer int64, latest *Trip) error {
	if latest == nil {
		return nil
	}
	if finalOdometer <= latest.FinalOdometer {
		last := latest.FinalOdometer
		return &SequenceError{
			Rule:         RuleOdometerNotIncreasing,
			Message:      fmt.Sprintf("final odometer must exceed %d", last),
			LastOdometer: &last,
		}
	}
	return nil
}
