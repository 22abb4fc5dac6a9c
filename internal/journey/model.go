package journey

import (
	"fmt"
	"time"
)

// Station identifies one sequential physical step of a clinic visit.
type Station string

const (
	StationRegistration Station = "registration"
	StationPayment      Station = "payment"
	StationAnalyst      Station = "analyst"
	StationDoctor       Station = "doctor"
	StationPharmacy     Station = "pharmacy"
)

// CanonicalStations is the fixed order a journey passes through. The set and
// order are fixed at check-in and never reordered.
var CanonicalStations = []Station{
	StationRegistration,
	StationPayment,
	StationAnalyst,
	StationDoctor,
	StationPharmacy,
}

// ParseStation validates a station key.
func ParseStation(s string) (Station, error) {
	switch Station(s) {
	case StationRegistration, StationPayment, StationAnalyst, StationDoctor, StationPharmacy:
		return Station(s), nil
	default:
		return "", fmt.Errorf("unknown station: %s", s)
	}
}

// StepStatus is the per-station progress state. Transitions are monotonic:
// pending→in_progress→completed and pending|in_progress→skipped.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
)

// Terminal reports whether the status admits no further transition.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepSkipped
}

// OverallStatus is the journey-level state, derived from the steps.
type OverallStatus string

const (
	StatusActive    OverallStatus = "active"
	StatusCompleted OverallStatus = "completed"
)

// StepRecord tracks one station within a journey.
type StepRecord struct {
	Step        Station    `json:"step"`
	Status      StepStatus `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	StaffID     *string    `json:"staff_id,omitempty"`
}

// Journey is one patient's end-to-end visit, from check-in to check-out.
// CurrentStep, OverallStatus, CheckOutTime and TotalCost are derived from
// Steps and Costs inside every mutation; they are never written on their own.
type Journey struct {
	ID               string              `json:"id" db:"id"`
	PatientID        string              `json:"patient_id" db:"patient_id"`
	PatientName      string              `json:"patient_name" db:"patient_name"`
	PatientContact   string              `json:"patient_contact" db:"patient_contact"`
	CheckInTime      time.Time           `json:"check_in_time" db:"check_in_time"`
	CheckOutTime     *time.Time          `json:"check_out_time,omitempty" db:"check_out_time"`
	Steps            []StepRecord        `json:"steps" db:"steps"`
	OverallStatus    OverallStatus       `json:"overall_status" db:"overall_status"`
	CurrentStep      *Station            `json:"current_step,omitempty" db:"current_step"`
	Costs            map[Station]float64 `json:"costs" db:"costs"`
	TotalCost        *float64            `json:"total_cost,omitempty" db:"total_cost"`
	ReceiptGenerated bool                `json:"receipt_generated" db:"receipt_generated"`
	Version          int64               `json:"-" db:"version"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"`
}

// NewJourney creates an active journey with every canonical step pending and
// a snapshot of the patient's name and contact. Later profile edits must not
// alter visit history.
func NewJourney(id, patientID, patientName, patientContact string, now time.Time) *Journey {
	steps := make([]StepRecord, len(CanonicalStations))
	for i, station := range CanonicalStations {
		steps[i] = StepRecord{Step: station, Status: StepPending}
	}
	j := &Journey{
		ID:             id,
		PatientID:      patientID,
		PatientName:    patientName,
		PatientContact: patientContact,
		CheckInTime:    now,
		Steps:          steps,
		OverallStatus:  StatusActive,
		Costs:          make(map[Station]float64),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	j.Recompute(now)
	return j
}

// Step returns the record for station, or nil when the station is not part
// of this journey.
func (j *Journey) Step(station Station) *StepRecord {
	for i := range j.Steps {
		if j.Steps[i].Step == station {
			return &j.Steps[i]
		}
	}
	return nil
}

// Recompute rederives CurrentStep and, once every step is terminal, flips
// OverallStatus to completed, stamps CheckOutTime and sums TotalCost. The
// total is computed exactly once: a completed journey is never recomputed.
func (j *Journey) Recompute(now time.Time) {
	j.CurrentStep = deriveCurrentStep(j.Steps)
	if j.OverallStatus == StatusCompleted {
		return
	}
	if allStepsTerminal(j.Steps) {
		j.OverallStatus = StatusCompleted
		checkedOut := now
		j.CheckOutTime = &checkedOut
		total := sumCosts(j.Costs)
		j.TotalCost = &total
	}
}

// deriveCurrentStep returns the first station in canonical order that is not
// yet terminal. Skipped stations do not hold the pointer, otherwise a journey
// could never advance past one.
func deriveCurrentStep(steps []StepRecord) *Station {
	for i := range steps {
		if !steps[i].Status.Terminal() {
			station := steps[i].Step
			return &station
		}
	}
	return nil
}

func allStepsTerminal(steps []StepRecord) bool {
	for i := range steps {
		if !steps[i].Status.Terminal() {
			return false
		}
	}
	return true
}

func sumCosts(costs map[Station]float64) float64 {
	var total float64
	for _, amount := range costs {
		total += amount
	}
	return total
}
