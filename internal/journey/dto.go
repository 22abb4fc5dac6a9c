package journey

// CheckInRequest opens a journey for a patient. Name and contact are
// snapshotted onto the record as-is.
type CheckInRequest struct {
	PatientID      string `json:"patient_id" validate:"required,max=64"`
	PatientName    string `json:"patient_name" validate:"required,max=200"`
	PatientContact string `json:"patient_contact" validate:"required,max=200"`
}

// CompleteStepRequest marks a station done for a patient's active journey.
// Cost is the amount the billing collaborator quoted for the station; this
// service records it, it never computes pricing.
type CompleteStepRequest struct {
	PatientID string   `json:"patient_id" validate:"required,max=64"`
	Station   Station  `json:"-"`
	StaffID   string   `json:"-"`
	StaffRole string   `json:"-"`
	Notes     *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Cost      *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
}

// SkipStepRequest marks a station skipped without a cost.
type SkipStepRequest struct {
	PatientID string  `json:"patient_id" validate:"required,max=64"`
	Station   Station `json:"-"`
	StaffID   string  `json:"-"`
	StaffRole string  `json:"-"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// StaffBoardEntry is one row of the staff polling view: the journey plus the
// stations the polling caller may act on right now.
type StaffBoardEntry struct {
	Journey        *Journey  `json:"journey"`
	ActionStations []Station `json:"action_stations"`
}
