package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeStepCompleted fans a station completion out to the
	// notification collaborator.
	TaskTypeStepCompleted = "journey:step_completed"
	// TaskTypeIntegritySweep triggers the nightly derived-field audit.
	TaskTypeIntegritySweep = "journey:integrity_sweep"
)

// StepCompletedPayload describes a station completion event.
type StepCompletedPayload struct {
	JourneyID        string `json:"journey_id"`
	PatientID        string `json:"patient_id"`
	Station          string `json:"station"`
	StaffID          string `json:"staff_id"`
	JourneyCompleted bool   `json:"journey_completed"`
}

// NewStepCompletedTask constructs an Asynq task.
func NewStepCompletedTask(payload StepCompletedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeStepCompleted, data), nil
}

// HandleStepCompletedTask processes TaskTypeStepCompleted tasks by handing
// the event to the notification channel. The state machine never depends on
// this side channel.
func HandleStepCompletedTask(ctx context.Context, t *asynq.Task) error {
	var payload StepCompletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// TODO: hand off to the SMS gateway once its credentials land.
	slog.Default().Info("patient notification",
		slog.String("patient_id", payload.PatientID),
		slog.String("station", payload.Station),
		slog.Bool("journey_completed", payload.JourneyCompleted))
	return nil
}

// NewIntegritySweepTask constructs the periodic integrity sweep task.
func NewIntegritySweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIntegritySweep, nil)
}
