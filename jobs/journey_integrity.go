package jobs

import (
	"context"
	"log/slog"

	"github.com/clinicflow/clinicflow/internal/journey"
)

// RunJourneyIntegritySweep recomputes the derived fields of every active
// journey from its step list and reports drift. It never mutates records;
// drift means a writer bypassed the state machine and needs investigating.
func RunJourneyIntegritySweep(ctx context.Context, repo journey.Repository, logger *slog.Logger) error {
	journeys, err := repo.ListActive(ctx)
	if err != nil {
		return err
	}

	var drifted int
	for _, j := range journeys {
		if driftReason := checkDerivedFields(j); driftReason != "" {
			drifted++
			logger.Warn("journey derived-field drift",
				slog.String("journey_id", j.ID),
				slog.String("reason", driftReason))
		}
	}
	logger.Info("journey integrity sweep finished",
		slog.Int("active", len(journeys)),
		slog.Int("drifted", drifted))
	return nil
}

func checkDerivedFields(j *journey.Journey) string {
	expected := firstOpenStation(j)
	switch {
	case expected == nil && j.CurrentStep != nil:
		return "current_step set but all steps terminal"
	case expected != nil && j.CurrentStep == nil:
		return "current_step missing"
	case expected != nil && *j.CurrentStep != *expected:
		return "current_step points at wrong station"
	}
	if j.OverallStatus == journey.StatusActive && expected == nil {
		return "all steps terminal but journey still active"
	}
	return ""
}

func firstOpenStation(j *journey.Journey) *journey.Station {
	for i := range j.Steps {
		if !j.Steps[i].Status.Terminal() {
			station := j.Steps[i].Step
			return &station
		}
	}
	return nil
}
