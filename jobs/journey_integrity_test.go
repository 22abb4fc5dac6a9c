package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicflow/clinicflow/internal/journey"
)

type listOnlyRepo struct {
	journey.Repository
	journeys []*journey.Journey
}

func (r listOnlyRepo) ListActive(context.Context) ([]*journey.Journey, error) {
	return r.journeys, nil
}

func TestIntegritySweepAcceptsConsistentJourney(t *testing.T) {
	j := journey.NewJourney("j-1", "p-1", "A", "c", time.Now().UTC())

	err := RunJourneyIntegritySweep(context.Background(), listOnlyRepo{journeys: []*journey.Journey{j}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Empty(t, checkDerivedFields(j))
}

func TestIntegritySweepFlagsDriftedPointer(t *testing.T) {
	j := journey.NewJourney("j-1", "p-1", "A", "c", time.Now().UTC())
	wrong := journey.StationPharmacy
	j.CurrentStep = &wrong

	require.NotEmpty(t, checkDerivedFields(j))
}

func TestIntegritySweepFlagsStuckActiveJourney(t *testing.T) {
	j := journey.NewJourney("j-1", "p-1", "A", "c", time.Now().UTC())
	for i := range j.Steps {
		j.Steps[i].Status = journey.StepCompleted
	}
	// Steps all terminal but derived fields never recomputed.
	j.CurrentStep = nil

	require.NotEmpty(t, checkDerivedFields(j))
}
