package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStation(t *testing.T) {
	for _, station := range CanonicalStations {
		parsed, err := ParseStation(string(station))
		require.NoError(t, err)
		assert.Equal(t, station, parsed)
	}

	_, err := ParseStation("x-ray")
	require.Error(t, err)
}

func TestDeriveCurrentStepSkipsTerminalStations(t *testing.T) {
	now := time.Now().UTC()
	j := NewJourney("j-1", "p-1", "A", "c", now)

	j.Steps[0].Status = StepCompleted
	j.Steps[1].Status = StepSkipped
	j.Recompute(now)

	require.NotNil(t, j.CurrentStep)
	assert.Equal(t, StationAnalyst, *j.CurrentStep)
	assert.Equal(t, StatusActive, j.OverallStatus)
}

func TestRecomputeFinalizesOnceAllTerminal(t *testing.T) {
	now := time.Now().UTC()
	j := NewJourney("j-1", "p-1", "A", "c", now)
	for i := range j.Steps {
		j.Steps[i].Status = StepCompleted
	}
	j.Costs = map[Station]float64{StationDoctor: 75, StationPharmacy: 20}

	j.Recompute(now)

	assert.Nil(t, j.CurrentStep)
	assert.Equal(t, StatusCompleted, j.OverallStatus)
	require.NotNil(t, j.CheckOutTime)
	require.NotNil(t, j.TotalCost)
	assert.Equal(t, 95.0, *j.TotalCost)
}

func TestRecomputeDoesNotRecomputeCompletedJourney(t *testing.T) {
	now := time.Now().UTC()
	j := NewJourney("j-1", "p-1", "A", "c", now)
	for i := range j.Steps {
		j.Steps[i].Status = StepCompleted
	}
	j.Costs = map[Station]float64{StationDoctor: 75}
	j.Recompute(now)

	firstCheckout := *j.CheckOutTime
	firstTotal := *j.TotalCost

	// A later recompute must not move the checkout time or the total.
	j.Costs[StationPharmacy] = 1000
	j.Recompute(now.Add(time.Hour))

	assert.Equal(t, firstCheckout, *j.CheckOutTime)
	assert.Equal(t, firstTotal, *j.TotalCost)
}

func TestStepStatusTerminal(t *testing.T) {
	assert.False(t, StepPending.Terminal())
	assert.False(t, StepInProgress.Terminal())
	assert.True(t, StepCompleted.Terminal())
	assert.True(t, StepSkipped.Terminal())
}
