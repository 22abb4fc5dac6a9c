package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/clinicflow/internal/platform/httpx"
)

func completedJourney(t *testing.T) *Journey {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	j := NewJourney("j-1", "p-1", "Ana Sari", "+62 811 000 111", now)
	for i := range j.Steps {
		done := now.Add(time.Duration(i+1) * 10 * time.Minute)
		j.Steps[i].Status = StepCompleted
		j.Steps[i].CompletedAt = &done
	}
	j.Costs = map[Station]float64{
		StationPayment:  50,
		StationAnalyst:  30,
		StationDoctor:   75,
		StationPharmacy: 20,
	}
	j.Recompute(now.Add(time.Hour))
	require.Equal(t, StatusCompleted, j.OverallStatus)
	return j
}

func TestGenerateReceiptRequiresCompletedJourney(t *testing.T) {
	now := time.Now().UTC()
	j := NewJourney("j-1", "p-1", "Ana Sari", "+62 811 000 111", now)

	_, err := GenerateReceipt(j)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestGenerateReceiptItemizesInCanonicalOrder(t *testing.T) {
	j := completedJourney(t)

	receipt, err := GenerateReceipt(j)
	require.NoError(t, err)

	assert.Equal(t, "Ana Sari", receipt.PatientName)
	assert.Equal(t, j.CheckInTime, receipt.CheckInTime)
	assert.Equal(t, *j.CheckOutTime, receipt.CheckOutTime)
	assert.Equal(t, 175.0, receipt.Total)
	assert.Equal(t, "175.00", receipt.TotalFormatted)

	// Registration recorded no cost, so it yields no line.
	require.Len(t, receipt.Lines, 4)
	assert.Equal(t, StationPayment, receipt.Lines[0].Station)
	assert.Equal(t, StationAnalyst, receipt.Lines[1].Station)
	assert.Equal(t, StationDoctor, receipt.Lines[2].Station)
	assert.Equal(t, StationPharmacy, receipt.Lines[3].Station)
	assert.Equal(t, "50.00", receipt.Lines[0].Formatted)
}

func TestGenerateReceiptIsPure(t *testing.T) {
	j := completedJourney(t)
	before := *j.TotalCost

	_, err := GenerateReceipt(j)
	require.NoError(t, err)
	_, err = GenerateReceipt(j)
	require.NoError(t, err)

	assert.Equal(t, before, *j.TotalCost)
	assert.False(t, j.ReceiptGenerated, "the generator itself never flips the flag")
}
