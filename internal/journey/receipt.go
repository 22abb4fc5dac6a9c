package journey

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clinicflow/clinicflow/internal/platform/httpx"
)

// ReceiptLine is one itemised station charge.
type ReceiptLine struct {
	Station   Station `json:"station"`
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
}

// Receipt is the finalized cost breakdown of a completed journey.
type Receipt struct {
	JourneyID      string        `json:"journey_id"`
	PatientName    string        `json:"patient_name"`
	CheckInTime    time.Time     `json:"check_in_time"`
	CheckOutTime   time.Time     `json:"check_out_time"`
	Lines          []ReceiptLine `json:"lines"`
	Total          float64       `json:"total"`
	TotalFormatted string        `json:"total_formatted"`
}

var receiptPrinter = message.NewPrinter(language.English)

// GenerateReceipt formats a completed journey's accumulated costs into a
// line-itemised receipt, one line per station that recorded a charge, in
// canonical order. It is a pure function of the record.
func GenerateReceipt(j *Journey) (*Receipt, error) {
	if j.OverallStatus != StatusCompleted {
		return nil, fmt.Errorf("%w: journey %s is not completed", httpx.ErrInvalidState, j.ID)
	}
	if j.CheckOutTime == nil || j.TotalCost == nil {
		return nil, fmt.Errorf("%w: journey %s is missing check-out data", httpx.ErrInvalidState, j.ID)
	}

	lines := make([]ReceiptLine, 0, len(j.Costs))
	for _, station := range CanonicalStations {
		amount, ok := j.Costs[station]
		if !ok {
			continue
		}
		lines = append(lines, ReceiptLine{
			Station:   station,
			Amount:    amount,
			Formatted: formatAmount(amount),
		})
	}

	return &Receipt{
		JourneyID:      j.ID,
		PatientName:    j.PatientName,
		CheckInTime:    j.CheckInTime,
		CheckOutTime:   *j.CheckOutTime,
		Lines:          lines,
		Total:          *j.TotalCost,
		TotalFormatted: formatAmount(*j.TotalCost),
	}, nil
}

func formatAmount(amount float64) string {
	return receiptPrinter.Sprintf("%.2f", amount)
}
