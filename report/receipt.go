package report

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinicflow/clinicflow/internal/journey"
	"github.com/clinicflow/clinicflow/internal/platform/httpx"
	"github.com/clinicflow/clinicflow/internal/shared"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><title>Visit Receipt</title></head>
<body>
  <h1>Visit Receipt</h1>
  <p>{{ .PatientName }}</p>
  <p>Checked in: {{ .CheckInTime.Format "2006-01-02 15:04" }}<br>
     Checked out: {{ .CheckOutTime.Format "2006-01-02 15:04" }}</p>
  <table border="1" cellpadding="6" cellspacing="0">
    <tr><th>Station</th><th>Amount</th></tr>
    {{ range .Lines }}<tr><td>{{ .Station }}</td><td>{{ .Formatted }}</td></tr>
    {{ end }}<tr><th>Total</th><th>{{ .TotalFormatted }}</th></tr>
  </table>
</body>
</html>`))

// Handler serves the printable receipt.
type Handler struct {
	client  *Client
	service *journey.Service
	logger  *slog.Logger
}

// NewHandler creates a receipt report handler.
func NewHandler(client *Client, service *journey.Service, logger *slog.Logger) *Handler {
	return &Handler{client: client, service: service, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/journeys/me/receipt.pdf", h.receiptPDF)
}

func (h *Handler) receiptPDF(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if !principal.IsPatient() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "patient identity required")
		return
	}

	receipt, err := h.service.Receipt(r.Context(), principal.PatientID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	html, err := RenderReceiptHTML(receipt)
	if err != nil {
		h.logger.Error("render receipt html", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render receipt pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "receipt rendering unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+receipt.JourneyID+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

// RenderReceiptHTML renders the receipt into the printable HTML document.
func RenderReceiptHTML(receipt *journey.Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, receipt); err != nil {
		return "", err
	}
	return buf.String(), nil
}
