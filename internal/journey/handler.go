package journey

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicflow/clinicflow/internal/platform/httpx"
	"github.com/clinicflow/clinicflow/internal/shared"
)

// BoardGate extends the authorization gate with the capability listing the
// staff polling view renders its controls from. Both answers come from the
// same table; the service still re-validates every write.
type BoardGate interface {
	Gate
	StationsFor(role string) []Station
}

// Handler exposes the journey tracker over HTTP.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	projection   *ActiveProjection
	gate         BoardGate
	validate     *validator.Validate
	pollInterval time.Duration
}

// NewHandler constructs the HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, projection *ActiveProjection, gate BoardGate, pollInterval time.Duration) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		projection:   projection,
		gate:         gate,
		validate:     validator.New(),
		pollInterval: pollInterval,
	}
}

// CheckIn opens a journey for the calling patient.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if !principal.IsPatient() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "patient identity required")
		return
	}

	var req CheckInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	req.PatientID = principal.PatientID
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	j, err := h.service.CheckIn(r.Context(), req)
	if err != nil {
		h.logger.Info("check-in rejected", slog.String("patient_id", req.PatientID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, j)
}

// GetMine returns the calling patient's active journey. The patient view
// polls this endpoint on a fixed interval until it observes completion.
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if !principal.IsPatient() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "patient identity required")
		return
	}

	j, err := h.service.GetActive(r.Context(), principal.PatientID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.setPollHeader(w)
	httpx.JSON(w, http.StatusOK, j)
}

// ListActive returns every active journey for the staff board, plus the
// stations the caller may act on. Each response is a full-state snapshot.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if !principal.IsStaff() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "staff identity required")
		return
	}

	var (
		journeys []*Journey
		err      error
	)
	if h.projection != nil {
		journeys, err = h.projection.ListActive(r.Context())
	} else {
		journeys, err = h.service.ListActive(r.Context())
	}
	if err != nil {
		h.logger.Error("list active journeys failed", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err))
		return
	}

	stations := h.gate.StationsFor(principal.Role)
	entries := make([]StaffBoardEntry, 0, len(journeys))
	for _, j := range journeys {
		entries = append(entries, StaffBoardEntry{Journey: j, ActionStations: stations})
	}
	h.setPollHeader(w)
	httpx.JSON(w, http.StatusOK, entries)
}

// CompleteStep marks a station done on a patient's journey.
func (h *Handler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StepCompleted)
}

// SkipStep marks a station skipped on a patient's journey.
func (h *Handler) SkipStep(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StepSkipped)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target StepStatus) {
	principal := shared.PrincipalFromContext(r.Context())
	if !principal.IsStaff() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "staff identity required")
		return
	}

	station, err := ParseStation(chi.URLParam(r, "station"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	var req CompleteStepRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	req.Station = station
	req.StaffID = principal.StaffID
	req.StaffRole = principal.Role
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	var j *Journey
	if target == StepSkipped {
		j, err = h.service.SkipStep(r.Context(), SkipStepRequest{
			PatientID: req.PatientID,
			Station:   station,
			StaffID:   principal.StaffID,
			StaffRole: principal.Role,
			Notes:     req.Notes,
		})
	} else {
		j, err = h.service.CompleteStep(r.Context(), req)
	}
	if err != nil {
		h.logger.Info("step transition rejected",
			slog.String("patient_id", req.PatientID),
			slog.String("station", string(station)),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, j)
}

// GetReceipt returns the itemised receipt for the calling patient's
// completed journey.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
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
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) setPollHeader(w http.ResponseWriter) {
	seconds := int(h.pollInterval / time.Second)
	if seconds <= 0 {
		seconds = 5
	}
	w.Header().Set("X-Poll-Interval", strconv.Itoa(seconds))
}
