package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicflow/clinicflow/internal/authz"
	"github.com/clinicflow/clinicflow/internal/platform/httpx"
	"github.com/clinicflow/clinicflow/internal/shared"
)

const maxDateRange = 90 * 24 * time.Hour

// Handler serves the admin audit trail endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	exporter CSVExporter
}

// NewHandler creates an audit trail handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes. All of them require the admin role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit/timeline", h.timeline)
	r.Get("/audit/timeline.csv", h.exportCSV)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload, err := h.exporter.WriteCSV(rows)
	if err != nil {
		h.logger.Error("write audit csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	_, _ = w.Write(payload)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	principal := shared.PrincipalFromContext(r.Context())
	if !principal.IsStaff() || principal.Role != authz.RoleAdmin {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "admin role required")
		return false
	}
	return true
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Actor:    q.Get("actor"),
		Action:   q.Get("action"),
		EntityID: q.Get("entity_id"),
	}
	var err error
	if filters.From, err = parseTime(q.Get("from")); err != nil {
		return filters, fmt.Errorf("invalid from: %w", err)
	}
	if filters.To, err = parseTime(q.Get("to")); err != nil {
		return filters, fmt.Errorf("invalid to: %w", err)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() {
		if filters.To.Before(filters.From) {
			return filters, fmt.Errorf("to precedes from")
		}
		if filters.To.Sub(filters.From) > maxDateRange {
			return filters, fmt.Errorf("date range exceeds 90 days")
		}
	}
	if filters.Page, err = parseInt(q.Get("page")); err != nil {
		return filters, fmt.Errorf("invalid page: %w", err)
	}
	if filters.PageSize, err = parseInt(q.Get("page_size")); err != nil {
		return filters, fmt.Errorf("invalid page_size: %w", err)
	}
	return filters, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
