package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/httpx"
	"github.com/clinicflow/clinicflow/internal/shared"
)

// maxUpdateAttempts bounds the read-validate-write retry loop. Each retry
// re-reads and re-validates, so a concurrent duplicate completion surfaces
// as an invalid transition rather than a double apply.
const maxUpdateAttempts = 3

// Gate decides whether a staff role may transition a station.
type Gate interface {
	CanComplete(role string, station Station) bool
}

// StepNotification is handed to the notification side channel after a
// successful completion. Delivery is best-effort and never required for
// correctness of the state machine.
type StepNotification struct {
	JourneyID        string
	PatientID        string
	Station          Station
	StaffID          string
	JourneyCompleted bool
}

// Notifier dispatches completion events to the external notification
// collaborator.
type Notifier interface {
	StepCompleted(ctx context.Context, n StepNotification) error
}

// Auditor records journey mutations for the external audit collaborator.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics receives journey-level counters.
type Metrics interface {
	CheckIn()
	StepCompleted(station string)
	Rejection(reason string)
}

// Service is the journey state machine. All mutations go through the
// repository's compare-and-swap update, so two racing writers resolve to
// exactly one winner; the loser re-validates against fresh state.
type Service struct {
	repo       Repository
	gate       Gate
	logger     *slog.Logger
	notifier   Notifier
	auditor    Auditor
	metrics    Metrics
	projection *ActiveProjection
}

// ServiceOption customises optional service collaborators.
type ServiceOption func(*Service)

// WithNotifier wires the completion notification side channel.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithAuditor wires the audit side channel.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) { s.auditor = a }
}

// WithMetrics wires journey counters.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithProjection wires the staff polling projection so mutations can
// invalidate it.
func WithProjection(p *ActiveProjection) ServiceOption {
	return func(s *Service) { s.projection = p }
}

// NewService constructs the journey state machine.
func NewService(repo Repository, gate Gate, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, gate: gate, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn opens a journey for the patient with every canonical step pending.
// The one-active-journey-per-patient invariant is enforced by the store's
// uniqueness constraint, not by a read-then-write check.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*Journey, error) {
	now := time.Now().UTC()
	j := NewJourney(uuid.NewString(), req.PatientID, req.PatientName, req.PatientContact, now)

	if err := s.repo.Create(ctx, j); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: patient %s already has an active journey", httpx.ErrConflict, req.PatientID)
		}
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
	}

	if s.metrics != nil {
		s.metrics.CheckIn()
	}
	s.audit(ctx, req.PatientID, "journey.check_in", j.ID, map[string]any{"patient_id": req.PatientID})
	s.invalidateProjection(ctx)
	return j, nil
}

// CompleteStep marks a station done on the patient's active journey. The
// validation chain runs in a fixed order: lookup, authorization, terminal
// guard, ordering guard. A failed step leaves the record untouched.
func (s *Service) CompleteStep(ctx context.Context, req CompleteStepRequest) (*Journey, error) {
	return s.transition(ctx, transitionRequest{
		patientID: req.PatientID,
		station:   req.Station,
		staffID:   req.StaffID,
		staffRole: req.StaffRole,
		notes:     req.Notes,
		cost:      req.Cost,
		target:    StepCompleted,
	})
}

// SkipStep marks a station skipped. The same authorization and ordering
// rules apply; no cost is recorded for a skipped station.
func (s *Service) SkipStep(ctx context.Context, req SkipStepRequest) (*Journey, error) {
	return s.transition(ctx, transitionRequest{
		patientID: req.PatientID,
		station:   req.Station,
		staffID:   req.StaffID,
		staffRole: req.StaffRole,
		notes:     req.Notes,
		target:    StepSkipped,
	})
}

type transitionRequest struct {
	patientID string
	station   Station
	staffID   string
	staffRole string
	notes     *string
	cost      *float64
	target    StepStatus
}

func (s *Service) transition(ctx context.Context, req transitionRequest) (*Journey, error) {
	var (
		lastJourneyID string
		lastErr       error
	)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		j, err := s.repo.GetActiveByPatient(ctx, req.patientID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, s.notFoundAfterRace(ctx, lastJourneyID, req)
			}
			lastErr = err
			continue
		}
		lastJourneyID = j.ID

		if !s.gate.CanComplete(req.staffRole, req.station) {
			s.reject("unauthorized")
			return nil, fmt.Errorf("%w: role %s may not act on station %s", httpx.ErrUnauthorized, req.staffRole, req.station)
		}

		step := j.Step(req.station)
		if step == nil {
			return nil, fmt.Errorf("%w: station %s is not part of this journey", httpx.ErrValidation, req.station)
		}
		if step.Status.Terminal() {
			s.reject("invalid_transition")
			return nil, fmt.Errorf("%w: station %s is already %s", httpx.ErrInvalidTransition, req.station, step.Status)
		}
		if j.CurrentStep == nil || *j.CurrentStep != req.station {
			s.reject("out_of_order")
			return nil, fmt.Errorf("%w: station %s cannot be acted on while current step is %s", httpx.ErrOutOfOrder, req.station, currentStepLabel(j))
		}

		now := time.Now().UTC()
		step.Status = req.target
		step.CompletedAt = &now
		staffID := req.staffID
		step.StaffID = &staffID
		if req.notes != nil {
			step.Notes = req.notes
		}
		if req.cost != nil {
			j.Costs[req.station] = *req.cost
		}
		j.Recompute(now)
		j.UpdatedAt = now

		err = s.repo.Update(ctx, j, j.Version)
		switch {
		case err == nil:
			s.afterTransition(ctx, j, req)
			return j, nil
		case errors.Is(err, ErrVersionConflict):
			// A concurrent writer won; re-read and re-validate.
			continue
		case errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("%w: journey %s no longer exists", httpx.ErrNotFound, j.ID)
		default:
			lastErr = err
		}
	}
	s.logger.Error("journey transition exhausted retries",
		slog.String("patient_id", req.patientID),
		slog.String("station", string(req.station)),
		slog.Any("error", lastErr))
	return nil, fmt.Errorf("%w: could not apply transition for station %s", httpx.ErrUnavailable, req.station)
}

// notFoundAfterRace distinguishes "no visit at all" from "a concurrent
// writer just completed the journey". The latter reports the duplicate
// action on the target station instead of a misleading not-found.
func (s *Service) notFoundAfterRace(ctx context.Context, journeyID string, req transitionRequest) error {
	if journeyID != "" {
		if prev, err := s.repo.Get(ctx, journeyID); err == nil {
			if step := prev.Step(req.station); step != nil && step.Status.Terminal() {
				s.reject("invalid_transition")
				return fmt.Errorf("%w: station %s is already %s", httpx.ErrInvalidTransition, req.station, step.Status)
			}
		}
	}
	s.reject("not_found")
	return fmt.Errorf("%w: no active journey for patient %s", httpx.ErrNotFound, req.patientID)
}

func (s *Service) afterTransition(ctx context.Context, j *Journey, req transitionRequest) {
	if s.metrics != nil && req.target == StepCompleted {
		s.metrics.StepCompleted(string(req.station))
	}
	action := "journey.step_completed"
	if req.target == StepSkipped {
		action = "journey.step_skipped"
	}
	s.audit(ctx, req.staffID, action, j.ID, map[string]any{
		"station":        string(req.station),
		"overall_status": string(j.OverallStatus),
	})
	if s.notifier != nil && req.target == StepCompleted {
		n := StepNotification{
			JourneyID:        j.ID,
			PatientID:        j.PatientID,
			Station:          req.station,
			StaffID:          req.staffID,
			JourneyCompleted: j.OverallStatus == StatusCompleted,
		}
		if err := s.notifier.StepCompleted(ctx, n); err != nil {
			s.logger.Warn("step completion notification failed",
				slog.String("journey_id", j.ID),
				slog.Any("error", err))
		}
	}
	s.invalidateProjection(ctx)
}

// GetActive returns the patient's active journey for the patient polling view.
func (s *Service) GetActive(ctx context.Context, patientID string) (*Journey, error) {
	j, err := s.repo.GetActiveByPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no active journey for patient %s", httpx.ErrNotFound, patientID)
		}
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
	}
	return j, nil
}

// ListActive returns every active journey for the staff polling view.
func (s *Service) ListActive(ctx context.Context) ([]*Journey, error) {
	journeys, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
	}
	return journeys, nil
}

// Receipt returns the itemised receipt for the patient's most recent
// completed journey. A newer active visit does not hide it: the lookup
// falls back past the open journey. The first successful call records
// the receipt_generated flag through the same serialized update path;
// repeats are idempotent reads.
func (s *Service) Receipt(ctx context.Context, patientID string) (*Receipt, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		j, err := s.latestReceiptable(ctx, patientID)
		if err != nil {
			return nil, err
		}

		receipt, err := GenerateReceipt(j)
		if err != nil {
			return nil, err
		}
		if j.ReceiptGenerated {
			return receipt, nil
		}

		j.ReceiptGenerated = true
		j.UpdatedAt = time.Now().UTC()
		err = s.repo.Update(ctx, j, j.Version)
		switch {
		case err == nil:
			s.audit(ctx, patientID, "journey.receipt_generated", j.ID, nil)
			return receipt, nil
		case errors.Is(err, ErrVersionConflict):
			continue
		default:
			return nil, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
		}
	}
	return nil, fmt.Errorf("%w: could not record receipt generation", httpx.ErrUnavailable)
}

// latestReceiptable resolves the journey a receipt request refers to: the
// most recent journey when it is completed, otherwise the most recent
// completed one. A patient mid-first-visit has neither and gets the
// not-completed rejection for the open journey.
func (s *Service) latestReceiptable(ctx context.Context, patientID string) (*Journey, error) {
	j, err := s.repo.GetLatestByPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no journey for patient %s", httpx.ErrNotFound, patientID)
		}
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
	}
	if j.OverallStatus == StatusCompleted {
		return j, nil
	}

	prev, err := s.repo.GetLatestCompletedByPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: journey %s is not completed", httpx.ErrInvalidState, j.ID)
		}
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
	}
	return prev, nil
}

func (s *Service) audit(ctx context.Context, actorID, action, journeyID string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journey",
		EntityID: journeyID,
		Meta:     meta,
		At:       time.Now().UTC(),
	}
	if err := s.auditor.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) invalidateProjection(ctx context.Context) {
	if s.projection == nil {
		return
	}
	s.projection.Invalidate(ctx)
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.Rejection(reason)
	}
}

func currentStepLabel(j *Journey) string {
	if j.CurrentStep == nil {
		return "none"
	}
	return string(*j.CurrentStep)
}
