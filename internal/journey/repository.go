package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

// Storage-level sentinels. The service translates these into caller-facing
// errors; handlers never see them directly.
var (
	// ErrNotFound indicates no matching journey record.
	ErrNotFound = errors.New("journey not found")
	// ErrConflict indicates an active journey already exists for the patient.
	ErrConflict = errors.New("active journey already exists")
	// ErrVersionConflict indicates a concurrent writer won the version race.
	ErrVersionConflict = errors.New("journey version conflict")
)

// Repository is durable keyed storage of journey records plus the active
// journey lookup by patient. It owns no business logic.
type Repository interface {
	Create(ctx context.Context, j *Journey) error
	Get(ctx context.Context, id string) (*Journey, error)
	GetActiveByPatient(ctx context.Context, patientID string) (*Journey, error)
	// GetLatestByPatient returns the patient's most recent journey in any
	// state, for receipt retrieval after check-out.
	GetLatestByPatient(ctx context.Context, patientID string) (*Journey, error)
	// GetLatestCompletedByPatient returns the patient's most recent
	// completed journey, so receipts stay reachable once a newer visit
	// is underway.
	GetLatestCompletedByPatient(ctx context.Context, patientID string) (*Journey, error)
	ListActive(ctx context.Context) ([]*Journey, error)
	// Update applies the full record as a compare-and-swap on expectedVersion.
	// On success the stored version becomes expectedVersion+1.
	Update(ctx context.Context, j *Journey, expectedVersion int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const journeyColumns = `id, patient_id, patient_name, patient_contact, check_in_time, check_out_time,
	steps, overall_status, current_step, costs, total_cost, receipt_generated, version, created_at, updated_at`

func (r *repository) Create(ctx context.Context, j *Journey) error {
	stepsJSON, costsJSON, err := marshalDerived(j)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO journeys (`+journeyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		j.ID, j.PatientID, j.PatientName, j.PatientContact, j.CheckInTime, j.CheckOutTime,
		stepsJSON, j.OverallStatus, currentStepValue(j), costsJSON, j.TotalCost,
		j.ReceiptGenerated, j.Version, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("create journey: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*Journey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = $1`, id)
	return scanJourney(row)
}

func (r *repository) GetActiveByPatient(ctx context.Context, patientID string) (*Journey, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+journeyColumns+` FROM journeys
		WHERE patient_id = $1 AND overall_status = 'active'`, patientID)
	return scanJourney(row)
}

func (r *repository) GetLatestByPatient(ctx context.Context, patientID string) (*Journey, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+journeyColumns+` FROM journeys
		WHERE patient_id = $1
		ORDER BY check_in_time DESC
		LIMIT 1`, patientID)
	return scanJourney(row)
}

func (r *repository) GetLatestCompletedByPatient(ctx context.Context, patientID string) (*Journey, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+journeyColumns+` FROM journeys
		WHERE patient_id = $1 AND overall_status = 'completed'
		ORDER BY check_in_time DESC
		LIMIT 1`, patientID)
	return scanJourney(row)
}

func (r *repository) ListActive(ctx context.Context) ([]*Journey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+journeyColumns+` FROM journeys
		WHERE overall_status = 'active'
		ORDER BY check_in_time`)
	if err != nil {
		return nil, fmt.Errorf("list active journeys: %w", err)
	}
	defer rows.Close()

	var journeys []*Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	return journeys, rows.Err()
}

func (r *repository) Update(ctx context.Context, j *Journey, expectedVersion int64) error {
	stepsJSON, costsJSON, err := marshalDerived(j)
	if err != nil {
		return err
	}
	// The CAS write and the zero-rows disambiguation read share one
	// RepeatableRead transaction, so both observe the same snapshot.
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE journeys
			SET check_out_time = $1, steps = $2, overall_status = $3, current_step = $4,
			    costs = $5, total_cost = $6, receipt_generated = $7,
			    version = version + 1, updated_at = $8
			WHERE id = $9 AND version = $10`,
			j.CheckOutTime, stepsJSON, j.OverallStatus, currentStepValue(j),
			costsJSON, j.TotalCost, j.ReceiptGenerated, j.UpdatedAt,
			j.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update journey: %w", err)
		}
		if tag.RowsAffected() == 0 {
			row := tx.QueryRow(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = $1`, j.ID)
			if _, err := scanJourney(row); errors.Is(err, ErrNotFound) {
				return ErrNotFound
			}
			return ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return err
	}
	j.Version = expectedVersion + 1
	return nil
}

func marshalDerived(j *Journey) (stepsJSON, costsJSON []byte, err error) {
	stepsJSON, err = json.Marshal(j.Steps)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal steps: %w", err)
	}
	costsJSON, err = json.Marshal(j.Costs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal costs: %w", err)
	}
	return stepsJSON, costsJSON, nil
}

func currentStepValue(j *Journey) *string {
	if j.CurrentStep == nil {
		return nil
	}
	s := string(*j.CurrentStep)
	return &s
}

func scanJourney(row pgx.Row) (*Journey, error) {
	var (
		j           Journey
		stepsJSON   []byte
		costsJSON   []byte
		currentStep *string
	)
	err := row.Scan(
		&j.ID, &j.PatientID, &j.PatientName, &j.PatientContact, &j.CheckInTime, &j.CheckOutTime,
		&stepsJSON, &j.OverallStatus, &currentStep, &costsJSON, &j.TotalCost,
		&j.ReceiptGenerated, &j.Version, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan journey: %w", err)
	}
	if err := json.Unmarshal(stepsJSON, &j.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(costsJSON, &j.Costs); err != nil {
		return nil, fmt.Errorf("unmarshal costs: %w", err)
	}
	if currentStep != nil {
		station := Station(*currentStep)
		j.CurrentStep = &station
	}
	return &j, nil
}
