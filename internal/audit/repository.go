package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed audit repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const timelineQuery = `
SELECT occurred_at, actor_id, action, entity, entity_id
FROM journey_audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::text IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR action = $4)
  AND ($5::text IS NULL OR entity_id = $5)
ORDER BY occurred_at DESC, id DESC`

func (r *pgRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery+" OFFSET $6 LIMIT $7",
		toPgTime(filters.From), toPgTime(filters.To),
		optionalText(filters.Actor), optionalText(filters.Action), optionalText(filters.EntityID),
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTimelineRows(rows)
}

func (r *pgRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery,
		toPgTime(filters.From), toPgTime(filters.To),
		optionalText(filters.Actor), optionalText(filters.Action), optionalText(filters.EntityID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTimelineRows(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTimelineRows(rows rowScanner) ([]TimelineRow, error) {
	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.Actor, &row.Action, &row.Entity, &row.EntityID); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
