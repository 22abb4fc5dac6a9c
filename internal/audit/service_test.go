package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	rows []TimelineRow
}

func (r stubRepository) TimelineWindow(_ context.Context, _ TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	if offset >= len(r.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.rows) {
		end = len(r.rows)
	}
	return r.rows[offset:end], nil
}

func (r stubRepository) TimelineAll(context.Context, TimelineFilters) ([]TimelineRow, error) {
	return r.rows, nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, 0, n)
	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			At:       base.Add(time.Duration(i) * time.Minute),
			Actor:    "s-1",
			Action:   "journey.step_completed",
			Entity:   "journey",
			EntityID: fmt.Sprintf("j-%d", i),
		})
	}
	return rows
}

func TestTimelinePagesWithHasNext(t *testing.T) {
	svc := NewService(stubRepository{rows: makeRows(25)})

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 20)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.Page)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 5)
	assert.False(t, result.Paging.HasNext)
}

func TestTimelineClampsPageSize(t *testing.T) {
	svc := NewService(stubRepository{rows: makeRows(120)})

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, result.Rows, maxPageSize)
	assert.Equal(t, maxPageSize, result.Paging.PageSize)
}

func TestWriteCSV(t *testing.T) {
	payload, err := CSVExporter{}.WriteCSV(makeRows(2))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "at,actor,action,entity,entity_id", lines[0])
	assert.Contains(t, lines[1], "journey.step_completed")
	assert.Contains(t, lines[1], "j-0")
}
