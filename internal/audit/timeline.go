// Package audit exposes the admin-facing trail of journey actions.
package audit

import "time"

// TimelineFilters narrows the audit trail query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Action   string
	EntityID string
	Page     int
	PageSize int
}

// TimelineRow is one recorded action.
type TimelineRow struct {
	At       time.Time `json:"at"`
	Actor    string    `json:"actor"`
	Action   string    `json:"action"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
}

// PagingInfo carries pagination metadata alongside a timeline page.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
}

// Result bundles a timeline page with its paging info.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
