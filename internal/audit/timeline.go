package audit

import "time"

// PermAuditView gates the audit timeline.
const PermAuditView = "audit.view"

// TimelineFilters narrows the audit timeline.
type TimelineFilters struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	ActorID  int64     `json:"actorId" validate:"gte=0"`
	Entity   string    `json:"entity" validate:"max=64"`
	EntityID string    `json:"entityId" validate:"max=64"`
	Action   string    `json:"action" validate:"max=64"`
	Page     int       `json:"page" validate:"gte=0"`
	PageSize int       `json:"pageSize" validate:"gte=0"`
}

// TimelineRow is one audit entry.
type TimelineRow struct {
	ID       int64          `json:"id"`
	At       time.Time      `json:"at"`
	ActorID  int64          `json:"actorId"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo is cursorless next/prev paging; the total is never counted.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
