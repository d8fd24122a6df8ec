package roles

import (
	"time"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Role is the management view of a role.
type Role struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	IsSystem     bool            `json:"isSystem"`
	Active       bool            `json:"active"`
	AdminModules map[string]bool `json:"adminModules"`
	Permissions  int             `json:"permissionCount"`
	Members      int             `json:"memberCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ListFilter narrows role listings.
type ListFilter struct {
	Search  string `json:"search" validate:"max=128"`
	Active  *bool  `json:"active"`
	Page    int    `json:"page" validate:"gte=0"`
	PerPage int    `json:"perPage" validate:"gte=0,lte=200"`
}

// ListResult is one page of roles.
type ListResult struct {
	Items      []Role            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// Option is a dropdown entry.
type Option struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
	Code  string `json:"code"`
}

// OptionsFilter narrows dropdown entries.
type OptionsFilter struct {
	Search string `json:"search" validate:"max=128"`
	Limit  int    `json:"limit" validate:"gte=0,lte=200"`
}

// CreateInput describes a new role.
type CreateInput struct {
	Code        string `json:"code" validate:"required,max=64"`
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
}

// UpdateInput changes a role's descriptive fields.
type UpdateInput struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
}
