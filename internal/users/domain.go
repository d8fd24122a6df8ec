package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// User represents a user account for management.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows user listings.
type ListFilter struct {
	Search   string `json:"search" validate:"max=128"`
	RoleID   int64  `json:"roleId" validate:"gte=0"`
	IsActive *bool  `json:"isActive"`
	Page     int    `json:"page" validate:"gte=0"`
	PerPage  int    `json:"perPage" validate:"gte=0,lte=200"`
}

// ListResult is one page of users.
type ListResult struct {
	Items      []User            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// Option is a dropdown entry.
type Option struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
	Email string `json:"email"`
}

// OptionsFilter narrows dropdown entries.
type OptionsFilter struct {
	Search string `json:"search" validate:"max=128"`
	Limit  int    `json:"limit" validate:"gte=0,lte=200"`
}
