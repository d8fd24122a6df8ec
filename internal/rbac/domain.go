package rbac

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Permission is an immutable catalog entry identified by a dotted key.
type Permission struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Module      string `json:"module"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Role represents a high-level permission grouping.
type Role struct {
	ID           int64
	Code         string
	Name         string
	Description  string
	IsSystem     bool
	Active       bool
	AdminModules map[string]bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RolePermission ties a permission to a role. Removal deactivates the link.
type RolePermission struct {
	RoleID       int64
	PermissionID int64
	Active       bool
	UpdatedAt    time.Time
}

// UserRole links a user to a role. Revocation deactivates the link.
type UserRole struct {
	UserID     int64
	RoleID     int64
	Active     bool
	AssignedBy int64
	AssignedAt time.Time
}

// UserPermissionOverride grants a permission directly to a user.
type UserPermissionOverride struct {
	UserID       int64
	PermissionID int64
	Active       bool
	GrantedBy    int64
	UpdatedAt    time.Time
}

// RoleRef is the role summary carried in an effective permission result.
type RoleRef struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// EffectivePermissions is the derived authorization state of a user.
type EffectivePermissions struct {
	Permissions   map[string]struct{}
	Roles         []RoleRef
	IsGlobalAdmin bool
	AdminModules  map[string]struct{}
}

// Has reports whether key is granted, either directly, through module admin
// scope, or through global admin.
func (e EffectivePermissions) Has(key string) bool {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return false
	}
	if e.IsGlobalAdmin {
		return true
	}
	if module, _, ok := strings.Cut(key, "."); ok {
		if _, admin := e.AdminModules[module]; admin {
			return true
		}
	}
	_, ok := e.Permissions[key]
	return ok
}

// HasAll reports whether every key is granted. An empty list is vacuously true.
func (e EffectivePermissions) HasAll(keys []string) bool {
	for _, k := range keys {
		if !e.Has(k) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one key is granted. An empty list is true.
func (e EffectivePermissions) HasAny(keys []string) bool {
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		if e.Has(k) {
			return true
		}
	}
	return false
}

// PermissionList returns the permission set sorted.
func (e EffectivePermissions) PermissionList() []string {
	return sortedKeys(e.Permissions)
}

// AdminModuleList returns the admin modules sorted.
func (e EffectivePermissions) AdminModuleList() []string {
	return sortedKeys(e.AdminModules)
}

// MarshalJSON encodes the sets as sorted arrays.
func (e EffectivePermissions) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.toCached())
}

// cachedPermissions is the serializable shape stored at the cache boundary.
type cachedPermissions struct {
	Permissions   []string  `json:"permissions"`
	Roles         []RoleRef `json:"roles"`
	IsGlobalAdmin bool      `json:"isGlobalAdmin"`
	AdminModules  []string  `json:"adminModules"`
	Version       int64     `json:"version,omitempty"`
}

func (e EffectivePermissions) toCached() cachedPermissions {
	roles := e.Roles
	if roles == nil {
		roles = []RoleRef{}
	}
	return cachedPermissions{
		Permissions:   e.PermissionList(),
		Roles:         roles,
		IsGlobalAdmin: e.IsGlobalAdmin,
		AdminModules:  e.AdminModuleList(),
	}
}

func (c cachedPermissions) wellFormed() bool {
	return c.Permissions != nil && c.Roles != nil && c.AdminModules != nil
}

func (c cachedPermissions) toEffective() EffectivePermissions {
	return EffectivePermissions{
		Permissions:   toSet(c.Permissions),
		Roles:         c.Roles,
		IsGlobalAdmin: c.IsGlobalAdmin,
		AdminModules:  toSet(c.AdminModules),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
