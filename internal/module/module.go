// Package module declares how business modules plug into the process: each
// module contributes a manifest of model factories and an optional set of
// schema migrations.
package module

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Deps are the shared collaborators handed to every model factory.
type Deps struct {
	Pool        *pgxpool.Pool
	Cache       *cache.Store
	Logger      *slog.Logger
	Permissions *rbac.Service
	Audit       shared.AuditRecorder
	Events      shared.EventPublisher
}

// Factory instantiates one business object.
type Factory func(Deps) (rpc.Model, error)

// Manifest is what a module exposes to the process.
type Manifest struct {
	Code       string
	Migrations *db.MigrationSet
	// Models maps "<model-id>.<sub-type>" keys to factories.
	Models map[string]Factory
}

// Registry holds every instantiated business object. It is immutable once built.
type Registry struct {
	models map[string]rpc.Model
	owners map[string]string
}

// NewRegistry instantiates every model declared by the manifests. Keys must be
// well formed and unique across modules.
func NewRegistry(deps Deps, manifests ...Manifest) (*Registry, error) {
	r := &Registry{models: map[string]rpc.Model{}, owners: map[string]string{}}
	for _, m := range manifests {
		for key, factory := range m.Models {
			if _, _, err := rpc.ParseModelKey(key); err != nil {
				return nil, fmt.Errorf("module %s: %w", m.Code, err)
			}
			if owner, dup := r.owners[key]; dup {
				return nil, fmt.Errorf("module %s: model %s already registered by %s", m.Code, key, owner)
			}
			if factory == nil {
				return nil, fmt.Errorf("module %s: model %s has no factory", m.Code, key)
			}
			model, err := factory(deps)
			if err != nil {
				return nil, fmt.Errorf("module %s: build %s: %w", m.Code, key, err)
			}
			r.models[key] = model
			r.owners[key] = m.Code
		}
	}
	return r, nil
}

// Model implements rpc.Registry.
func (r *Registry) Model(key string) (rpc.Model, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.models[key]
	return m, ok
}

// Keys lists the registered model keys sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.models))
	for k := range r.models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}

// Migrations collects the migration sets declared by manifests, in order.
func Migrations(manifests ...Manifest) []db.MigrationSet {
	var sets []db.MigrationSet
	for _, m := range manifests {
		if m.Migrations != nil {
			sets = append(sets, *m.Migrations)
		}
	}
	return sets
}
