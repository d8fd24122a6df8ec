// Package audit exposes the audit_logs timeline written by management
// mutations.
package audit

import (
	"context"
	"embed"
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Manifest exposes the audit timeline and seeds its permission.
func Manifest() module.Manifest {
	return module.Manifest{
		Code:       "audit",
		Migrations: &db.MigrationSet{Module: "audit", FS: migrations, Dir: "migrations"},
		Models: map[string]module.Factory{
			"audit.list": func(deps module.Deps) (rpc.Model, error) {
				if deps.Pool == nil {
					return nil, errors.New("audit: database pool required")
				}
				return NewListModel(NewService(NewRepository(deps.Pool))), nil
			},
		},
	}
}

// ListModel serves the paged timeline.
type ListModel struct {
	rpc.Rules
	svc *Service
}

// NewListModel builds the audit.list object.
func NewListModel(svc *Service) *ListModel {
	return &ListModel{svc: svc, Rules: rpc.Rules{"getData": rpc.Require(PermAuditView)}}
}

// Methods implements rpc.Model.
func (m *ListModel) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{"getData": m.getData}
}

func (m *ListModel) getData(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var filters TimelineFilters
	if err := params.Bind(&filters); err != nil {
		return nil, err
	}
	return m.svc.Timeline(ctx, filters)
}
