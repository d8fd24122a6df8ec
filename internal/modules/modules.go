// Package modules lists every business module compiled into the binary.
package modules

import (
	"github.com/odyssey-erp/odyssey-rpc/internal/audit"
	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac/admin"
	"github.com/odyssey-erp/odyssey-rpc/internal/roles"
	"github.com/odyssey-erp/odyssey-rpc/internal/users"
)

// All returns the manifests in registration order.
func All() []module.Manifest {
	return []module.Manifest{
		admin.Manifest(),
		roles.Manifest(),
		users.Manifest(),
		audit.Manifest(),
	}
}
