package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
)

func TestAllModelKeysAreUniqueAndWellFormed(t *testing.T) {
	seen := map[string]string{}
	for _, m := range All() {
		require.NotEmpty(t, m.Code)
		for key, factory := range m.Models {
			_, _, err := rpc.ParseModelKey(key)
			require.NoError(t, err, key)
			require.NotNil(t, factory, key)
			owner, dup := seen[key]
			assert.False(t, dup, "%s registered by %s and %s", key, owner, m.Code)
			seen[key] = m.Code
		}
	}
	for _, key := range []string{
		"roles.list", "roles.dropdown", "roles.curd",
		"users.list", "users.dropdown", "users.curd",
		"permissions.list", "permissions.dropdown", "rbac.curd",
		"audit.list",
	} {
		assert.Contains(t, seen, key)
	}
}

func TestMigrationsIncludeAudit(t *testing.T) {
	sets := module.Migrations(All()...)
	modulesWithSchema := make([]string, 0, len(sets))
	for _, set := range sets {
		modulesWithSchema = append(modulesWithSchema, set.Module)
	}
	assert.Contains(t, modulesWithSchema, "audit")
}
