package module

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
)

type stubModel struct{ name string }

func (s stubModel) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{
		"getData": func(ctx context.Context, params rpc.Params, req *http.Request) (any, error) { return s.name, nil },
	}
}

func factory(name string) Factory {
	return func(Deps) (rpc.Model, error) { return stubModel{name: name}, nil }
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(Deps{},
		Manifest{Code: "sales", Models: map[string]Factory{"sales.list": factory("a"), "sales.curd": factory("b")}},
		Manifest{Code: "stock", Models: map[string]Factory{"stock.dropdown": factory("c")}},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"sales.curd", "sales.list", "stock.dropdown"}, reg.Keys())

	m, ok := reg.Model("stock.dropdown")
	require.True(t, ok)
	assert.Equal(t, stubModel{name: "c"}, m)

	_, ok = reg.Model("stock.list")
	assert.False(t, ok)

	var nilReg *Registry
	_, ok = nilReg.Model("sales.list")
	assert.False(t, ok)
}

func TestNewRegistryRejectsBadManifests(t *testing.T) {
	_, err := NewRegistry(Deps{},
		Manifest{Code: "a", Models: map[string]Factory{"x.list": factory("1")}},
		Manifest{Code: "b", Models: map[string]Factory{"x.list": factory("2")}},
	)
	require.ErrorContains(t, err, "already registered by a")

	_, err = NewRegistry(Deps{}, Manifest{Code: "a", Models: map[string]Factory{"x.export": factory("1")}})
	require.Error(t, err)

	_, err = NewRegistry(Deps{}, Manifest{Code: "a", Models: map[string]Factory{"x.list": nil}})
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = NewRegistry(Deps{}, Manifest{Code: "a", Models: map[string]Factory{
		"x.list": func(Deps) (rpc.Model, error) { return nil, boom },
	}})
	require.ErrorIs(t, err, boom)
}

func TestMigrations(t *testing.T) {
	set := db.MigrationSet{Module: "sales", Dir: "migrations"}
	sets := Migrations(Manifest{Code: "core"}, Manifest{Code: "sales", Migrations: &set})
	assert.Equal(t, []db.MigrationSet{set}, sets)
}
