package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
)

// PermissionAdmin is the slice of the permission engine the operator commands use.
type PermissionAdmin interface {
	GetEffectivePermissions(ctx context.Context, userID int64, forceRefresh bool) (rbac.EffectivePermissions, error)
	InvalidateUser(ctx context.Context, userID int64) bool
	InvalidateRole(ctx context.Context, roleID int64) (int, error)
	InvalidateAll(ctx context.Context) int
}

// Loader resolves the permission engine lazily so commands that do not need
// it never touch the stores.
type Loader func(ctx context.Context) (PermissionAdmin, error)

// RBACOpsCLI offers operational helpers for permissions and their cache.
type RBACOpsCLI struct {
	load    Loader
	migrate func(ctx context.Context) error
}

// NewRBACOpsCLI constructs the helper.
func NewRBACOpsCLI(load Loader, migrate func(ctx context.Context) error) (*RBACOpsCLI, error) {
	if load == nil {
		return nil, errors.New("rbac cli: permission loader required")
	}
	return &RBACOpsCLI{load: load, migrate: migrate}, nil
}

// CachePurgeOptions defines flags for cache purge. Zero ids purge everything.
type CachePurgeOptions struct {
	UserID     int64
	RoleID     int64
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CachePurgeSummary is the JSON output of cache purge.
type CachePurgeSummary struct {
	Scope   string `json:"scope"`
	ID      int64  `json:"id,omitempty"`
	Removed int    `json:"removed"`
}

// CacheInspectOptions defines flags for cache inspect.
type CacheInspectOptions struct {
	UserID     int64
	Refresh    bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

const usage = `usage: odyssey rbac <command>

commands:
  migrate                                  apply database migrations
  cache purge [--user N | --role N] [--json]
  cache inspect --user N [--refresh] [--json]
`

// Run dispatches "rbac" subcommands and returns the process exit code.
func (c *RBACOpsCLI) Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	switch {
	case len(args) >= 1 && args[0] == "migrate":
		return c.MigrateCommand(ctx, stdout, stderr)
	case len(args) >= 2 && args[0] == "cache" && args[1] == "purge":
		opts := CachePurgeOptions{Stdout: stdout, Stderr: stderr}
		fs := newFlagSet("cache purge", stderr)
		fs.Int64Var(&opts.UserID, "user", 0, "purge one user's entry")
		fs.Int64Var(&opts.RoleID, "role", 0, "purge the entries of every member of a role")
		fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		return c.PurgeCommand(ctx, opts)
	case len(args) >= 2 && args[0] == "cache" && args[1] == "inspect":
		opts := CacheInspectOptions{Stdout: stdout, Stderr: stderr}
		fs := newFlagSet("cache inspect", stderr)
		fs.Int64Var(&opts.UserID, "user", 0, "user to resolve")
		fs.BoolVar(&opts.Refresh, "refresh", false, "bypass the cache and recompute")
		fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		return c.InspectCommand(ctx, opts)
	default:
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// MigrateCommand applies the schema.
func (c *RBACOpsCLI) MigrateCommand(ctx context.Context, stdout, stderr io.Writer) int {
	if c.migrate == nil {
		_, _ = fmt.Fprintln(stderr, "rbac migrate: migrations not configured")
		return 1
	}
	if err := c.migrate(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "rbac migrate: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "migrations applied")
	return 0
}

// PurgeCommand drops cached permission sets.
func (c *RBACOpsCLI) PurgeCommand(ctx context.Context, opts CachePurgeOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.UserID < 0 || opts.RoleID < 0 || (opts.UserID > 0 && opts.RoleID > 0) {
		_, _ = fmt.Fprintln(opts.Stderr, "cache purge: use at most one of --user or --role with a positive id")
		return 1
	}
	admin, err := c.load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cache purge: %v\n", err)
		return 1
	}

	summary := CachePurgeSummary{Scope: "all"}
	switch {
	case opts.UserID > 0:
		summary.Scope, summary.ID = "user", opts.UserID
		if admin.InvalidateUser(ctx, opts.UserID) {
			summary.Removed = 1
		}
	case opts.RoleID > 0:
		summary.Scope, summary.ID = "role", opts.RoleID
		removed, err := admin.InvalidateRole(ctx, opts.RoleID)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "cache purge: %v\n", err)
			return 1
		}
		summary.Removed = removed
	default:
		summary.Removed = admin.InvalidateAll(ctx)
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "cache purge: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	if summary.ID > 0 {
		_, _ = fmt.Fprintf(opts.Stdout, "purged %d entries for %s %d\n", summary.Removed, summary.Scope, summary.ID)
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "purged %d entries\n", summary.Removed)
	}
	return 0
}

// InspectCommand prints a user's effective permissions.
func (c *RBACOpsCLI) InspectCommand(ctx context.Context, opts CacheInspectOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.UserID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "cache inspect: --user is required and must be positive")
		return 1
	}
	admin, err := c.load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cache inspect: %v\n", err)
		return 1
	}
	perms, err := admin.GetEffectivePermissions(ctx, opts.UserID, opts.Refresh)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cache inspect: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(perms); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "cache inspect: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderInspectHuman(opts.Stdout, opts.UserID, perms)
	return 0
}

func renderInspectHuman(w io.Writer, userID int64, perms rbac.EffectivePermissions) {
	_, _ = fmt.Fprintf(w, "user %d\n", userID)
	roles := make([]string, 0, len(perms.Roles))
	for _, r := range perms.Roles {
		roles = append(roles, r.Code)
	}
	_, _ = fmt.Fprintf(w, "  roles:         %s\n", joinOrDash(roles))
	_, _ = fmt.Fprintf(w, "  global admin:  %t\n", perms.IsGlobalAdmin)
	_, _ = fmt.Fprintf(w, "  admin modules: %s\n", joinOrDash(perms.AdminModuleList()))
	_, _ = fmt.Fprintf(w, "  permissions:   %d\n", len(perms.Permissions))
	for _, key := range perms.PermissionList() {
		_, _ = fmt.Fprintf(w, "    - %s\n", key)
	}
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
