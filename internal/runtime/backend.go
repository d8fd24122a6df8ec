package runtime

import (
	"context"

	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// RPCBackend adapts the Context to the dispatcher. Every lookup first makes
// sure bootstrap has completed.
func (c *Context) RPCBackend() rpc.Backend {
	return rpcBackend{c: c}
}

type rpcBackend struct {
	c *Context
}

func (b rpcBackend) Registry(ctx context.Context) (rpc.Registry, error) {
	if err := b.c.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	return b.c.Models(), nil
}

func (b rpcBackend) Permissions(ctx context.Context) (rpc.PermissionChecker, error) {
	if err := b.c.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	return b.c.Permissions(), nil
}

// PermissionService returns the permission engine once bootstrap has completed.
// It satisfies rbac.ServiceSource.
func (c *Context) PermissionService(ctx context.Context) (*rbac.Service, error) {
	if err := c.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	return c.Permissions(), nil
}

// Authorizer adapts the Context to the HTTP guard middleware.
func (c *Context) Authorizer() rbac.Authorizer {
	return lazyAuthorizer{c: c}
}

type lazyAuthorizer struct {
	c *Context
}

func (a lazyAuthorizer) HasAnyPermission(ctx context.Context, userID int64, keys []string) (bool, error) {
	svc, err := a.c.PermissionService(ctx)
	if err != nil {
		return false, err
	}
	return svc.HasAnyPermission(ctx, userID, keys)
}

func (a lazyAuthorizer) HasAllPermissions(ctx context.Context, userID int64, keys []string) (bool, error) {
	svc, err := a.c.PermissionService(ctx)
	if err != nil {
		return false, err
	}
	return svc.HasAllPermissions(ctx, userID, keys)
}

// SecurityPublisher forwards security events to the configured topic once
// bootstrap has completed. Events raised earlier are only logged.
func (c *Context) SecurityPublisher() shared.EventPublisher {
	return securityForwarder{c: c}
}

type securityForwarder struct {
	c *Context
}

func (f securityForwarder) Publish(ctx context.Context, key string, payload any) error {
	if !f.c.Ready() {
		return nil
	}
	producer := f.c.mustState().stores.SecurityEvents
	if producer == nil {
		return nil
	}
	return producer.Publish(ctx, key, payload)
}
